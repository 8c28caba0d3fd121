// Package config provides YAML-based configuration loading for comlink.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/allbin/go-comlink"
)

// Config is the root CLI configuration.
type Config struct {
	// Log holds logging configuration
	Log LogConfig `mapstructure:"log"`

	// Serial holds line settings used for serial endpoints
	Serial SerialConfig `mapstructure:"serial"`

	// Socket holds settings used for tcp:// endpoints
	Socket SocketConfig `mapstructure:"socket"`

	// Timeouts bound blocking reads and writes on every endpoint
	Timeouts TimeoutConfig `mapstructure:"timeouts"`
}

// LogConfig defines logger settings.
type LogConfig struct {
	// Level: debug, info, warn, error
	Level string `mapstructure:"level"`
	// Format: console or json
	Format string `mapstructure:"format"`
	// Outputs: list of outputs: stdout, stderr, or file paths
	Outputs []string `mapstructure:"outputs"`

	// Rotation controls file rotation when writing to files
	Rotation RotationConfig `mapstructure:"rotation"`
	// Development toggles development-friendly logging options
	Development bool `mapstructure:"development"`
}

// RotationConfig controls log file rotation for file outputs.
type RotationConfig struct {
	Enable     bool   `mapstructure:"enable"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// SerialConfig mirrors the serial line options. Parity and flow control are
// the single-character codes the library accepts.
type SerialConfig struct {
	Baud        int    `mapstructure:"baud"`
	DataBits    int    `mapstructure:"data_bits"`
	StopBits    int    `mapstructure:"stop_bits"`
	Parity      string `mapstructure:"parity"`
	FlowControl string `mapstructure:"flow_control"`
}

// SocketConfig holds TCP specific settings.
type SocketConfig struct {
	OpenTimeoutMS int `mapstructure:"open_timeout_ms"`
}

// TimeoutConfig holds read and write bounds in milliseconds.
type TimeoutConfig struct {
	ReadMS  int `mapstructure:"read_ms"`
	WriteMS int `mapstructure:"write_ms"`
}

// Default returns a Config populated with sensible defaults.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:   "warn",
			Format:  "console",
			Outputs: []string{"stderr"},
			Rotation: RotationConfig{
				Enable:     false,
				Filename:   "logs/comlink.log",
				MaxSizeMB:  50,
				MaxBackups: 3,
				MaxAgeDays: 28,
				Compress:   true,
			},
		},
		Serial: SerialConfig{
			Baud:        115200,
			DataBits:    8,
			StopBits:    1,
			Parity:      "n",
			FlowControl: "n",
		},
		Socket:   SocketConfig{OpenTimeoutMS: 1000},
		Timeouts: TimeoutConfig{ReadMS: 1000, WriteMS: 1000},
	}
}

// Load reads configuration from the provided path (if non-empty),
// otherwise it searches common locations and supports environment overrides.
// Environment variables use the prefix COMLINK and `.`/`-` are replaced with `_`.
// Example: COMLINK_SERIAL_BAUD=9600
func Load(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("COMLINK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// seed defaults for viper so env-only configs work
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.outputs", cfg.Log.Outputs)
	v.SetDefault("log.development", cfg.Log.Development)
	v.SetDefault("log.rotation.enable", cfg.Log.Rotation.Enable)
	v.SetDefault("log.rotation.filename", cfg.Log.Rotation.Filename)
	v.SetDefault("log.rotation.max_size_mb", cfg.Log.Rotation.MaxSizeMB)
	v.SetDefault("log.rotation.max_backups", cfg.Log.Rotation.MaxBackups)
	v.SetDefault("log.rotation.max_age_days", cfg.Log.Rotation.MaxAgeDays)
	v.SetDefault("log.rotation.compress", cfg.Log.Rotation.Compress)
	v.SetDefault("serial.baud", cfg.Serial.Baud)
	v.SetDefault("serial.data_bits", cfg.Serial.DataBits)
	v.SetDefault("serial.stop_bits", cfg.Serial.StopBits)
	v.SetDefault("serial.parity", cfg.Serial.Parity)
	v.SetDefault("serial.flow_control", cfg.Serial.FlowControl)
	v.SetDefault("socket.open_timeout_ms", cfg.Socket.OpenTimeoutMS)
	v.SetDefault("timeouts.read_ms", cfg.Timeouts.ReadMS)
	v.SetDefault("timeouts.write_ms", cfg.Timeouts.WriteMS)

	if path == "" {
		if envPath := os.Getenv("COMLINK_CONFIG"); envPath != "" {
			path = envPath
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("comlink")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "comlink"))
		}
	}

	// Read config file if present; if not found, continue with defaults/env
	if err := v.ReadInConfig(); err != nil {
		var viperConfigFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &viperConfigFileNotFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate normalizes the configuration and checks the serial and socket
// sections with the same rules the library applies.
func (c *Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Log.Level)) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log.level: %q", c.Log.Level)
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if len(c.Log.Outputs) == 0 {
		c.Log.Outputs = []string{"stderr"}
	}

	probe := comlink.DefaultSerialConfig()
	probe.Device = "/dev/null"
	for _, opt := range c.SerialOptions() {
		if err := opt(&probe); err != nil {
			return fmt.Errorf("invalid serial section: %w", err)
		}
	}
	sock := comlink.DefaultSocketConfig()
	for _, opt := range c.SocketOptions() {
		if err := opt(&sock); err != nil {
			return fmt.Errorf("invalid socket section: %w", err)
		}
	}
	return nil
}

// SerialOptions converts the serial and timeouts sections to library options.
func (c *Config) SerialOptions() []comlink.SerialOption {
	return []comlink.SerialOption{
		comlink.WithBaudRate(c.Serial.Baud),
		comlink.WithDataBits(c.Serial.DataBits),
		comlink.WithStopBits(c.Serial.StopBits),
		comlink.WithParity(code(c.Serial.Parity)),
		comlink.WithFlowControl(code(c.Serial.FlowControl)),
		comlink.WithSerialReadTimeout(ms(c.Timeouts.ReadMS)),
		comlink.WithSerialWriteTimeout(ms(c.Timeouts.WriteMS)),
	}
}

// SocketOptions converts the socket and timeouts sections to library options.
func (c *Config) SocketOptions() []comlink.SocketOption {
	return []comlink.SocketOption{
		comlink.WithOpenTimeout(ms(c.Socket.OpenTimeoutMS)),
		comlink.WithSocketReadTimeout(ms(c.Timeouts.ReadMS)),
		comlink.WithSocketWriteTimeout(ms(c.Timeouts.WriteMS)),
	}
}

// code returns the first byte of a code string, 0 when empty.
func code(s string) byte {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	return s[0]
}

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}
