/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/allbin/go-comlink/internal/config"
	"github.com/allbin/go-comlink/internal/logging"
)

var (
	cfgFile string
	cfg     = config.Default()
	logger  = zap.NewNop()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "comlink",
	Short: "Talk to serial lines and TCP peers through one byte-stream interface",
	Long: `comlink opens a serial line or a TCP connection and moves bytes over it
with bounded, cancellable reads and writes.

Endpoints:
  /dev/ttyUSB0, serial:/dev/ttyS0   serial line
  tcp://192.168.1.20:3444           TCP client
  tcp://:3444                       TCP server, accepts one peer

Settings come from flags, then the config file (--config, $COMLINK_CONFIG,
or comlink.yaml in . or ~/.config/comlink), then COMLINK_* environment
variables, then defaults.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	defer func() { _ = logger.Sync() }()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Path to YAML config file")
	pf.String("log-level", "", "Log level: debug, info, warn, error")
	pf.String("log-format", "", "Log format: console or json")
	pf.DurationP("timeout", "t", 0, "Read and write timeout (default from config, 1s)")
	pf.Duration("open-timeout", 0, "TCP connect/accept timeout (default from config, 1s)")
	pf.IntP("baud", "b", 0, "Baud rate (default 115200)")
	pf.Int("data-bits", 0, "Data bits: 5-8 (default 8)")
	pf.Int("stop-bits", 0, "Stop bits: 1, 2, or 3 for 1.5 (default 1)")
	pf.String("parity", "", "Parity: n, e, o (default n)")
	pf.StringP("flow-control", "f", "", "Flow control: n, h (RTS/CTS), s (XON/XOFF) (default n)")
}

// setup loads configuration, applies flag overrides and builds the logger.
func setup(cmd *cobra.Command, _ []string) error {
	loaded, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	applyFlags(cmd, loaded)
	if err := loaded.Validate(); err != nil {
		return err
	}

	log, err := logging.Setup(loaded.Log)
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	cfg = loaded
	logger = log
	logger.Debug("configuration loaded", zap.String("command", cmd.Name()), zap.String("config", cfgFile))
	return nil
}

// applyFlags copies explicitly set persistent flags over c.
func applyFlags(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()

	if flags.Changed("log-level") {
		c.Log.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		c.Log.Format, _ = flags.GetString("log-format")
	}
	if flags.Changed("timeout") {
		d, _ := flags.GetDuration("timeout")
		c.Timeouts.ReadMS = millis(d)
		c.Timeouts.WriteMS = millis(d)
	}
	if flags.Changed("open-timeout") {
		d, _ := flags.GetDuration("open-timeout")
		c.Socket.OpenTimeoutMS = millis(d)
	}
	if flags.Changed("baud") {
		c.Serial.Baud, _ = flags.GetInt("baud")
	}
	if flags.Changed("data-bits") {
		c.Serial.DataBits, _ = flags.GetInt("data-bits")
	}
	if flags.Changed("stop-bits") {
		c.Serial.StopBits, _ = flags.GetInt("stop-bits")
	}
	if flags.Changed("parity") {
		v, _ := flags.GetString("parity")
		c.Serial.Parity = strings.TrimSpace(v)
	}
	if flags.Changed("flow-control") {
		v, _ := flags.GetString("flow-control")
		c.Serial.FlowControl = flowControlCode(v)
	}
}

func millis(d time.Duration) int {
	return int(d / time.Millisecond)
}

// flowControlCode accepts the single-character codes and the longer names
// the old flags used.
func flowControlCode(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "none":
		return "n"
	case "rtscts", "hardware", "cts":
		return "h"
	case "xonxoff", "software":
		return "s"
	default:
		return v
	}
}
