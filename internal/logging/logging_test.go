package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/allbin/go-comlink/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zap.DebugLevel,
		"INFO":    zap.InfoLevel,
		"warn":    zap.WarnLevel,
		"warning": zap.WarnLevel,
		"error":   zap.ErrorLevel,
		"":        zap.WarnLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), in)
	}
}

func TestSetupFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "comlink.log")

	c := config.Default().Log
	c.Level = "info"
	c.Format = "json"
	c.Outputs = []string{path}

	logger, err := Setup(c)
	require.NoError(t, err)
	logger.Info("line opened", zap.String("device", "/dev/ttyUSB0"))
	logger.Debug("filtered")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, `"msg":"line opened"`)
	assert.Contains(t, out, `"device":"/dev/ttyUSB0"`)
	assert.False(t, strings.Contains(out, "filtered"))
}

func TestSetupRotatedOutput(t *testing.T) {
	dir := t.TempDir()
	c := config.Default().Log
	c.Level = "warn"
	c.Outputs = []string{filepath.Join(dir, "ignored.log")}
	c.Rotation.Enable = true
	c.Rotation.Filename = filepath.Join(dir, "rotated.log")

	logger, err := Setup(c)
	require.NoError(t, err)
	logger.Warn("forced close")
	_ = logger.Sync()

	_, err = os.Stat(c.Rotation.Filename)
	assert.NoError(t, err)
}

func TestSetupBadPath(t *testing.T) {
	c := config.Default().Log
	c.Outputs = []string{filepath.Join(t.TempDir(), "missing-dir-is-a-file")}
	require.NoError(t, os.WriteFile(c.Outputs[0], nil, 0o644))
	c.Outputs[0] = filepath.Join(c.Outputs[0], "x.log")

	_, err := Setup(c)
	assert.Error(t, err)
}
