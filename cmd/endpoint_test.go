package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/allbin/go-comlink"
	"github.com/allbin/go-comlink/internal/config"
)

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		arg  string
		want endpoint
		str  string
	}{
		{"/dev/ttyUSB0", endpoint{kind: comlink.KindSerial, device: "/dev/ttyUSB0"}, "/dev/ttyUSB0"},
		{"serial:/dev/ttyS0", endpoint{kind: comlink.KindSerial, device: "/dev/ttyS0"}, "/dev/ttyS0"},
		{"tcp://192.168.1.20:3444", endpoint{kind: comlink.KindSocketClient, address: "192.168.1.20", port: 3444}, "tcp://192.168.1.20:3444"},
		{"tcp://[::1]:80", endpoint{kind: comlink.KindSocketClient, address: "::1", port: 80}, "tcp://[::1]:80"},
		{"tcp://:3444", endpoint{kind: comlink.KindSocketServer, port: 3444}, "tcp://:3444"},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			got, err := parseEndpoint(tt.arg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.str, got.String())
		})
	}
}

func TestParseEndpointErrors(t *testing.T) {
	for _, arg := range []string{"", "  ", "serial:", "tcp://3444", "tcp://host:port", "udp://:53"} {
		_, err := parseEndpoint(arg)
		assert.ErrorIs(t, err, errEndpoint, arg)
	}
}

func TestEndpointTransport(t *testing.T) {
	c := config.Default()
	c.Serial.Baud = 9600
	c.Timeouts.ReadMS = 250
	c.Socket.OpenTimeoutMS = 5000

	ep, err := parseEndpoint("/dev/ttyUSB0")
	require.NoError(t, err)
	tr, err := ep.transport(c, zap.NewNop())
	require.NoError(t, err)
	s, ok := tr.(*comlink.Serial)
	require.True(t, ok)
	assert.Equal(t, 9600, s.BaudRate())
	assert.Equal(t, 250*time.Millisecond, s.ReadTimeout())

	ep, err = parseEndpoint("tcp://:3444")
	require.NoError(t, err)
	tr, err = ep.transport(c, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, comlink.KindSocketServer, tr.Kind())
	assert.Equal(t, 5*time.Second, tr.(*comlink.Socket).OpenTimeout())

	ep, err = parseEndpoint("tcp://localhost:3444")
	require.NoError(t, err)
	_, err = ep.transport(c, zap.NewNop())
	assert.ErrorIs(t, err, comlink.ErrInvalidAddress)
}

func TestFlowControlCode(t *testing.T) {
	assert.Equal(t, "n", flowControlCode("none"))
	assert.Equal(t, "h", flowControlCode("RTSCTS"))
	assert.Equal(t, "s", flowControlCode("software"))
	assert.Equal(t, "h", flowControlCode("h"))
}
