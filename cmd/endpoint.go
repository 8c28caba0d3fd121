/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/allbin/go-comlink"
	"github.com/allbin/go-comlink/internal/config"
)

var errEndpoint = errors.New("invalid endpoint")

// endpoint is a parsed command line endpoint argument.
type endpoint struct {
	kind    comlink.Kind
	device  string
	address string // empty for a TCP server
	port    int
}

// parseEndpoint accepts a device path, serial:<path>, tcp://HOST:PORT or
// tcp://:PORT.
func parseEndpoint(arg string) (endpoint, error) {
	arg = strings.TrimSpace(arg)
	switch {
	case arg == "":
		return endpoint{}, fmt.Errorf("%w: empty", errEndpoint)

	case strings.HasPrefix(arg, "tcp://"):
		host, portStr, err := net.SplitHostPort(strings.TrimPrefix(arg, "tcp://"))
		if err != nil {
			return endpoint{}, fmt.Errorf("%w: %s: %v", errEndpoint, arg, err)
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return endpoint{}, fmt.Errorf("%w: %s: port %q", errEndpoint, arg, portStr)
		}
		kind := comlink.KindSocketClient
		if host == "" {
			kind = comlink.KindSocketServer
		}
		return endpoint{kind: kind, address: host, port: port}, nil

	case strings.HasPrefix(arg, "serial:"):
		device := strings.TrimPrefix(arg, "serial:")
		if device == "" {
			return endpoint{}, fmt.Errorf("%w: %s: no device", errEndpoint, arg)
		}
		return endpoint{kind: comlink.KindSerial, device: device}, nil

	case strings.Contains(arg, "://"):
		return endpoint{}, fmt.Errorf("%w: %s: unsupported scheme", errEndpoint, arg)

	default:
		return endpoint{kind: comlink.KindSerial, device: arg}, nil
	}
}

func (e endpoint) String() string {
	switch e.kind {
	case comlink.KindSerial:
		return e.device
	case comlink.KindSocketServer:
		return fmt.Sprintf("tcp://:%d", e.port)
	default:
		return "tcp://" + net.JoinHostPort(e.address, strconv.Itoa(e.port))
	}
}

// transport builds an unopened transport for e from the configuration.
func (e endpoint) transport(c *config.Config, log *zap.Logger) (comlink.Transport, error) {
	if e.kind == comlink.KindSerial {
		opts := append(c.SerialOptions(), comlink.WithSerialLogger(log.Named("serial")))
		return comlink.NewSerial(e.device, opts...)
	}
	opts := append(c.SocketOptions(), comlink.WithSocketLogger(log.Named("socket")))
	return comlink.NewSocket(e.address, e.port, opts...)
}

// newEndpoint parses arg and builds its unopened transport from the loaded
// configuration.
func newEndpoint(arg string) (comlink.Transport, endpoint, error) {
	ep, err := parseEndpoint(arg)
	if err != nil {
		return nil, ep, err
	}
	t, err := ep.transport(cfg, logger)
	if err != nil {
		return nil, ep, err
	}
	return t, ep, nil
}

// openEndpoint is newEndpoint followed by Open.
func openEndpoint(arg string) (comlink.Transport, endpoint, error) {
	t, ep, err := newEndpoint(arg)
	if err != nil {
		return nil, ep, err
	}
	logger.Info("opening endpoint", zap.Stringer("endpoint", ep), zap.Stringer("kind", ep.kind))
	if err := t.Open(); err != nil {
		return nil, ep, err
	}
	return t, ep, nil
}

// openSerial opens a device endpoint for the modem line commands.
func openSerial(arg string) (*comlink.Serial, error) {
	ep, err := parseEndpoint(arg)
	if err != nil {
		return nil, err
	}
	if ep.kind != comlink.KindSerial {
		return nil, fmt.Errorf("%w: %s is not a serial device", errEndpoint, arg)
	}
	t, err := ep.transport(cfg, logger)
	if err != nil {
		return nil, err
	}
	s := t.(*comlink.Serial)
	if err := s.Open(); err != nil {
		return nil, err
	}
	return s, nil
}
