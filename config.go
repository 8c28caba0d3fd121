package comlink

import (
	"errors"
	"fmt"
	"net/netip"
	"time"

	"go.uber.org/zap"
)

// Parity is the serial parity mode, keyed by its single-character code.
type Parity byte

const (
	ParityNone Parity = 'n'
	ParityOdd  Parity = 'o'
	ParityEven Parity = 'e'
)

// ParseParity accepts 'e', 'o' or 'n' in either case.
func ParseParity(c byte) (Parity, error) {
	switch c {
	case 'n', 'N':
		return ParityNone, nil
	case 'o', 'O':
		return ParityOdd, nil
	case 'e', 'E':
		return ParityEven, nil
	}
	return 0, configError(fmt.Errorf("parity %q", c))
}

func (p Parity) String() string {
	switch p {
	case ParityNone:
		return "N"
	case ParityOdd:
		return "O"
	case ParityEven:
		return "E"
	default:
		return "?"
	}
}

// FlowControl is the serial flow control mode, keyed by its single-character code.
type FlowControl byte

const (
	FlowControlNone     FlowControl = 'n'
	FlowControlHardware FlowControl = 'h'
	FlowControlSoftware FlowControl = 's'
)

// ParseFlowControl accepts 'h', 's' or 'n' in either case.
func ParseFlowControl(c byte) (FlowControl, error) {
	switch c {
	case 'n', 'N':
		return FlowControlNone, nil
	case 'h', 'H':
		return FlowControlHardware, nil
	case 's', 'S':
		return FlowControlSoftware, nil
	}
	return 0, configError(fmt.Errorf("flow control %q", c))
}

func (f FlowControl) String() string {
	switch f {
	case FlowControlNone:
		return "None"
	case FlowControlHardware:
		return "RTS/CTS"
	case FlowControlSoftware:
		return "XON/XOFF"
	default:
		return "Unknown"
	}
}

// StopBits is the stop-bits code: 1, 2, or 3 for one and a half.
type StopBits int

const (
	StopBitsOne          StopBits = 1
	StopBitsTwo          StopBits = 2
	StopBitsOnePointFive StopBits = 3
)

func (s StopBits) String() string {
	switch s {
	case StopBitsOne:
		return "1"
	case StopBitsTwo:
		return "2"
	case StopBitsOnePointFive:
		return "1.5"
	default:
		return "?"
	}
}

var errEmptyDevice = errors.New("empty device name")

// DefaultTimeout applies to reads, writes and socket opens unless overridden.
const DefaultTimeout = time.Second

// checkTimeout validates a timeout and truncates it to whole milliseconds.
func checkTimeout(d time.Duration) (time.Duration, error) {
	if d < time.Millisecond {
		return 0, configError(fmt.Errorf("%w: %v", ErrInvalidTimeout, d))
	}
	return d.Truncate(time.Millisecond), nil
}

// SerialConfig holds the configuration for a serial transport
type SerialConfig struct {
	Device       string
	BaudRate     int
	DataBits     int
	StopBits     StopBits
	Parity       Parity
	FlowControl  FlowControl
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Logger       *zap.Logger
}

// SerialOption is a functional option for configuring a serial transport
type SerialOption func(*SerialConfig) error

// DefaultSerialConfig returns a configuration with sensible defaults
func DefaultSerialConfig() SerialConfig {
	return SerialConfig{
		BaudRate:     115200,
		DataBits:     8,
		StopBits:     StopBitsOne,
		Parity:       ParityNone,
		FlowControl:  FlowControlNone,
		ReadTimeout:  DefaultTimeout,
		WriteTimeout: DefaultTimeout,
	}
}

// Validate checks every field without touching the OS.
func (c SerialConfig) Validate() error {
	if c.Device == "" {
		return configError(errEmptyDevice)
	}
	if err := validateBaudRate(c.BaudRate); err != nil {
		return err
	}
	if c.DataBits < 5 || c.DataBits > 8 {
		return configError(fmt.Errorf("data bits %d", c.DataBits))
	}
	switch c.StopBits {
	case StopBitsOne, StopBitsTwo, StopBitsOnePointFive:
	default:
		return configError(fmt.Errorf("stop bits %d", c.StopBits))
	}
	if _, err := ParseParity(byte(c.Parity)); err != nil {
		return err
	}
	if _, err := ParseFlowControl(byte(c.FlowControl)); err != nil {
		return err
	}
	if _, err := checkTimeout(c.ReadTimeout); err != nil {
		return err
	}
	if _, err := checkTimeout(c.WriteTimeout); err != nil {
		return err
	}
	return nil
}

func validateBaudRate(rate int) error {
	if _, err := getBaudRate(rate); err != nil {
		return configError(err)
	}
	return nil
}

// WithBaudRate sets the baud rate
func WithBaudRate(rate int) SerialOption {
	return func(c *SerialConfig) error {
		if err := validateBaudRate(rate); err != nil {
			return err
		}
		c.BaudRate = rate
		return nil
	}
}

// WithDataBits sets the number of data bits (5, 6, 7, or 8)
func WithDataBits(bits int) SerialOption {
	return func(c *SerialConfig) error {
		if bits < 5 || bits > 8 {
			return configError(fmt.Errorf("data bits %d", bits))
		}
		c.DataBits = bits
		return nil
	}
}

// WithStopBits sets the stop-bits code (1, 2, or 3 for one and a half)
func WithStopBits(code int) SerialOption {
	return func(c *SerialConfig) error {
		switch StopBits(code) {
		case StopBitsOne, StopBitsTwo, StopBitsOnePointFive:
			c.StopBits = StopBits(code)
			return nil
		}
		return configError(fmt.Errorf("stop bits %d", code))
	}
}

// WithParity sets the parity from its code ('e', 'o' or 'n')
func WithParity(code byte) SerialOption {
	return func(c *SerialConfig) error {
		p, err := ParseParity(code)
		if err != nil {
			return err
		}
		c.Parity = p
		return nil
	}
}

// WithFlowControl sets the flow control from its code ('h', 's' or 'n')
func WithFlowControl(code byte) SerialOption {
	return func(c *SerialConfig) error {
		f, err := ParseFlowControl(code)
		if err != nil {
			return err
		}
		c.FlowControl = f
		return nil
	}
}

// WithSerialTimeout sets both the read and the write timeout
func WithSerialTimeout(d time.Duration) SerialOption {
	return func(c *SerialConfig) error {
		d, err := checkTimeout(d)
		if err != nil {
			return err
		}
		c.ReadTimeout, c.WriteTimeout = d, d
		return nil
	}
}

// WithSerialReadTimeout sets the read timeout
func WithSerialReadTimeout(d time.Duration) SerialOption {
	return func(c *SerialConfig) error {
		d, err := checkTimeout(d)
		if err != nil {
			return err
		}
		c.ReadTimeout = d
		return nil
	}
}

// WithSerialWriteTimeout sets the write timeout
func WithSerialWriteTimeout(d time.Duration) SerialOption {
	return func(c *SerialConfig) error {
		d, err := checkTimeout(d)
		if err != nil {
			return err
		}
		c.WriteTimeout = d
		return nil
	}
}

// WithSerialLogger routes transport diagnostics to log
func WithSerialLogger(log *zap.Logger) SerialOption {
	return func(c *SerialConfig) error {
		c.Logger = log
		return nil
	}
}

// SocketConfig holds the configuration for a socket transport. An invalid
// (zero) Address selects server mode.
type SocketConfig struct {
	Address      netip.Addr
	Port         int
	OpenTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Logger       *zap.Logger
}

// SocketOption is a functional option for configuring a socket transport
type SocketOption func(*SocketConfig) error

// DefaultSocketConfig returns a client configuration for 127.0.0.1:3444
func DefaultSocketConfig() SocketConfig {
	return SocketConfig{
		Address:      netip.AddrFrom4([4]byte{127, 0, 0, 1}),
		Port:         3444,
		OpenTimeout:  DefaultTimeout,
		ReadTimeout:  DefaultTimeout,
		WriteTimeout: DefaultTimeout,
	}
}

// ServerMode reports whether the configuration accepts instead of connecting.
func (c SocketConfig) ServerMode() bool {
	return !c.Address.IsValid()
}

// Validate checks every field without touching the OS.
func (c SocketConfig) Validate() error {
	if err := validatePort(c.Port); err != nil {
		return err
	}
	for _, d := range []time.Duration{c.OpenTimeout, c.ReadTimeout, c.WriteTimeout} {
		if _, err := checkTimeout(d); err != nil {
			return err
		}
	}
	return nil
}

// parseAddress maps "" to the zero Addr (server mode) and anything else
// through netip.ParseAddr.
func parseAddress(s string) (netip.Addr, error) {
	if s == "" {
		return netip.Addr{}, nil
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, configError(fmt.Errorf("%w: %q", ErrInvalidAddress, s))
	}
	return addr, nil
}

func validatePort(port int) error {
	if port < 0 || port > 65535 {
		return configError(fmt.Errorf("%w: %d", ErrInvalidPort, port))
	}
	return nil
}

// WithOpenTimeout bounds connection establishment in both modes
func WithOpenTimeout(d time.Duration) SocketOption {
	return func(c *SocketConfig) error {
		d, err := checkTimeout(d)
		if err != nil {
			return err
		}
		c.OpenTimeout = d
		return nil
	}
}

// WithSocketTimeout sets the open, read and write timeouts at once
func WithSocketTimeout(d time.Duration) SocketOption {
	return func(c *SocketConfig) error {
		d, err := checkTimeout(d)
		if err != nil {
			return err
		}
		c.OpenTimeout, c.ReadTimeout, c.WriteTimeout = d, d, d
		return nil
	}
}

// WithSocketReadTimeout sets the read timeout
func WithSocketReadTimeout(d time.Duration) SocketOption {
	return func(c *SocketConfig) error {
		d, err := checkTimeout(d)
		if err != nil {
			return err
		}
		c.ReadTimeout = d
		return nil
	}
}

// WithSocketWriteTimeout sets the write timeout
func WithSocketWriteTimeout(d time.Duration) SocketOption {
	return func(c *SocketConfig) error {
		d, err := checkTimeout(d)
		if err != nil {
			return err
		}
		c.WriteTimeout = d
		return nil
	}
}

// WithSocketLogger routes transport diagnostics to log
func WithSocketLogger(log *zap.Logger) SocketOption {
	return func(c *SocketConfig) error {
		c.Logger = log
		return nil
	}
}
