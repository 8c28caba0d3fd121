package comlink

import (
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// Serial is a Transport over a local serial line.
type Serial struct {
	mu       sync.Mutex
	cfg      SerialConfig
	file     *os.File
	exec     *executor
	platform linePlatform
	log      *zap.Logger
}

// NewSerial validates the configuration for device. The line is not touched
// until Open.
func NewSerial(device string, opts ...SerialOption) (*Serial, error) {
	cfg := DefaultSerialConfig()
	cfg.Device = device
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("device", device))

	return &Serial{
		cfg:      cfg,
		exec:     newExecutor(log),
		platform: unixLine{},
		log:      log,
	}, nil
}

// Open opens, claims and configures the line. An open line is closed first.
func (s *Serial) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file != nil {
		if err := s.closeLocked(); err != nil {
			s.log.Debug("close before reopen failed", zap.Error(err))
		}
	}

	f, err := os.OpenFile(s.cfg.Device, os.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK, 0)
	if err != nil {
		return openError("open "+s.cfg.Device, err)
	}

	err = withFD(f, func(fd int) error {
		if err := claimLine(fd); err != nil {
			return err
		}
		if err := configureLine(fd, s.cfg); err != nil {
			_ = releaseLine(fd)
			return err
		}
		return nil
	})
	if err != nil {
		_ = f.Close()
		return openError("configure "+s.cfg.Device, err)
	}

	s.file = f
	s.log.Debug("serial line opened",
		zap.Int("baud", s.cfg.BaudRate),
		zap.String("framing", s.framing()),
		zap.Stringer("flow", s.cfg.FlowControl))
	return nil
}

func (s *Serial) framing() string {
	return fmt.Sprintf("%d%s%s", s.cfg.DataBits, s.cfg.Parity, s.cfg.StopBits)
}

// Close releases the line. Closing a closed line returns nil.
func (s *Serial) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

func (s *Serial) closeLocked() error {
	if s.file == nil {
		return nil
	}
	f := s.file
	s.file = nil

	_ = withFD(f, releaseLine)
	if err := f.Close(); err != nil {
		return ioError("close", err)
	}
	s.log.Debug("serial line closed")
	return nil
}

// Opened reports whether the line is open
func (s *Serial) Opened() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file != nil
}

// Kind returns KindSerial
func (s *Serial) Kind() Kind { return KindSerial }

// Read blocks until buf is full or the read timeout elapses.
func (s *Serial) Read(buf []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return 0, ErrClosed
	}
	if len(buf) == 0 {
		return 0, nil
	}
	f := s.file
	out := s.exec.runStream("read", f, s.cfg.ReadTimeout, func() (int, error) {
		return transferAll(buf, f.Read)
	})
	return s.finish("read", out)
}

// Write blocks until buf is sent or the write timeout elapses.
func (s *Serial) Write(buf []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return 0, ErrClosed
	}
	if len(buf) == 0 {
		return 0, nil
	}
	f := s.file
	out := s.exec.runStream("write", f, s.cfg.WriteTimeout, func() (int, error) {
		return transferAll(buf, f.Write)
	})
	return s.finish("write", out)
}

// finish maps an executor outcome to the public result. A forced close
// leaves the transport closed.
func (s *Serial) finish(op string, out outcome) (int, error) {
	if out.forced {
		s.file = nil
		return out.n, out.err
	}
	if out.err != nil {
		return out.n, ioError(op, out.err)
	}
	return out.n, nil
}

// ReadSome reads only when the input queue reports data; otherwise it
// returns 0 without touching the line.
func (s *Serial) ReadSome(buf []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return 0, ErrClosed
	}
	if len(buf) == 0 {
		return 0, nil
	}

	var avail int
	err := withFD(s.file, func(fd int) (err error) {
		avail, err = s.platform.available(fd)
		return err
	})
	if err != nil {
		return 0, ioError("query input queue", err)
	}
	if avail <= 0 {
		return 0, nil
	}

	rc, err := s.file.SyscallConn()
	if err != nil {
		return 0, ioError("read", err)
	}
	n, err := rawRead(rc, buf)
	if err != nil {
		return n, ioError("read", err)
	}
	return n, nil
}

// WriteSome writes only when the output queue is empty. Any pending output
// yields 0 without attempting the write.
func (s *Serial) WriteSome(buf []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return 0, ErrClosed
	}
	if len(buf) == 0 {
		return 0, nil
	}

	var pending int
	err := withFD(s.file, func(fd int) (err error) {
		pending, err = s.platform.pending(fd)
		return err
	})
	if err != nil {
		return 0, ioError("query output queue", err)
	}
	if pending > 0 {
		return 0, nil
	}

	rc, err := s.file.SyscallConn()
	if err != nil {
		return 0, ioError("write", err)
	}
	n, err := rawWrite(rc, buf)
	if err != nil {
		return n, ioError("write", err)
	}
	return n, nil
}

// Abort cancels the in-flight Read or Write. It never waits for the lock.
func (s *Serial) Abort() {
	s.exec.abort()
}

// apply runs opt against a copy of the configuration and keeps the copy
// only when opt accepts the value.
func (s *Serial) apply(opt SerialOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cfg
	if err := opt(&next); err != nil {
		return err
	}
	s.cfg = next
	return nil
}

// SetReadTimeout sets the Read bound; values under a millisecond are rejected.
func (s *Serial) SetReadTimeout(d time.Duration) error { return s.apply(WithSerialReadTimeout(d)) }

// SetWriteTimeout sets the Write bound; values under a millisecond are rejected.
func (s *Serial) SetWriteTimeout(d time.Duration) error { return s.apply(WithSerialWriteTimeout(d)) }

// The line settings below take effect at the next Open.

func (s *Serial) SetBaudRate(rate int) error     { return s.apply(WithBaudRate(rate)) }
func (s *Serial) SetDataBits(bits int) error     { return s.apply(WithDataBits(bits)) }
func (s *Serial) SetStopBits(code int) error     { return s.apply(WithStopBits(code)) }
func (s *Serial) SetParity(code byte) error      { return s.apply(WithParity(code)) }
func (s *Serial) SetFlowControl(code byte) error { return s.apply(WithFlowControl(code)) }

// SetDevice changes the device path used by the next Open.
func (s *Serial) SetDevice(device string) error {
	return s.apply(func(c *SerialConfig) error {
		if device == "" {
			return configError(errEmptyDevice)
		}
		c.Device = device
		return nil
	})
}

// Config returns a snapshot of the current configuration
func (s *Serial) Config() SerialConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

func (s *Serial) ReadTimeout() time.Duration  { return s.Config().ReadTimeout }
func (s *Serial) WriteTimeout() time.Duration { return s.Config().WriteTimeout }
func (s *Serial) Device() string              { return s.Config().Device }
func (s *Serial) BaudRate() int               { return s.Config().BaudRate }
func (s *Serial) DataBits() int               { return s.Config().DataBits }
func (s *Serial) StopBits() StopBits          { return s.Config().StopBits }
func (s *Serial) Parity() Parity              { return s.Config().Parity }
func (s *Serial) FlowControl() FlowControl    { return s.Config().FlowControl }

// control runs an ioctl helper against the open line
func (s *Serial) control(fn func(fd int) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return ErrClosed
	}
	if err := withFD(s.file, fn); err != nil {
		return ioError("ioctl", err)
	}
	return nil
}

// Flush discards both unread input and untransmitted output
func (s *Serial) Flush() error {
	return s.control(func(fd int) error { return unix.IoctlSetInt(fd, unix.TCFLSH, unix.TCIOFLUSH) })
}

// FlushInput discards any unread input data
func (s *Serial) FlushInput() error {
	return s.control(func(fd int) error { return unix.IoctlSetInt(fd, unix.TCFLSH, unix.TCIFLUSH) })
}

// FlushOutput discards any unwritten output data
func (s *Serial) FlushOutput() error {
	return s.control(func(fd int) error { return unix.IoctlSetInt(fd, unix.TCFLSH, unix.TCOFLUSH) })
}

// Drain waits until all output written to the line has been transmitted
func (s *Serial) Drain() error {
	return s.control(func(fd int) error { return unix.IoctlSetInt(fd, unix.TCSBRK, 1) })
}

// ModemSignals returns current state of all modem control signals
func (s *Serial) ModemSignals() (ModemSignals, error) {
	var status int
	err := s.control(func(fd int) (err error) {
		status, err = getModemStatus(fd)
		return err
	})
	if err != nil {
		return ModemSignals{}, err
	}
	return decodeModemStatus(status), nil
}

// SetRTS asserts or clears Request To Send
func (s *Serial) SetRTS(state bool) error {
	return s.control(func(fd int) error { return setModemLine(fd, unix.TIOCM_RTS, state) })
}

// SetDTR asserts or clears Data Terminal Ready
func (s *Serial) SetDTR(state bool) error {
	return s.control(func(fd int) error { return setModemLine(fd, unix.TIOCM_DTR, state) })
}
