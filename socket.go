package comlink

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Socket is a Transport over one TCP connection. With an address it dials
// out (client mode); without one it accepts a single inbound connection
// (server mode).
type Socket struct {
	mu   sync.Mutex
	cfg  SocketConfig
	conn *net.TCPConn
	exec *executor
	log  *zap.Logger
}

// NewSocket validates the endpoint. An empty address selects server mode,
// anything else must parse as an IPv4 or IPv6 address.
func NewSocket(address string, port int, opts ...SocketOption) (*Socket, error) {
	addr, err := parseAddress(address)
	if err != nil {
		return nil, err
	}

	cfg := DefaultSocketConfig()
	cfg.Address = addr
	cfg.Port = port
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
	log = log.With(zap.String("endpoint", endpointString(cfg)))

	return &Socket{
		cfg:  cfg,
		exec: newExecutor(log),
		log:  log,
	}, nil
}

func endpointString(c SocketConfig) string {
	if c.ServerMode() {
		return ":" + strconv.Itoa(c.Port)
	}
	return netip.AddrPortFrom(c.Address, uint16(c.Port)).String()
}

// Open connects or accepts, bounded by the open timeout. An open socket is
// closed first.
func (s *Socket) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		if err := s.closeLocked(); err != nil {
			s.log.Debug("close before reopen failed", zap.Error(err))
		}
	}

	var (
		conn *net.TCPConn
		err  error
	)
	if s.cfg.ServerMode() {
		conn, err = s.accept()
	} else {
		conn, err = s.dial()
	}
	if err != nil {
		return err
	}

	s.conn = conn
	s.log.Debug("socket opened",
		zap.Stringer("mode", s.kindLocked()),
		zap.Stringer("local", conn.LocalAddr()),
		zap.Stringer("remote", conn.RemoteAddr()))
	return nil
}

func (s *Socket) dial() (*net.TCPConn, error) {
	target := endpointString(s.cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var conn net.Conn
	out := s.exec.run("connect", s.cfg.OpenTimeout,
		func() error { cancel(); return nil },
		nil,
		func() (int, error) {
			var d net.Dialer
			c, err := d.DialContext(ctx, "tcp", target)
			conn = c
			return 0, err
		})

	if out.cancelled() {
		// A connection that raced the cancel is discarded.
		if conn != nil {
			_ = conn.Close()
		}
		return nil, openError("connect "+target, openCancelled(out.reason, s.cfg.OpenTimeout))
	}
	if out.err != nil {
		return nil, openError("connect "+target, out.err)
	}
	return conn.(*net.TCPConn), nil
}

func (s *Socket) accept() (*net.TCPConn, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", endpointString(s.cfg))
	if err != nil {
		return nil, openError("listen", err)
	}
	tl := ln.(*net.TCPListener)
	// Exactly one connection is served; the listener never outlives Open.
	defer tl.Close()

	s.log.Debug("waiting for connection", zap.Stringer("listen", tl.Addr()))

	var conn *net.TCPConn
	out := s.exec.run("accept", s.cfg.OpenTimeout,
		func() error { return tl.SetDeadline(aLongTimeAgo) },
		tl.Close,
		func() (int, error) {
			c, err := tl.AcceptTCP()
			conn = c
			return 0, err
		})

	if out.cancelled() {
		if conn != nil {
			_ = conn.Close()
		}
		return nil, openError("accept", openCancelled(out.reason, s.cfg.OpenTimeout))
	}
	if out.err != nil {
		return nil, openError("accept", out.err)
	}
	return conn, nil
}

func openCancelled(reason cancelReason, timeout time.Duration) error {
	if reason == reasonTimeout {
		return fmt.Errorf("no connection within %v", timeout)
	}
	return fmt.Errorf("cancelled by %s", reason)
}

// Close releases the connection. Closing a closed socket returns nil.
func (s *Socket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

func (s *Socket) closeLocked() error {
	if s.conn == nil {
		return nil
	}
	conn := s.conn
	s.conn = nil
	if err := conn.Close(); err != nil {
		return ioError("close", err)
	}
	s.log.Debug("socket closed")
	return nil
}

// Opened reports whether a connection is established
func (s *Socket) Opened() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// Kind reports the mode fixed by the configured address
func (s *Socket) Kind() Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kindLocked()
}

func (s *Socket) kindLocked() Kind {
	if s.cfg.ServerMode() {
		return KindSocketServer
	}
	return KindSocketClient
}

// Read blocks until buf is full or the read timeout elapses. A peer that
// closes the connection is an I/O error.
func (s *Socket) Read(buf []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return 0, ErrClosed
	}
	if len(buf) == 0 {
		return 0, nil
	}
	conn := s.conn
	out := s.exec.runStream("read", conn, s.cfg.ReadTimeout, func() (int, error) {
		return transferAll(buf, conn.Read)
	})
	return s.finish("read", out)
}

// Write blocks until buf is sent or the write timeout elapses.
func (s *Socket) Write(buf []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return 0, ErrClosed
	}
	if len(buf) == 0 {
		return 0, nil
	}
	conn := s.conn
	out := s.exec.runStream("write", conn, s.cfg.WriteTimeout, func() (int, error) {
		return transferAll(buf, conn.Write)
	})
	return s.finish("write", out)
}

func (s *Socket) finish(op string, out outcome) (int, error) {
	if out.forced {
		s.conn = nil
		return out.n, out.err
	}
	if out.err != nil {
		return out.n, ioError(op, out.err)
	}
	return out.n, nil
}

// ReadSome performs one non-blocking receive. It returns 0 when nothing is
// buffered.
func (s *Socket) ReadSome(buf []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return 0, ErrClosed
	}
	if len(buf) == 0 {
		return 0, nil
	}
	rc, err := s.conn.SyscallConn()
	if err != nil {
		return 0, ioError("read", err)
	}
	n, err := rawRead(rc, buf)
	if err != nil {
		return n, ioError("read", err)
	}
	return n, nil
}

// WriteSome performs one non-blocking send. It returns 0 when the send
// buffer is full.
func (s *Socket) WriteSome(buf []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return 0, ErrClosed
	}
	if len(buf) == 0 {
		return 0, nil
	}
	rc, err := s.conn.SyscallConn()
	if err != nil {
		return 0, ioError("write", err)
	}
	n, err := rawWrite(rc, buf)
	if err != nil {
		return n, ioError("write", err)
	}
	return n, nil
}

// Abort cancels the in-flight Open, Read or Write. It never waits for the lock.
func (s *Socket) Abort() {
	s.exec.abort()
}

func (s *Socket) apply(opt SocketOption) error {
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
func (s *Socket) SetReadTimeout(d time.Duration) error { return s.apply(WithSocketReadTimeout(d)) }

// SetWriteTimeout sets the Write bound; values under a millisecond are rejected.
func (s *Socket) SetWriteTimeout(d time.Duration) error { return s.apply(WithSocketWriteTimeout(d)) }

// SetOpenTimeout bounds the next connect or accept.
func (s *Socket) SetOpenTimeout(d time.Duration) error { return s.apply(WithOpenTimeout(d)) }

// SetAddress switches the endpoint used by the next Open. An empty address
// selects server mode.
func (s *Socket) SetAddress(address string) error {
	addr, err := parseAddress(address)
	if err != nil {
		return err
	}
	return s.apply(func(c *SocketConfig) error {
		c.Address = addr
		return nil
	})
}

// SetPort changes the port used by the next Open.
func (s *Socket) SetPort(port int) error {
	return s.apply(func(c *SocketConfig) error {
		if err := validatePort(port); err != nil {
			return err
		}
		c.Port = port
		return nil
	})
}

// Config returns a snapshot of the current configuration
func (s *Socket) Config() SocketConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

func (s *Socket) ReadTimeout() time.Duration  { return s.Config().ReadTimeout }
func (s *Socket) WriteTimeout() time.Duration { return s.Config().WriteTimeout }
func (s *Socket) OpenTimeout() time.Duration  { return s.Config().OpenTimeout }
func (s *Socket) Port() int                   { return s.Config().Port }

// Address returns the configured remote address, or "" in server mode.
func (s *Socket) Address() string {
	cfg := s.Config()
	if cfg.ServerMode() {
		return ""
	}
	return cfg.Address.String()
}

// LocalAddr returns the local end of the connection, nil when closed.
func (s *Socket) LocalAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}

// RemoteAddr returns the peer of the connection, nil when closed.
func (s *Socket) RemoteAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	return s.conn.RemoteAddr()
}
