package comlink

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// freePort finds a loopback port nobody is listening on.
func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

// connectPair opens a server-mode socket and a client dialing it.
func connectPair(t *testing.T, opts ...SocketOption) (server, client *Socket) {
	t.Helper()
	port := freePort(t)

	server, err := NewSocket("", port, append([]SocketOption{WithOpenTimeout(10 * time.Second)}, opts...)...)
	require.NoError(t, err)
	client, err = NewSocket("127.0.0.1", port, opts...)
	require.NoError(t, err)

	accepted := make(chan error, 1)
	go func() { accepted <- server.Open() }()

	require.Eventually(t, func() bool { return client.Open() == nil }, 5*time.Second, 10*time.Millisecond)
	require.NoError(t, <-accepted)

	t.Cleanup(func() {
		_ = client.Close()
		_ = server.Close()
	})
	return server, client
}

func TestSocketModeSelection(t *testing.T) {
	tests := []struct {
		address string
		kind    Kind
	}{
		{"", KindSocketServer},
		{"127.0.0.1", KindSocketClient},
		{"192.168.1.20", KindSocketClient},
		{"::1", KindSocketClient},
	}

	for _, tt := range tests {
		s, err := NewSocket(tt.address, 3444)
		require.NoError(t, err, tt.address)
		assert.Equal(t, tt.kind, s.Kind(), tt.address)
		assert.Equal(t, tt.address, s.Address())
	}
}

func TestSocketInvalidConfig(t *testing.T) {
	_, err := NewSocket("not-an-ip", 80)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.ErrorIs(t, err, ErrInvalidAddress)

	_, err = NewSocket("127.0.0.1", 65536)
	assert.ErrorIs(t, err, ErrInvalidPort)

	_, err = NewSocket("127.0.0.1", -1)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewSocket("127.0.0.1", 80, WithSocketTimeout(0))
	assert.ErrorIs(t, err, ErrInvalidTimeout)
}

func TestSocketRoundTrip(t *testing.T) {
	server, client := connectPair(t)

	n, err := client.Write([]byte("PING"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	buf := make([]byte, 4)
	n, err = server.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, "PING", string(buf))

	n, err = server.Write([]byte("PONG"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	n, err = client.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, "PONG", string(buf))

	assert.NotNil(t, server.RemoteAddr())
	assert.Equal(t, client.LocalAddr().String(), server.RemoteAddr().String())
}

func TestSocketReadTimeout(t *testing.T) {
	server, client := connectPair(t)
	require.NoError(t, server.SetReadTimeout(100*time.Millisecond))

	_, err := client.Write([]byte("ab"))
	require.NoError(t, err)

	buf := make([]byte, 4)
	start := time.Now()
	n, err := server.Read(buf)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
	assert.Less(t, elapsed, time.Second)
	assert.True(t, server.Opened())
}

func TestSocketTimeoutSetterKeepsOldValue(t *testing.T) {
	s, err := NewSocket("127.0.0.1", 3444, WithSocketTimeout(250*time.Millisecond))
	require.NoError(t, err)

	assert.ErrorIs(t, s.SetReadTimeout(0), ErrInvalidConfig)
	assert.ErrorIs(t, s.SetOpenTimeout(0), ErrInvalidConfig)
	assert.Equal(t, 250*time.Millisecond, s.ReadTimeout())
	assert.Equal(t, 250*time.Millisecond, s.OpenTimeout())
}

func TestSocketAbortRead(t *testing.T) {
	server, _ := connectPair(t, WithSocketReadTimeout(10*time.Second))

	go func() {
		time.Sleep(50 * time.Millisecond)
		server.Abort()
	}()

	start := time.Now()
	n, err := server.Read(make([]byte, 8))

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSocketAbortIdle(t *testing.T) {
	s, err := NewSocket("127.0.0.1", 3444)
	require.NoError(t, err)
	s.Abort()
	s.Abort()
	assert.False(t, s.Opened())
}

func TestSocketReadSomeWriteSome(t *testing.T) {
	server, client := connectPair(t)

	buf := make([]byte, 16)
	n, err := server.ReadSome(buf)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = client.WriteSome([]byte("xyz"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	var got []byte
	require.Eventually(t, func() bool {
		n, err := server.ReadSome(buf)
		require.NoError(t, err)
		got = append(got, buf[:n]...)
		return len(got) == 3
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "xyz", string(got))
}

func TestSocketPeerClosed(t *testing.T) {
	server, client := connectPair(t)
	require.NoError(t, client.Close())

	_, err := server.Read(make([]byte, 4))
	assert.ErrorIs(t, err, ErrIO)

	_, err = server.ReadSome(make([]byte, 4))
	assert.ErrorIs(t, err, ErrIO)
}

func TestSocketServerOpenTimeout(t *testing.T) {
	port := freePort(t)
	s, err := NewSocket("", port, WithOpenTimeout(100*time.Millisecond))
	require.NoError(t, err)

	start := time.Now()
	err = s.Open()
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, s.Opened())
	assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
	assert.Less(t, elapsed, 2*time.Second)

	// The listener is gone once Open returns.
	ln, err := net.Listen("tcp", (&net.TCPAddr{Port: port}).String())
	require.NoError(t, err)
	_ = ln.Close()
}

func TestSocketServerOpenAbort(t *testing.T) {
	s, err := NewSocket("", freePort(t), WithOpenTimeout(10*time.Second))
	require.NoError(t, err)

	go func() {
		time.Sleep(50 * time.Millisecond)
		s.Abort()
	}()

	start := time.Now()
	err = s.Open()
	assert.ErrorIs(t, err, ErrOpen)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestSocketConnectRefused(t *testing.T) {
	s, err := NewSocket("127.0.0.1", freePort(t))
	require.NoError(t, err)

	err = s.Open()
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, s.Opened())
}

func TestSocketClientReopen(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		var conns []net.Conn
		defer func() {
			for _, c := range conns {
				_ = c.Close()
			}
		}()
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			conns = append(conns, c)
		}
	}()

	s, err := NewSocket("127.0.0.1", ln.Addr().(*net.TCPAddr).Port)
	require.NoError(t, err)
	require.NoError(t, s.Open())
	first := s.LocalAddr().String()

	require.NoError(t, s.Open(), "reopen closes first")
	assert.True(t, s.Opened())
	assert.NotEqual(t, first, s.LocalAddr().String())

	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
	assert.Nil(t, s.LocalAddr())
}

func TestSocketServerReopen(t *testing.T) {
	server, first := connectPair(t)
	port := server.Port()

	accepted := make(chan error, 1)
	go func() { accepted <- server.Open() }()

	second, err := NewSocket("127.0.0.1", port)
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.Close() })
	require.Eventually(t, func() bool { return second.Open() == nil }, 5*time.Second, 10*time.Millisecond)
	require.NoError(t, <-accepted, "reopen closes the first peer and accepts again")
	assert.True(t, server.Opened())

	_, err = first.Read(make([]byte, 1))
	assert.ErrorIs(t, err, ErrIO, "the first peer was dropped")

	_, err = second.Write([]byte("PING"))
	require.NoError(t, err)
	buf := make([]byte, 4)
	n, err := server.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "PING", string(buf[:n]))
}

func TestSocketForcedCloseLeavesClosed(t *testing.T) {
	server, _ := connectPair(t)

	// The executor has already closed the connection when it reports a
	// forced close.
	require.NoError(t, server.conn.Close())
	n, err := server.finish("read", outcome{n: 2, reason: reasonAbort, forced: true, err: ErrCancelled})
	assert.Equal(t, 2, n)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.False(t, server.Opened())
	assert.NoError(t, server.Close())

	_, err = server.Read(make([]byte, 1))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSocketClosedIO(t *testing.T) {
	s, err := NewSocket("", 0)
	require.NoError(t, err)

	buf := make([]byte, 4)
	_, err = s.Read(buf)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.Write(buf)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.ReadSome(buf)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.WriteSome(buf)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSocketSetters(t *testing.T) {
	s, err := NewSocket("127.0.0.1", 3444)
	require.NoError(t, err)

	require.NoError(t, s.SetAddress(""))
	assert.Equal(t, KindSocketServer, s.Kind())
	require.NoError(t, s.SetAddress("::1"))
	assert.Equal(t, KindSocketClient, s.Kind())
	assert.ErrorIs(t, s.SetAddress("example.com"), ErrInvalidAddress)
	assert.Equal(t, "::1", s.Address())

	require.NoError(t, s.SetPort(8080))
	assert.ErrorIs(t, s.SetPort(70000), ErrInvalidPort)
	assert.Equal(t, 8080, s.Port())
}
