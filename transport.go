package comlink

import (
	"io"
	"time"
)

// Transport is the byte-stream capability shared by the serial and socket
// implementations. Consumers should depend on Transport, not on *Serial or
// *Socket.
//
// All methods except Abort are serialized per instance: concurrent callers
// queue behind the one in progress. Abort may be called from any goroutine
// at any time to unblock an in-flight Open, Read or Write.
type Transport interface {
	io.ReadWriter

	// Open establishes the underlying resource, closing it first if it is
	// already open.
	Open() error
	// Close releases the resource. Closing a closed transport returns nil.
	Close() error
	Opened() bool

	// ReadSome reads whatever is available without waiting. It returns 0 and
	// a nil error when no data is pending.
	ReadSome(buf []byte) (int, error)
	// WriteSome writes without waiting. It returns 0 and a nil error when the
	// output side cannot accept data right now.
	WriteSome(buf []byte) (int, error)

	// Read blocks until buf is full, the read timeout elapses or an error
	// occurs. A timeout is reported as a short count with a nil error.
	Read(buf []byte) (int, error)
	// Write blocks until buf is sent, the write timeout elapses or an error
	// occurs. A timeout is reported as a short count with a nil error.
	Write(buf []byte) (int, error)

	// Abort cancels the in-flight blocking operation, if any.
	Abort()

	SetReadTimeout(d time.Duration) error
	ReadTimeout() time.Duration
	SetWriteTimeout(d time.Duration) error
	WriteTimeout() time.Duration

	Kind() Kind
}

// Kind identifies the concrete transport behind a Transport.
type Kind int

const (
	KindUnknown Kind = iota
	KindSerial
	KindSocketClient
	KindSocketServer
)

func (k Kind) String() string {
	switch k {
	case KindSerial:
		return "serial"
	case KindSocketClient:
		return "tcp:client"
	case KindSocketServer:
		return "tcp:server"
	default:
		return "unknown"
	}
}

// Ensure the implementations satisfy Transport at compile time
var (
	_ Transport = (*Serial)(nil)
	_ Transport = (*Socket)(nil)
)
