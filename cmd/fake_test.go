package cmd

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/allbin/go-comlink"
)

// fakeTransport serves queued inbound bytes and records writes. An empty
// inbound queue reads as a timeout, or as readErr once that is set.
type fakeTransport struct {
	mu       sync.Mutex
	kind     comlink.Kind
	opened   bool
	inbound  []byte
	written  []byte
	readErr  error
	writeErr error
	aborted  atomic.Int32
}

func newFakeTransport(inbound string) *fakeTransport {
	return &fakeTransport{kind: comlink.KindSocketClient, opened: true, inbound: []byte(inbound)}
}

func (f *fakeTransport) Open() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = true
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = false
	return nil
}

func (f *fakeTransport) Opened() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opened
}

func (f *fakeTransport) ReadSome(buf []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.inbound) == 0 && f.readErr != nil {
		return 0, f.readErr
	}
	n := copy(buf, f.inbound)
	f.inbound = f.inbound[n:]
	return n, nil
}

func (f *fakeTransport) Read(buf []byte) (int, error) { return f.ReadSome(buf) }

func (f *fakeTransport) Write(buf []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	f.written = append(f.written, buf...)
	return len(buf), nil
}

func (f *fakeTransport) WriteSome(buf []byte) (int, error) { return f.Write(buf) }

func (f *fakeTransport) Written() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return string(f.written)
}

func (f *fakeTransport) Abort()                              { f.aborted.Add(1) }
func (f *fakeTransport) SetReadTimeout(time.Duration) error  { return nil }
func (f *fakeTransport) ReadTimeout() time.Duration          { return time.Second }
func (f *fakeTransport) SetWriteTimeout(time.Duration) error { return nil }
func (f *fakeTransport) WriteTimeout() time.Duration         { return time.Second }
func (f *fakeTransport) Kind() comlink.Kind                  { return f.kind }
