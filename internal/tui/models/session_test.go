package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allbin/go-comlink"
	"github.com/allbin/go-comlink/internal/tui/components"
)

type fakeTransport struct {
	opened   bool
	openErr  error
	inbound  []byte
	written  []byte
	writeCap int
	aborted  int
}

func (f *fakeTransport) Open() error {
	if f.openErr != nil {
		return f.openErr
	}
	f.opened = true
	return nil
}

func (f *fakeTransport) Close() error {
	f.opened = false
	return nil
}

func (f *fakeTransport) Opened() bool { return f.opened }

func (f *fakeTransport) ReadSome(buf []byte) (int, error) {
	n := copy(buf, f.inbound)
	f.inbound = f.inbound[n:]
	return n, nil
}

func (f *fakeTransport) WriteSome(buf []byte) (int, error) { return f.Write(buf) }
func (f *fakeTransport) Read(buf []byte) (int, error)      { return f.ReadSome(buf) }

func (f *fakeTransport) Write(buf []byte) (int, error) {
	n := len(buf)
	if f.writeCap > 0 {
		n = min(n, f.writeCap)
	}
	f.written = append(f.written, buf[:n]...)
	return n, nil
}

func (f *fakeTransport) Abort()                              { f.aborted++ }
func (f *fakeTransport) SetReadTimeout(time.Duration) error  { return nil }
func (f *fakeTransport) ReadTimeout() time.Duration          { return time.Second }
func (f *fakeTransport) SetWriteTimeout(time.Duration) error { return nil }
func (f *fakeTransport) WriteTimeout() time.Duration         { return time.Second }
func (f *fakeTransport) Kind() comlink.Kind                  { return comlink.KindSocketClient }

func TestSessionConnect(t *testing.T) {
	ft := &fakeTransport{}
	m := NewSessionModel(ft, "tcp://127.0.0.1:3444", nil)

	msg := m.Connect()()
	status, ok := msg.(ConnectionStatusMsg)
	require.True(t, ok)
	assert.True(t, status.Connected)
	assert.NoError(t, status.Error)

	ft.openErr = comlink.ErrOpen
	status = m.Connect()().(ConnectionStatusMsg)
	assert.False(t, status.Connected)
	assert.ErrorIs(t, status.Error, comlink.ErrOpen)
}

func TestSessionSend(t *testing.T) {
	ft := &fakeTransport{}
	m := NewSessionModel(ft, "test", nil)

	pending, cmd := m.Send([]byte("PING"))
	assert.Equal(t, components.TXPending, pending.Status)
	require.Len(t, m.GetRawData(), 1)

	res := cmd().(WriteResultMsg)
	assert.Equal(t, 4, res.Sent)
	assert.Equal(t, "PING", string(ft.written))
	require.True(t, m.ResolveWrite(res))
	assert.Equal(t, components.TXWritten, m.GetRawData()[0].Status)
	assert.False(t, m.ResolveWrite(res), "already resolved")

	ft.writeCap = 2
	_, cmd = m.Send([]byte("PING"))
	res = cmd().(WriteResultMsg)
	row := res.Message()
	assert.Equal(t, components.TXPartial, row.Status)
	assert.Equal(t, 2, row.Sent)

	m.ClearData()
	assert.False(t, m.ResolveWrite(res))

	res.Err = errors.New("broken")
	assert.Equal(t, components.TXError, res.Message().Status)
}

func TestSessionGenerations(t *testing.T) {
	ft := &fakeTransport{}
	m := NewSessionModel(ft, "test", nil)

	first := m.Connect()().(ConnectionStatusMsg)
	second := m.Reconnect()().(ConnectionStatusMsg)

	assert.Equal(t, 1, ft.aborted)
	assert.False(t, m.Current(first.Gen), "results from before a reopen are stale")
	assert.True(t, m.Current(second.Gen))
	assert.False(t, m.IsConnected(), "connected only once the open result is applied")
}

func TestSessionScrollbackLimit(t *testing.T) {
	m := NewSessionModel(&fakeTransport{}, "test", nil)
	for i := 0; i < maxMessages+5; i++ {
		m.AddRawData(components.DataReceivedMsg{Data: []byte{byte(i)}})
	}
	data := m.GetRawData()
	require.Len(t, data, maxMessages)
	assert.Equal(t, byte(5), data[0].Data[0])

	m.ClearData()
	assert.Empty(t, m.GetRawData())
}

func TestSessionNoModemLines(t *testing.T) {
	m := NewSessionModel(&fakeTransport{}, "tcp://127.0.0.1:1", nil)
	_, ok := m.Modem()
	assert.False(t, ok)
	assert.Nil(t, m.WatchSignals())

	msg := m.ToggleRTS()()
	assert.IsType(t, NoticeMsg(""), msg)
}

func TestSessionCleanup(t *testing.T) {
	ft := &fakeTransport{opened: true}
	m := NewSessionModel(ft, "test", nil)
	m.Cleanup()
	assert.Equal(t, 1, ft.aborted)
	assert.False(t, ft.opened)
}

func TestInputModeToggle(t *testing.T) {
	m := NewSessionModel(&fakeTransport{}, "test", nil)
	assert.Equal(t, "NORMAL", m.GetInputMode().String())
	m.SetInputMode(InputModeInsert)
	assert.True(t, m.IsInInsertMode())
	assert.Equal(t, "INSERT", m.GetInputMode().String())
}
