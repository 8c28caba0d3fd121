package cmd

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allbin/go-comlink"
	"github.com/allbin/go-comlink/internal/tui/components"
	"github.com/allbin/go-comlink/internal/tui/models"
)

func newTestSession(t *testing.T, ft *fakeTransport) (*sessionView, *components.TerminalTable) {
	t.Helper()
	table := components.NewTerminalTable(100, 20)
	ep := endpoint{kind: comlink.KindSocketClient, address: "127.0.0.1", port: 3444}
	return newSessionView(ft, ep, table), table
}

// connected runs the open command and applies its result.
func connected(t *testing.T, s *sessionView) int {
	t.Helper()
	status := s.connect()().(models.ConnectionStatusMsg)
	cmd, ok := s.handle(status)
	require.True(t, ok)
	require.NotNil(t, cmd, "a successful open starts polling")
	require.True(t, s.IsConnected())
	return status.Gen
}

func lastRow(s *sessionView) components.DataReceivedMsg {
	rows := s.GetRawData()
	return rows[len(rows)-1]
}

func TestSessionViewConnect(t *testing.T) {
	s, _ := newTestSession(t, newFakeTransport(""))
	connected(t, s)

	assert.Equal(t, "Connected", s.statusBar.Status())
	assert.Contains(t, lastRow(s).Notice, "connected to tcp://127.0.0.1:3444")
}

func TestSessionViewReads(t *testing.T) {
	s, _ := newTestSession(t, newFakeTransport(""))
	gen := connected(t, s)
	before := len(s.GetRawData())

	cmd, ok := s.handle(models.ReadResultMsg{Gen: gen, Timestamp: time.Now(), Data: []byte("hi")})
	require.True(t, ok)
	assert.NotNil(t, cmd, "polling continues")
	require.Len(t, s.GetRawData(), before+1)
	assert.Equal(t, "hi", string(lastRow(s).Data))

	// Empty reads only re-arm the poll
	cmd, _ = s.handle(models.ReadResultMsg{Gen: gen, Timestamp: time.Now()})
	assert.NotNil(t, cmd)
	assert.Len(t, s.GetRawData(), before+1)

	// Results from an earlier connection are dropped
	cmd, _ = s.handle(models.ReadResultMsg{Gen: gen - 1, Data: []byte("old")})
	assert.Nil(t, cmd)
	assert.Len(t, s.GetRawData(), before+1)
}

func TestSessionViewReadError(t *testing.T) {
	s, _ := newTestSession(t, newFakeTransport(""))
	gen := connected(t, s)

	cmd, ok := s.handle(models.ReadResultMsg{Gen: gen, Err: comlink.ErrIO})
	require.True(t, ok)
	assert.Nil(t, cmd, "polling stops after a failed read")
	assert.False(t, s.IsConnected())
	assert.ErrorIs(t, s.GetError(), comlink.ErrIO)
	assert.Contains(t, s.statusBar.Status(), "Connection failed")
	assert.Contains(t, lastRow(s).Notice, "read failed")
}

func TestSessionViewOpenError(t *testing.T) {
	s, _ := newTestSession(t, newFakeTransport(""))
	s.connect()
	cmd, ok := s.handle(models.ConnectionStatusMsg{Gen: 1, Error: comlink.ErrOpen})
	require.True(t, ok)
	assert.Nil(t, cmd)
	assert.False(t, s.IsConnected())
	assert.Contains(t, lastRow(s).Notice, "open failed")
}

func TestSessionViewWrite(t *testing.T) {
	ft := newFakeTransport("")
	s, _ := newTestSession(t, ft)
	connected(t, s)

	pending, cmd := s.Send([]byte("PING"))
	s.view.AddMessage(pending)
	assert.Equal(t, components.TXPending, lastRow(s).Status)

	_, ok := s.handle(cmd())
	require.True(t, ok)
	assert.Equal(t, components.TXWritten, lastRow(s).Status)
	assert.Equal(t, "PING", ft.Written())

	ft.writeErr = comlink.ErrClosed
	_, cmd = s.Send([]byte("PING"))
	s.handle(cmd())
	assert.Contains(t, lastRow(s).Notice, "write failed")
}

func TestSessionViewSignals(t *testing.T) {
	s, _ := newTestSession(t, newFakeTransport(""))
	gen := connected(t, s)

	status := components.ModemStatusMsg{
		Signals:   comlink.ModemSignals{CTS: true},
		Changed:   comlink.SignalCTS,
		Timestamp: time.Now(),
	}
	cmd, ok := s.handle(models.SignalTickMsg{Gen: gen, Status: status})
	require.True(t, ok)
	assert.Nil(t, cmd, "sockets have no modem lines to keep watching")
	assert.Equal(t, "CTS changed, active: CTS", lastRow(s).Notice)

	_, ok = s.handle(models.NoticeMsg("hello"))
	require.True(t, ok)
	assert.Equal(t, "hello", lastRow(s).Notice)

	_, ok = s.handle(tea.KeyMsg{})
	assert.False(t, ok)
}

func TestConnectSubmit(t *testing.T) {
	ft := newFakeTransport("")
	s, table := newTestSession(t, ft)
	m := newConnectModel(s, table, true)

	m.input.SetValue("PING")
	assert.Nil(t, m.submit(), "nothing is sent before the endpoint is open")
	assert.Contains(t, lastRow(s).Notice, "not connected")

	connected(t, s)
	m.input.SetValue("PING")
	cmd := m.submit()
	require.NotNil(t, cmd)
	assert.Empty(t, m.input.Value())
	assert.Equal(t, components.TXPending, lastRow(s).Status)

	res := cmd().(models.WriteResultMsg)
	assert.Equal(t, "PING\n", string(res.Data))
	assert.Equal(t, "PING\n", ft.Written())
}

func TestConnectSubmitHex(t *testing.T) {
	ft := newFakeTransport("")
	s, table := newTestSession(t, ft)
	m := newConnectModel(s, table, true)
	connected(t, s)
	m.input.ToggleSendingMode()

	m.input.SetValue("zz")
	assert.Nil(t, m.submit())
	assert.Contains(t, lastRow(s).Notice, "invalid hex input")

	m.input.SetValue("02 06")
	cmd := m.submit()
	require.NotNil(t, cmd)
	res := cmd().(models.WriteResultMsg)
	assert.Equal(t, []byte{0x02, 0x06}, res.Data, "hex input gets no newline")
}

func TestConnectKeys(t *testing.T) {
	ft := newFakeTransport("")
	s, table := newTestSession(t, ft)
	m := newConnectModel(s, table, false)
	connected(t, s)

	press := func(k string) tea.Cmd {
		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)})
		return cmd
	}

	press("v")
	assert.Equal(t, components.ViewModeVisual, table.GetViewMode())
	assert.Equal(t, "VISUAL", m.modeLabel())
	press("v")
	assert.Equal(t, components.ViewModeFollow, table.GetViewMode())

	press("h")
	assert.False(t, table.GetDisplayMode().ShowHex)

	// RTS on a socket reports that there are no modem lines
	msg := press("r")()
	assert.IsType(t, models.NoticeMsg(""), msg)

	press("i")
	assert.True(t, m.IsInInsertMode())
	m.input.SetValue("x")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	cmd()
	assert.Equal(t, "x", ft.Written())

	_, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.IsInInsertMode())

	press("c")
	assert.Empty(t, s.GetRawData())

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlX})
	assert.Nil(t, cmd)
	assert.Positive(t, ft.aborted.Load())
}

func TestConnectReconnect(t *testing.T) {
	ft := newFakeTransport("")
	s, table := newTestSession(t, ft)
	m := newConnectModel(s, table, false)
	gen := connected(t, s)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	require.NotNil(t, cmd)
	assert.False(t, s.IsConnected())
	assert.False(t, s.Current(gen))

	status := cmd().(models.ConnectionStatusMsg)
	_, _ = m.Update(status)
	assert.True(t, s.IsConnected())

	_, _ = m.Update(models.ConnectionStatusMsg{Gen: gen, Error: errors.New("stale")})
	assert.True(t, s.IsConnected(), "a stale open result is ignored")
}
