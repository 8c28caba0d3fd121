package models

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/allbin/go-comlink"
	"github.com/allbin/go-comlink/internal/tui/components"
)

const (
	// PollInterval is how often an open transport is drained with ReadSome.
	PollInterval = 20 * time.Millisecond
	// SignalInterval is how often serial modem lines are sampled.
	SignalInterval = 100 * time.Millisecond

	readChunk   = 4096
	maxMessages = 10000
)

// InputMode represents the current input mode (vim-like)
type InputMode int

const (
	InputModeNormal InputMode = iota
	InputModeInsert
)

func (m InputMode) String() string {
	if m == InputModeInsert {
		return "INSERT"
	}
	return "NORMAL"
}

// Results of transport calls carry the connection generation they were
// issued under so that results from before a reopen can be dropped.

// ConnectionStatusMsg is the outcome of opening the transport.
type ConnectionStatusMsg struct {
	Gen       int
	Connected bool
	Error     error
}

// ReadResultMsg carries one non-blocking read.
type ReadResultMsg struct {
	Gen       int
	Timestamp time.Time
	Data      []byte
	Err       error
}

// SignalTickMsg carries one modem line sample.
type SignalTickMsg struct {
	Gen    int
	Status components.ModemStatusMsg
	Err    error
}

// WriteResultMsg carries the outcome of a blocking write. Timestamp is
// when the write was queued.
type WriteResultMsg struct {
	Timestamp time.Time
	Data      []byte
	Sent      int
	Err       error
}

// Message converts the result into a TX row for the traffic views.
func (w WriteResultMsg) Message() components.DataReceivedMsg {
	msg := components.DataReceivedMsg{
		Timestamp: w.Timestamp,
		Data:      w.Data,
		IsTX:      true,
		Sent:      w.Sent,
	}
	switch {
	case w.Err != nil:
		msg.Status = components.TXError
	case w.Sent < len(w.Data):
		msg.Status = components.TXPartial
	default:
		msg.Status = components.TXWritten
	}
	return msg
}

// ModemLine is implemented by transports with modem control lines.
type ModemLine interface {
	ModemSignals() (comlink.ModemSignals, error)
	SetRTS(bool) error
	SetDTR(bool) error
}

// NoticeMsg is an informational line for the traffic view.
type NoticeMsg string

// SessionModel is the state of one interactive transport session. The
// tea.Cmd constructors run transport calls off the UI goroutine.
type SessionModel struct {
	transport comlink.Transport
	endpoint  string
	log       *zap.Logger

	gen       int
	connected bool
	rawData   []components.DataReceivedMsg
	err       error
	ready     bool
	signals   comlink.ModemSignals

	inputMode InputMode
	mu        sync.RWMutex
}

func NewSessionModel(t comlink.Transport, endpoint string, log *zap.Logger) *SessionModel {
	if log == nil {
		log = zap.NewNop()
	}
	return &SessionModel{
		transport: t,
		endpoint:  endpoint,
		log:       log,
		inputMode: InputModeNormal,
	}
}

func (m *SessionModel) Transport() comlink.Transport { return m.transport }
func (m *SessionModel) Endpoint() string             { return m.endpoint }
func (m *SessionModel) IsConnected() bool            { return m.connected }
func (m *SessionModel) SetConnected(connected bool)  { m.connected = connected }
func (m *SessionModel) GetError() error              { return m.err }
func (m *SessionModel) SetError(err error)           { m.err = err }
func (m *SessionModel) IsReady() bool                { return m.ready }
func (m *SessionModel) SetReady(ready bool)          { m.ready = ready }

func (m *SessionModel) GetRawData() []components.DataReceivedMsg {
	return m.rawData
}

// AddRawData appends to the scrollback, dropping the oldest entries past
// the limit.
func (m *SessionModel) AddRawData(msg components.DataReceivedMsg) {
	m.rawData = append(m.rawData, msg)
	if over := len(m.rawData) - maxMessages; over > 0 {
		m.rawData = append(m.rawData[:0:0], m.rawData[over:]...)
	}
}

func (m *SessionModel) ClearData() {
	m.rawData = nil
}

func (m *SessionModel) GetInputMode() InputMode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.inputMode
}

func (m *SessionModel) SetInputMode(mode InputMode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inputMode = mode
}

func (m *SessionModel) IsInInsertMode() bool {
	return m.GetInputMode() == InputModeInsert
}

// Modem returns the transport's modem lines, if it has any.
func (m *SessionModel) Modem() (ModemLine, bool) {
	line, ok := m.transport.(ModemLine)
	return line, ok
}

// Current reports whether gen is the live connection generation.
func (m *SessionModel) Current(gen int) bool {
	return gen == m.gen
}

// Connect opens the transport, reopening it if it is already open, and
// starts a new connection generation. For a TCP server this waits for the
// peer.
func (m *SessionModel) Connect() tea.Cmd {
	m.gen++
	m.connected = false
	gen, t, log := m.gen, m.transport, m.log.With(zap.String("endpoint", m.endpoint))
	return func() tea.Msg {
		err := t.Open()
		if err != nil {
			log.Debug("open failed", zap.Error(err))
		}
		return ConnectionStatusMsg{Gen: gen, Connected: err == nil, Error: err}
	}
}

// Reconnect cuts short whatever is in flight and opens the transport again.
func (m *SessionModel) Reconnect() tea.Cmd {
	m.transport.Abort()
	return m.Connect()
}

// Poll schedules the next non-blocking read.
func (m *SessionModel) Poll() tea.Cmd {
	gen, t := m.gen, m.transport
	return tea.Tick(PollInterval, func(now time.Time) tea.Msg {
		buf := make([]byte, readChunk)
		n, err := t.ReadSome(buf)
		return ReadResultMsg{Gen: gen, Timestamp: now, Data: buf[:n], Err: err}
	})
}

// Send records a pending TX row and writes data with the transport's write
// timeout. The result replaces the pending row through ResolveWrite.
func (m *SessionModel) Send(data []byte) (components.DataReceivedMsg, tea.Cmd) {
	pending := components.DataReceivedMsg{
		Timestamp: time.Now(),
		Data:      data,
		IsTX:      true,
		Status:    components.TXPending,
	}
	m.AddRawData(pending)

	t, log := m.transport, m.log
	return pending, func() tea.Msg {
		n, err := t.Write(data)
		if err != nil {
			log.Debug("write failed", zap.Int("sent", n), zap.Error(err))
		}
		return WriteResultMsg{Timestamp: pending.Timestamp, Data: data, Sent: n, Err: err}
	}
}

// ResolveWrite swaps the pending row of a finished write for its result.
// It reports false when the row is no longer in the scrollback.
func (m *SessionModel) ResolveWrite(res WriteResultMsg) bool {
	for i := len(m.rawData) - 1; i >= 0; i-- {
		row := m.rawData[i]
		if row.IsTX && row.Status == components.TXPending && row.Timestamp.Equal(res.Timestamp) {
			m.rawData[i] = res.Message()
			return true
		}
	}
	return false
}

// WatchSignals schedules the next modem line sample. It returns nil for
// transports without modem lines.
func (m *SessionModel) WatchSignals() tea.Cmd {
	line, ok := m.Modem()
	if !ok {
		return nil
	}
	gen, prev := m.gen, m.signals
	return tea.Tick(SignalInterval, func(now time.Time) tea.Msg {
		s, err := line.ModemSignals()
		if err != nil {
			return SignalTickMsg{Gen: gen, Err: err}
		}
		return SignalTickMsg{
			Gen:    gen,
			Status: components.ModemStatusMsg{Signals: s, Changed: prev.Changed(s), Timestamp: now},
		}
	})
}

// RecordSignals stores the latest modem line sample.
func (m *SessionModel) RecordSignals(s comlink.ModemSignals) {
	m.signals = s
}

// ToggleRTS inverts the RTS output.
func (m *SessionModel) ToggleRTS() tea.Cmd {
	return m.toggleLine(func(line ModemLine, s comlink.ModemSignals) error { return line.SetRTS(!s.RTS) })
}

// ToggleDTR inverts the DTR output.
func (m *SessionModel) ToggleDTR() tea.Cmd {
	return m.toggleLine(func(line ModemLine, s comlink.ModemSignals) error { return line.SetDTR(!s.DTR) })
}

func (m *SessionModel) toggleLine(set func(ModemLine, comlink.ModemSignals) error) tea.Cmd {
	line, ok := m.Modem()
	if !ok {
		return func() tea.Msg { return NoticeMsg(m.endpoint + " has no modem lines") }
	}
	prev := m.signals
	return func() tea.Msg {
		s, err := line.ModemSignals()
		if err == nil {
			err = set(line, s)
		}
		if err == nil {
			s, err = line.ModemSignals()
		}
		if err != nil {
			m.log.Warn("modem line change failed", zap.String("endpoint", m.endpoint), zap.Error(err))
			s = prev
		}
		return components.ModemStatusMsg{Signals: s, Changed: prev.Changed(s), Timestamp: time.Now()}
	}
}

// Abort cuts short the transport call in progress.
func (m *SessionModel) Abort() {
	m.transport.Abort()
}

// Cleanup aborts whatever is in flight and closes the transport.
func (m *SessionModel) Cleanup() {
	m.transport.Abort()
	if err := m.transport.Close(); err != nil {
		m.log.Debug("close failed", zap.String("endpoint", m.endpoint), zap.Error(err))
	}
}
