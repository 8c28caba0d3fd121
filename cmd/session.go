/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"slices"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/allbin/go-comlink"
	"github.com/allbin/go-comlink/internal/tui/components"
	"github.com/allbin/go-comlink/internal/tui/models"
)

// sessionView feeds transport results into a traffic view and the status
// bar. The connect and listen models embed it and differ only in input
// handling and layout.
type sessionView struct {
	*models.SessionModel
	view      components.DataView
	statusBar *components.StatusBar
}

func newSessionView(t comlink.Transport, ep endpoint, view components.DataView) *sessionView {
	s := &sessionView{
		SessionModel: models.NewSessionModel(t, ep.String(), logger.Named("tui")),
		view:         view,
		statusBar:    components.NewStatusBar(ep.String()),
	}
	s.statusBar.SetConnectionInfo(connectionInfo(t, ep))
	return s
}

func connectionInfo(t comlink.Transport, ep endpoint) *components.ConnectionInfo {
	if s, ok := t.(*comlink.Serial); ok {
		return components.SerialInfo(s.Config())
	}
	return components.SocketInfo(ep.kind, ep.String())
}

// quietTerminalLogs drops log output aimed at the terminal while a full
// screen program owns it. File outputs keep logging.
func quietTerminalLogs() {
	if slices.Contains(cfg.Log.Outputs, "stdout") || slices.Contains(cfg.Log.Outputs, "stderr") {
		logger = zap.NewNop()
	}
}

func (s *sessionView) add(msg components.DataReceivedMsg) {
	s.AddRawData(msg)
	s.view.AddMessage(msg)
}

func (s *sessionView) notice(format string, args ...any) {
	s.add(components.NewNotice(fmt.Sprintf(format, args...)))
}

func (s *sessionView) connect() tea.Cmd {
	s.statusBar.SetConnecting()
	if s.Transport().Kind() == comlink.KindSocketServer {
		s.notice("waiting for a peer on %s", s.Endpoint())
	}
	return s.Connect()
}

func (s *sessionView) reconnect() tea.Cmd {
	s.statusBar.SetConnecting()
	s.notice("reopening %s", s.Endpoint())
	return s.Reconnect()
}

func (s *sessionView) clear() {
	s.ClearData()
	s.view.Clear()
}

func (s *sessionView) refresh() {
	s.view.RefreshDisplayWithRawData(s.GetRawData())
}

func (s *sessionView) applySignals(st components.ModemStatusMsg) {
	s.RecordSignals(st.Signals)
	s.statusBar.UpdateSignals(st.Signals)
	if st.Changed != 0 {
		msg := components.NewNotice(fmt.Sprintf("%s changed, active: %s", st.Changed, st.Signals.Mask()))
		msg.Timestamp = st.Timestamp
		s.add(msg)
	}
}

func (s *sessionView) disconnected(err error) {
	s.SetConnected(false)
	s.SetError(err)
	s.statusBar.SetDisconnected(err)
}

// handle applies a session message. It reports false for messages that
// belong to the embedding model.
func (s *sessionView) handle(msg tea.Msg) (tea.Cmd, bool) {
	switch msg := msg.(type) {
	case models.ConnectionStatusMsg:
		if !s.Current(msg.Gen) {
			return nil, true
		}
		if msg.Error != nil {
			s.disconnected(msg.Error)
			s.notice("open failed: %v", msg.Error)
			return nil, true
		}
		s.SetConnected(true)
		s.SetError(nil)
		s.statusBar.SetConnected()
		s.notice("connected to %s", s.Endpoint())
		return tea.Batch(s.Poll(), s.WatchSignals()), true

	case models.ReadResultMsg:
		if !s.Current(msg.Gen) || !s.IsConnected() {
			return nil, true
		}
		if msg.Err != nil {
			s.disconnected(msg.Err)
			s.notice("read failed: %v", msg.Err)
			return nil, true
		}
		if len(msg.Data) > 0 {
			s.add(components.DataReceivedMsg{Timestamp: msg.Timestamp, Data: msg.Data})
		}
		return s.Poll(), true

	case models.WriteResultMsg:
		if s.ResolveWrite(msg) {
			s.refresh()
		} else {
			s.add(msg.Message())
		}
		if msg.Err != nil {
			s.notice("write failed after %d of %d bytes: %v", msg.Sent, len(msg.Data), msg.Err)
		}
		return nil, true

	case models.SignalTickMsg:
		if !s.Current(msg.Gen) || !s.IsConnected() {
			return nil, true
		}
		if msg.Err != nil {
			s.notice("modem lines unavailable: %v", msg.Err)
			return nil, true
		}
		s.applySignals(msg.Status)
		return s.WatchSignals(), true

	case components.ModemStatusMsg:
		s.applySignals(msg)
		return nil, true

	case models.NoticeMsg:
		s.notice("%s", string(msg))
		return nil, true
	}
	return nil, false
}
