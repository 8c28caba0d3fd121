package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/allbin/go-comlink"
	"github.com/allbin/go-comlink/internal/tui/colors"
	"github.com/allbin/go-comlink/internal/tui/styles"
	"github.com/charmbracelet/lipgloss"
)

// ModemStatusMsg reports a change in the serial modem lines.
type ModemStatusMsg struct {
	Signals   comlink.ModemSignals
	Changed   comlink.SignalMask
	Timestamp time.Time
}

// ConnectionInfo describes the endpoint shown on the right of the status bar.
type ConnectionInfo struct {
	Kind     comlink.Kind
	Settings string
	// Signals is nil for transports without modem lines.
	Signals *comlink.ModemSignals
}

// SerialInfo summarizes a serial line as "115200 8N1 None".
func SerialInfo(cfg comlink.SerialConfig) *ConnectionInfo {
	return &ConnectionInfo{
		Kind: comlink.KindSerial,
		Settings: fmt.Sprintf("%d %d%s%s %s",
			cfg.BaudRate, cfg.DataBits, cfg.Parity, cfg.StopBits, cfg.FlowControl),
		Signals: &comlink.ModemSignals{},
	}
}

// SocketInfo summarizes a TCP endpoint.
func SocketInfo(kind comlink.Kind, endpoint string) *ConnectionInfo {
	return &ConnectionInfo{Kind: kind, Settings: endpoint}
}

type StatusBar struct {
	endpoint       string
	status         string
	connecting     bool
	err            error
	width          int
	connectionInfo *ConnectionInfo
}

func NewStatusBar(endpoint string) *StatusBar {
	return &StatusBar{
		endpoint: endpoint,
		status:   "Initializing...",
	}
}

func (sb *StatusBar) SetWidth(width int) {
	sb.width = width
}

func (sb *StatusBar) SetConnectionInfo(info *ConnectionInfo) {
	sb.connectionInfo = info
}

func (sb *StatusBar) UpdateSignals(s comlink.ModemSignals) {
	if sb.connectionInfo != nil && sb.connectionInfo.Signals != nil {
		*sb.connectionInfo.Signals = s
	}
}

func (sb *StatusBar) SetConnecting() {
	sb.status = "Connecting..."
	sb.connecting = true
	sb.err = nil
}

func (sb *StatusBar) SetConnected() {
	sb.status = "Connected"
	sb.connecting = false
	sb.err = nil
}

func (sb *StatusBar) SetDisconnected(err error) {
	sb.connecting = false
	sb.err = err
	if err != nil {
		sb.status = fmt.Sprintf("Connection failed: %v", err)
	} else {
		sb.status = "Disconnected"
	}
}

func (sb *StatusBar) Status() string {
	return sb.status
}

func signalFlag(name string, on bool) string {
	if on {
		return name + ":✓"
	}
	return name + ":✗"
}

func (sb *StatusBar) details() string {
	info := sb.connectionInfo
	if info == nil {
		return "⚡ " + sb.endpoint
	}
	parts := []string{"⚡ " + info.Kind.String(), info.Settings}
	if s := info.Signals; s != nil {
		parts = append(parts, signalFlag("CTS", s.CTS), signalFlag("DSR", s.DSR), signalFlag("DCD", s.DCD))
	}
	return strings.Join(parts, " ")
}

// Render draws the bottom bar: mode, endpoint, connection state, sending
// mode, endpoint settings and the clock.
func (sb *StatusBar) Render(inputMode, sendingMode string, connected bool, timestamp string) string {
	terminalWidth := sb.width
	if terminalWidth <= 0 {
		terminalWidth = 80
	}

	modeBg := colors.Blue
	if inputMode == "INSERT" {
		modeBg = colors.Green
	}
	mode := lipgloss.NewStyle().
		Foreground(colors.Base).
		Background(modeBg).
		Bold(true).
		Padding(0, 1).
		Render(inputMode)

	endpoint := lipgloss.NewStyle().
		Foreground(colors.Mauve).
		Bold(true).
		Padding(0, 1).
		Render(sb.endpoint)

	state := styles.StateDisconnected
	switch {
	case sb.err != nil:
		state = styles.StateError
	case connected:
		state = styles.StateConnected
	case sb.connecting:
		state = styles.StateConnecting
	}
	connStyle, connIndicator := styles.ConnectionIndicator(state)
	connectionIndicator := connStyle.Render(connIndicator)

	connectionDetails := lipgloss.NewStyle().
		Foreground(colors.Subtext0).
		Padding(0, 1).
		Render(sb.details())

	clock := lipgloss.NewStyle().
		Foreground(colors.Subtext1).
		Padding(0, 1).
		Render(timestamp)

	divider := lipgloss.NewStyle().
		Foreground(colors.Surface2).
		Padding(0, 1).
		Render("│")

	left := []string{mode, endpoint, connectionIndicator}
	if inputMode == "INSERT" {
		left = append(left, lipgloss.NewStyle().
			Foreground(colors.Peach).
			Bold(true).
			Padding(0, 1).
			Render(fmt.Sprintf("[%s] Tab to toggle", sendingMode)))
	}
	left = append(left, divider)
	leftSide := lipgloss.JoinHorizontal(lipgloss.Left, left...)
	rightSide := lipgloss.JoinHorizontal(lipgloss.Left, connectionDetails, divider, clock)

	spacerWidth := max(terminalWidth-lipgloss.Width(leftSide)-lipgloss.Width(rightSide), 1)
	spacer := lipgloss.NewStyle().Width(spacerWidth).Render("")

	return lipgloss.NewStyle().
		Foreground(colors.Text).
		Background(colors.Surface0).
		Width(terminalWidth).
		Render(lipgloss.JoinHorizontal(lipgloss.Left, leftSide, spacer, rightSide))
}
