package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/allbin/go-comlink/internal/tui/colors"
	"github.com/charmbracelet/lipgloss"
)

// TXStatus tracks an outgoing message through the transport.
type TXStatus string

const (
	TXPending      TXStatus = "PENDING"
	TXTransmitting TXStatus = "TRANSMITTING"
	TXWritten      TXStatus = "WRITTEN"
	TXPartial      TXStatus = "PARTIAL" // write timed out after a short count
	TXError        TXStatus = "ERROR"
)

type DataReceivedMsg struct {
	Timestamp time.Time
	Data      []byte
	IsTX      bool
	Status    TXStatus // empty for RX
	Sent      int      // bytes accepted by the transport, TX only
	Notice    string   // session event instead of traffic
}

// NewNotice builds a session event line.
func NewNotice(text string) DataReceivedMsg {
	return DataReceivedMsg{Timestamp: time.Now(), Notice: text}
}

type DisplayMode struct {
	ShowHex   bool
	ShowASCII bool
}

type DataFormatter struct {
	mode DisplayMode
}

func NewDataFormatter(showHex, showASCII bool) *DataFormatter {
	return &DataFormatter{
		mode: DisplayMode{
			ShowHex:   showHex,
			ShowASCII: showASCII,
		},
	}
}

func (df *DataFormatter) SetDisplayMode(showHex, showASCII bool) {
	df.mode.ShowHex = showHex
	df.mode.ShowASCII = showASCII
}

func (df *DataFormatter) GetDisplayMode() DisplayMode {
	return df.mode
}

// indicator renders the direction arrow and, for TX, the delivery state.
func indicator(msg DataReceivedMsg) string {
	if !msg.IsTX {
		return lipgloss.NewStyle().
			Foreground(colors.Sky).
			Bold(true).
			Render("↙ RX")
	}

	var txColor lipgloss.Color
	var statusText string
	switch msg.Status {
	case TXPending:
		txColor = colors.Yellow
		statusText = "TX ○"
	case TXTransmitting:
		txColor = colors.Blue
		statusText = "TX ⏸"
	case TXWritten:
		txColor = colors.Green
		statusText = "TX ✓"
	case TXPartial:
		txColor = colors.Peach
		statusText = fmt.Sprintf("TX %d/%d", msg.Sent, len(msg.Data))
	case TXError:
		txColor = colors.Red
		statusText = "TX ✗"
	default:
		txColor = colors.Peach
		statusText = "TX"
	}

	return lipgloss.NewStyle().
		Foreground(txColor).
		Bold(true).
		Render("↗ " + statusText)
}

// printable replaces everything outside printable ASCII with dots so the
// output can never carry terminal control sequences.
func printable(data []byte) string {
	var sb strings.Builder
	sb.Grow(len(data))
	for _, b := range data {
		if b >= 32 && b <= 126 {
			sb.WriteByte(b)
		} else {
			sb.WriteByte('.')
		}
	}
	return sb.String()
}

func hexString(data []byte) string {
	return fmt.Sprintf("% X", data)
}

func (df *DataFormatter) FormatMessage(msg DataReceivedMsg) string {
	timestampStyled := lipgloss.NewStyle().
		Foreground(colors.Subtext0).
		Render(fmt.Sprintf("[%s]", msg.Timestamp.Format("15:04:05.000")))

	if msg.Notice != "" {
		return timestampStyled + " " + lipgloss.NewStyle().Foreground(colors.Lavender).Render("• "+msg.Notice)
	}

	var parts []string
	if df.mode.ShowHex {
		parts = append(parts, "HEX: "+hexString(msg.Data))
	}
	if df.mode.ShowASCII {
		parts = append(parts, "ASCII: "+printable(msg.Data))
	}
	if !df.mode.ShowHex && !df.mode.ShowASCII {
		parts = append(parts, fmt.Sprintf("BYTES: %d", len(msg.Data)))
	}

	return fmt.Sprintf("%s %s: %s", timestampStyled, indicator(msg), strings.Join(parts, "  "))
}

func (df *DataFormatter) FormatMessages(messages []DataReceivedMsg) []string {
	formatted := make([]string, len(messages))
	for i, msg := range messages {
		formatted[i] = df.FormatMessage(msg)
	}
	return formatted
}

func (df *DataFormatter) ToggleHex() {
	df.mode.ShowHex = !df.mode.ShowHex
}

func (df *DataFormatter) ToggleASCII() {
	df.mode.ShowASCII = !df.mode.ShowASCII
}
