package styles

import (
	"github.com/allbin/go-comlink/internal/tui/colors"
	"github.com/charmbracelet/lipgloss"
)

var (
	// Traffic area of the interactive views
	ContentBorderStyle = lipgloss.NewStyle().
				BorderTop(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderForeground(colors.Surface1)

	HelpStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colors.Overlay0).
			Padding(1, 2).
			Margin(1, 0)

	// Send box
	InputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colors.Surface2).
			Padding(0, 1)

	// Markers for line-oriented command output
	InfoStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colors.Mauve)

	SuccessStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colors.Green)

	WarnStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colors.Peach)

	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colors.Red)

	// Key/value listings
	HeadingStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colors.Mauve)

	LabelStyle = lipgloss.NewStyle().
			Foreground(colors.Subtext0).
			Width(14)
)

// ConnectionState is what the status bar shows about the transport.
type ConnectionState int

const (
	StateConnected ConnectionState = iota
	StateDisconnected
	StateConnecting
	StateError
)

// ConnectionIndicator returns the style and glyph for a connection state.
func ConnectionIndicator(state ConnectionState) (lipgloss.Style, string) {
	switch state {
	case StateConnected:
		return lipgloss.NewStyle().Foreground(colors.Green), "●"
	case StateConnecting:
		return lipgloss.NewStyle().Foreground(colors.Yellow), "○"
	case StateError:
		return lipgloss.NewStyle().Foreground(colors.Red), "✗"
	default:
		return lipgloss.NewStyle().Foreground(colors.Red), "○"
	}
}
