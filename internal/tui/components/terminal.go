package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// DataView is a scrollback of transport traffic. Terminal renders it as a
// log, TerminalTable as rows.
type DataView interface {
	SetSize(width, height int)
	AddMessage(msg DataReceivedMsg)
	RefreshDisplayWithRawData(rawData []DataReceivedMsg)
	Clear()
	ToggleHex()
	ToggleASCII()
	GetDisplayMode() DisplayMode
	Width() int
	View() string
}

var (
	_ DataView = (*Terminal)(nil)
	_ DataView = (*TerminalTable)(nil)
)

const maxLines = 10000

// Terminal is a follow-only log view of traffic.
type Terminal struct {
	viewport  viewport.Model
	formatter *DataFormatter
	data      []string
}

func NewTerminal(width, height int) *Terminal {
	return &Terminal{
		viewport:  viewport.New(width, height),
		formatter: NewDataFormatter(true, true),
	}
}

func (t *Terminal) SetSize(width, height int) {
	t.viewport.Width = width
	t.viewport.Height = height
}

func (t *Terminal) Width() int {
	return t.viewport.Width
}

func (t *Terminal) AddMessage(msg DataReceivedMsg) {
	t.data = append(t.data, t.formatter.FormatMessage(msg))
	if over := len(t.data) - maxLines; over > 0 {
		t.data = append(t.data[:0:0], t.data[over:]...)
	}
	t.viewport.SetContent(strings.Join(t.data, "\n"))
	// Stay on the newest line even when content is shorter than the viewport
	t.viewport.GotoBottom()
}

func (t *Terminal) RefreshDisplayWithRawData(rawData []DataReceivedMsg) {
	t.data = t.formatter.FormatMessages(rawData)
	t.viewport.SetContent(strings.Join(t.data, "\n"))
	t.viewport.GotoBottom()
}

func (t *Terminal) Clear() {
	t.data = nil
	t.viewport.SetContent("")
}

func (t *Terminal) ToggleHex() {
	t.formatter.ToggleHex()
}

func (t *Terminal) ToggleASCII() {
	t.formatter.ToggleASCII()
}

func (t *Terminal) GetDisplayMode() DisplayMode {
	return t.formatter.GetDisplayMode()
}

// Update only forwards resizes so the viewport never swallows key bindings.
func (t *Terminal) Update(msg tea.Msg) tea.Cmd {
	if _, ok := msg.(tea.WindowSizeMsg); !ok {
		return nil
	}
	var cmd tea.Cmd
	t.viewport, cmd = t.viewport.Update(msg)
	return cmd
}

func (t *Terminal) View() string {
	return t.viewport.View()
}
