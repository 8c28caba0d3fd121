package components

import (
	"slices"
	"strconv"

	"github.com/allbin/go-comlink/internal/tui/colors"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type ViewMode int

const (
	ViewModeFollow ViewMode = iota
	ViewModeVisual
)

func (v ViewMode) String() string {
	if v == ViewModeVisual {
		return "VISUAL"
	}
	return "FOLLOW"
}

const (
	timeWidth   = 14 // "15:04:05.000"
	dirWidth    = 4
	bytesWidth  = 7
	minWidth    = 80
	minHeight   = 5
	columnSlack = 10
)

// TerminalTable shows traffic as rows and lets the user scroll back through
// them in visual mode.
type TerminalTable struct {
	table     table.Model
	formatter *DataFormatter
	viewMode  ViewMode
	rawData   []DataReceivedMsg
}

func NewTerminalTable(width, height int) *TerminalTable {
	width = max(width, minWidth)
	height = max(height, minHeight)

	t := table.New(
		table.WithFocused(false),
		table.WithHeight(height),
		table.WithWidth(width),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(colors.Subtext0).
		BorderBottom(true).
		Bold(true).
		Foreground(colors.Text)
	s.Selected = s.Selected.
		Foreground(colors.Text).
		Background(colors.Surface1).
		Bold(false)
	t.SetStyles(s)

	tt := &TerminalTable{
		table:     t,
		formatter: NewDataFormatter(true, true),
		viewMode:  ViewModeFollow,
	}
	tt.updateColumns(width)
	return tt
}

func (tt *TerminalTable) SetSize(width, height int) {
	tt.updateColumns(width)
	tt.table.SetHeight(max(height, minHeight))
	tt.table.SetWidth(max(width, minWidth))
	tt.table.UpdateViewport()
}

func (tt *TerminalTable) Width() int {
	return tt.table.Width()
}

// updateColumns lays out the data columns for the current display mode.
// Columns must change before rows so the row shape always matches.
func (tt *TerminalTable) updateColumns(width int) {
	mode := tt.formatter.GetDisplayMode()
	width = max(width, minWidth)
	remaining := max(width-(timeWidth+dirWidth+bytesWidth+columnSlack), 20)

	columns := []table.Column{
		{Title: "Time", Width: timeWidth},
		{Title: "↕", Width: dirWidth},
	}
	switch {
	case mode.ShowHex && mode.ShowASCII:
		columns = append(columns,
			table.Column{Title: "Hex", Width: max(remaining*7/10, 20)},
			table.Column{Title: "ASCII", Width: max(remaining*3/10, 10)},
		)
	case mode.ShowHex:
		columns = append(columns, table.Column{Title: "Hex", Width: max(remaining, 30)})
	case mode.ShowASCII:
		columns = append(columns, table.Column{Title: "ASCII", Width: remaining})
	default:
		columns = append(columns, table.Column{Title: "Data", Width: max(remaining, 25)})
	}
	columns = append(columns, table.Column{Title: "Bytes", Width: bytesWidth})

	// Clear rows first: bubbles/table renders rows against the new columns.
	tt.table.SetRows(nil)
	tt.table.SetColumns(columns)
	tt.refreshTable()
}

func (tt *TerminalTable) AddMessage(msg DataReceivedMsg) {
	tt.rawData = append(tt.rawData, msg)
	if over := len(tt.rawData) - maxLines; over > 0 {
		tt.rawData = append(tt.rawData[:0:0], tt.rawData[over:]...)
	}
	tt.refreshTable()
	tt.follow()
}

func (tt *TerminalTable) RefreshDisplayWithRawData(rawData []DataReceivedMsg) {
	tt.rawData = slices.Clone(rawData)
	tt.refreshTable()
	tt.follow()
}

func (tt *TerminalTable) follow() {
	if tt.viewMode == ViewModeFollow {
		tt.table.GotoBottom()
	}
}

func (tt *TerminalTable) refreshTable() {
	rows := make([]table.Row, len(tt.rawData))
	for i, msg := range tt.rawData {
		rows[i] = tt.row(msg)
	}
	tt.table.SetRows(rows)
	tt.table.UpdateViewport()
}

func direction(msg DataReceivedMsg) string {
	if msg.Notice != "" {
		return "•"
	}
	if !msg.IsTX {
		return "↙"
	}
	switch msg.Status {
	case TXWritten:
		return "↗✓"
	case TXPartial:
		return "↗~"
	case TXError:
		return "↗✗"
	default:
		return "↗"
	}
}

func (tt *TerminalTable) row(msg DataReceivedMsg) table.Row {
	row := table.Row{msg.Timestamp.Format("15:04:05.000"), direction(msg)}

	mode := tt.formatter.GetDisplayMode()
	if msg.Notice != "" {
		// The notice takes the first data column, the rest stay blank.
		row = append(row, msg.Notice)
		if mode.ShowHex && mode.ShowASCII {
			row = append(row, "")
		}
		return append(row, "")
	}

	if mode.ShowHex {
		row = append(row, hexString(msg.Data))
	}
	if mode.ShowASCII {
		row = append(row, printable(msg.Data))
	}
	if !mode.ShowHex && !mode.ShowASCII {
		row = append(row, strconv.Itoa(len(msg.Data))+" bytes")
	}

	count := strconv.Itoa(len(msg.Data))
	if msg.Status == TXPartial {
		count = strconv.Itoa(msg.Sent) + "/" + count
	}
	return append(row, count)
}

func (tt *TerminalTable) Clear() {
	tt.rawData = nil
	tt.table.SetRows(nil)
}

func (tt *TerminalTable) ToggleHex() {
	tt.formatter.ToggleHex()
	tt.updateColumns(tt.table.Width())
}

func (tt *TerminalTable) ToggleASCII() {
	tt.formatter.ToggleASCII()
	tt.updateColumns(tt.table.Width())
}

func (tt *TerminalTable) GetDisplayMode() DisplayMode {
	return tt.formatter.GetDisplayMode()
}

func (tt *TerminalTable) GetViewMode() ViewMode {
	return tt.viewMode
}

func (tt *TerminalTable) SetViewMode(mode ViewMode) {
	tt.viewMode = mode
	if mode == ViewModeFollow {
		if len(tt.rawData) > 0 {
			tt.table.SetCursor(len(tt.rawData) - 1)
		}
		tt.table.GotoBottom()
		tt.table.Blur()
	} else {
		tt.table.Focus()
	}
	tt.table.UpdateViewport()
}

func (tt *TerminalTable) GotoTop() {
	tt.table.GotoTop()
}

func (tt *TerminalTable) GotoBottom() {
	tt.table.GotoBottom()
}

// Update forwards navigation keys to the table in visual mode only.
func (tt *TerminalTable) Update(msg tea.Msg) tea.Cmd {
	if tt.viewMode != ViewModeVisual {
		return nil
	}
	var cmd tea.Cmd
	tt.table, cmd = tt.table.Update(msg)
	return cmd
}

func (tt *TerminalTable) View() string {
	return tt.table.View()
}
