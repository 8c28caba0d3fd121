/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/allbin/go-comlink/internal/tui/components"
	"github.com/allbin/go-comlink/internal/tui/keys"
	"github.com/allbin/go-comlink/internal/tui/models"
	"github.com/allbin/go-comlink/internal/tui/styles"
)

// connectCmd represents the connect command
var connectCmd = &cobra.Command{
	Use:   "connect <endpoint>",
	Short: "Open an interactive terminal on a serial line or TCP socket",
	Long: `Open an endpoint and exchange data with it interactively.

Received data is polled without blocking and shown as a table of
timestamped rows. Sent data appears as pending until the write finishes,
then as written, partial (write timeout) or failed.

Keys:
  i / esc       insert mode / normal mode
  enter         send the input (tab switches between ASCII and hex)
  v, g, G       visual mode for scrolling back, top, bottom
  h / a         toggle hex / ASCII columns
  r / d         toggle RTS / DTR (serial lines)
  ctrl+x        abort the write in progress
  ctrl+r        reopen the endpoint
  c             clear, ? help, q quit

Example usage:
  comlink connect /dev/ttyUSB0 --baud 9600
  comlink connect tcp://192.168.1.20:3444
  comlink connect tcp://:3444 --open-timeout 30s`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		newline, _ := cmd.Flags().GetBool("newline")
		if err := runConnectTUI(args[0], newline); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(connectCmd)

	connectCmd.Flags().BoolP("newline", "n", true, "Append a newline to ASCII input")
}

// Rows taken by the input box, the status bar and the content border
const connectChrome = 5

// connectModel represents the Bubble Tea model for the connect command
type connectModel struct {
	*sessionView
	table   *components.TerminalTable
	input   *components.Input
	help    help.Model
	keys    keys.ConnectKeys
	newline bool
}

func newConnectModel(s *sessionView, table *components.TerminalTable, newline bool) *connectModel {
	return &connectModel{
		sessionView: s,
		table:       table,
		input:       components.NewInput(components.SendingModeASCII),
		help:        help.New(),
		keys:        keys.NewConnectKeys(),
		newline:     newline,
	}
}

func runConnectTUI(arg string, newline bool) error {
	quietTerminalLogs()
	t, ep, err := newEndpoint(arg)
	if err != nil {
		return err
	}

	table := components.NewTerminalTable(0, 0)
	m := newConnectModel(newSessionView(t, ep, table), table, newline)

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()

	m.Cleanup()
	return err
}

func (m *connectModel) Init() tea.Cmd {
	return m.connect()
}

func (m *connectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if cmd, ok := m.handle(msg); ok {
		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.table.SetSize(msg.Width, msg.Height-connectChrome)
		m.input.SetWidth(msg.Width)
		m.statusBar.SetWidth(msg.Width)
		m.help.Width = msg.Width
		m.SetReady(true)
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.IsInInsertMode() {
			return m, m.insertKey(msg)
		}
		return m, m.normalKey(msg)
	}

	if m.IsInInsertMode() {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *connectModel) insertKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Escape):
		m.SetInputMode(models.InputModeNormal)
		m.input.Blur()
		return nil
	case key.Matches(msg, m.keys.Enter), key.Matches(msg, m.keys.Send):
		return m.submit()
	case key.Matches(msg, m.keys.Abort):
		m.Abort()
		return nil
	case msg.Type == tea.KeyUp:
		m.input.NavigateHistoryUp()
		return nil
	case msg.Type == tea.KeyDown:
		m.input.NavigateHistoryDown()
		return nil
	case key.Matches(msg, m.keys.ToggleSendMode):
		m.input.ToggleSendingMode()
		return nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *connectModel) normalKey(msg tea.KeyMsg) tea.Cmd {
	visual := m.table.GetViewMode() == components.ViewModeVisual

	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit

	case key.Matches(msg, m.keys.InsertMode):
		m.table.SetViewMode(components.ViewModeFollow)
		m.SetInputMode(models.InputModeInsert)
		m.input.Focus()

	case key.Matches(msg, m.keys.Escape):
		m.table.SetViewMode(components.ViewModeFollow)

	case key.Matches(msg, m.keys.VisualMode):
		if visual {
			m.table.SetViewMode(components.ViewModeFollow)
		} else {
			m.table.SetViewMode(components.ViewModeVisual)
		}

	case visual && key.Matches(msg, m.keys.GotoTop):
		m.table.GotoTop()

	case visual && key.Matches(msg, m.keys.GotoBottom):
		m.table.GotoBottom()

	case visual && (key.Matches(msg, m.keys.Up) || key.Matches(msg, m.keys.Down)):
		return m.table.Update(msg)

	case key.Matches(msg, m.keys.Clear):
		m.clear()

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, m.keys.ToggleHex):
		m.table.ToggleHex()
		m.refresh()

	case key.Matches(msg, m.keys.ToggleASCII):
		m.table.ToggleASCII()
		m.refresh()

	case key.Matches(msg, m.keys.ToggleSendMode):
		m.input.ToggleSendingMode()

	case key.Matches(msg, m.keys.ToggleRTS):
		return m.ToggleRTS()

	case key.Matches(msg, m.keys.ToggleDTR):
		return m.ToggleDTR()

	case key.Matches(msg, m.keys.Abort):
		m.Abort()

	case key.Matches(msg, m.keys.Reconnect):
		return m.reconnect()
	}
	return nil
}

// submit turns the input into bytes, shows them as a pending row and
// starts the write.
func (m *connectModel) submit() tea.Cmd {
	text := m.input.Value()
	if text == "" {
		return nil
	}

	var data []byte
	switch m.input.GetSendingMode() {
	case components.SendingModeHex:
		b, err := parseHex(text)
		if err != nil {
			m.notice("invalid hex input: %v", err)
			return nil
		}
		data = b
	default:
		data = []byte(text)
		if m.newline {
			data = append(data, '\n')
		}
	}

	m.input.AddToHistory(text)
	m.input.SetValue("")

	if !m.IsConnected() {
		m.notice("not connected, ctrl+r reopens %s", m.Endpoint())
		return nil
	}
	pending, cmd := m.Send(data)
	m.view.AddMessage(pending)
	return cmd
}

func (m *connectModel) modeLabel() string {
	if m.table.GetViewMode() == components.ViewModeVisual {
		return components.ViewModeVisual.String()
	}
	return m.GetInputMode().String()
}

func (m *connectModel) View() string {
	content := "Initializing..."
	if m.IsReady() {
		content = m.table.View()
	}

	input := m.input.ViewWithMode(m.IsInInsertMode())
	statusBar := m.statusBar.Render(
		m.modeLabel(),
		m.input.GetSendingMode().String(),
		m.IsConnected(),
		time.Now().Format("15:04:05"),
	)

	parts := []string{styles.ContentBorderStyle.Render(content), input}
	if m.help.ShowAll {
		parts = append(parts, styles.HelpStyle.Render(m.help.View(m.keys)))
	}
	parts = append(parts, statusBar)

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
