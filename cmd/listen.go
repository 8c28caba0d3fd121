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
	"github.com/allbin/go-comlink/internal/tui/styles"
)

// listenCmd represents the listen command
var listenCmd = &cobra.Command{
	Use:   "listen <endpoint>",
	Short: "Show incoming data from an endpoint in real time",
	Long: `Open an endpoint and show everything it receives as a timestamped log.

Nothing is ever written to the endpoint. Serial lines also report modem
line changes as they happen.

Keys:
  h / a      toggle hex / ASCII
  c          clear
  ctrl+r     reopen the endpoint
  ?          help
  q          quit

Example usage:
  comlink listen /dev/ttyUSB0
  comlink listen /dev/ttyUSB0 --baud 9600 --parity e
  comlink listen tcp://:3444`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runListenTUI(args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(listenCmd)
}

// Rows taken by the status bar and the content border
const listenChrome = 2

// listenModel represents the Bubble Tea model for the listen command
type listenModel struct {
	*sessionView
	terminal *components.Terminal
	help     help.Model
	keys     keys.TerminalKeys
}

func runListenTUI(arg string) error {
	quietTerminalLogs()
	t, ep, err := newEndpoint(arg)
	if err != nil {
		return err
	}

	terminal := components.NewTerminal(80, 20)
	m := &listenModel{
		sessionView: newSessionView(t, ep, terminal),
		terminal:    terminal,
		help:        help.New(),
		keys:        keys.NewTerminalKeys(),
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()

	m.Cleanup()
	return err
}

func (m *listenModel) Init() tea.Cmd {
	return m.connect()
}

func (m *listenModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if cmd, ok := m.handle(msg); ok {
		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.terminal.SetSize(msg.Width, msg.Height-listenChrome)
		m.statusBar.SetWidth(msg.Width)
		m.help.Width = msg.Width
		m.SetReady(true)
		return m, m.terminal.Update(msg)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Clear):
			m.clear()

		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll

		case key.Matches(msg, m.keys.ToggleHex):
			m.terminal.ToggleHex()
			m.refresh()

		case key.Matches(msg, m.keys.ToggleASCII):
			m.terminal.ToggleASCII()
			m.refresh()

		case key.Matches(msg, m.keys.Reconnect):
			return m, m.reconnect()
		}
	}
	return m, nil
}

func (m *listenModel) View() string {
	content := "Initializing..."
	if m.IsReady() {
		content = m.terminal.View()
	}

	// Listen mode never takes input
	statusBar := m.statusBar.Render("NORMAL", "LISTEN", m.IsConnected(), time.Now().Format("15:04:05"))

	parts := []string{styles.ContentBorderStyle.Render(content)}
	if m.help.ShowAll {
		parts = append(parts, styles.HelpStyle.Render(m.help.View(m.keys)))
	}
	parts = append(parts, statusBar)

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
