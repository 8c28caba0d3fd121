/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/evertras/bubble-table/table"
	"github.com/spf13/cobra"

	"github.com/allbin/go-comlink"
	"github.com/allbin/go-comlink/internal/tui/colors"
	"github.com/allbin/go-comlink/internal/tui/styles"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available serial ports",
	Long: `List all available serial ports on the system.

This command scans for communication-capable serial devices including:
- USB serial adapters (ttyUSB*)
- USB CDC/ACM devices (ttyACM*)
- Standard serial ports (ttyS*)
- ARM/Raspberry Pi ports (ttyAMA*)
- And other platform-specific serial devices

Virtual terminals and pseudo-terminals are excluded from the listing.

Example usage:
  comlink list
  comlink list --filter usb --table`,
	Run: func(cmd *cobra.Command, args []string) {
		filterType, _ := cmd.Flags().GetString("filter")
		tableFormat, _ := cmd.Flags().GetBool("table")
		details, _ := cmd.Flags().GetBool("details")

		ports, err := comlink.ListPortInfo()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing ports: %v\n", err)
			os.Exit(1)
		}

		filtered := filterPorts(ports, filterType)
		if len(filtered) == 0 {
			if filterType != "" && filterType != "all" {
				fmt.Printf("No serial ports found matching filter: %s\n", filterType)
			} else {
				fmt.Println("No serial ports found")
			}
			return
		}

		switch {
		case tableFormat:
			fmt.Printf("Found %d serial port(s):\n\n", len(filtered))
			fmt.Println(renderTable(filtered))
		case details:
			renderDetails(filtered)
		default:
			for _, p := range filtered {
				fmt.Println(p.Path)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().String("filter", "", "Filter by port type: usb, standard, arm, all")
	listCmd.Flags().Bool("table", false, "Display output in a styled table format")
	listCmd.Flags().Bool("details", false, "Show description and USB IDs next to each path")
}

// filterPorts filters the port list based on the specified filter type
func filterPorts(ports []*comlink.PortInfo, filterType string) []*comlink.PortInfo {
	filterType = strings.ToLower(filterType)
	if filterType == "" || filterType == "all" {
		return ports
	}

	var filtered []*comlink.PortInfo
	for _, p := range ports {
		name := strings.ToLower(p.Name)
		var match bool
		switch filterType {
		case "usb":
			match = p.IsUSB() || strings.HasPrefix(name, "ttyusb") || strings.HasPrefix(name, "ttyacm")
		case "standard":
			match = strings.HasPrefix(name, "ttys")
		case "arm":
			match = strings.HasPrefix(name, "ttyama")
		}
		if match {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

const (
	columnPort = "port"
	columnType = "type"
	columnDesc = "desc"
	columnIDs  = "ids"
)

// renderTable renders the port list as a static table.
func renderTable(ports []*comlink.PortInfo) string {
	columns := []table.Column{
		table.NewColumn(columnPort, "Port", 16),
		table.NewColumn(columnType, "Type", 16),
		table.NewColumn(columnDesc, "Description", 32),
		table.NewColumn(columnIDs, "VID:PID", 11),
	}

	rows := make([]table.Row, 0, len(ports))
	for _, p := range ports {
		rows = append(rows, table.NewRow(table.RowData{
			columnPort: p.Name,
			columnType: getPortType(p.Name),
			columnDesc: p.Description,
			columnIDs:  usbIDs(p),
		}))
	}

	return table.New(columns).
		WithRows(rows).
		BorderRounded().
		HeaderStyle(styles.HeadingStyle).
		WithBaseStyle(lipgloss.NewStyle().
			BorderForeground(colors.Surface2).
			Foreground(colors.Text).
			Align(lipgloss.Left)).
		View()
}

func renderDetails(ports []*comlink.PortInfo) {
	for _, p := range ports {
		line := fmt.Sprintf("%-16s %s", p.Path, p.Description)
		if ids := usbIDs(p); ids != "" {
			line += " [" + ids + "]"
		}
		if p.SerialNumber != "" {
			line += " serial=" + p.SerialNumber
		}
		fmt.Println(line)
	}
}

func usbIDs(p *comlink.PortInfo) string {
	if !p.IsUSB() {
		return ""
	}
	return p.VendorID + ":" + p.ProductID
}

// getPortType returns a more specific type classification for the port
func getPortType(name string) string {
	name = strings.ToLower(name)
	switch {
	case strings.HasPrefix(name, "ttyusb"):
		return "USB Serial"
	case strings.HasPrefix(name, "ttyacm"):
		return "USB CDC/ACM"
	case strings.HasPrefix(name, "ttyama"):
		return "ARM Serial"
	case strings.HasPrefix(name, "ttymxc"):
		return "i.MX Serial"
	case strings.HasPrefix(name, "ttysac"):
		return "Samsung Serial"
	case strings.HasPrefix(name, "ttyths"):
		return "Tegra Serial"
	case strings.HasPrefix(name, "ttyo"):
		return "OMAP Serial"
	case strings.HasPrefix(name, "ttys"):
		return "Standard Serial"
	default:
		return "Serial Port"
	}
}
