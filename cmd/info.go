/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/allbin/go-comlink"
	"github.com/allbin/go-comlink/internal/tui/styles"
)

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info <device>",
	Short: "Display detailed information about a serial port",
	Long: `Display detailed information about a serial port including USB metadata.

Examples:
  comlink info /dev/ttyUSB0
  comlink info serial:/dev/ttyACM0

For USB devices, this displays vendor/product IDs, serial numbers, interface
numbers, and other USB-specific metadata from sysfs and the USB enumerator.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ep, err := parseEndpoint(args[0])
		if err == nil && ep.kind != comlink.KindSerial {
			err = fmt.Errorf("%w: %s is not a serial device", errEndpoint, args[0])
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		info, err := comlink.GetPortInfo(ep.device)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting port info: %v\n", err)
			os.Exit(1)
		}
		fmt.Print(formatPortInfo(info))
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

// formatPortInfo renders the fields that are set, USB fields in their own
// section.
func formatPortInfo(info *comlink.PortInfo) string {
	heading, label := styles.HeadingStyle, styles.LabelStyle

	var sb strings.Builder
	field := func(name, value string) {
		if value != "" {
			fmt.Fprintf(&sb, "  %s%s\n", label.Render(name+":"), value)
		}
	}

	sb.WriteString(heading.Render("Port Information: "+info.Path) + "\n\n")
	field("Name", info.Name)
	field("Description", info.Description)
	field("Type", getPortType(info.Name))

	if info.IsUSB() {
		sb.WriteString("\n" + heading.Render("USB Device Information:") + "\n")
		field("Vendor ID", info.VendorID)
		field("Product ID", info.ProductID)
		field("Serial", info.SerialNumber)
		field("Interface", info.InterfaceNumber)
		field("Bus", info.BusNumber)
		field("Device", info.DeviceNumber)
		field("Manufacturer", info.Manufacturer)
		field("Product", info.Product)
	}
	return sb.String()
}
