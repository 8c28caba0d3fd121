/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/allbin/go-comlink"
	"github.com/allbin/go-comlink/internal/tui/styles"
)

var (
	resetSerial string
	resetSettle time.Duration
)

// resetCmd represents the reset command
var resetCmd = &cobra.Command{
	Use:   "reset <device>",
	Short: "Reset a USB serial adapter",
	Long: `Perform a USB-level reset on a serial adapter. This can recover devices
that are hung or unresponsive without physically unplugging them.

The device re-enumerates after the reset, which may change its path
(/dev/ttyUSB0 might become /dev/ttyUSB1). Select the adapter by USB serial
number to find it again reliably.

Requires the usbreset utility (usbutils package) and usually root.

Example usage:
  sudo comlink reset /dev/ttyUSB0
  sudo comlink reset --usb-serial NC7ILXW1`,
	Args: func(cmd *cobra.Command, args []string) error {
		switch {
		case resetSerial == "" && len(args) != 1:
			return errors.New("requires either a device argument or --usb-serial")
		case resetSerial != "" && len(args) > 0:
			return errors.New("cannot specify both a device and --usb-serial")
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		info, err := resetTarget(args)
		if err == nil {
			fmt.Printf("%s Resetting %s (USB %s:%s)\n", styles.InfoStyle.Render("⚡"), info.Path, info.VendorID, info.ProductID)
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()
			err = comlink.ResetUSB(ctx, info, resetSettle)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", styles.ErrorStyle.Render("✗"), err)
			switch {
			case errors.Is(err, comlink.ErrUSBResetUnavailable):
				fmt.Fprintln(os.Stderr, "Install with: sudo apt-get install usbutils")
			case errors.Is(err, comlink.ErrNotUSB):
				fmt.Fprintln(os.Stderr, "This device does not appear to be a USB device")
			}
			os.Exit(1)
		}

		logger.Info("usb reset", zap.String("device", info.Path), zap.String("serial", info.SerialNumber))
		fmt.Printf("%s Reset done, the device re-enumerates and its path may change\n", styles.SuccessStyle.Render("✓"))
		fmt.Println("Use 'comlink list --table' to see the updated device list")
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)

	resetCmd.Flags().StringVar(&resetSerial, "usb-serial", "", "Select the adapter by USB serial number")
	resetCmd.Flags().DurationVar(&resetSettle, "settle", 2*time.Second, "Time to wait for re-enumeration")
}

func resetTarget(args []string) (*comlink.PortInfo, error) {
	if resetSerial != "" {
		return comlink.FindPortBySerial(resetSerial)
	}
	ep, err := parseEndpoint(args[0])
	if err != nil {
		return nil, err
	}
	if ep.kind != comlink.KindSerial {
		return nil, fmt.Errorf("%w: %s is not a serial device", errEndpoint, args[0])
	}
	return comlink.GetPortInfo(ep.device)
}
