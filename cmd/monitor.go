/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/allbin/go-comlink"
)

var (
	monitorSignals  []string
	monitorInterval time.Duration
	monitorQuiet    time.Duration
)

// monitorCmd represents the monitor command
var monitorCmd = &cobra.Command{
	Use:   "monitor <device>",
	Short: "Monitor modem signal changes",
	Long: `Monitor modem control signal changes in real-time.

Samples the modem lines at a fixed interval and reports when any of the
selected signals change state. Press Ctrl+C to stop.

Examples:
  comlink monitor /dev/ttyUSB0
  comlink monitor /dev/ttyUSB0 --signals cts,dsr
  comlink monitor /dev/ttyUSB0 --signals dcd --quiet 30s

Available signals: cts, dsr, ri, dcd`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		mask, err := parseSignalMask(monitorSignals)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing signals: %v\n", err)
			os.Exit(1)
		}
		if monitorInterval <= 0 {
			fmt.Fprintf(os.Stderr, "Error: --interval must be positive\n")
			os.Exit(1)
		}

		port, err := openSerial(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening port: %v\n", err)
			os.Exit(1)
		}
		defer port.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Printf("Monitoring signals on %s (signals: %s)\n", port.Device(), mask)
		fmt.Println("Press Ctrl+C to stop")

		if err := watchSignals(ctx, port, mask, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("\nStopping monitor...")
	},
}

func init() {
	rootCmd.AddCommand(monitorCmd)

	monitorCmd.Flags().StringSliceVarP(&monitorSignals, "signals", "s", []string{"cts", "dsr", "ri", "dcd"},
		"Signals to monitor (comma-separated: cts,dsr,ri,dcd)")
	monitorCmd.Flags().DurationVar(&monitorInterval, "interval", 50*time.Millisecond,
		"How often the modem lines are sampled")
	monitorCmd.Flags().DurationVar(&monitorQuiet, "quiet", 0,
		"Report when no change was seen for this long (0 = never)")
}

type signalReader interface {
	ModemSignals() (comlink.ModemSignals, error)
}

// watchSignals prints the initial state of the lines in mask, then every
// change, until ctx is done.
func watchSignals(ctx context.Context, port signalReader, mask comlink.SignalMask, w io.Writer) error {
	last, err := port.ModemSignals()
	if err != nil {
		return fmt.Errorf("reading initial signals: %w", err)
	}
	printSignalState(w, "Initial state", last, mask)

	ticker := time.NewTicker(monitorInterval)
	defer ticker.Stop()
	lastChange := time.Now()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			current, err := port.ModemSignals()
			if err != nil {
				return fmt.Errorf("reading signals: %w", err)
			}
			if changed := last.Changed(current) & mask; changed != 0 {
				printSignalState(w, "Signal change detected", current, changed)
				last = current
				lastChange = now
				continue
			}
			last = current
			if monitorQuiet > 0 && now.Sub(lastChange) >= monitorQuiet {
				fmt.Fprintf(w, "[%s] No signal changes for %v\n", now.Format("15:04:05"), monitorQuiet)
				lastChange = now
			}
		}
	}
}

func parseSignalMask(signalNames []string) (comlink.SignalMask, error) {
	if len(signalNames) == 0 {
		return comlink.SignalCTS | comlink.SignalDSR | comlink.SignalRI | comlink.SignalDCD, nil
	}

	var mask comlink.SignalMask
	for _, name := range signalNames {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "cts":
			mask |= comlink.SignalCTS
		case "dsr":
			mask |= comlink.SignalDSR
		case "ri":
			mask |= comlink.SignalRI
		case "dcd":
			mask |= comlink.SignalDCD
		default:
			return 0, fmt.Errorf("unknown signal: %s (valid: cts, dsr, ri, dcd)", name)
		}
	}
	return mask, nil
}

func printSignalState(w io.Writer, title string, signals comlink.ModemSignals, mask comlink.SignalMask) {
	fmt.Fprintf(w, "[%s] %s:\n", time.Now().Format("15:04:05"), title)
	if mask&comlink.SignalCTS != 0 {
		fmt.Fprintf(w, "  CTS: %s\n", formatSignalState(signals.CTS))
	}
	if mask&comlink.SignalDSR != 0 {
		fmt.Fprintf(w, "  DSR: %s\n", formatSignalState(signals.DSR))
	}
	if mask&comlink.SignalRI != 0 {
		fmt.Fprintf(w, "  RI:  %s\n", formatSignalState(signals.RI))
	}
	if mask&comlink.SignalDCD != 0 {
		fmt.Fprintf(w, "  DCD: %s\n", formatSignalState(signals.DCD))
	}
	fmt.Fprintln(w)
}
