/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/allbin/go-comlink"
)

// signalsCmd represents the signals command
var signalsCmd = &cobra.Command{
	Use:   "signals <device>",
	Short: "Display current modem signal states",
	Long: `Display the current state of all modem control signals.

Shows the state of CTS, DSR, RI, DCD, RTS, and DTR signals for the specified port.

Examples:
  comlink signals /dev/ttyUSB0
  comlink signals serial:/dev/ttyACM0

Signal meanings:
  CTS - Clear To Send (input)
  DSR - Data Set Ready (input)
  RI  - Ring Indicator (input)
  DCD - Data Carrier Detect (input)
  RTS - Request To Send (output)
  DTR - Data Terminal Ready (output)`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		port, err := openSerial(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening port: %v\n", err)
			os.Exit(1)
		}
		defer port.Close()

		signals, err := port.ModemSignals()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading modem signals: %v\n", err)
			os.Exit(1)
		}
		printSignals(os.Stdout, port.Device(), signals)
	},
}

func init() {
	rootCmd.AddCommand(signalsCmd)
}

func printSignals(w io.Writer, device string, signals comlink.ModemSignals) {
	fmt.Fprintf(w, "Modem Signals for %s:\n\n", device)
	fmt.Fprintf(w, "  CTS (Clear To Send):       %s\n", formatSignalState(signals.CTS))
	fmt.Fprintf(w, "  DSR (Data Set Ready):      %s\n", formatSignalState(signals.DSR))
	fmt.Fprintf(w, "  RI  (Ring Indicator):      %s\n", formatSignalState(signals.RI))
	fmt.Fprintf(w, "  DCD (Data Carrier Detect): %s\n", formatSignalState(signals.DCD))
	fmt.Fprintf(w, "  RTS (Request To Send):     %s\n", formatSignalState(signals.RTS))
	fmt.Fprintf(w, "  DTR (Data Terminal Ready): %s\n", formatSignalState(signals.DTR))
	fmt.Fprintf(w, "\n  Active: %s\n", signals.Mask())
}

// outputLine describes one of the modem outputs driven by the rts and dtr
// commands.
type outputLine struct {
	name string
	set  func(*comlink.Serial, bool) error
	get  func(comlink.ModemSignals) bool
}

var (
	rtsLine = outputLine{
		name: "RTS",
		set:  (*comlink.Serial).SetRTS,
		get:  func(s comlink.ModemSignals) bool { return s.RTS },
	}
	dtrLine = outputLine{
		name: "DTR",
		set:  (*comlink.Serial).SetDTR,
		get:  func(s comlink.ModemSignals) bool { return s.DTR },
	}
)

// driveLine sets an output line, verifies it and keeps the device open for
// hold, since closing the port may drop the line again.
func driveLine(line outputLine, device, stateArg string, hold time.Duration) error {
	state, err := parseSignalState(stateArg)
	if err != nil {
		return err
	}

	port, err := openSerial(device)
	if err != nil {
		return fmt.Errorf("opening port: %w", err)
	}
	defer port.Close()

	if err := line.set(port, state); err != nil {
		return fmt.Errorf("setting %s: %w", line.name, err)
	}

	current := state
	if signals, err := port.ModemSignals(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not verify %s state: %v\n", line.name, err)
	} else {
		current = line.get(signals)
	}
	fmt.Printf("%s set to %s on %s\n", line.name, formatSignalState(current), port.Device())

	if hold > 0 {
		fmt.Printf("Holding for %v...\n", hold)
		time.Sleep(hold)
	}
	return nil
}
