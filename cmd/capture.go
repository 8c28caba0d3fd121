/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/allbin/go-comlink"
)

// captureCmd represents the capture command
var captureCmd = &cobra.Command{
	Use:   "capture <endpoint> <output-file>",
	Short: "Capture incoming data to a file",
	Long: `Capture incoming data from a serial line or TCP peer to a file.

Reads from the endpoint and appends everything to the output file. Runs
until interrupted (Ctrl+C), which aborts the read in progress so the
capture stops within one read rather than one read timeout.

Example usage:
  comlink capture /dev/ttyUSB0 data.log
  comlink capture /dev/ttyUSB0 output.txt --baud 9600
  comlink capture tcp://:3444 capture.log --open-timeout 1m --console`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		bufferSize, _ := cmd.Flags().GetInt("buffer")
		showConsole, _ := cmd.Flags().GetBool("console")

		var console io.Writer
		if showConsole {
			console = os.Stdout
		}
		if err := runCapture(args[0], args[1], bufferSize, console); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(captureCmd)

	captureCmd.Flags().Int("buffer", 4096, "Read buffer size")
	captureCmd.Flags().BoolP("console", "c", false, "Display incoming data on console while capturing")
}

func runCapture(target, outputPath string, bufferSize int, console io.Writer) error {
	if bufferSize <= 0 {
		return fmt.Errorf("buffer size must be positive, got %d", bufferSize)
	}

	file, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open output file: %w", err)
	}
	defer file.Close()

	t, ep, err := openEndpoint(target)
	if err != nil {
		return err
	}
	defer t.Close()

	var stopping atomic.Bool
	done := make(chan struct{})
	defer close(done)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
		case <-done:
			return
		}
		fmt.Fprintf(os.Stderr, "\nReceived interrupt signal, shutting down...\n")
		interruptCapture(t, &stopping, done)
	}()

	fmt.Fprintf(os.Stderr, "Capturing data from %s to %s\n", ep, outputPath)
	fmt.Fprintf(os.Stderr, "Press Ctrl+C to stop\n\n")

	startTime := time.Now()
	written, err := capture(t, file, console, bufferSize, stopping.Load)
	fmt.Fprintf(os.Stderr, "\nCapture complete: %d bytes written in %v\n", written, time.Since(startTime).Round(time.Millisecond))
	return err
}

const captureAbortInterval = 10 * time.Millisecond

// interruptCapture marks the capture as stopping and keeps aborting until
// done closes. Abort only reaches a read in flight, and the signal can land
// between two reads.
func interruptCapture(t comlink.Transport, stopping *atomic.Bool, done <-chan struct{}) {
	stopping.Store(true)
	ticker := time.NewTicker(captureAbortInterval)
	defer ticker.Stop()
	for {
		t.Abort()
		select {
		case <-done:
			return
		case <-ticker.C:
		}
	}
}

// capture copies from t to out until stop reports true or an error occurs.
// A read that times out with a short count just starts the next read.
func capture(t comlink.Transport, out, console io.Writer, bufferSize int, stop func() bool) (int64, error) {
	buffer := make([]byte, bufferSize)
	var total int64
	for !stop() {
		n, err := t.Read(buffer)
		if n > 0 {
			if _, werr := out.Write(buffer[:n]); werr != nil {
				return total, fmt.Errorf("write error: %w", werr)
			}
			total += int64(n)
			if console != nil {
				_, _ = console.Write(buffer[:n])
			}
		}
		if err != nil {
			if stop() {
				break
			}
			return total, fmt.Errorf("read error: %w", err)
		}
		if n < len(buffer) {
			logger.Debug("capture read short", zap.Int("bytes", n))
		}
	}
	return total, nil
}
