/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/allbin/go-comlink"
	"github.com/allbin/go-comlink/internal/tui/styles"
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send <endpoint> [data]",
	Short: "Send data to an endpoint and optionally read the reply",
	Long: `Send data to a serial line or TCP peer.

Data can be provided as:
- Command line argument: send /dev/ttyUSB0 "Hello World"
- From stdin (pipe): echo "test data" | comlink send /dev/ttyUSB0
- Interactive mode: comlink send /dev/ttyUSB0 (prompts for input)

With --reply N the response is read in chunks of N bytes until a read
times out with a short count, the way a request/response exchange with a
device usually ends.

Example usage:
  comlink send /dev/ttyUSB0 "AT+GMR" --newline --reply 64
  comlink send tcp://192.168.1.20:3444 0206000300000099 --hex --reply 16
  comlink send tcp://:3444 "PING" --open-timeout 30s
  echo "test" | comlink send /dev/ttyUSB0`,
	Args: cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		addNewline, _ := cmd.Flags().GetBool("newline")
		hexMode, _ := cmd.Flags().GetBool("hex")
		replySize, _ := cmd.Flags().GetInt("reply")
		drain, _ := cmd.Flags().GetBool("drain")

		var text string
		if len(args) == 2 {
			text = args[1]
		} else {
			var err error
			if text, err = readInput(); err != nil {
				fmt.Fprintf(os.Stderr, "Error reading from stdin: %v\n", err)
				os.Exit(1)
			}
		}

		data := []byte(text)
		if hexMode {
			var err error
			if data, err = parseHex(text); err != nil {
				fmt.Fprintf(os.Stderr, "Invalid hex data: %v\n", err)
				os.Exit(1)
			}
		} else if addNewline {
			data = append(data, '\n')
		}

		if err := sendData(args[0], data, sendOptions{replySize: replySize, hexReply: hexMode, drain: drain}); err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", styles.ErrorStyle.Render("✗"), err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().BoolP("newline", "n", false, "Add newline character to the end of data")
	sendCmd.Flags().BoolP("hex", "x", false, "Interpret data as hexadecimal and print replies as hex")
	sendCmd.Flags().IntP("reply", "r", 0, "Read the reply in chunks of this many bytes until a read times out")
	sendCmd.Flags().Bool("drain", false, "Wait until a serial line has transmitted all output")
}

// readInput takes piped stdin, or prompts when stdin is a terminal.
func readInput() (string, error) {
	stat, err := os.Stdin.Stat()
	if err != nil || (stat.Mode()&os.ModeCharDevice) != 0 {
		fmt.Print(styles.InfoStyle.Render("Enter data to send: "))
		scanner := bufio.NewScanner(os.Stdin)
		if scanner.Scan() {
			return scanner.Text(), nil
		}
		return "", scanner.Err()
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

type sendOptions struct {
	replySize int
	hexReply  bool
	drain     bool
}

var errShortWrite = errors.New("write timed out")

func sendData(target string, data []byte, opts sendOptions) error {
	fmt.Printf("%s Opening %s...\n", styles.InfoStyle.Render("⚡"), target)
	t, ep, err := openEndpoint(target)
	if err != nil {
		return err
	}
	defer func() {
		if err := t.Close(); err != nil {
			logger.Warn("close failed", zap.Stringer("endpoint", ep), zap.Error(err))
		}
	}()
	fmt.Printf("%s Connected (%s)\n", styles.SuccessStyle.Render("✓"), t.Kind())

	fmt.Printf("%s Sending %d bytes...\n", styles.InfoStyle.Render("↗"), len(data))
	n, err := t.Write(data)
	if err != nil {
		return fmt.Errorf("failed to send data after %d bytes: %w", n, err)
	}
	if n < len(data) {
		return fmt.Errorf("%w after %d of %d bytes (%v)", errShortWrite, n, len(data), t.WriteTimeout())
	}
	fmt.Printf("%s Sent %d bytes: %s\n", styles.SuccessStyle.Render("✓"), n, preview(data, 50))

	if s, ok := t.(*comlink.Serial); ok && opts.drain {
		if err := s.Drain(); err != nil {
			return fmt.Errorf("drain: %w", err)
		}
	}

	if opts.replySize > 0 {
		total, err := readReply(t, opts.replySize, opts.hexReply, os.Stdout)
		if err != nil {
			return err
		}
		if total == 0 {
			fmt.Printf("%s No reply within %v\n", styles.WarnStyle.Render("!"), t.ReadTimeout())
		}
	}
	return nil
}

// readReply reads chunks until one comes back short, which marks the read
// timeout expiring with the line quiet.
func readReply(r io.Reader, size int, asHex bool, w io.Writer) (int, error) {
	buf := make([]byte, size)
	total := 0
	for {
		n, err := r.Read(buf)
		if n > 0 {
			total += n
			if asHex {
				fmt.Fprintf(w, "%s % X\n", styles.InfoStyle.Render("↙"), buf[:n])
			} else {
				fmt.Fprintf(w, "%s %s\n", styles.InfoStyle.Render("↙"), preview(buf[:n], size))
			}
		}
		if err != nil {
			return total, fmt.Errorf("read reply: %w", err)
		}
		if n < len(buf) {
			return total, nil
		}
	}
}
