/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rtsCmd represents the rts command
var rtsCmd = &cobra.Command{
	Use:   "rts <device> <state>",
	Short: "Control RTS (Request To Send) signal",
	Long: `Manually set the RTS (Request To Send) signal state.

The RTS signal can be used for software flow control or custom signaling.

Examples:
  comlink rts /dev/ttyUSB0 high
  comlink rts /dev/ttyUSB0 off
  comlink rts /dev/ttyUSB0 on --hold 2s

Valid states: high, low, on, off, true, false, 1, 0`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		hold, _ := cmd.Flags().GetDuration("hold")
		if err := driveLine(rtsLine, args[0], args[1], hold); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(rtsCmd)

	rtsCmd.Flags().Duration("hold", 0, "Keep the port open this long after setting RTS")
}
