/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// dtrCmd represents the dtr command
var dtrCmd = &cobra.Command{
	Use:   "dtr <device> <state>",
	Short: "Control DTR (Data Terminal Ready) signal",
	Long: `Manually set the DTR (Data Terminal Ready) signal state.

The DTR signal indicates that the terminal is ready for communication. Many
boards wire it to reset or boot-mode pins.

Examples:
  comlink dtr /dev/ttyUSB0 high
  comlink dtr /dev/ttyUSB0 off
  comlink dtr /dev/ttyUSB0 on --hold 2s

Valid states: high, low, on, off, true, false, 1, 0`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		hold, _ := cmd.Flags().GetDuration("hold")
		if err := driveLine(dtrLine, args[0], args[1], hold); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(dtrCmd)

	dtrCmd.Flags().Duration("hold", 0, "Keep the port open this long after setting DTR")
}
