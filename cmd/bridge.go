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
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/allbin/go-comlink"
	"github.com/allbin/go-comlink/internal/tui/styles"
)

var bridgePoll time.Duration

// bridgeCmd represents the bridge command
var bridgeCmd = &cobra.Command{
	Use:   "bridge <endpoint> <endpoint>",
	Short: "Copy bytes both ways between two endpoints",
	Long: `Open two endpoints and forward everything received on one to the other.

Both sides are polled without blocking, so a slow write on one side never
holds up reads on the other. The bridge stops when either side fails or on
Ctrl+C.

Example usage:
  comlink bridge /dev/ttyUSB0 tcp://:3444
  comlink bridge /dev/ttyUSB0 /dev/ttyUSB1 --baud 9600`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runBridge(args[0], args[1]); err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", styles.ErrorStyle.Render("✗"), err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(bridgeCmd)

	bridgeCmd.Flags().DurationVar(&bridgePoll, "poll", 10*time.Millisecond, "Idle poll interval for each side")
}

type bridgeStats struct {
	forward, backward atomic.Int64
}

func runBridge(left, right string) error {
	a, epA, err := openEndpoint(left)
	if err != nil {
		return err
	}
	defer a.Close()
	fmt.Printf("%s %s open (%s)\n", styles.SuccessStyle.Render("✓"), epA, a.Kind())

	b, epB, err := openEndpoint(right)
	if err != nil {
		return err
	}
	defer b.Close()
	fmt.Printf("%s %s open (%s)\n", styles.SuccessStyle.Render("✓"), epB, b.Kind())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("%s Bridging %s ⇄ %s, press Ctrl+C to stop\n", styles.InfoStyle.Render("⚡"), epA, epB)
	start := time.Now()

	var stats bridgeStats
	err = bridge(ctx, a, b, bridgePoll, &stats)

	logger.Info("bridge stopped",
		zap.Stringer("left", epA),
		zap.Stringer("right", epB),
		zap.Int64("forward", stats.forward.Load()),
		zap.Int64("backward", stats.backward.Load()),
		zap.Error(err))
	fmt.Printf("\n%s %d bytes →, %d bytes ← in %v\n", styles.InfoStyle.Render("↔"),
		stats.forward.Load(), stats.backward.Load(), time.Since(start).Round(time.Millisecond))
	return err
}

// bridge pumps a to b and b to a until ctx is done or either side fails.
// Stopping aborts whatever write is in flight on both sides.
func bridge(ctx context.Context, a, b comlink.Transport, poll time.Duration, stats *bridgeStats) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return pump(gctx, a, b, poll, &stats.forward) })
	g.Go(func() error { return pump(gctx, b, a, poll, &stats.backward) })

	release := context.AfterFunc(gctx, func() {
		a.Abort()
		b.Abort()
	})
	defer release()

	err := g.Wait()
	if ctx.Err() != nil && errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func pump(ctx context.Context, src, dst comlink.Transport, poll time.Duration, count *atomic.Int64) error {
	buf := make([]byte, 4096)
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := src.ReadSome(buf)
		if err != nil {
			return fmt.Errorf("read %s: %w", src.Kind(), err)
		}
		if n == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
			continue
		}

		sent, err := dst.Write(buf[:n])
		count.Add(int64(sent))
		if err != nil {
			return fmt.Errorf("write %s: %w", dst.Kind(), err)
		}
		if sent < n {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("write %s: %w after %d of %d bytes", dst.Kind(), errShortWrite, sent, n)
		}
	}
}
