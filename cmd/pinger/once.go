package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/digineo/go-pinger/monitor"
	"github.com/spf13/cobra"
	"gopkg.in/cheggaaa/pb.v1"
)

var onceFlags struct {
	count int
}

var errOffline = errors.New("all targets are unreachable")

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Probe the enabled targets and print the connection status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if onceFlags.count < 1 {
			return fmt.Errorf("count must be positive")
		}

		a, err := setup(nil)
		if err != nil {
			return err
		}
		defer a.Close()

		prober, err := a.prober()
		if err != nil {
			return err
		}
		cfg, _, err := a.store.Load()
		if err != nil {
			return err
		}
		targets, err := a.targets()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		batch, history := probeRounds(ctx, prober, targets, onceFlags.count, cfg.Interval)
		ev := monitor.Calculate(batch, false, cfg.ThresholdMs)

		printResults(cmd, targets, batch, history)
		fmt.Fprintf(cmd.OutOrStdout(), "\n%s  %s\n", ev.Text, ev.Status.Description())

		if ev.Status == monitor.StatusOffline {
			return errOffline
		}
		return nil
	},
}

func init() {
	onceCmd.Flags().IntVarP(&onceFlags.count, "count", "n", 1, "number of rounds")
}

// probeRounds runs count rounds, interval apart, showing a progress bar.
// It returns the batch of the last round.
func probeRounds(ctx context.Context, prober monitor.Prober, targets []monitor.Target, count int, interval time.Duration) (monitor.Batch, *monitor.HistoryStore) {
	enabled := 0
	for _, t := range targets {
		if t.Enabled {
			enabled++
		}
	}

	bar := pb.New(enabled * count)
	bar.Output = os.Stderr
	bar.ShowTimeLeft = false
	bar.Prefix("probing ")
	bar.Start()

	counting := monitor.ProberFunc(func(ctx context.Context, t monitor.Target) monitor.Result {
		r := prober.Probe(ctx, t)
		bar.Increment()
		return r
	})

	history := monitor.NewHistoryStore(count)
	m := monitor.New(counting, monitor.WithHistory(history))
	defer m.Close()

	var batch monitor.Batch
	for i := 0; i < count; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				bar.Finish()
				return batch, history
			case <-time.After(interval):
			}
		}
		batch = m.RunOnce(ctx, monitor.TargetList(targets))
	}
	bar.Finish()
	return batch, history
}

func printResults(cmd *cobra.Command, targets []monitor.Target, batch monitor.Batch, history *monitor.HistoryStore) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TARGET\tHOST\tRESULT\tLOSS\tMEAN")

	for _, t := range targets {
		r, found := batch[t.ID]
		if !found {
			continue
		}

		result := r.Error
		if latency, ok := r.LatencyMs(); ok {
			result = fmt.Sprintf("%dms", latency)
		}

		loss, mean := "n/a", "n/a"
		if m := history.Metrics(t.ID); m != nil {
			loss = fmt.Sprintf("%0.1f%%", 100*m.Loss())
			if m.PacketsLost < m.PacketsSent {
				mean = ts(m.Mean)
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", t.DisplayName(), t.Host, result, loss, mean)
	}
	w.Flush()
}
