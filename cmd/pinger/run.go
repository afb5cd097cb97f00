package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/digineo/go-pinger/monitor"
	"github.com/digineo/go-pinger/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runFlags struct {
	listen string
	report time.Duration
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Monitor the targets until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(nil)
		if err != nil {
			return err
		}
		defer a.Close()

		coord, err := a.coordinator()
		if err != nil {
			return err
		}
		defer coord.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		updates := coord.Subscribe(1)
		go logUpdates(a.logger, updates)

		if runFlags.report > 0 {
			go report(ctx, a.logger, coord, runFlags.report)
		}

		coord.Start()

		listen := a.cfg.Listen
		if runFlags.listen != "" {
			listen = runFlags.listen
		}
		if listen != "" {
			return server.New(coord, a.logger).Run(ctx, listen)
		}

		<-ctx.Done()
		a.logger.Info("shutting down")
		return nil
	},
}

func init() {
	runCmd.Flags().StringVarP(&runFlags.listen, "listen", "l", "", "serve the HTTP API on this address")
	runCmd.Flags().DurationVar(&runFlags.report, "report", 0, "log per-target metrics at this interval")
}

// logUpdates logs every change of the connection status.
func logUpdates(logger *zap.Logger, updates *monitor.Subscription[monitor.Update]) {
	last := monitor.Status(-1)
	for u := range updates.C {
		if u.Status.Status == last {
			continue
		}
		last = u.Status.Status
		logger.Info("connection status",
			zap.Stringer("status", u.Status.Status),
			zap.String("text", u.Status.Text),
			zap.Int("targets", len(u.Batch)))
	}
}

// report periodically logs the metrics of every target.
func report(ctx context.Context, logger *zap.Logger, coord *monitor.Coordinator, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		metrics := coord.History().Export()
		for _, t := range coord.Registry().Targets() {
			m, found := metrics[t.ID]
			if !found {
				continue
			}
			logger.Info("metrics",
				zap.String("target", t.DisplayName()),
				zap.Int("sent", m.PacketsSent),
				zap.Float64("loss", m.Loss()),
				zap.Duration("best", m.Best),
				zap.Duration("worst", m.Worst),
				zap.Duration("median", m.Median),
				zap.Duration("mean", m.Mean),
				zap.Duration("stddev", m.StdDev))
		}
	}
}
