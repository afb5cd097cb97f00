package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var settingsFlags struct {
	interval  time.Duration
	threshold int
	paused    bool
	reset     bool
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change the stored settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(nil)
		if err != nil {
			return err
		}
		defer a.Close()

		store := a.store
		if settingsFlags.reset {
			if err := store.Reset(); err != nil {
				return err
			}
		}

		flags := cmd.Flags()
		if flags.Changed("interval") {
			if err := store.SetInterval(settingsFlags.interval); err != nil {
				return err
			}
		}
		if flags.Changed("threshold") {
			if err := store.SetThreshold(settingsFlags.threshold); err != nil {
				return err
			}
		}
		if flags.Changed("paused") {
			if err := store.SetPaused(settingsFlags.paused); err != nil {
				return err
			}
		}

		cfg, _, err := store.Load()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "database:  %s\n", a.cfg.Database)
		fmt.Fprintf(out, "interval:  %v\n", cfg.Interval)
		fmt.Fprintf(out, "threshold: %dms\n", cfg.ThresholdMs)
		fmt.Fprintf(out, "paused:    %t\n", cfg.Paused)
		return nil
	},
}

func init() {
	f := settingsCmd.Flags()
	f.DurationVar(&settingsFlags.interval, "interval", 0, "ping interval, e.g. 500ms or 2s")
	f.IntVar(&settingsFlags.threshold, "threshold", 0, "latency in ms above which the connection is slow")
	f.BoolVar(&settingsFlags.paused, "paused", false, "pause monitoring")
	f.BoolVar(&settingsFlags.reset, "reset", false, "restore the defaults (including the targets)")
}
