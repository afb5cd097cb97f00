// Command pinger monitors the reachability of a few hosts and reports an
// aggregated connection status.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var flags struct {
	config   string
	database string
	logLevel string
	logFile  string
}

var rootCmd = &cobra.Command{
	Use:   "pinger",
	Short: "pinger watches the connectivity to a set of hosts",
	Long: `pinger periodically probes a small set of hosts and derives a single
connection status (good, degraded, partial, offline) from the latest results.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCmd.RunE(cmd, args)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.config, "config", "c", "", "configuration file (YAML)")
	pf.StringVarP(&flags.database, "database", "d", "", "settings database, overrides the configuration")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&flags.logFile, "log-file", "", "log to this file instead of stderr")

	rootCmd.AddCommand(runCmd, watchCmd, onceCmd, targetsCmd, settingsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
