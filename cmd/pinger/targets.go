package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/digineo/go-pinger/monitor"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "Manage the monitored targets",
}

var addFlags struct {
	name     string
	disabled bool
}

func init() {
	list := &cobra.Command{
		Use:   "list",
		Short: "List the targets",
		Args:  cobra.NoArgs,
		RunE: withRegistry(func(cmd *cobra.Command, r *monitor.Registry, _ []string) (bool, error) {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "#\tID\tNAME\tHOST\tENABLED")
			for i, t := range r.Targets() {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%t\n", i, t.ID, t.Name, t.Host, t.Enabled)
			}
			return false, w.Flush()
		}),
	}

	add := &cobra.Command{
		Use:   "add <host>",
		Short: "Add a target",
		Args:  cobra.ExactArgs(1),
		RunE: withRegistry(func(cmd *cobra.Command, r *monitor.Registry, args []string) (bool, error) {
			t := monitor.NewTarget(args[0], addFlags.name)
			t.Enabled = !addFlags.disabled
			t = r.Add(t)
			fmt.Fprintln(cmd.OutOrStdout(), "added", t.ID)
			return true, nil
		}),
	}
	add.Flags().StringVar(&addFlags.name, "name", "", "display name")
	add.Flags().BoolVar(&addFlags.disabled, "disabled", false, "add the target disabled")

	remove := &cobra.Command{
		Use:   "remove <id|index>",
		Short: "Remove a target",
		Args:  cobra.ExactArgs(1),
		RunE: withRegistry(func(cmd *cobra.Command, r *monitor.Registry, args []string) (bool, error) {
			if index, err := strconv.Atoi(args[0]); err == nil {
				return reportChange(cmd, r.RemoveAt(index), args[0])
			}
			id, err := uuid.Parse(args[0])
			if err != nil {
				return false, fmt.Errorf("invalid target %q", args[0])
			}
			return reportChange(cmd, r.Remove(id), args[0])
		}),
	}

	toggle := &cobra.Command{
		Use:   "toggle <id>",
		Short: "Enable or disable a target",
		Args:  cobra.ExactArgs(1),
		RunE: withRegistry(func(cmd *cobra.Command, r *monitor.Registry, args []string) (bool, error) {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return false, fmt.Errorf("invalid target id %q", args[0])
			}
			return reportChange(cmd, r.Toggle(id), args[0])
		}),
	}

	targetsCmd.AddCommand(list, add, remove, toggle)
}

// withRegistry loads the stored targets into a registry and saves them
// again if fn reports a change.
func withRegistry(fn func(*cobra.Command, *monitor.Registry, []string) (bool, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := setup(nil)
		if err != nil {
			return err
		}
		defer a.Close()

		targets, err := a.targets()
		if err != nil {
			return err
		}

		registry := monitor.NewRegistry(targets)
		changed, err := fn(cmd, registry, args)
		if err != nil || !changed {
			return err
		}
		return a.store.SetTargets(registry.Targets())
	}
}

func reportChange(cmd *cobra.Command, changed bool, target string) (bool, error) {
	if !changed {
		fmt.Fprintf(cmd.OutOrStdout(), "no target %s, nothing changed\n", target)
	}
	return changed, nil
}
