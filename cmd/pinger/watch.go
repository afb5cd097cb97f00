package main

import (
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Show a live dashboard of the targets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		capture := interceptLog(6)

		a, err := setup(capture)
		if err != nil {
			return err
		}
		defer a.Close()

		coord, err := a.coordinator()
		if err != nil {
			return err
		}
		defer coord.Close()

		ui := buildTUI(coord, capture)
		go ui.update(coord.Subscribe(1))

		coord.Start()
		return ui.Run()
	},
}
