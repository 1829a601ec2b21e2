package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/metalfabric/swadm/pkg/cli"
)

var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Persist the running configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		sw, err := newSwitch()
		if err != nil {
			return err
		}
		var out string
		err = audited("save", nil, func() error {
			var saveErr error
			out, saveErr = sw.Save(cmd.Context())
			return saveErr
		})
		if err != nil {
			return err
		}
		// The save step retries and then gives up rather than failing the
		// operation; an output without the device's success phrase means
		// the startup store may still hold the previous configuration.
		if strings.Contains(out, "successfully") {
			fmt.Printf("%s configuration %s\n", deviceAddr, cli.Green("saved"))
		} else {
			fmt.Printf("%s configuration %s\n", deviceAddr, cli.Yellow("save unconfirmed"))
		}
		return nil
	},
}
