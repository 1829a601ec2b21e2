package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/metalfabric/swadm/pkg/cli"
)

var portNames []string

var portCmd = &cobra.Command{
	Use:   "port",
	Short: "Manage port administrative state",
}

var portOpenCmd = &cobra.Command{
	Use:   "open",
	Short: "Administratively enable ports",
	RunE: func(cmd *cobra.Command, args []string) error {
		sw, err := newSwitch()
		if err != nil {
			return err
		}
		if len(portNames) == 0 {
			return fmt.Errorf("at least one --port is required")
		}
		err = audited("open_port", portNames, func() error {
			return sw.OpenPorts(cmd.Context(), portNames)
		})
		if err != nil {
			return err
		}
		for _, p := range portNames {
			fmt.Printf("%s %s\n", p, cli.Green("open"))
		}
		return nil
	},
}

var portShutdownCmd = &cobra.Command{
	Use:     "shutdown",
	Aliases: []string{"close"},
	Short:   "Administratively disable ports",
	RunE: func(cmd *cobra.Command, args []string) error {
		sw, err := newSwitch()
		if err != nil {
			return err
		}
		if len(portNames) == 0 {
			return fmt.Errorf("at least one --port is required")
		}
		err = audited("shutdown_port", portNames, func() error {
			return sw.ShutdownPorts(cmd.Context(), portNames)
		})
		if err != nil {
			return err
		}
		for _, p := range portNames {
			fmt.Printf("%s %s\n", p, cli.Red("shutdown"))
		}
		return nil
	},
}

func init() {
	for _, cmd := range []*cobra.Command{portOpenCmd, portShutdownCmd} {
		cmd.Flags().StringSliceVar(&portNames, "port", nil, "Port name (repeatable)")
	}
	portCmd.AddCommand(portOpenCmd, portShutdownCmd)
}
