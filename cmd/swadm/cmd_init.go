package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/metalfabric/swadm/pkg/cli"
	"github.com/metalfabric/swadm/pkg/driver"
)

var (
	initPorts    []string
	initVLANs    []string
	initTemplate string
	initDHClient bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Clean ports and apply their full initial configuration",
	Example: `  swadm -d 192.0.2.10 -u admin init --port 10GE1/0/1 --vlan 10-20 --template bm-limit-100
  swadm -d 192.0.2.10 -u admin init --port 10GE1/0/1 --vlan 100 --dhclient`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sw, err := newSwitch()
		if err != nil {
			return err
		}
		if len(initPorts) == 0 {
			return fmt.Errorf("at least one --port is required")
		}
		err = audited("init_all_config", initPorts, func() error {
			return sw.InitAllConfig(cmd.Context(), driver.InitConfig{
				Ports:        initPorts,
				VLANIDs:      initVLANs,
				TemplateName: initTemplate,
				DHClient:     initDHClient,
			})
		})
		if err != nil {
			return err
		}
		for _, p := range initPorts {
			fmt.Printf("%s %s\n", p, cli.Green("initialized"))
		}
		return nil
	},
}

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Revert ports to their default configuration",
	Example: `  swadm -d 192.0.2.10 -u admin clean --port 10GE1/0/1 --template bm-limit-100`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sw, err := newSwitch()
		if err != nil {
			return err
		}
		if len(initPorts) == 0 && initTemplate == "" {
			return fmt.Errorf("nothing to clean: use --port or --template")
		}
		err = audited("clean_all_config", initPorts, func() error {
			return sw.CleanAllConfig(cmd.Context(), initPorts, initTemplate)
		})
		if err != nil {
			return err
		}
		for _, p := range initPorts {
			fmt.Printf("%s %s\n", p, cli.Green("cleaned"))
		}
		return nil
	},
}

func init() {
	for _, cmd := range []*cobra.Command{initCmd, cleanCmd} {
		cmd.Flags().StringSliceVar(&initPorts, "port", nil, "Port name (repeatable)")
		cmd.Flags().StringVar(&initTemplate, "template", "", "Rate-limit template name")
	}
	initCmd.Flags().StringSliceVar(&initVLANs, "vlan", nil, "VLAN ID or range (repeatable)")
	initCmd.Flags().BoolVar(&initDHClient, "dhclient", false, "Minimal access-VLAN bring-up for the DHCP-client stage")
}
