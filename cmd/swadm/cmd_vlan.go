package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/metalfabric/swadm/pkg/cli"
	"github.com/metalfabric/swadm/pkg/driver"
)

var (
	vlanPorts       []string
	vlanIDs         []string
	vlanLinkType    string
	vlanCurrentType string
)

var vlanCmd = &cobra.Command{
	Use:   "vlan",
	Short: "Manage port VLAN membership",
}

var vlanSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Replace the VLAN membership of ports",
	Example: `  swadm -d 192.0.2.10 -u admin vlan set --port 10GE1/0/1 --vlan 10-20 --link-type trunk
  swadm -d 192.0.2.10 -u admin vlan set --port 10GE1/0/1 --vlan 100 --link-type access --current-link-type trunk`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sw, err := newSwitch()
		if err != nil {
			return err
		}
		ports, err := vlanPayload(true)
		if err != nil {
			return err
		}
		err = audited("set_vlan", vlanPorts, func() error {
			return sw.SetVLAN(cmd.Context(), ports)
		})
		if err != nil {
			return err
		}
		for _, p := range ports {
			fmt.Printf("%s vlan %v %s\n", p.Name, p.VLANIDs, cli.Green("set"))
		}
		return nil
	},
}

var vlanUnsetCmd = &cobra.Command{
	Use:   "unset",
	Short: "Remove VLAN configuration from ports",
	RunE: func(cmd *cobra.Command, args []string) error {
		sw, err := newSwitch()
		if err != nil {
			return err
		}
		ports, err := vlanPayload(false)
		if err != nil {
			return err
		}
		err = audited("unset_vlan", vlanPorts, func() error {
			return sw.UnsetVLAN(cmd.Context(), ports)
		})
		if err != nil {
			return err
		}
		for _, p := range ports {
			fmt.Printf("%s vlan %s\n", p.Name, cli.Green("unset"))
		}
		return nil
	},
}

func vlanPayload(needVLANs bool) ([]driver.PortVLAN, error) {
	if len(vlanPorts) == 0 {
		return nil, fmt.Errorf("at least one --port is required")
	}
	if needVLANs && len(vlanIDs) == 0 {
		return nil, fmt.Errorf("at least one --vlan is required")
	}
	ports := make([]driver.PortVLAN, 0, len(vlanPorts))
	for _, name := range vlanPorts {
		ports = append(ports, driver.PortVLAN{
			Name:            name,
			VLANIDs:         vlanIDs,
			LinkType:        vlanLinkType,
			CurrentLinkType: vlanCurrentType,
		})
	}
	return ports, nil
}

func init() {
	for _, cmd := range []*cobra.Command{vlanSetCmd, vlanUnsetCmd} {
		cmd.Flags().StringSliceVar(&vlanPorts, "port", nil, "Port name (repeatable)")
		cmd.Flags().StringVar(&vlanCurrentType, "current-link-type", "access", "Present link type (trunk or access)")
	}
	vlanSetCmd.Flags().StringSliceVar(&vlanIDs, "vlan", nil, "VLAN ID or range, e.g. 100 or 10-20 (repeatable)")
	vlanSetCmd.Flags().StringVar(&vlanLinkType, "link-type", driver.LinkTypeTrunk, "Target link type (trunk or access)")

	vlanCmd.AddCommand(vlanSetCmd, vlanUnsetCmd)
}
