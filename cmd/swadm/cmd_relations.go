package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/metalfabric/swadm/pkg/cli"
	"github.com/metalfabric/swadm/pkg/driver"
)

var (
	relationVLAN int
	relationMACs []string
)

var relationsCmd = &cobra.Command{
	Use:   "relations",
	Short: "Show MAC address to port relations",
	Example: `  swadm -d 192.0.2.10 -u admin relations --vlan 100
  swadm -d 192.0.2.10 -u admin relations --mac 0011-2233-4455 --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sw, err := newSwitch()
		if err != nil {
			return err
		}
		if relationVLAN == 0 && len(relationMACs) == 0 {
			return fmt.Errorf("nothing to query: use --vlan or --mac")
		}

		relations, err := sw.GetRelations(cmd.Context(), driver.RelationQuery{
			VLAN: relationVLAN,
			MACs: relationMACs,
		})
		if err != nil {
			return err
		}

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(relations)
		}

		table := cli.NewTable("MAC", "PORT")
		for _, r := range relations {
			table.Row(r.MAC, r.Port)
		}
		table.Flush()
		if len(relations) == 0 {
			fmt.Println("no relations found")
		}
		return nil
	},
}

func init() {
	relationsCmd.Flags().IntVar(&relationVLAN, "vlan", 0, "Query by VLAN ID")
	relationsCmd.Flags().StringSliceVar(&relationMACs, "mac", nil, "Query by MAC address, device notation (repeatable)")
	relationsCmd.Flags().BoolVar(&jsonOutput, "json", false, "JSON output")
}
