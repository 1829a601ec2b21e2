package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/metalfabric/swadm/pkg/audit"
	"github.com/metalfabric/swadm/pkg/cli"
)

var (
	auditOperation string
	auditFailed    bool
	auditLimit     int
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Query the provisioning audit trail",
	Example: `  swadm audit --limit 20
  swadm -d 192.0.2.10 audit --failed`,
	RunE: func(cmd *cobra.Command, args []string) error {
		events, err := audit.Query(audit.Filter{
			Device:      deviceAddr,
			User:        username,
			Operation:   auditOperation,
			FailureOnly: auditFailed,
			Limit:       auditLimit,
		})
		if err != nil {
			return err
		}
		if len(events) == 0 {
			fmt.Println("no audit events found")
			return nil
		}

		table := cli.NewTable("TIME", "USER", "DEVICE", "OPERATION", "RESULT")
		for _, e := range events {
			result := cli.Green("ok")
			if !e.Success {
				result = cli.Red(e.Error)
			}
			table.Row(e.Timestamp.Format("2006-01-02 15:04:05"), e.User, e.Device, e.Operation, result)
		}
		table.Flush()
		return nil
	},
}

func init() {
	auditCmd.Flags().StringVar(&auditOperation, "operation", "", "Filter by operation name")
	auditCmd.Flags().BoolVar(&auditFailed, "failed", false, "Show only failed operations")
	auditCmd.Flags().IntVar(&auditLimit, "limit", 0, "Maximum number of events")
}
