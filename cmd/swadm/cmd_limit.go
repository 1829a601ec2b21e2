package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/metalfabric/swadm/pkg/cli"
	"github.com/metalfabric/swadm/pkg/driver"
)

var (
	limitTemplate  string
	limitInbound   []string
	limitOutbound  []string
	limitBandwidth int

	templateNames     []string
	templateBandwidth int
)

var limitCmd = &cobra.Command{
	Use:   "limit",
	Short: "Manage port rate limits",
}

var limitSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Apply a rate-limit template inbound and a line rate outbound",
	Example: `  swadm -d 192.0.2.10 -u admin limit set --template bm-limit-100 --bandwidth 100 \
      --inbound 10GE1/0/1 --outbound 10GE2/0/1`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sw, err := newSwitch()
		if err != nil {
			return err
		}
		if limitTemplate == "" || len(limitInbound) == 0 {
			return fmt.Errorf("--template and --inbound are required")
		}
		infos := make([]driver.LimitInfo, 0, len(limitInbound))
		for _, port := range limitInbound {
			infos = append(infos, driver.LimitInfo{
				TemplateName:  limitTemplate,
				InboundPort:   port,
				OutboundPorts: limitOutbound,
				Bandwidth:     limitBandwidth,
			})
		}
		err = audited("set_limit", limitInbound, func() error {
			return sw.SetLimit(cmd.Context(), infos)
		})
		if err != nil {
			return err
		}
		for _, port := range limitInbound {
			fmt.Printf("%s limit %s %s\n", port, limitTemplate, cli.Green("set"))
		}
		return nil
	},
}

var limitUnsetCmd = &cobra.Command{
	Use:   "unset",
	Short: "Remove inbound and outbound rate limits from ports",
	RunE: func(cmd *cobra.Command, args []string) error {
		sw, err := newSwitch()
		if err != nil {
			return err
		}
		if len(limitInbound) == 0 && len(limitOutbound) == 0 {
			return fmt.Errorf("at least one --inbound or --outbound is required")
		}
		err = audited("unset_limit", append(limitInbound, limitOutbound...), func() error {
			return sw.UnsetLimit(cmd.Context(), limitInbound, limitOutbound)
		})
		if err != nil {
			return err
		}
		fmt.Printf("limits %s\n", cli.Green("unset"))
		return nil
	},
}

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Manage rate-limit templates",
}

var templateCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create rate-limit templates",
	Example: `  swadm -d 192.0.2.10 -u admin template create --name bm-limit-100 --bandwidth 100`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sw, err := newSwitch()
		if err != nil {
			return err
		}
		if len(templateNames) == 0 {
			return fmt.Errorf("at least one --name is required")
		}
		templates := make([]driver.LimitTemplate, 0, len(templateNames))
		for _, name := range templateNames {
			templates = append(templates, driver.LimitTemplate{
				Name:      name,
				Bandwidth: templateBandwidth,
			})
		}
		err = audited("create_limit_template", nil, func() error {
			return sw.CreateLimitTemplates(cmd.Context(), templates)
		})
		if err != nil {
			return err
		}
		for _, name := range templateNames {
			fmt.Printf("template %s %s\n", name, cli.Green("created"))
		}
		return nil
	},
}

var templateDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete rate-limit templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		sw, err := newSwitch()
		if err != nil {
			return err
		}
		if len(templateNames) == 0 {
			return fmt.Errorf("at least one --name is required")
		}
		err = audited("delete_limit_template", nil, func() error {
			return sw.DeleteLimitTemplates(cmd.Context(), templateNames)
		})
		if err != nil {
			return err
		}
		for _, name := range templateNames {
			fmt.Printf("template %s %s\n", name, cli.Green("deleted"))
		}
		return nil
	},
}

func init() {
	for _, cmd := range []*cobra.Command{limitSetCmd, limitUnsetCmd} {
		cmd.Flags().StringSliceVar(&limitInbound, "inbound", nil, "Inbound port (repeatable)")
		cmd.Flags().StringSliceVar(&limitOutbound, "outbound", nil, "Outbound port (repeatable)")
	}
	limitSetCmd.Flags().StringVar(&limitTemplate, "template", "", "Rate-limit template name")
	limitSetCmd.Flags().IntVar(&limitBandwidth, "bandwidth", 0, "Bandwidth in Mbit/s")

	for _, cmd := range []*cobra.Command{templateCreateCmd, templateDeleteCmd} {
		cmd.Flags().StringSliceVar(&templateNames, "name", nil, "Template name (repeatable)")
	}
	templateCreateCmd.Flags().IntVar(&templateBandwidth, "bandwidth", 0, "Bandwidth in Mbit/s")

	limitCmd.AddCommand(limitSetCmd, limitUnsetCmd)
	templateCmd.AddCommand(templateCreateCmd, templateDeleteCmd)
}
