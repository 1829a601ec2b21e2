package driver

import (
	"fmt"
	"strconv"
	"strings"
)

// cbsCeiling is the largest committed burst size the VRP qos lr command
// accepts, in kbytes.
const cbsCeiling = 524288

// vlanString renders VLAN IDs the way the CLI wants them: ranges become
// "low to high" and entries are space-joined in input order.
func vlanString(vlanIDs []string) string {
	parts := make([]string, 0, len(vlanIDs))
	for _, v := range vlanIDs {
		parts = append(parts, strings.ReplaceAll(v, "-", " to "))
	}
	return strings.Join(parts, " ")
}

// lineRate derives the committed information rate and burst size for a
// bandwidth in Mbit/s.
func lineRate(bandwidth int) (cir, cbs int) {
	cir = bandwidth * 1024
	cbs = cir * 2
	if cbs > cbsCeiling {
		cbs = cbsCeiling
	}
	return cir, cbs
}

// templateCIR converts a template bandwidth in Mbit/s to the inflated
// CIR the shared-template car uses. The 1.62 factor compensates for the
// per-packet overhead the device counts against the template.
func templateCIR(bandwidth int) int {
	return int(float64(bandwidth) * 1.62 * 1024)
}

func setVLANCommands(ports []PortVLAN) []string {
	cmds := unsetVLANCommands(ports)
	for _, p := range ports {
		vs := vlanString(p.VLANIDs)
		if p.LinkType == LinkTypeTrunk {
			cmds = append(cmds,
				"interface "+p.Name,
				"port link-type trunk",
				"port trunk allow-pass vlan "+vs,
				"commit", "q")
		} else {
			cmds = append(cmds,
				"interface "+p.Name,
				"port link-type access",
				"port default vlan "+vs,
				"commit", "q")
		}
	}
	return append(cmds, "q")
}

// unsetVLANCommands strips the present VLAN configuration. An access
// port additionally needs its default VLAN removed before the link type
// can change.
func unsetVLANCommands(ports []PortVLAN) []string {
	var cmds []string
	for _, p := range ports {
		if p.CurrentLinkType == LinkTypeTrunk {
			cmds = append(cmds,
				"interface "+p.Name,
				"undo port link-type",
				"commit", "q")
		} else {
			cmds = append(cmds,
				"interface "+p.Name,
				"undo port link-type",
				"undo port default vlan",
				"commit", "q")
		}
	}
	return cmds
}

func setLimitCommands(infos []LimitInfo) []string {
	var inbound, outbound []string
	for _, info := range infos {
		inbound = append(inbound,
			"interface "+info.InboundPort,
			"qos car inbound "+info.TemplateName,
			"commit", "q")
		cir, cbs := lineRate(info.Bandwidth)
		for _, p := range info.OutboundPorts {
			outbound = append(outbound,
				"interface "+p,
				fmt.Sprintf("qos lr cir %d kbps cbs %d kbytes outbound", cir, cbs),
				"commit", "q")
		}
	}
	return append(append(inbound, outbound...), "q")
}

func unsetLimitCommands(inboundPorts, outboundPorts []string) []string {
	var cmds []string
	for _, p := range inboundPorts {
		cmds = append(cmds, "interface "+p, "undo qos car inbound", "commit", "q")
	}
	for _, p := range outboundPorts {
		cmds = append(cmds, "interface "+p, "undo qos lr outbound", "commit", "q")
	}
	return append(cmds, "q")
}

func createTemplateCommands(templates []LimitTemplate) []string {
	var cmds []string
	for _, t := range templates {
		cmds = append(cmds,
			fmt.Sprintf("qos car %s cir %d kbps", t.Name, templateCIR(t.Bandwidth)),
			"commit")
	}
	return append(cmds, "q")
}

func deleteTemplateCommands(names []string) []string {
	var cmds []string
	for _, name := range names {
		cmds = append(cmds, "undo qos car "+name, "commit")
	}
	return append(cmds, "q")
}

func openPortCommands(ports []string) []string {
	var cmds []string
	for _, p := range ports {
		cmds = append(cmds, "interface "+p, "undo shutdown", "commit", "q")
	}
	return append(cmds, "q")
}

func shutdownPortCommands(ports []string) []string {
	var cmds []string
	for _, p := range ports {
		cmds = append(cmds, "interface "+p, "shutdown", "commit", "q")
	}
	return append(cmds, "q")
}

// initDHClientCommands brings ports up as access ports in a single VLAN
// for the DHCP-client provisioning stage. Callers validate that exactly
// one VLAN is given.
func initDHClientCommands(ports []string, vlanID string) []string {
	var cmds []string
	for _, p := range ports {
		cmds = append(cmds,
			"interface "+p,
			"port link-type access",
			"port default vlan "+vlanID,
			"q")
	}
	return append(cmds, "commit", "q")
}

// initAllCommands builds the full bring-up for a port set: limit
// template, trunk VLAN membership, inbound car, outbound line rate, and
// admin-up, committed as one batch.
func initAllCommands(init InitConfig) ([]string, error) {
	bandwidth, err := templateBandwidth(init.TemplateName)
	if err != nil {
		return nil, err
	}
	cmds := []string{
		fmt.Sprintf("qos car %s cir %d kbps", init.TemplateName, bandwidth*1024),
		"commit",
	}

	vs := vlanString(init.VLANIDs)
	cir, cbs := lineRate(bandwidth)
	for _, p := range init.Ports {
		cmds = append(cmds,
			"interface "+p,
			"port link-type trunk",
			"port trunk allow-pass vlan "+vs,
			"qos car inbound "+init.TemplateName,
			fmt.Sprintf("qos lr cir %d kbps cbs %d kbytes outbound", cir, cbs),
			"undo shutdown",
			"q")
	}
	return append(cmds, "commit", "q"), nil
}

// cleanAllCommands reverts every port to its default state and
// optionally drops the limit template. The trailing commit and exit are
// left to the caller so the sequence can prefix a bring-up batch.
func cleanAllCommands(ports []string, templateName string) []string {
	var cmds []string
	for _, p := range ports {
		cmds = append(cmds,
			"interface "+p,
			"undo port link-type",
			"undo port default vlan",
			"undo qos car inbound",
			"undo qos lr outbound",
			"undo shutdown",
			"q")
	}
	if templateName != "" {
		cmds = append(cmds, "undo qos car "+templateName)
	}
	return cmds
}

// templateBandwidth reads the bandwidth in Mbit/s off the template
// name's last dash-separated segment, e.g. "bm-limit-100" carries 100.
func templateBandwidth(name string) (int, error) {
	segs := strings.Split(name, "-")
	bw, err := strconv.Atoi(segs[len(segs)-1])
	if err != nil {
		return 0, fmt.Errorf("template name %q does not end in a bandwidth: %w", name, err)
	}
	return bw, nil
}
