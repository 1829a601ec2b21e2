// Package driver exposes the switch operations the provisioning
// controller needs: VLAN membership, rate-limit templates, port admin
// state, persistence, and MAC/port queries. It compiles operation
// payloads into CLI command batches and runs them through the session
// gateway.
package driver

// Link types a port can be switched to.
const (
	LinkTypeTrunk  = "trunk"
	LinkTypeAccess = "access"
)

// PortVLAN describes the desired VLAN membership for one port.
type PortVLAN struct {
	// Name is the interface identifier, e.g. "10GE1/0/1".
	Name string `json:"port_name"`

	// VLANIDs are VLAN singletons ("100") or ranges ("10-20"), applied
	// in input order.
	VLANIDs []string `json:"vlan_id"`

	// LinkType is the target link type (trunk or access).
	LinkType string `json:"set_link_type"`

	// CurrentLinkType is the port's present link type, which decides the
	// unset sequence preceding reconfiguration.
	CurrentLinkType string `json:"current_link_type"`
}

// LimitInfo binds a rate-limit template to an inbound port and mirrors
// the bandwidth as an outbound line-rate limit on the given ports.
type LimitInfo struct {
	TemplateName  string   `json:"template_name"`
	InboundPort   string   `json:"inbound_port"`
	OutboundPorts []string `json:"outbound_ports"`

	// Bandwidth in Mbit/s.
	Bandwidth int `json:"bandwidth"`
}

// LimitTemplate describes a named rate-limit template.
type LimitTemplate struct {
	Name string `json:"name"`

	// Bandwidth in Mbit/s.
	Bandwidth int `json:"bandwidth"`
}

// InitConfig describes the full initial state for a set of ports on one
// switch, applied by InitAllConfig after cleaning previous state.
type InitConfig struct {
	Ports        []string `json:"ports"`
	VLANIDs      []string `json:"vlan_ids"`
	TemplateName string   `json:"template_name"`

	// DHClient selects the minimal access-VLAN bring-up used for the
	// DHCP-client provisioning stage; it requires exactly one VLAN and
	// skips rate limits.
	DHClient bool `json:"is_dhclient"`
}

// RelationQuery filters the MAC/port relation query: by an explicit set
// of MAC addresses (one device query per address), by VLAN, or both.
type RelationQuery struct {
	VLAN int      `json:"vlan,omitempty"`
	MACs []string `json:"macs,omitempty"`
}
