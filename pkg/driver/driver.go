package driver

import (
	"context"
	"fmt"
	"strconv"

	"github.com/metalfabric/swadm/pkg/dialect"
	"github.com/metalfabric/swadm/pkg/relation"
	"github.com/metalfabric/swadm/pkg/session"
	"github.com/metalfabric/swadm/pkg/util"
)

// Switch runs provisioning operations against one device. Each
// operation opens a gated session, compiles its payload into a command
// batch, and submits the batch through the session pipeline.
type Switch struct {
	profile *dialect.Profile
	gateway *session.Gateway
}

// New binds a device profile to a session gateway.
func New(gateway *session.Gateway, profile *dialect.Profile) *Switch {
	return &Switch{profile: profile, gateway: gateway}
}

// Profile returns the device profile the switch operates on.
func (s *Switch) Profile() *dialect.Profile {
	return s.profile
}

// runConfigSet submits a compiled batch in one session. Empty batches
// short-circuit without touching the device.
func (s *Switch) runConfigSet(ctx context.Context, op string, cmds []string) error {
	if len(cmds) == 0 {
		util.WithDevice(s.profile.Address).Debugf("%s: nothing to execute", op)
		return nil
	}
	log := util.WithDevice(s.profile.Address).WithField("operation", op)
	log.Debugf("commands: %v", cmds)
	return s.gateway.WithSession(ctx, s.profile, func(p *session.Pipeline) error {
		_, err := p.SendConfigSet(ctx, cmds)
		return err
	})
}

// SetVLAN replaces the VLAN membership of each port, stripping the old
// configuration first.
func (s *Switch) SetVLAN(ctx context.Context, ports []PortVLAN) error {
	if len(ports) == 0 {
		return nil
	}
	return s.runConfigSet(ctx, "set_vlan", setVLANCommands(ports))
}

// UnsetVLAN removes VLAN configuration from each port.
func (s *Switch) UnsetVLAN(ctx context.Context, ports []PortVLAN) error {
	if len(ports) == 0 {
		return nil
	}
	return s.runConfigSet(ctx, "unset_vlan", append(unsetVLANCommands(ports), "q"))
}

// SetLimit applies rate-limit templates inbound and mirrored line-rate
// limits outbound.
func (s *Switch) SetLimit(ctx context.Context, infos []LimitInfo) error {
	if len(infos) == 0 {
		return nil
	}
	return s.runConfigSet(ctx, "set_limit", setLimitCommands(infos))
}

// UnsetLimit removes inbound car and outbound line-rate limits.
func (s *Switch) UnsetLimit(ctx context.Context, inboundPorts, outboundPorts []string) error {
	if len(inboundPorts) == 0 && len(outboundPorts) == 0 {
		return nil
	}
	return s.runConfigSet(ctx, "unset_limit", unsetLimitCommands(inboundPorts, outboundPorts))
}

// CreateLimitTemplates creates named rate-limit templates.
func (s *Switch) CreateLimitTemplates(ctx context.Context, templates []LimitTemplate) error {
	if len(templates) == 0 {
		return nil
	}
	return s.runConfigSet(ctx, "create_limit_template", createTemplateCommands(templates))
}

// DeleteLimitTemplates deletes rate-limit templates by name.
func (s *Switch) DeleteLimitTemplates(ctx context.Context, names []string) error {
	if len(names) == 0 {
		return nil
	}
	return s.runConfigSet(ctx, "delete_limit_template", deleteTemplateCommands(names))
}

// OpenPorts administratively enables ports.
func (s *Switch) OpenPorts(ctx context.Context, ports []string) error {
	if len(ports) == 0 {
		return nil
	}
	return s.runConfigSet(ctx, "open_port", openPortCommands(ports))
}

// ShutdownPorts administratively disables ports.
func (s *Switch) ShutdownPorts(ctx context.Context, ports []string) error {
	if len(ports) == 0 {
		return nil
	}
	return s.runConfigSet(ctx, "shutdown_port", shutdownPortCommands(ports))
}

// InitAllConfig cleans the ports and applies the full initial state in
// one batch. With DHClient set it applies the minimal access-VLAN
// bring-up instead, which requires exactly one VLAN.
func (s *Switch) InitAllConfig(ctx context.Context, init InitConfig) error {
	clean := cleanAllCommands(init.Ports, "")

	if init.DHClient {
		if len(init.VLANIDs) != 1 {
			return fmt.Errorf("%w: dhclient init takes exactly one vlan, got %d",
				util.ErrInvalidConfig, len(init.VLANIDs))
		}
		cmds := append(clean, initDHClientCommands(init.Ports, init.VLANIDs[0])...)
		return s.runConfigSet(ctx, "init_dhclient_config", cmds)
	}

	if len(init.VLANIDs) == 0 {
		util.WithDevice(s.profile.Address).Warnf("init_all_config: no vlans given, skipping")
		return nil
	}
	bringUp, err := initAllCommands(init)
	if err != nil {
		return fmt.Errorf("%w: %v", util.ErrInvalidConfig, err)
	}
	return s.runConfigSet(ctx, "init_all_config", append(clean, bringUp...))
}

// CleanAllConfig reverts the ports to their default state and drops the
// limit template when one is named.
func (s *Switch) CleanAllConfig(ctx context.Context, ports []string, templateName string) error {
	if len(ports) == 0 && templateName == "" {
		return nil
	}
	cmds := append(cleanAllCommands(ports, templateName), "commit", "q")
	return s.runConfigSet(ctx, "clean_all_config", cmds)
}

// Save persists the running configuration, returning the device's save
// output.
func (s *Switch) Save(ctx context.Context) (string, error) {
	var out string
	err := s.gateway.WithSession(ctx, s.profile, func(p *session.Pipeline) error {
		var err error
		out, err = p.Save(ctx)
		return err
	})
	return out, err
}

// GetRelations queries the MAC address table and returns MAC/port
// relations. Per-MAC queries run first in input order, then the VLAN
// query, all within one session.
func (s *Switch) GetRelations(ctx context.Context, q RelationQuery) ([]relation.Relation, error) {
	if len(q.MACs) == 0 && q.VLAN == 0 {
		return nil, nil
	}

	var relations []relation.Relation
	err := s.gateway.WithSession(ctx, s.profile, func(p *session.Pipeline) error {
		set := relation.NewSet()
		for _, mac := range q.MACs {
			cmd := "display mac-address " + mac
			set.Add(func(ctx context.Context) (string, error) {
				return p.Send(ctx, cmd)
			})
		}
		if q.VLAN != 0 {
			cmd := "display mac-address vlan " + strconv.Itoa(q.VLAN)
			set.Add(func(ctx context.Context) (string, error) {
				return p.Send(ctx, cmd)
			})
		}

		var err error
		relations, err = set.Collect(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return relations, nil
}
