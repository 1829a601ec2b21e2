package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/metalfabric/swadm/pkg/dialect"
	"github.com/metalfabric/swadm/pkg/retry"
)

type sessionMode int

const (
	modeQuery sessionMode = iota
	modeConfig
)

// Pipeline drives commands through a live session and validates the
// free-text responses. The device CLI has no structured ack/nak: absence
// of a dialect error marker is the only success signal.
type Pipeline struct {
	conn Conn
	d    *dialect.Dialect
	log  *logrus.Entry
	mode sessionMode

	// broken marks a session whose transport failed mid-exchange. The
	// device may be stuck in an interface or config context, so the
	// session must not be reused.
	broken bool
}

// NewPipeline wraps a freshly dialed connection. New sessions start in
// query mode at the user view prompt.
func NewPipeline(conn Conn, d *dialect.Dialect, log *logrus.Entry) *Pipeline {
	return &Pipeline{conn: conn, d: d, log: log}
}

// Send executes a single command. Display-class commands (recognized by
// the dialect's query prefix) run from the query view; anything else runs
// in configuration mode. The response is validated against the dialect's
// error markers.
func (p *Pipeline) Send(ctx context.Context, cmd string) (string, error) {
	if cmd == "" {
		p.log.Debug("nothing to execute")
		return "", nil
	}
	if p.broken {
		return "", fmt.Errorf("session to device is no longer usable")
	}

	if p.d.IsQuery(cmd) {
		if err := p.enterQueryMode(ctx); err != nil {
			return "", err
		}
	} else if err := p.enterConfigMode(ctx); err != nil {
		return "", err
	}

	output, err := p.conn.Run(ctx, cmd)
	if err != nil {
		p.broken = true
		return "", err
	}
	if err := p.d.CheckOutput(cmd, output); err != nil {
		return "", err
	}
	p.log.Debugf("result:\n%s", output)
	return output, nil
}

// SendConfigSet executes an ordered batch of configuration lines.
// Execution order is significant: lines may change the device's mode,
// such as entering an interface context. The batch is not atomic: a
// rejection stops processing and leaves the already-committed prefix
// applied on the device.
func (p *Pipeline) SendConfigSet(ctx context.Context, cmds []string) (string, error) {
	if len(cmds) == 0 {
		p.log.Debug("nothing to execute")
		return "", nil
	}
	if p.broken {
		return "", fmt.Errorf("session to device is no longer usable")
	}

	if err := p.enterConfigMode(ctx); err != nil {
		return "", err
	}

	var outputs []string
	for _, cmd := range cmds {
		output, err := p.conn.Run(ctx, cmd)
		if err != nil {
			p.broken = true
			return strings.Join(outputs, "\n"), err
		}
		if err := p.d.CheckOutput(cmd, output); err != nil {
			return strings.Join(outputs, "\n"), err
		}
		outputs = append(outputs, output)
	}

	// Compiled batches close every view they opened, so a batch ending
	// on the quit or exit command leaves the device back at the user
	// view. Mirror that, or a later Send would skip system-view.
	last := cmds[len(cmds)-1]
	if last == p.d.QuitCommand || last == p.d.ConfigExit {
		p.mode = modeQuery
	}

	joined := strings.Join(outputs, "\n")
	p.log.Debugf("result:\n%s", joined)
	return joined, nil
}

// Save persists the running configuration to the device's startup store.
// It retries under the save policy and swallows exhaustion: the running
// state already carries the configuration, so a lost save is reported in
// the returned output (possibly empty) rather than raised.
func (p *Pipeline) Save(ctx context.Context) (string, error) {
	if p.broken {
		return "", fmt.Errorf("session to device is no longer usable")
	}
	if err := p.enterQueryMode(ctx); err != nil {
		return "", err
	}

	output, err := retry.Do(ctx, p.log, retry.SavePolicy(), func() (string, error) {
		out, err := p.conn.RunConfirm(ctx, p.d.SaveCommand, "[Y/N]", p.d.SaveConfirm)
		if err != nil {
			return out, err
		}
		if err := p.d.CheckOutput(p.d.SaveCommand, out); err != nil {
			return out, err
		}
		return out, nil
	})
	if err != nil {
		// Only context cancellation escapes the swallowing policy.
		return output, err
	}
	return output, nil
}

func (p *Pipeline) enterConfigMode(ctx context.Context) error {
	if p.mode == modeConfig {
		return nil
	}
	output, err := p.conn.Run(ctx, p.d.ConfigEnter)
	if err != nil {
		p.broken = true
		return err
	}
	if err := p.d.CheckOutput(p.d.ConfigEnter, output); err != nil {
		return err
	}
	p.mode = modeConfig
	return nil
}

func (p *Pipeline) enterQueryMode(ctx context.Context) error {
	if p.mode == modeQuery {
		return nil
	}
	output, err := p.conn.Run(ctx, p.d.ConfigExit)
	if err != nil {
		p.broken = true
		return err
	}
	if err := p.d.CheckOutput(p.d.ConfigExit, output); err != nil {
		return err
	}
	p.mode = modeQuery
	return nil
}

// Broken reports whether the session has been invalidated by a transport
// failure.
func (p *Pipeline) Broken() bool {
	return p.broken
}
