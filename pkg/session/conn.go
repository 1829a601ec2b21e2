// Package session establishes and supervises interactive CLI sessions
// against switches: scoped lock-slot acquisition, connect retries, the
// command-execution pipeline, and output validation. One session is owned
// exclusively by the operation holding its lock slot; no two operations
// ever share a live session.
package session

import (
	"context"

	"github.com/metalfabric/swadm/pkg/dialect"
)

// Conn is one live CLI exchange channel to a device. Implementations are
// not safe for concurrent use; the gateway guarantees exclusive ownership.
type Conn interface {
	// Run writes one command line and reads the response up to the next
	// CLI prompt.
	Run(ctx context.Context, cmd string) (string, error)

	// RunConfirm writes a command, answers the device's confirmation
	// prompt when expect appears in the output, and reads to the next
	// CLI prompt. Used for the save step.
	RunConfirm(ctx context.Context, cmd, expect, response string) (string, error)

	// Close tears down the session and its transport.
	Close() error
}

// Dialer establishes a Conn for a device profile. The production
// implementation speaks SSH; tests substitute scripted connections.
type Dialer interface {
	Dial(ctx context.Context, profile *dialect.Profile) (Conn, error)
}
