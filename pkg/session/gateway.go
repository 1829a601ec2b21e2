package session

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/metalfabric/swadm/pkg/dialect"
	"github.com/metalfabric/swadm/pkg/lockpool"
	"github.com/metalfabric/swadm/pkg/retry"
	"github.com/metalfabric/swadm/pkg/util"
)

// Config carries the session supervision parameters consumed by the
// gateway, derived from global configuration plus the device address.
type Config struct {
	// MaxSessions is the device's tolerated number of concurrent
	// management sessions (the lock pool size).
	MaxSessions int

	// AcquireTimeout bounds the wait for a free lock slot.
	AcquireTimeout time.Duration

	// SlotTTL is the coordination-backend expiry for held slots.
	SlotTTL time.Duration

	// ConnectTimeout and ConnectInterval parameterize the connect retry
	// policy.
	ConnectTimeout  time.Duration
	ConnectInterval time.Duration
}

// Gateway mediates every switch operation: it claims a lock slot, dials
// the CLI session under the connect retry policy, hands the live pipeline
// to the caller, and guarantees teardown in the fixed order session first,
// slot second, on every exit path.
type Gateway struct {
	coord  *redis.Client // nil disables distributed bounding
	dialer Dialer
	cfg    Config
}

// NewGateway creates a gateway over the given coordination client and
// dialer. coord may be nil: operations then proceed unbounded, which is
// the documented degraded mode for deployments without a backend.
func NewGateway(coord *redis.Client, dialer Dialer, cfg Config) *Gateway {
	return &Gateway{coord: coord, dialer: dialer, cfg: cfg}
}

// WithSession runs body with an exclusively owned live session to the
// device. The lock slot is held for the whole connect-retry window plus
// the command exchange, so partial sessions are never visible to other
// holders. If the slot cannot be acquired, no connection is attempted and
// the LockTimeoutError surfaces immediately.
func (g *Gateway) WithSession(ctx context.Context, profile *dialect.Profile, body func(*Pipeline) error) error {
	log := util.WithDevice(profile.Address)

	pool, err := lockpool.New(g.coord, lockpool.Config{
		PoolSize:       g.cfg.MaxSessions,
		KeyPrefix:      profile.Address,
		AcquireTimeout: g.cfg.AcquireTimeout,
		SlotTTL:        g.cfg.SlotTTL,
	})
	if err != nil {
		return err
	}

	handle, err := pool.Acquire(ctx)
	if err != nil {
		return err
	}
	// Release must happen after the session is closed; defers run in
	// reverse registration order. Release uses a fresh context so that a
	// canceled operation still frees its slot.
	defer func() {
		if err := handle.Release(context.Background()); err != nil {
			log.Warnf("releasing session slot: %v", err)
		}
	}()

	policy := retry.ConnectPolicy(g.cfg.ConnectTimeout, g.cfg.ConnectInterval)
	conn, err := retry.Do(ctx, log, policy, func() (Conn, error) {
		return g.dialer.Dial(ctx, profile)
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		var exhausted *retry.ExhaustedError
		if errors.As(err, &exhausted) {
			log.Errorf("reached maximum SSH connection attempts, not retrying")
			return &util.ConnectionError{Addr: profile.Address, Err: exhausted.Last}
		}
		// Non-retryable dial failures map to the same fatal kind; a raw
		// transport error never escapes to callers.
		return &util.ConnectionError{Addr: profile.Address, Err: err}
	}
	defer conn.Close()

	return body(NewPipeline(conn, profile.Dialect, log))
}
