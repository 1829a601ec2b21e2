// Package lockpool bounds the number of concurrent CLI sessions opened
// against a single switch, across every process sharing the coordination
// backend. A pool is a fixed set of named slot locks in Redis; acquiring
// means claiming any free slot within the acquire window. Slots carry a
// TTL so a crashed holder cannot deadlock the pool.
package lockpool

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/metalfabric/swadm/pkg/util"
)

const (
	keyspace     = "SWADM_LOCK"
	pollInterval = 200 * time.Millisecond
)

// acquireScript atomically claims a slot key if it is free.
// Returns 1 on success, 0 if the slot is held.
var acquireScript = redis.NewScript(`
local key = KEYS[1]
if redis.call("EXISTS", key) == 1 then
	return 0
end
redis.call("HSET", key, "holder", ARGV[1], "acquired", ARGV[2], "ttl", ARGV[3])
redis.call("EXPIRE", key, tonumber(ARGV[3]))
return 1
`)

// releaseScript releases a slot key with holder verification.
// Returns 1 on success, 0 on holder mismatch, -1 if the key expired.
var releaseScript = redis.NewScript(`
local key = KEYS[1]
if redis.call("EXISTS", key) == 0 then
	return -1
end
local current = redis.call("HGET", key, "holder")
if current ~= ARGV[1] then
	return 0
end
redis.call("DEL", key)
return 1
`)

// Config sizes the pool for one device.
type Config struct {
	// PoolSize is the device's tolerated number of concurrent management
	// sessions. Must be at least 1.
	PoolSize int

	// KeyPrefix scopes the slot keys, normally the device address.
	KeyPrefix string

	// AcquireTimeout bounds the wait for a free slot.
	AcquireTimeout time.Duration

	// SlotTTL is the expiry applied to held slots so that crashed holders
	// release them eventually.
	SlotTTL time.Duration
}

// Validate checks pool invariants.
func (c Config) Validate() error {
	if c.PoolSize < 1 {
		return fmt.Errorf("%w: pool size %d, must be at least 1", util.ErrInvalidConfig, c.PoolSize)
	}
	if c.KeyPrefix == "" {
		return fmt.Errorf("%w: lock key prefix is required", util.ErrInvalidConfig)
	}
	return nil
}

// Pool is a capacity-bounded distributed lock for one device. A nil Redis
// client puts the pool in degraded mode: acquisition always succeeds and
// nothing is bounded. That mode is explicit behavior for deployments
// without a coordination backend, not an error.
type Pool struct {
	client *redis.Client
	cfg    Config
	holder string
}

var holderSeq uint64

// New creates a pool over the given coordination client. client may be nil
// (degraded unbounded mode).
func New(client *redis.Client, cfg Config) (*Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	host, _ := os.Hostname()
	return &Pool{
		client: client,
		cfg:    cfg,
		holder: fmt.Sprintf("%s/%d/%d", host, os.Getpid(), atomic.AddUint64(&holderSeq, 1)),
	}, nil
}

// Handle represents ownership of one slot. Release exactly once on exit
// from the critical section; extra calls are no-ops.
type Handle struct {
	pool *Pool
	slot int
	once sync.Once
}

// Slot returns the index of the held slot, or -1 for a degraded-mode handle.
func (h *Handle) Slot() int {
	return h.slot
}

// Release frees the slot. Safe to call multiple times and safe on
// degraded-mode handles. An expired slot counts as released.
func (h *Handle) Release(ctx context.Context) error {
	var err error
	h.once.Do(func() {
		if h.pool == nil || h.pool.client == nil {
			return
		}
		err = h.pool.release(ctx, h.slot)
	})
	return err
}

// Acquire claims any free slot, polling until the acquire timeout. On
// timeout it returns a LockTimeoutError; the caller must not attempt the
// operation.
func (p *Pool) Acquire(ctx context.Context) (*Handle, error) {
	if p.client == nil {
		util.WithDevice(p.cfg.KeyPrefix).Debug("no coordination backend, session bounding disabled")
		return &Handle{slot: -1}, nil
	}

	deadline := time.Now().Add(p.cfg.AcquireTimeout)
	ttl := int(p.cfg.SlotTTL / time.Second)
	if ttl < 1 {
		ttl = 1
	}

	for {
		now := time.Now().UTC().Format(time.RFC3339)
		for slot := 0; slot < p.cfg.PoolSize; slot++ {
			got, err := acquireScript.Run(ctx, p.client, []string{p.slotKey(slot)},
				p.holder, now, fmt.Sprintf("%d", ttl)).Int()
			if err != nil {
				return nil, fmt.Errorf("acquiring session slot for %s: %w", p.cfg.KeyPrefix, err)
			}
			if got == 1 {
				util.WithDevice(p.cfg.KeyPrefix).Debugf("acquired session slot %d", slot)
				return &Handle{pool: p, slot: slot}, nil
			}
		}

		if !time.Now().Before(deadline) {
			return nil, &util.LockTimeoutError{Device: p.cfg.KeyPrefix, PoolSize: p.cfg.PoolSize}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

func (p *Pool) release(ctx context.Context, slot int) error {
	result, err := releaseScript.Run(ctx, p.client, []string{p.slotKey(slot)}, p.holder).Int()
	if err != nil {
		return fmt.Errorf("releasing session slot %d for %s: %w", slot, p.cfg.KeyPrefix, err)
	}
	switch result {
	case 0:
		return fmt.Errorf("session slot %d for %s held by another owner", slot, p.cfg.KeyPrefix)
	case -1:
		// Slot TTL already expired; nothing left to release.
		util.WithDevice(p.cfg.KeyPrefix).Warnf("session slot %d expired before release", slot)
	}
	util.WithDevice(p.cfg.KeyPrefix).Debugf("released session slot %d", slot)
	return nil
}

func (p *Pool) slotKey(slot int) string {
	return fmt.Sprintf("%s|%s|%d", keyspace, p.cfg.KeyPrefix, slot)
}

// Holder returns this pool's holder identity, visible in the coordination
// backend while slots are held.
func (p *Pool) Holder() string {
	return p.holder
}
