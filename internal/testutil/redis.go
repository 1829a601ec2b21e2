//go:build integration

// Package testutil provides helpers for integration tests that need a
// live Redis coordination backend.
package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisAddr returns the address of the test Redis instance from
// SWADM_TEST_REDIS_ADDR, or the conventional local default.
func RedisAddr() string {
	if addr := os.Getenv("SWADM_TEST_REDIS_ADDR"); addr != "" {
		return addr
	}
	return "127.0.0.1:6379"
}

// SkipIfNoRedis skips the test if the test Redis is not reachable.
func SkipIfNoRedis(t *testing.T) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	client := redis.NewClient(&redis.Options{Addr: RedisAddr()})
	defer client.Close()

	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("test Redis not reachable at %s: %v", RedisAddr(), err)
	}
}

// NewRedisClient returns a client for the test Redis, closed on cleanup.
func NewRedisClient(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: RedisAddr()})
	t.Cleanup(func() { client.Close() })
	return client
}

// FlushKeys deletes all keys matching pattern in the test Redis.
func FlushKeys(t *testing.T, client *redis.Client, pattern string) {
	t.Helper()

	ctx := context.Background()
	keys, err := client.Keys(ctx, pattern).Result()
	if err != nil {
		t.Fatalf("listing keys %q: %v", pattern, err)
	}
	if len(keys) > 0 {
		if err := client.Del(ctx, keys...).Err(); err != nil {
			t.Fatalf("deleting keys %q: %v", pattern, err)
		}
	}
}
