// Package retry runs operations under an explicit retry policy: a
// predicate over the error, a wait strategy, and a deadline. Connect
// failures propagate after exhaustion; save failures are swallowed
// since the configuration is already applied to running state.
package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// WaitFunc returns the delay before the next attempt.
type WaitFunc func(attempt int) time.Duration

// FixedWait waits a constant interval between attempts.
func FixedWait(d time.Duration) WaitFunc {
	return func(int) time.Duration { return d }
}

// RandomWait waits a uniformly random interval in [min, max], spreading
// retries from concurrent callers against one device.
func RandomWait(min, max time.Duration) WaitFunc {
	return func(int) time.Duration {
		return min + time.Duration(rand.Int63n(int64(max-min)+1))
	}
}

// Policy controls how Do retries an operation.
type Policy struct {
	// Retryable decides whether an error is worth another attempt.
	// A nil predicate retries every error.
	Retryable func(error) bool

	// Wait produces the delay before each retry.
	Wait WaitFunc

	// Deadline bounds the total elapsed time across all attempts.
	Deadline time.Duration

	// Reraise controls exhaustion behavior: when true, Do returns an
	// ExhaustedError wrapping the last error; when false, Do returns the
	// last observed result with a nil error.
	Reraise bool
}

// ExhaustedError reports that the policy deadline elapsed without success.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts: %v", e.Attempts, e.Last)
}

// Unwrap exposes the last attempt's error.
func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// Do runs op under the policy. Each failed attempt is logged at debug
// level with the attempt count. A non-retryable error returns immediately.
// Context cancellation aborts the inter-attempt wait.
func Do[T any](ctx context.Context, log *logrus.Entry, p Policy, op func() (T, error)) (T, error) {
	var zero T
	deadline := time.Now().Add(p.Deadline)

	var last T
	var lastErr error
	attempts := 0
	for attempt := 1; ; attempt++ {
		result, err := op()
		attempts = attempt
		if err == nil {
			return result, nil
		}
		last, lastErr = result, err

		if p.Retryable != nil && !p.Retryable(err) {
			return zero, err
		}

		log.WithField("attempt", attempt).Debugf("attempt failed: %v", err)

		wait := p.Wait(attempt)
		if time.Now().Add(wait).After(deadline) {
			break
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(wait):
		}
	}

	if p.Reraise {
		return zero, &ExhaustedError{Attempts: attempts, Last: lastErr}
	}
	// Exhaustion is non-fatal under this policy: hand back whatever the
	// last attempt produced.
	return last, nil
}

// IsRetryableConnectErr classifies transport-level failures that warrant
// another connection attempt: protocol errors, end-of-stream, and network
// timeouts. Authentication and context errors are not retryable.
func IsRetryableConnectErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	// x/crypto/ssh wraps protocol and handshake failures in fmt errors
	// with an "ssh:" prefix rather than typed errors.
	return strings.Contains(err.Error(), "ssh:")
}
