package util

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorUnwrapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{
			name:     "unsupported dialect",
			err:      &UnsupportedDialectError{Dialect: "juniper"},
			sentinel: ErrUnsupportedDialect,
		},
		{
			name:     "lock timeout",
			err:      &LockTimeoutError{Device: "10.0.0.1", PoolSize: 2},
			sentinel: ErrLockTimeout,
		},
		{
			name:     "connection failure",
			err:      &ConnectionError{Addr: "10.0.0.1", Err: errors.New("EOF")},
			sentinel: ErrConnectionFailed,
		},
		{
			name:     "device rejected",
			err:      &DeviceRejectedError{Command: "shutdown", Output: "Error: no such interface"},
			sentinel: ErrDeviceRejected,
		},
		{
			name:     "malformed output",
			err:      &MalformedOutputError{Line: "0011-2233"},
			sentinel: ErrMalformedOutput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.sentinel) {
				t.Errorf("errors.Is(%v, %v) = false, want true", tt.err, tt.sentinel)
			}
		})
	}
}

func TestConnectionErrorCarriesAddressAndCause(t *testing.T) {
	cause := errors.New("ssh: handshake failed")
	err := &ConnectionError{Addr: "192.168.1.1", Err: cause}

	if !strings.Contains(err.Error(), "192.168.1.1") {
		t.Errorf("error %q does not mention device address", err.Error())
	}
	if err.Cause() != cause {
		t.Errorf("Cause() = %v, want %v", err.Cause(), cause)
	}
}

func TestDeviceRejectedErrorTruncatesLongOutput(t *testing.T) {
	long := strings.Repeat("x", 500)
	err := &DeviceRejectedError{Command: "display mac-address", Output: long}

	if len(err.Error()) >= 500 {
		t.Errorf("error message not truncated: %d chars", len(err.Error()))
	}
	if !strings.Contains(err.Error(), "...") {
		t.Errorf("truncated message missing ellipsis: %q", err.Error())
	}
}

func TestWrappedErrorsSurviveFmtErrorf(t *testing.T) {
	inner := &LockTimeoutError{Device: "10.0.0.1", PoolSize: 4}
	wrapped := fmt.Errorf("set vlan on 10.0.0.1: %w", inner)

	if !errors.Is(wrapped, ErrLockTimeout) {
		t.Error("sentinel lost through fmt.Errorf wrapping")
	}

	var lt *LockTimeoutError
	if !errors.As(wrapped, &lt) {
		t.Fatal("typed error lost through fmt.Errorf wrapping")
	}
	if lt.PoolSize != 4 {
		t.Errorf("PoolSize = %d, want 4", lt.PoolSize)
	}
}
