// Package util provides logging helpers and common error types.
package util

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the failure kinds surfaced by switch operations
var (
	ErrUnsupportedDialect = errors.New("unsupported CLI dialect")
	ErrLockTimeout        = errors.New("lock pool exhausted")
	ErrConnectionFailed   = errors.New("switch connection failed")
	ErrDeviceRejected     = errors.New("command rejected by device")
	ErrMalformedOutput    = errors.New("malformed device output")
	ErrInvalidConfig      = errors.New("invalid configuration")
)

// UnsupportedDialectError is raised at profile construction when the
// requested dialect tag is not registered. Never retried.
type UnsupportedDialectError struct {
	Dialect string
}

func (e *UnsupportedDialectError) Error() string {
	return fmt.Sprintf("CLI dialect %q is not supported", e.Dialect)
}

func (e *UnsupportedDialectError) Unwrap() error {
	return ErrUnsupportedDialect
}

// LockTimeoutError indicates that no lock slot for the device became free
// within the acquire window. The operation was never attempted.
type LockTimeoutError struct {
	Device   string
	PoolSize int
}

func (e *LockTimeoutError) Error() string {
	return fmt.Sprintf("timed out waiting for one of %d session slots on %s", e.PoolSize, e.Device)
}

func (e *LockTimeoutError) Unwrap() error {
	return ErrLockTimeout
}

// ConnectionError indicates that connect retries against the device were
// exhausted. Carries the device address and the last transport cause.
type ConnectionError struct {
	Addr string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connecting to switch %s: %v", e.Addr, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return ErrConnectionFailed
}

// Cause returns the underlying transport error.
func (e *ConnectionError) Cause() error {
	return e.Err
}

// DeviceRejectedError indicates the device echoed a recognized error marker
// for a specific command. Commands already committed remain applied.
type DeviceRejectedError struct {
	Command string
	Output  string
}

func (e *DeviceRejectedError) Error() string {
	out := strings.TrimSpace(e.Output)
	if len(out) > 200 {
		out = out[:200] + "..."
	}
	return fmt.Sprintf("device rejected %q: %s", e.Command, out)
}

func (e *DeviceRejectedError) Unwrap() error {
	return ErrDeviceRejected
}

// MalformedOutputError indicates a table line from a query response could
// not be parsed into the expected fields.
type MalformedOutputError struct {
	Line string
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("malformed table line %q", e.Line)
}

func (e *MalformedOutputError) Unwrap() error {
	return ErrMalformedOutput
}
