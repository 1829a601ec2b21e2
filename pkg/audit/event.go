// Package audit records switch configuration changes to a queryable
// JSON-lines trail.
package audit

import (
	"fmt"
	"time"
)

// Event is one auditable provisioning operation against a device.
type Event struct {
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	User      string        `json:"user"`
	Device    string        `json:"device"`
	Operation string        `json:"operation"`
	Ports     []string      `json:"ports,omitempty"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// Filter defines criteria for querying audit events
type Filter struct {
	Device      string
	User        string
	Operation   string
	StartTime   time.Time
	EndTime     time.Time
	SuccessOnly bool
	FailureOnly bool
	Limit       int
	Offset      int
}

// matches reports whether the event satisfies every set criterion.
func (f Filter) matches(e *Event) bool {
	if f.Device != "" && e.Device != f.Device {
		return false
	}
	if f.User != "" && e.User != f.User {
		return false
	}
	if f.Operation != "" && e.Operation != f.Operation {
		return false
	}
	if !f.StartTime.IsZero() && e.Timestamp.Before(f.StartTime) {
		return false
	}
	if !f.EndTime.IsZero() && e.Timestamp.After(f.EndTime) {
		return false
	}
	if f.SuccessOnly && !e.Success {
		return false
	}
	if f.FailureOnly && e.Success {
		return false
	}
	return true
}

// NewEvent creates a new audit event
func NewEvent(user, device, operation string) *Event {
	return &Event{
		ID:        generateID(),
		Timestamp: time.Now(),
		User:      user,
		Device:    device,
		Operation: operation,
	}
}

// WithPorts sets the affected ports
func (e *Event) WithPorts(ports []string) *Event {
	e.Ports = ports
	return e
}

// WithSuccess marks the event as successful
func (e *Event) WithSuccess() *Event {
	e.Success = true
	return e
}

// WithError marks the event as failed
func (e *Event) WithError(err error) *Event {
	e.Success = false
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// WithDuration sets the operation duration
func (e *Event) WithDuration(d time.Duration) *Event {
	e.Duration = d
	return e
}

func generateID() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}
