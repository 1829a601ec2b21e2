package retry

import "time"

// Default connect policy parameters; overridable per device via config.
const (
	DefaultConnectTimeout  = 60 * time.Second
	DefaultConnectInterval = 10 * time.Second
)

// Save retries jitter in a bounded range to avoid thundering-herd retries
// against one device.
const (
	saveWaitMin  = 2 * time.Second
	saveWaitMax  = 6 * time.Second
	saveDeadline = 30 * time.Second
)

// ConnectPolicy retries transport-level connection failures at a fixed
// interval until the timeout, then reraises. Failing to obtain a session
// is fatal to the calling operation.
func ConnectPolicy(timeout, interval time.Duration) Policy {
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	if interval <= 0 {
		interval = DefaultConnectInterval
	}
	return Policy{
		Retryable: IsRetryableConnectErr,
		Wait:      FixedWait(interval),
		Deadline:  timeout,
		Reraise:   true,
	}
}

// SavePolicy retries the persistence step with randomized jitter and
// swallows exhaustion: the configuration is already applied to running
// state, so losing the save is non-fatal.
func SavePolicy() Policy {
	return Policy{
		Wait:     RandomWait(saveWaitMin, saveWaitMax),
		Deadline: saveDeadline,
		Reraise:  false,
	}
}
