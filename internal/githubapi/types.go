package githubapi

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidGrant is returned when the device grant response is missing any
// of its required fields. The login attempt aborts before any polling starts.
var ErrInvalidGrant = errors.New("github: device grant missing required fields")

// ErrAuthorizationPending signals the user has not yet approved the device;
// the poll loop continues at the current interval.
var ErrAuthorizationPending = errors.New("github: authorization pending")

// SlowDownError signals the provider wants a longer poll interval.
// The new interval is authoritative and must not be undercut.
type SlowDownError struct {
	Interval time.Duration
}

func (e *SlowDownError) Error() string {
	return fmt.Sprintf("github: slow down, new interval %s", e.Interval)
}

// DeviceGrant is the initial device-flow grant. All fields are required.
type DeviceGrant struct {
	DeviceCode      string
	UserCode        string
	VerificationURI string
	ExpiresIn       time.Duration
	Interval        time.Duration
}
