package authflow

import (
	"context"
	"errors"

	"github.com/gitpingio/gitping/internal/githubapi"
)

// State is the lifecycle state of one device-flow attempt.
type State string

const (
	StatePolling   State = "polling"
	StateSucceeded State = "succeeded"
	StateTimedOut  State = "timed_out"
	StateFailed    State = "failed"
)

// ErrAttemptPending is returned when a device-flow attempt is already in
// flight for the identity. A second attempt is rejected rather than
// superseding the first, so a user mid-approval is never cancelled.
var ErrAttemptPending = errors.New("authorization attempt already pending")

// Provider is the external authorization provider (GitHub device flow).
type Provider interface {
	RequestDeviceGrant(ctx context.Context) (githubapi.DeviceGrant, error)
	PollToken(ctx context.Context, deviceCode string) (string, error)
}

// Linker is the identity store surface the coordinator writes through.
type Linker interface {
	Linked(ctx context.Context, identityKey string) (bool, error)
	Link(ctx context.Context, identityKey, token string) error
}

// Notifier delivers a short message to the identity's chat. Best-effort:
// the coordinator logs and drops delivery failures.
type Notifier interface {
	Send(ctx context.Context, identityKey, text string) error
}

// BeginResult is the synchronous outcome of Begin. Either AlreadyLinked is
// set, or the verification material for the user to approve the device.
type BeginResult struct {
	AlreadyLinked   bool   `json:"already_linked"`
	VerificationURI string `json:"verification_uri,omitempty"`
	UserCode        string `json:"user_code,omitempty"`
}
