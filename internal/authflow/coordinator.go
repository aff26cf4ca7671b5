// Package authflow coordinates GitHub device-flow authorization attempts.
//
// One attempt per identity may be in flight at a time. Each attempt polls the
// provider on a provider-dictated cadence until it yields a credential, a
// terminal error, or the grant's expiry deadline fires, whichever comes
// first. The terminal store write and notification happen exactly once, in
// that order.
package authflow

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gitpingio/gitping/internal/githubapi"
)

// User-facing outcome messages. Short and non-technical; provider error text
// never reaches the user.
const (
	msgLinked   = "GitHub account linked. You will now receive push notifications for your subscriptions."
	msgTimedOut = "GitHub login timed out. Send /login to try again."
	msgFailed   = "GitHub login failed. Send /login to try again."
)

// Attempt is one in-flight device-flow authorization.
type Attempt struct {
	identityKey string

	mu    sync.Mutex
	state State
	done  chan struct{}
}

// State returns the attempt's current state.
func (a *Attempt) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Done is closed once the attempt reaches a terminal state and all terminal
// effects have been applied.
func (a *Attempt) Done() <-chan struct{} {
	return a.done
}

func (a *Attempt) conclude(state State) {
	a.mu.Lock()
	a.state = state
	a.mu.Unlock()
	close(a.done)
}

// Coordinator runs device-flow attempts. Different identities' attempts are
// fully independent; the only shared state is the in-flight registry.
type Coordinator struct {
	provider Provider
	linker   Linker
	notifier Notifier
	logger   *slog.Logger

	mu      sync.Mutex
	pending map[string]*Attempt

	sleep func(ctx context.Context, d time.Duration) error
}

// NewCoordinator creates an authorization coordinator.
func NewCoordinator(log *slog.Logger, provider Provider, linker Linker, notifier Notifier) *Coordinator {
	if log == nil {
		log = slog.Default()
	}
	return &Coordinator{
		provider: provider,
		linker:   linker,
		notifier: notifier,
		logger:   log.With(slog.String("service", "authflow")),
		pending:  map[string]*Attempt{},
		sleep:    sleepContext,
	}
}

// Begin starts a device-flow attempt for the identity and returns without
// waiting for it to resolve. The returned Attempt is the handle for the
// in-flight attempt (nil when AlreadyLinked).
//
// It short-circuits with AlreadyLinked before any provider call when the
// identity already holds a token, and rejects with ErrAttemptPending when an
// attempt for the identity is already in flight. On success the verification
// material is returned and a polling task owns the rest of the attempt's
// lifetime.
func (c *Coordinator) Begin(ctx context.Context, identityKey string) (BeginResult, *Attempt, error) {
	key := strings.TrimSpace(identityKey)
	if key == "" {
		return BeginResult{}, nil, errors.New("identity key is required")
	}

	linked, err := c.linker.Linked(ctx, key)
	if err != nil {
		return BeginResult{}, nil, err
	}
	if linked {
		return BeginResult{AlreadyLinked: true}, nil, nil
	}

	attempt := &Attempt{
		identityKey: key,
		state:       StatePolling,
		done:        make(chan struct{}),
	}
	c.mu.Lock()
	if _, exists := c.pending[key]; exists {
		c.mu.Unlock()
		return BeginResult{}, nil, ErrAttemptPending
	}
	c.pending[key] = attempt
	c.mu.Unlock()

	grant, err := c.provider.RequestDeviceGrant(ctx)
	if err != nil {
		c.remove(key)
		return BeginResult{}, nil, err
	}

	go c.run(attempt, grant)

	c.logger.Info("authorization started",
		slog.String("identity_key", key),
		slog.Duration("expires_in", grant.ExpiresIn),
		slog.Duration("interval", grant.Interval),
	)
	return BeginResult{
		VerificationURI: grant.VerificationURI,
		UserCode:        grant.UserCode,
	}, attempt, nil
}

// Pending reports whether an attempt is currently in flight for the identity.
func (c *Coordinator) Pending(identityKey string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.pending[strings.TrimSpace(identityKey)]
	return ok
}

// run is the polling task. The context deadline is the grant expiry: once it
// fires the attempt is timed out no matter what any in-flight poll returns.
func (c *Coordinator) run(attempt *Attempt, grant githubapi.DeviceGrant) {
	ctx, cancel := context.WithTimeout(context.Background(), grant.ExpiresIn)
	defer cancel()

	interval := grant.Interval
	for {
		token, err := c.provider.PollToken(ctx, grant.DeviceCode)
		if ctx.Err() != nil {
			// Deadline fired during the poll; a late credential must not link.
			c.finish(attempt, StateTimedOut, "")
			return
		}
		if err == nil {
			c.finish(attempt, StateSucceeded, token)
			return
		}

		var slow *githubapi.SlowDownError
		switch {
		case errors.Is(err, githubapi.ErrAuthorizationPending):
			// Steady state, keep polling.
		case errors.As(err, &slow):
			// The provider's interval is authoritative but never shortens ours.
			if slow.Interval > interval {
				interval = slow.Interval
			}
			c.logger.Info("provider requested slow down",
				slog.String("identity_key", attempt.identityKey),
				slog.Duration("interval", interval),
			)
		default:
			c.logger.Warn("token poll failed",
				slog.String("identity_key", attempt.identityKey),
				slog.Any("error", err),
			)
			c.finish(attempt, StateFailed, "")
			return
		}

		if err := c.sleep(ctx, interval); err != nil {
			c.finish(attempt, StateTimedOut, "")
			return
		}
	}
}

// finish applies the terminal effects exactly once: registry removal, the
// store write (success path only), then the notification. The write is
// authoritative; if it fails the success message is withheld and the attempt
// concludes as failed instead.
func (c *Coordinator) finish(attempt *Attempt, state State, token string) {
	c.remove(attempt.identityKey)

	// Terminal effects use a fresh context: the deadline that ended polling
	// must not cancel the store write or notification.
	ctx := context.Background()

	text := ""
	switch state {
	case StateSucceeded:
		if err := c.linker.Link(ctx, attempt.identityKey, token); err != nil {
			c.logger.Error("store token failed",
				slog.String("identity_key", attempt.identityKey),
				slog.Any("error", err),
			)
			state = StateFailed
			text = msgFailed
			break
		}
		text = msgLinked
	case StateTimedOut:
		text = msgTimedOut
	default:
		text = msgFailed
	}

	if err := c.notifier.Send(ctx, attempt.identityKey, text); err != nil {
		c.logger.Warn("outcome notification failed",
			slog.String("identity_key", attempt.identityKey),
			slog.Any("error", err),
		)
	}

	c.logger.Info("authorization finished",
		slog.String("identity_key", attempt.identityKey),
		slog.String("state", string(state)),
	)
	attempt.conclude(state)
}

func (c *Coordinator) remove(identityKey string) {
	c.mu.Lock()
	delete(c.pending, identityKey)
	c.mu.Unlock()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
