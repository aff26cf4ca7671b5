// Package dispatch converts inbound push events into chat notifications by
// matching changed paths against stored subscriptions.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// SubscriptionSource lists every subscription watching a repository, joined
// with the owner's mute flag.
type SubscriptionSource interface {
	ListByRepo(ctx context.Context, owner, repo string) ([]Subscription, error)
}

// Subscription is the dispatcher's view of one watch rule.
type Subscription struct {
	IdentityKey string
	Seq         int
	Pattern     string
	Muted       bool
}

// Notifier delivers a notification to the identity's chat, best-effort.
type Notifier interface {
	Send(ctx context.Context, identityKey, text string) error
}

// Dispatcher is stateless between events: each push is handled as one
// synchronous unit of work against the current store contents. Multiple
// events may be dispatched concurrently.
type Dispatcher struct {
	subs     SubscriptionSource
	notifier Notifier
	logger   *slog.Logger
}

// NewDispatcher creates a push event dispatcher.
func NewDispatcher(log *slog.Logger, subs SubscriptionSource, notifier Notifier) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		subs:     subs,
		notifier: notifier,
		logger:   log.With(slog.String("service", "dispatch")),
	}
}

// HandlePush notifies every identity with a subscription matching the push.
//
// A subscription matches when any changed path matches its pattern, and
// yields at most one notification per event no matter how many paths matched.
// Subscriptions owned by muted identities are skipped silently. Delivery
// failures are logged and do not affect other matches.
func (d *Dispatcher) HandlePush(ctx context.Context, owner, repo string, changedPaths []string) error {
	owner = strings.TrimSpace(owner)
	repo = strings.TrimSpace(repo)
	if owner == "" || repo == "" {
		return fmt.Errorf("push event owner and repo are required")
	}

	subs, err := d.subs.ListByRepo(ctx, owner, repo)
	if err != nil {
		return fmt.Errorf("list subscriptions: %w", err)
	}
	if len(subs) == 0 {
		return nil
	}

	notified := 0
	for _, sub := range subs {
		matched := ""
		for _, changed := range changedPaths {
			if MatchPath(sub.Pattern, changed) {
				matched = changed
				break
			}
		}
		if matched == "" {
			continue
		}
		if sub.Muted {
			continue
		}
		text := fmt.Sprintf("Push to %s/%s touched %s (subscription #%d, pattern %s).",
			owner, repo, matched, sub.Seq, sub.Pattern)
		if err := d.notifier.Send(ctx, sub.IdentityKey, text); err != nil {
			d.logger.Warn("notification delivery failed",
				slog.String("identity_key", sub.IdentityKey),
				slog.Int("seq", sub.Seq),
				slog.Any("error", err),
			)
			continue
		}
		notified++
	}

	d.logger.Info("push dispatched",
		slog.String("repo", owner+"/"+repo),
		slog.Int("changed_paths", len(changedPaths)),
		slog.Int("subscriptions", len(subs)),
		slog.Int("notified", notified),
	)
	return nil
}
