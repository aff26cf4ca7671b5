// Package notify delivers short outbound messages to a chat identity.
//
// Delivery is best-effort and one-way: callers log failures and never retry
// or surface them to the original request path.
package notify

import "context"

// Notifier sends a plain-text message to the identity's chat.
type Notifier interface {
	Send(ctx context.Context, identityKey, text string) error
}
