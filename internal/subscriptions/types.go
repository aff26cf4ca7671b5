package subscriptions

import (
	"errors"
	"time"
)

// Errors returned by subscription operations.
var (
	ErrIdentityNotFound     = errors.New("identity not found")
	ErrSubscriptionNotFound = errors.New("subscription not found")
)

// Subscription is one per-identity watch rule: a repository plus a path pattern.
// Seq is unique within the owning identity and is never reused after deletion.
type Subscription struct {
	ID          string    `json:"id"`
	IdentityKey string    `json:"identity_key"`
	Seq         int       `json:"seq"`
	RepoOwner   string    `json:"repo_owner"`
	RepoName    string    `json:"repo_name"`
	Pattern     string    `json:"pattern"`
	CreatedAt   time.Time `json:"created_at"`
}

// RepoSubscription is a subscription joined with its owner's delivery state,
// as consumed by the push dispatcher.
type RepoSubscription struct {
	IdentityKey string
	Seq         int
	RepoOwner   string
	RepoName    string
	Pattern     string
	Muted       bool
}

// CreateRequest is the payload for creating a subscription.
type CreateRequest struct {
	RepoOwner string `json:"repo_owner"`
	RepoName  string `json:"repo_name"`
	Pattern   string `json:"pattern"`
}
