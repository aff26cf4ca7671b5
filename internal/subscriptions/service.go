// Package subscriptions manages per-identity repository watch rules.
package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gitpingio/gitping/internal/db"
	"github.com/gitpingio/gitping/internal/db/sqlc"
)

// WebhookRegistrar registers a push webhook on the watched repository.
// Registration is a one-shot administrative action; failures are logged and
// never roll back subscription creation.
type WebhookRegistrar interface {
	RegisterPushWebhook(ctx context.Context, token, owner, repo, callbackURL string) error
}

// TokenSource resolves the stored github token for an identity.
type TokenSource interface {
	Token(ctx context.Context, identityKey string) (string, error)
}

// Service manages subscription lifecycle. Seq assignment is a per-identity
// monotonic high-watermark persisted on the identity row (last_seq) and
// bumped while holding the row lock, so concurrent creates for the same
// identity serialize and deleted seqs are never reused, even when the
// highest-numbered subscription is removed.
type Service struct {
	pool       *pgxpool.Pool
	queries    *sqlc.Queries
	registrar  WebhookRegistrar
	tokens     TokenSource
	webhookURL string
	logger     *slog.Logger
}

// NewService creates a subscription service. registrar and tokens may be nil
// to disable webhook registration.
func NewService(log *slog.Logger, pool *pgxpool.Pool, queries *sqlc.Queries, registrar WebhookRegistrar, tokens TokenSource, webhookURL string) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		pool:       pool,
		queries:    queries,
		registrar:  registrar,
		tokens:     tokens,
		webhookURL: strings.TrimSpace(webhookURL),
		logger:     log.With(slog.String("service", "subscriptions")),
	}
}

// Create inserts a new subscription for the identity and returns it.
// The identity must already exist. After the insert commits, a push webhook
// is registered on the repository best-effort.
func (s *Service) Create(ctx context.Context, identityKey string, req CreateRequest) (Subscription, error) {
	if s.queries == nil || s.pool == nil {
		return Subscription{}, errors.New("subscription service not configured")
	}
	key := strings.TrimSpace(identityKey)
	owner := strings.TrimSpace(req.RepoOwner)
	name := strings.TrimSpace(req.RepoName)
	pattern := strings.TrimSpace(req.Pattern)
	if key == "" {
		return Subscription{}, errors.New("identity key is required")
	}
	if owner == "" || name == "" || pattern == "" {
		return Subscription{}, errors.New("repo owner, repo name, and pattern are required")
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Subscription{}, fmt.Errorf("begin subscription tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()
	qtx := s.queries.WithTx(tx)

	identity, err := qtx.GetIdentityForUpdate(ctx, key)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Subscription{}, ErrIdentityNotFound
		}
		return Subscription{}, fmt.Errorf("lock identity: %w", err)
	}

	seq, err := qtx.BumpIdentitySeq(ctx, identity.ID)
	if err != nil {
		return Subscription{}, fmt.Errorf("subscription seq: %w", err)
	}
	row, err := qtx.CreateSubscription(ctx, sqlc.CreateSubscriptionParams{
		IdentityID: identity.ID,
		Seq:        seq,
		RepoOwner:  owner,
		RepoName:   name,
		Pattern:    pattern,
	})
	if err != nil {
		return Subscription{}, fmt.Errorf("create subscription: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return Subscription{}, fmt.Errorf("commit subscription: %w", err)
	}

	s.logger.Info("subscription created",
		slog.String("identity_key", key),
		slog.Int("seq", int(row.Seq)),
		slog.String("repo", owner+"/"+name),
		slog.String("pattern", pattern),
	)
	s.registerWebhook(ctx, key, owner, name)
	return toSubscription(row, key), nil
}

// List returns all subscriptions owned by the identity, ordered by seq.
func (s *Service) List(ctx context.Context, identityKey string) ([]Subscription, error) {
	if s.queries == nil {
		return nil, errors.New("subscription service not configured")
	}
	key := strings.TrimSpace(identityKey)
	identity, err := s.queries.GetIdentityByKey(ctx, key)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrIdentityNotFound
		}
		return nil, err
	}
	rows, err := s.queries.ListSubscriptionsByIdentity(ctx, identity.ID)
	if err != nil {
		return nil, err
	}
	items := make([]Subscription, 0, len(rows))
	for _, row := range rows {
		items = append(items, toSubscription(row, key))
	}
	return items, nil
}

// Delete removes the subscription with the given seq, scoped to the identity.
// The seq is not reused by later creates.
func (s *Service) Delete(ctx context.Context, identityKey string, seq int) error {
	if s.queries == nil {
		return errors.New("subscription service not configured")
	}
	key := strings.TrimSpace(identityKey)
	identity, err := s.queries.GetIdentityByKey(ctx, key)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrIdentityNotFound
		}
		return err
	}
	affected, err := s.queries.DeleteSubscriptionBySeq(ctx, sqlc.DeleteSubscriptionBySeqParams{
		IdentityID: identity.ID,
		Seq:        int32(seq),
	})
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	if affected == 0 {
		return ErrSubscriptionNotFound
	}
	s.logger.Info("subscription deleted", slog.String("identity_key", key), slog.Int("seq", seq))
	return nil
}

// ListByRepo returns every subscription watching the given repository across
// all identities, joined with the owner's mute flag.
func (s *Service) ListByRepo(ctx context.Context, owner, repo string) ([]RepoSubscription, error) {
	if s.queries == nil {
		return nil, errors.New("subscription service not configured")
	}
	rows, err := s.queries.ListSubscriptionsByRepo(ctx, sqlc.ListSubscriptionsByRepoParams{
		RepoOwner: strings.TrimSpace(owner),
		RepoName:  strings.TrimSpace(repo),
	})
	if err != nil {
		return nil, err
	}
	items := make([]RepoSubscription, 0, len(rows))
	for _, row := range rows {
		items = append(items, RepoSubscription{
			IdentityKey: row.IdentityKey,
			Seq:         int(row.Seq),
			RepoOwner:   row.RepoOwner,
			RepoName:    row.RepoName,
			Pattern:     row.Pattern,
			Muted:       row.NotificationsMuted,
		})
	}
	return items, nil
}

func (s *Service) registerWebhook(ctx context.Context, identityKey, owner, repo string) {
	if s.registrar == nil || s.tokens == nil || s.webhookURL == "" {
		return
	}
	token, err := s.tokens.Token(ctx, identityKey)
	if err != nil || token == "" {
		s.logger.Warn("webhook registration skipped: no token",
			slog.String("identity_key", identityKey),
			slog.String("repo", owner+"/"+repo),
		)
		return
	}
	if err := s.registrar.RegisterPushWebhook(ctx, token, owner, repo, s.webhookURL); err != nil {
		s.logger.Warn("webhook registration failed",
			slog.String("repo", owner+"/"+repo),
			slog.Any("error", err),
		)
	}
}

func toSubscription(row sqlc.Subscription, identityKey string) Subscription {
	return Subscription{
		ID:          db.UUIDToString(row.ID),
		IdentityKey: identityKey,
		Seq:         int(row.Seq),
		RepoOwner:   row.RepoOwner,
		RepoName:    row.RepoName,
		Pattern:     row.Pattern,
		CreatedAt:   db.TimeFromPg(row.CreatedAt),
	}
}
