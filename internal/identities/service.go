// Package identities manages chat identity records and their GitHub linkage.
package identities

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/gitpingio/gitping/internal/db"
	"github.com/gitpingio/gitping/internal/db/sqlc"
)

// Service owns all reads and writes of identity records. The github token
// column is only ever written by Link, Unlink, and Delete.
type Service struct {
	queries *sqlc.Queries
	logger  *slog.Logger
}

// NewService creates an identity service.
func NewService(log *slog.Logger, queries *sqlc.Queries) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		queries: queries,
		logger:  log.With(slog.String("service", "identities")),
	}
}

// GetByKey returns the identity for the given key, or ErrIdentityNotFound.
func (s *Service) GetByKey(ctx context.Context, identityKey string) (Identity, error) {
	if s.queries == nil {
		return Identity{}, errors.New("identity queries not configured")
	}
	key, err := normalizeKey(identityKey)
	if err != nil {
		return Identity{}, err
	}
	row, err := s.queries.GetIdentityByKey(ctx, key)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Identity{}, ErrIdentityNotFound
		}
		return Identity{}, err
	}
	return toIdentity(row), nil
}

// Ensure returns the identity for the given key, creating the record if absent.
func (s *Service) Ensure(ctx context.Context, identityKey string) (Identity, error) {
	if s.queries == nil {
		return Identity{}, errors.New("identity queries not configured")
	}
	key, err := normalizeKey(identityKey)
	if err != nil {
		return Identity{}, err
	}
	row, err := s.queries.EnsureIdentity(ctx, key)
	if err != nil {
		return Identity{}, fmt.Errorf("ensure identity: %w", err)
	}
	return toIdentity(row), nil
}

// Linked reports whether the identity exists and has a github token.
func (s *Service) Linked(ctx context.Context, identityKey string) (bool, error) {
	identity, err := s.GetByKey(ctx, identityKey)
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			return false, nil
		}
		return false, err
	}
	return identity.Linked, nil
}

// Token returns the stored github token for the identity, or "" when unlinked.
func (s *Service) Token(ctx context.Context, identityKey string) (string, error) {
	if s.queries == nil {
		return "", errors.New("identity queries not configured")
	}
	key, err := normalizeKey(identityKey)
	if err != nil {
		return "", err
	}
	row, err := s.queries.GetIdentityByKey(ctx, key)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrIdentityNotFound
		}
		return "", err
	}
	return db.TextToString(row.GithubToken), nil
}

// Link stores the github token for the identity, creating the record if absent.
func (s *Service) Link(ctx context.Context, identityKey, token string) (Identity, error) {
	if s.queries == nil {
		return Identity{}, errors.New("identity queries not configured")
	}
	key, err := normalizeKey(identityKey)
	if err != nil {
		return Identity{}, err
	}
	if strings.TrimSpace(token) == "" {
		return Identity{}, errors.New("token is required")
	}
	row, err := s.queries.LinkIdentity(ctx, sqlc.LinkIdentityParams{
		IdentityKey: key,
		GithubToken: pgtype.Text{String: token, Valid: true},
	})
	if err != nil {
		return Identity{}, fmt.Errorf("link identity: %w", err)
	}
	s.logger.Info("identity linked", slog.String("identity_key", key))
	return toIdentity(row), nil
}

// Unlink clears the github token; the identity record itself persists.
func (s *Service) Unlink(ctx context.Context, identityKey string) (Identity, error) {
	if s.queries == nil {
		return Identity{}, errors.New("identity queries not configured")
	}
	key, err := normalizeKey(identityKey)
	if err != nil {
		return Identity{}, err
	}
	row, err := s.queries.UnlinkIdentity(ctx, key)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Identity{}, ErrIdentityNotFound
		}
		return Identity{}, fmt.Errorf("unlink identity: %w", err)
	}
	s.logger.Info("identity unlinked", slog.String("identity_key", key))
	return toIdentity(row), nil
}

// SetMuted toggles notification suppression for the identity.
func (s *Service) SetMuted(ctx context.Context, identityKey string, muted bool) (Identity, error) {
	if s.queries == nil {
		return Identity{}, errors.New("identity queries not configured")
	}
	key, err := normalizeKey(identityKey)
	if err != nil {
		return Identity{}, err
	}
	row, err := s.queries.SetIdentityMuted(ctx, sqlc.SetIdentityMutedParams{
		IdentityKey:        key,
		NotificationsMuted: muted,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Identity{}, ErrIdentityNotFound
		}
		return Identity{}, fmt.Errorf("set muted: %w", err)
	}
	return toIdentity(row), nil
}

// Delete removes the identity record; subscriptions cascade at the schema level.
func (s *Service) Delete(ctx context.Context, identityKey string) error {
	if s.queries == nil {
		return errors.New("identity queries not configured")
	}
	key, err := normalizeKey(identityKey)
	if err != nil {
		return err
	}
	affected, err := s.queries.DeleteIdentityByKey(ctx, key)
	if err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}
	if affected == 0 {
		return ErrIdentityNotFound
	}
	s.logger.Info("identity deleted", slog.String("identity_key", key))
	return nil
}

func normalizeKey(raw string) (string, error) {
	key := strings.TrimSpace(raw)
	if key == "" {
		return "", errors.New("identity key is required")
	}
	return key, nil
}

func toIdentity(row sqlc.Identity) Identity {
	return Identity{
		ID:                 db.UUIDToString(row.ID),
		IdentityKey:        row.IdentityKey,
		Linked:             db.TextToString(row.GithubToken) != "",
		NotificationsMuted: row.NotificationsMuted,
		CreatedAt:          db.TimeFromPg(row.CreatedAt),
		UpdatedAt:          db.TimeFromPg(row.UpdatedAt),
	}
}
