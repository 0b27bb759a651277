package repository

import (
	"context"
	"time"

	"journal-identity/internal/session/domain"
)

// Repository defines persistence for sessions. Sessions are mutated only
// through ConditionalUpdate (rotation) and the revoke methods.
type Repository interface {
	// Create inserts a new session. The session must have ID set.
	Create(ctx context.Context, s *domain.Session) error
	// GetByID returns the session for id, or nil if not found.
	// It returns an error only for storage failures, not for missing rows.
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	// ConditionalUpdate installs newHash and newCounter only if the stored
	// rotation counter still equals expectedCounter and the session is not
	// revoked. Reports whether the swap happened.
	ConditionalUpdate(ctx context.Context, id string, expectedCounter int64, newHash string, newCounter int64, rotatedAt time.Time) (bool, error)
	// Revoke sets revoked_at = at if unset and reports whether a row changed.
	// Idempotent; unknown or already revoked ids report false.
	Revoke(ctx context.Context, id string, at time.Time) (bool, error)
	// RevokeAllByUser revokes every unrevoked session of userID and returns how many changed.
	RevokeAllByUser(ctx context.Context, userID string, at time.Time) (int64, error)
	// Ping checks that the backing store is reachable.
	Ping(ctx context.Context) error
}
