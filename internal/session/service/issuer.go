package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"journal-identity/internal/security"
	"journal-identity/internal/session/domain"
	"journal-identity/internal/session/repository"
	telemetrydomain "journal-identity/internal/telemetry/domain"
)

const csrfSecretBytes = 32

// CreateSession persists a new session for userID and returns it with the raw
// refresh token in wire form. Only the hash of the refresh secret is stored.
func (s *Service) CreateSession(ctx context.Context, userID string, device domain.DeviceMetadata) (*domain.Session, string, error) {
	if userID == "" {
		return nil, "", errors.New("user id is required")
	}
	raw, hash, err := security.NewRefreshSecret()
	if err != nil {
		return nil, "", err
	}
	csrfSecret, err := security.RandomToken(csrfSecretBytes)
	if err != nil {
		return nil, "", err
	}
	now := s.clock.Now().UTC()
	sess := &domain.Session{
		ID:                uuid.New().String(),
		UserID:            userID,
		RefreshSecretHash: hash,
		RotationCounter:   0,
		CSRFSecret:        csrfSecret,
		Device:            device,
		CreatedAt:         now,
		LastRotatedAt:     now,
		ExpiresAt:         now.Add(s.sessionTTL),
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		if errors.Is(err, repository.ErrDuplicateSession) {
			return nil, "", fmt.Errorf("create session: %w", err)
		}
		return nil, "", storeErr("create session", err)
	}
	s.logger.InfoContext(ctx, "session created", "session_id", sess.ID, "user_id", userID)
	s.emit(telemetrydomain.EventSessionCreated, sess, "")
	return sess, FormatRefreshToken(sess.ID, raw), nil
}

// StartSession creates a session and issues its first access token. Used by login.
func (s *Service) StartSession(ctx context.Context, userID string, device domain.DeviceMetadata) (*Tokens, error) {
	sess, refresh, err := s.CreateSession(ctx, userID, device)
	if err != nil {
		return nil, err
	}
	access, exp, err := s.tokens.IssueAccess(userID, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	return &Tokens{AccessToken: access, AccessExpiresAt: exp, RefreshToken: refresh, Session: sess}, nil
}
