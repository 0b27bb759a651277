package service

import (
	"context"
	"fmt"
	"time"

	"journal-identity/internal/security"
	"journal-identity/internal/session/domain"
	telemetrydomain "journal-identity/internal/telemetry/domain"
)

// reuseRevokeTimeout bounds the detached revoke issued on token reuse.
const reuseRevokeTimeout = 5 * time.Second

// Refresh rotates the session's refresh secret. A secret that does not match
// the stored hash, or that loses the compare-and-swap on rotation_counter to a
// concurrent rotation, revokes the whole session and yields ErrTokenReused.
func (s *Service) Refresh(ctx context.Context, sessionID, presentedSecret string) (*Tokens, error) {
	now := s.clock.Now().UTC()
	sess, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, storeErr("load session", err)
	}
	if sess == nil || !sess.ActiveAt(now) {
		state := "absent"
		if sess != nil {
			state = string(sess.StateAt(now))
		}
		s.logger.InfoContext(ctx, "refresh rejected", "session_id", sessionID, "state", state)
		return nil, ErrSessionInvalid
	}

	if !security.RefreshSecretHashEqual(presentedSecret, sess.RefreshSecretHash) {
		return nil, s.revokeForReuse(ctx, sess, "secret_mismatch")
	}

	raw, hash, err := security.NewRefreshSecret()
	if err != nil {
		return nil, err
	}
	// Minted before the swap: once the counter moves, the old secret is spent
	// and the caller must be able to receive the new pair.
	access, exp, err := s.tokens.IssueAccess(sess.UserID, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	next := sess.RotationCounter + 1
	swapped, err := s.repo.ConditionalUpdate(ctx, sess.ID, sess.RotationCounter, hash, next, now)
	if err != nil {
		return nil, storeErr("rotate session", err)
	}
	if !swapped {
		return nil, s.revokeForReuse(ctx, sess, "rotation_race")
	}

	rotated := *sess
	rotated.RefreshSecretHash = hash
	rotated.RotationCounter = next
	rotated.LastRotatedAt = now

	s.metrics.RecordRotation(ctx)
	s.logger.DebugContext(ctx, "session rotated", "session_id", sess.ID, "rotation_counter", next)
	s.emit(telemetrydomain.EventSessionRotated, &rotated, "")
	return &Tokens{
		AccessToken:     access,
		AccessExpiresAt: exp,
		RefreshToken:    FormatRefreshToken(sess.ID, raw),
		Session:         &rotated,
	}, nil
}

// RefreshToken parses a wire-form refresh token and rotates it.
func (s *Service) RefreshToken(ctx context.Context, token string) (*Tokens, error) {
	sessionID, secret, err := ParseRefreshToken(token)
	if err != nil {
		return nil, err
	}
	return s.Refresh(ctx, sessionID, secret)
}

// revokeForReuse revokes the session and returns ErrTokenReused. The revoke
// runs detached from ctx so a client that disconnects mid-request cannot leave
// a replayed session alive. A failed revoke is logged; the caller still sees
// ErrTokenReused.
func (s *Service) revokeForReuse(ctx context.Context, sess *domain.Session, reason string) error {
	now := s.clock.Now().UTC()
	s.metrics.RecordReuse(ctx)
	revokeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), reuseRevokeTimeout)
	defer cancel()
	changed, err := s.repo.Revoke(revokeCtx, sess.ID, now)
	if err != nil {
		s.logger.ErrorContext(ctx, "revoke after token reuse failed",
			"session_id", sess.ID, "user_id", sess.UserID, "reason", reason, "error", err)
	} else if changed {
		s.metrics.RecordRevocation(ctx, "reuse")
	}
	s.logger.WarnContext(ctx, "refresh token reuse detected; session revoked",
		"session_id", sess.ID, "user_id", sess.UserID, "reason", reason)
	s.emit(telemetrydomain.EventTokenReuse, sess, reason)
	return ErrTokenReused
}

// Revoke sets revoked_at on the session if unset. Idempotent; unknown ids are
// a no-op and emit nothing.
func (s *Service) Revoke(ctx context.Context, sessionID string) error {
	changed, err := s.repo.Revoke(ctx, sessionID, s.clock.Now().UTC())
	if err != nil {
		return storeErr("revoke session", err)
	}
	if !changed {
		return nil
	}
	s.metrics.RecordRevocation(ctx, "revoke")
	s.logger.InfoContext(ctx, "session revoked", "session_id", sessionID)
	s.emit(telemetrydomain.EventSessionRevoked, &domain.Session{ID: sessionID}, "revoke")
	return nil
}

// Logout revokes the session only when presentedSecret is its current refresh
// secret. A mismatch returns ErrSessionInvalid and leaves the session untouched,
// so a forged logout cannot end someone else's session. Logging out an already
// revoked or expired session succeeds.
func (s *Service) Logout(ctx context.Context, sessionID, presentedSecret string) error {
	sess, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		return storeErr("load session", err)
	}
	if sess == nil || !security.RefreshSecretHashEqual(presentedSecret, sess.RefreshSecretHash) {
		return ErrSessionInvalid
	}
	if sess.RevokedAt != nil {
		return nil
	}
	changed, err := s.repo.Revoke(ctx, sess.ID, s.clock.Now().UTC())
	if err != nil {
		return storeErr("revoke session", err)
	}
	if !changed {
		return nil
	}
	s.metrics.RecordRevocation(ctx, "logout")
	s.logger.InfoContext(ctx, "session logged out", "session_id", sess.ID, "user_id", sess.UserID)
	s.emit(telemetrydomain.EventSessionRevoked, sess, "logout")
	return nil
}

// RevokeAllForUser revokes every active session of userID and returns how many were revoked.
func (s *Service) RevokeAllForUser(ctx context.Context, userID string) (int64, error) {
	n, err := s.repo.RevokeAllByUser(ctx, userID, s.clock.Now().UTC())
	if err != nil {
		return 0, storeErr("revoke user sessions", err)
	}
	s.metrics.RecordRevocation(ctx, "revoke_all")
	s.logger.InfoContext(ctx, "user sessions revoked", "user_id", userID, "count", n)
	s.emit(telemetrydomain.EventSessionsRevoked, &domain.Session{UserID: userID}, "revoke_all")
	return n, nil
}

// ActiveSession returns the session if it is active now, else ErrSessionInvalid.
func (s *Service) ActiveSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	sess, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, storeErr("load session", err)
	}
	if sess == nil || !sess.ActiveAt(s.clock.Now().UTC()) {
		return nil, ErrSessionInvalid
	}
	return sess, nil
}

// Authenticate validates an access token. Validation is stateless unless
// checkSession is set, in which case the session must also still be active
// and belong to the token's subject.
func (s *Service) Authenticate(ctx context.Context, accessToken string, checkSession bool) (*security.AccessClaims, error) {
	claims, err := s.tokens.ValidateAccess(accessToken)
	if err != nil {
		return nil, err
	}
	if !checkSession {
		return claims, nil
	}
	sess, err := s.ActiveSession(ctx, claims.SessionID)
	if err != nil {
		return nil, err
	}
	if sess.UserID != claims.Subject {
		return nil, ErrSessionInvalid
	}
	return claims, nil
}

// Ping reports whether the session store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	if err := s.repo.Ping(ctx); err != nil {
		return storeErr("ping", err)
	}
	return nil
}
