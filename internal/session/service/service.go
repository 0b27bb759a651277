// Package service implements session issuance and the refresh-token rotation
// protocol with reuse detection.
package service

import (
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"journal-identity/internal/security"
	"journal-identity/internal/session/domain"
	"journal-identity/internal/session/repository"
	"journal-identity/internal/telemetry"
	telemetrydomain "journal-identity/internal/telemetry/domain"
)

// DefaultSessionTTL is the absolute session lifetime when none is configured.
const DefaultSessionTTL = 30 * 24 * time.Hour

// Tokens is the outcome of a login or a successful rotation. RefreshToken is
// the wire form and must only be handed to the client, never logged.
type Tokens struct {
	AccessToken     string
	AccessExpiresAt time.Time
	RefreshToken    string
	Session         *domain.Session
}

// Service owns every write to the session store.
type Service struct {
	repo       repository.Repository
	tokens     *security.TokenProvider
	clock      clockwork.Clock
	sessionTTL time.Duration
	logger     *slog.Logger
	events     telemetry.EventEmitter
	metrics    *telemetry.Metrics
}

// Option configures a Service.
type Option func(*Service)

func WithClock(c clockwork.Clock) Option { return func(s *Service) { s.clock = c } }

func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.logger = l } }

func WithEvents(e telemetry.EventEmitter) Option { return func(s *Service) { s.events = e } }

func WithMetrics(m *telemetry.Metrics) Option { return func(s *Service) { s.metrics = m } }

// WithSessionTTL sets the absolute session lifetime; non-positive keeps the default.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.sessionTTL = ttl
		}
	}
}

// NewService returns a Service. The clock should be the one the TokenProvider uses.
func NewService(repo repository.Repository, tokens *security.TokenProvider, opts ...Option) *Service {
	s := &Service{
		repo:       repo,
		tokens:     tokens,
		clock:      clockwork.NewRealClock(),
		sessionTTL: DefaultSessionTTL,
		logger:     slog.Default(),
		events:     telemetry.NopEmitter{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SessionTTL returns the configured absolute session lifetime.
func (s *Service) SessionTTL() time.Duration {
	return s.sessionTTL
}

func (s *Service) emit(t telemetrydomain.EventType, sess *domain.Session, reason string) {
	ev := &telemetrydomain.Event{
		Type:      t,
		Source:    "session",
		Reason:    reason,
		CreatedAt: s.clock.Now().UTC(),
	}
	if sess != nil {
		ev.UserID = sess.UserID
		ev.SessionID = sess.ID
	}
	telemetry.EmitAsync(s.events, ev)
}
