// Package transport exposes the session core over HTTP in either body or
// cookie transport mode.
package transport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/jonboulle/clockwork"

	"journal-identity/internal/csrf"
	"journal-identity/internal/security"
	sessiondomain "journal-identity/internal/session/domain"
	session "journal-identity/internal/session/service"
	userdomain "journal-identity/internal/user/domain"
)

const maxBodyBytes = 1 << 20

// SessionService is the part of the session service the adapter drives.
type SessionService interface {
	StartSession(ctx context.Context, userID string, device sessiondomain.DeviceMetadata) (*session.Tokens, error)
	Refresh(ctx context.Context, sessionID, presentedSecret string) (*session.Tokens, error)
	Logout(ctx context.Context, sessionID, presentedSecret string) error
	ActiveSession(ctx context.Context, sessionID string) (*sessiondomain.Session, error)
	Authenticate(ctx context.Context, accessToken string, checkSession bool) (*security.AccessClaims, error)
}

// CredentialChecker verifies login credentials.
type CredentialChecker interface {
	Authenticate(ctx context.Context, email, password string) (*userdomain.User, error)
}

// Options configures an Adapter.
type Options struct {
	Mode Mode
	// SecureCookies sets the Secure attribute; disable only for local development over plain HTTP.
	SecureCookies bool
	Logger        *slog.Logger
	Clock         clockwork.Clock
}

// Adapter serves /api/auth for one fixed transport mode.
type Adapter struct {
	mode          Mode
	sessions      SessionService
	credentials   CredentialChecker
	guard         *csrf.Guard
	validate      *validator.Validate
	secureCookies bool
	logger        *slog.Logger
	clock         clockwork.Clock
}

// NewAdapter returns an Adapter. guard is only consulted in cookie mode.
func NewAdapter(sessions SessionService, credentials CredentialChecker, guard *csrf.Guard, opts Options) *Adapter {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if guard == nil {
		guard = csrf.NewGuard()
	}
	return &Adapter{
		mode:          opts.Mode,
		sessions:      sessions,
		credentials:   credentials,
		guard:         guard,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
		secureCookies: opts.SecureCookies,
		logger:        opts.Logger,
		clock:         opts.Clock,
	}
}

// Mode returns the adapter's transport mode.
func (a *Adapter) Mode() Mode {
	return a.mode
}

// Mount registers the auth routes under /api/auth on r.
func (a *Adapter) Mount(r chi.Router) {
	r.Route("/api/auth", func(r chi.Router) {
		r.Use(middleware.NoCache)
		if a.mode == ModeCookie {
			r.Use(a.guard.Middleware(a.logger, "/api/auth/login"))
			r.Get("/csrf", a.handleCSRF)
		}
		r.Post("/login", a.handleLogin)
		r.Post("/refresh", a.handleRefresh)
		r.Post("/logout", a.handleLogout)
		r.With(RequireAccess(a.sessions, true, a.logger)).Get("/session", a.handleSession)
	})
}

// Routes returns a router with the auth routes and the standard middleware stack.
func (a *Adapter) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	a.Mount(r)
	return r
}
