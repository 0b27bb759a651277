// Package bootstrap wires the identity core at process start and reports its
// combined health.
package bootstrap

import (
	"context"
	"crypto"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jonboulle/clockwork"

	"journal-identity/internal/config"
	"journal-identity/internal/csrf"
	healthhandler "journal-identity/internal/health/handler"
	identity "journal-identity/internal/identity/service"
	"journal-identity/internal/secrets"
	"journal-identity/internal/security"
	session "journal-identity/internal/session/service"
	"journal-identity/internal/telemetry"
	"journal-identity/internal/transport"
	userrepo "journal-identity/internal/user/repository"
)

const sessionPingTimeout = 2 * time.Second

// Option customises New.
type Option func(*options)

type options struct {
	clock         clockwork.Clock
	events        telemetry.EventEmitter
	metrics       *telemetry.Metrics
	secretsAuth   secrets.Authenticator
	secretsClient *http.Client
	noSecrets     bool
}

// WithClock sets the clock shared by token signing, rotation and lease renewal.
func WithClock(c clockwork.Clock) Option { return func(o *options) { o.clock = c } }

// WithEvents sets the security event sink.
func WithEvents(e telemetry.EventEmitter) Option { return func(o *options) { o.events = e } }

// WithMetrics sets the counters; nil disables them.
func WithMetrics(m *telemetry.Metrics) Option { return func(o *options) { o.metrics = m } }

// WithSecretsAuthenticator replaces the UniversalAuth exchanger.
func WithSecretsAuthenticator(a secrets.Authenticator) Option {
	return func(o *options) { o.secretsAuth = a }
}

// WithSecretsHTTPClient sets the HTTP client used for the secret store.
func WithSecretsHTTPClient(c *http.Client) Option {
	return func(o *options) { o.secretsClient = c }
}

// WithoutSecrets skips the secret provider client; for one-shot CLI tools.
func WithoutSecrets() Option { return func(o *options) { o.noSecrets = true } }

// App is the wired identity core.
type App struct {
	Mode          transport.Mode
	Store         StoreKind
	Tokens        *security.TokenProvider
	Sessions      *session.Service
	Users         userrepo.Repository
	Authenticator *identity.PasswordAuthenticator
	Guard         *csrf.Guard
	Adapter       *transport.Adapter
	// Secrets is nil when no secret provider is configured.
	Secrets *secrets.Client

	logger    *slog.Logger
	db        *sql.DB
	closeOnce sync.Once
	closeErr  error
}

// New builds every component in dependency order and starts the secret lease
// renewal. On error, anything already opened is released.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	o := options{clock: clockwork.NewRealClock(), events: telemetry.NopEmitter{}}
	for _, opt := range opts {
		opt(&o)
	}

	mode, err := transport.ParseMode(cfg.AuthTransportMode)
	if err != nil {
		return nil, err
	}

	signer, pub, err := signingKeys(cfg, logger)
	if err != nil {
		return nil, err
	}
	tokens := security.NewTokenProvider(signer, pub, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL(), o.clock)

	st, err := openStores(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app := &App{
		Mode:   mode,
		Store:  st.kind,
		Tokens: tokens,
		Users:  st.users,
		Guard:  csrf.NewGuard(),
		logger: logger,
		db:     st.db,
	}

	app.Sessions = session.NewService(st.sessions, tokens,
		session.WithClock(o.clock),
		session.WithLogger(logger.With("component", "sessions")),
		session.WithEvents(o.events),
		session.WithMetrics(o.metrics),
		session.WithSessionTTL(cfg.SessionTTL()),
	)
	app.Authenticator = identity.NewPasswordAuthenticator(st.users, security.NewHasher(cfg.BcryptCost), logger.With("component", "identity"), o.events)
	app.Adapter = transport.NewAdapter(app.Sessions, app.Authenticator, app.Guard, transport.Options{
		Mode:          mode,
		SecureCookies: cfg.SecureCookies(),
		Logger:        logger.With("component", "transport"),
		Clock:         o.clock,
	})

	if !o.noSecrets && (cfg.SecretsEnabled() || o.secretsAuth != nil) {
		client, err := newSecretsClient(cfg, logger, o)
		if err != nil {
			_ = app.Close()
			return nil, err
		}
		if err := client.Start(ctx); err != nil {
			_ = app.Close()
			return nil, fmt.Errorf("start secrets client: %w", err)
		}
		app.Secrets = client
	}

	logger.InfoContext(ctx, "identity core ready",
		"transport_mode", mode.String(),
		"store", string(st.kind),
		"secrets", app.secretsMode(),
	)
	return app, nil
}

func signingKeys(cfg *config.Config, logger *slog.Logger) (crypto.Signer, crypto.PublicKey, error) {
	if strings.TrimSpace(cfg.JWTPrivateKey) == "" {
		if !cfg.IsLocal() {
			return nil, nil, errors.New("bootstrap: JWT_PRIVATE_KEY is required")
		}
		logger.Warn("no JWT signing key configured; using an ephemeral key (tokens will not survive restart)")
		return security.GenerateSigningKey()
	}
	signer, pub, err := security.LoadSigningKeys(cfg.JWTPrivateKey, cfg.JWTPublicKey)
	if err != nil {
		return nil, nil, fmt.Errorf("load signing keys: %w", err)
	}
	return signer, pub, nil
}

func newSecretsClient(cfg *config.Config, logger *slog.Logger, o options) (*secrets.Client, error) {
	creds := secrets.Credentials{ClientID: cfg.SecretsClientID, ClientSecret: cfg.SecretsClientSecret}
	auth := o.secretsAuth
	if auth == nil && creds.Configured() {
		auth = secrets.NewUniversalAuth(cfg.SecretsBaseURL, creds, o.secretsClient)
	}
	copts := []secrets.Option{
		secrets.WithClock(o.clock),
		secrets.WithLogger(logger.With("component", "secrets")),
		secrets.WithEvents(o.events),
		secrets.WithMetrics(o.metrics),
	}
	if auth != nil {
		copts = append(copts, secrets.WithAuthenticator(auth))
	}
	return secrets.NewClient(secrets.Config{
		BaseURL:        cfg.SecretsBaseURL,
		Credentials:    creds,
		StaticToken:    cfg.SecretsStaticToken,
		RenewMargin:    cfg.RenewMargin(),
		AttemptTimeout: cfg.AttemptTimeout(),
		RetryInitial:   cfg.RetryInitial(),
		RetryMax:       cfg.RetryMax(),
		RetryJitter:    0.2,
	}, copts...)
}

func (a *App) secretsMode() string {
	switch {
	case a.Secrets == nil:
		return healthhandler.StatusDisabled
	case a.Secrets.Dynamic():
		return string(secrets.SourceDynamic)
	default:
		return string(secrets.SourceStaticFallback)
	}
}

// Health returns {"sessions": ok|unavailable, "secrets": lease health}. With
// no secret provider configured, secrets reports "disabled".
func (a *App) Health(ctx context.Context) map[string]string {
	report := map[string]string{
		"sessions": healthhandler.StatusOK,
		"secrets":  healthhandler.StatusDisabled,
	}
	pingCtx, cancel := context.WithTimeout(ctx, sessionPingTimeout)
	defer cancel()
	if err := a.Sessions.Ping(pingCtx); err != nil {
		a.logger.WarnContext(ctx, "session store ping failed", "error", err)
		report["sessions"] = healthhandler.StatusUnavailable
	}
	if a.Secrets != nil {
		report["secrets"] = string(a.Secrets.Health())
	}
	return report
}

// Handler returns the HTTP surface: /api/auth in the configured mode and /healthz.
func (a *App) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Method(http.MethodGet, "/healthz", healthhandler.HTTPHandler(a, a.logger))
	a.Adapter.Mount(r)
	return r
}

// Close stops lease renewal and closes the database. Safe to call more than once.
func (a *App) Close() error {
	a.closeOnce.Do(func() {
		if a.Secrets != nil {
			a.Secrets.Stop()
		}
		if a.db != nil {
			a.closeErr = a.db.Close()
		}
	})
	return a.closeErr
}
