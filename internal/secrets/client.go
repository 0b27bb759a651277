package secrets

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jonboulle/clockwork"

	"journal-identity/internal/telemetry"
	telemetrydomain "journal-identity/internal/telemetry/domain"
)

const (
	defaultAttemptTimeout  = 10 * time.Second
	defaultRetryInitial    = time.Second
	defaultRetryMax        = time.Minute
	defaultRetryMultiplier = 2.0
)

// Config controls authentication and renewal.
type Config struct {
	BaseURL     string
	Credentials Credentials
	// StaticToken is served when no identity credentials are configured, and
	// during cold start until the first dynamic lease arrives.
	StaticToken string
	// RenewMargin is how long before expiry to renew; zero selects 20% of the
	// TTL with a 30s floor.
	RenewMargin     time.Duration
	AttemptTimeout  time.Duration
	RetryInitial    time.Duration
	RetryMax        time.Duration
	RetryMultiplier float64
	// RetryJitter is the backoff randomization factor in [0, 1).
	RetryJitter float64
}

// Client holds the current lease. CurrentToken is lock-free; the renewal
// goroutine is the only writer.
type Client struct {
	cfg     Config
	auth    Authenticator
	clock   clockwork.Clock
	logger  *slog.Logger
	events  telemetry.EventEmitter
	metrics *telemetry.Metrics

	lease   atomic.Pointer[Lease]
	failing atomic.Bool

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// Option configures a Client.
type Option func(*Client)

// WithAuthenticator replaces the UniversalAuth exchanger built from Config.
func WithAuthenticator(a Authenticator) Option { return func(c *Client) { c.auth = a } }

func WithClock(clock clockwork.Clock) Option { return func(c *Client) { c.clock = clock } }

func WithLogger(l *slog.Logger) Option { return func(c *Client) { c.logger = l } }

func WithEvents(e telemetry.EventEmitter) Option { return func(c *Client) { c.events = e } }

func WithMetrics(m *telemetry.Metrics) Option { return func(c *Client) { c.metrics = m } }

// NewClient returns a Client. Dynamic mode is selected when identity
// credentials (or an Authenticator) are present; otherwise the static token
// is used. Neither yields ErrNoCredentials.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = defaultAttemptTimeout
	}
	if cfg.RetryInitial <= 0 {
		cfg.RetryInitial = defaultRetryInitial
	}
	if cfg.RetryMax <= 0 {
		cfg.RetryMax = defaultRetryMax
	}
	if cfg.RetryMultiplier < 1 {
		cfg.RetryMultiplier = defaultRetryMultiplier
	}
	if cfg.RetryJitter < 0 || cfg.RetryJitter >= 1 {
		cfg.RetryJitter = 0
	}
	cfg.StaticToken = strings.TrimSpace(cfg.StaticToken)

	c := &Client{
		cfg:    cfg,
		clock:  clockwork.NewRealClock(),
		logger: slog.Default(),
		events: telemetry.NopEmitter{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.auth == nil && cfg.Credentials.Configured() {
		c.auth = NewUniversalAuth(cfg.BaseURL, cfg.Credentials, nil)
	}
	if c.auth == nil && cfg.StaticToken == "" {
		return nil, ErrNoCredentials
	}
	return c, nil
}

// Dynamic reports whether the client renews leases from the secret store.
func (c *Client) Dynamic() bool {
	return c.auth != nil
}

// Start obtains the first lease and, in dynamic mode, launches the renewal
// goroutine, which runs until Stop; cancelling ctx only bounds the first
// exchange. A failed first exchange is not fatal: the goroutine keeps
// retrying and health reports the gap.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return ErrAlreadyStarted
	}
	c.started = true

	if c.cfg.StaticToken != "" {
		now := c.clock.Now()
		c.lease.Store(&Lease{AccessToken: c.cfg.StaticToken, IssuedAt: now, Source: SourceStaticFallback})
	}
	if c.auth == nil {
		c.logger.InfoContext(ctx, "secrets client using static token")
		return nil
	}

	if err := c.renew(ctx); err != nil {
		c.logger.WarnContext(ctx, "initial secret store authentication failed; retrying in background",
			"static_fallback", c.cfg.StaticToken != "", "error", err)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.run(runCtx, c.done)
	return nil
}

// Stop cancels the renewal goroutine and waits for it to exit. Safe to call more than once.
func (c *Client) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel = nil
	c.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// CurrentToken returns the current access token, or ErrLeaseUnavailable when
// there is none or the dynamic lease has hard-expired. An expired dynamic
// lease is never replaced by the static token.
func (c *Client) CurrentToken() (string, error) {
	l := c.lease.Load()
	if l == nil || l.ExpiredAt(c.clock.Now()) {
		return "", ErrLeaseUnavailable
	}
	return l.AccessToken, nil
}

// Lease returns the current lease snapshot, or nil.
func (c *Client) Lease() *Lease {
	return c.lease.Load()
}

// Health reports ok, degraded (renewal overdue or failing but the lease is
// still valid) or unavailable.
func (c *Client) Health() Health {
	l := c.lease.Load()
	now := c.clock.Now()
	switch {
	case l == nil || l.ExpiredAt(now):
		return HealthUnavailable
	case l.Source == SourceStaticFallback:
		if c.auth != nil && c.failing.Load() {
			return HealthDegraded
		}
		return HealthOK
	case c.failing.Load() || !now.Before(l.RenewAt):
		return HealthDegraded
	default:
		return HealthOK
	}
}

// renew performs one bounded exchange and swaps in the new lease on success.
func (c *Client) renew(ctx context.Context) error {
	// The TTL counts from when the exchange was sent, not when it returned.
	issuedAt := c.clock.Now()
	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.AttemptTimeout)
	defer cancel()
	token, ttl, err := c.auth.Authenticate(attemptCtx)
	if err != nil {
		c.failing.Store(true)
		c.metrics.RecordRenewal(ctx, "failure")
		c.emit(telemetrydomain.EventLeaseRenewFailed, err.Error())
		return err
	}
	lease := newDynamicLease(token, issuedAt, ttl, c.cfg.RenewMargin)
	c.lease.Store(lease)
	c.failing.Store(false)
	c.metrics.RecordRenewal(ctx, "success")
	c.logger.InfoContext(ctx, "secret lease renewed", "expires_at", lease.ExpiresAt, "renew_at", lease.RenewAt)
	c.emit(telemetrydomain.EventLeaseRenewed, "")
	return nil
}

func (c *Client) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.RetryInitial
	b.MaxInterval = c.cfg.RetryMax
	b.Multiplier = c.cfg.RetryMultiplier
	b.RandomizationFactor = c.cfg.RetryJitter
	b.Reset()
	return b
}

// nextWait returns how long to sleep before the next attempt. While failing,
// the backoff delay is cut short so the loop wakes exactly at hard expiry.
func (c *Client) nextWait(b *backoff.ExponentialBackOff) time.Duration {
	now := c.clock.Now()
	l := c.lease.Load()
	if !c.failing.Load() && l != nil && l.Source == SourceDynamic {
		return max(l.RenewAt.Sub(now), 0)
	}
	wait := b.NextBackOff()
	if l != nil && l.Source == SourceDynamic && !l.ExpiredAt(now) {
		wait = min(wait, l.ExpiresAt.Sub(now))
	}
	return wait
}

func (c *Client) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	b := c.newBackOff()
	var reportedExpiry *Lease
	for {
		timer := c.clock.NewTimer(c.nextWait(b))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.Chan():
		}

		if l := c.lease.Load(); l != nil && l.ExpiredAt(c.clock.Now()) && l != reportedExpiry {
			reportedExpiry = l
			c.logger.ErrorContext(ctx, "secret lease expired without successful renewal", "expired_at", l.ExpiresAt)
			c.emit(telemetrydomain.EventLeaseExpired, "")
		}

		if err := c.renew(ctx); err != nil {
			if errors.Is(err, context.Canceled) && ctx.Err() != nil {
				return
			}
			c.logger.WarnContext(ctx, "secret lease renewal failed", "error", err)
			continue
		}
		b.Reset()
	}
}

func (c *Client) emit(t telemetrydomain.EventType, reason string) {
	telemetry.EmitAsync(c.events, &telemetrydomain.Event{
		Type:      t,
		Source:    "secrets",
		Reason:    reason,
		CreatedAt: c.clock.Now().UTC(),
	})
}
