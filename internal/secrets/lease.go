// Package secrets keeps the service's own secret-store credential fresh: it
// exchanges identity credentials for short-lived access tokens and renews
// them in the background.
package secrets

import (
	"errors"
	"time"
)

// Source records where a lease came from.
type Source string

const (
	SourceDynamic        Source = "dynamic"
	SourceStaticFallback Source = "static_fallback"
)

// Health is the client's externally reported state.
type Health string

const (
	HealthOK          Health = "ok"
	HealthDegraded    Health = "degraded"
	HealthUnavailable Health = "unavailable"
)

const minRenewMargin = 30 * time.Second

var (
	// ErrLeaseUnavailable is returned by CurrentToken when no usable lease exists.
	// Callers must fail closed.
	ErrLeaseUnavailable = errors.New("secret lease unavailable")
	// ErrNoCredentials means neither identity credentials nor a static token is configured.
	ErrNoCredentials  = errors.New("no secret provider credentials configured")
	ErrAlreadyStarted = errors.New("secrets client already started")
)

// Lease is an immutable snapshot; renewals swap in a new one.
type Lease struct {
	AccessToken string
	IssuedAt    time.Time
	ExpiresAt   time.Time // zero for static tokens
	RenewAt     time.Time
	Source      Source
}

// ExpiredAt reports whether the lease is past its hard expiry at now.
// Static leases never expire.
func (l *Lease) ExpiredAt(now time.Time) bool {
	return !l.ExpiresAt.IsZero() && !now.Before(l.ExpiresAt)
}

// renewMargin returns how long before expiry to renew. A non-positive
// configured value selects 20% of ttl with a 30s floor; the result is always
// below ttl.
func renewMargin(ttl, configured time.Duration) time.Duration {
	m := configured
	if m <= 0 {
		m = ttl / 5
		if m < minRenewMargin {
			m = minRenewMargin
		}
	}
	if m >= ttl {
		m = ttl / 2
	}
	return m
}

func newDynamicLease(token string, issuedAt time.Time, ttl, margin time.Duration) *Lease {
	expires := issuedAt.Add(ttl)
	return &Lease{
		AccessToken: token,
		IssuedAt:    issuedAt,
		ExpiresAt:   expires,
		RenewAt:     expires.Add(-renewMargin(ttl, margin)),
		Source:      SourceDynamic,
	}
}
