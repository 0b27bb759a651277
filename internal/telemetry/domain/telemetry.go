package domain

import "time"

// EventType names a security-relevant lifecycle event.
type EventType string

const (
	EventSessionCreated   EventType = "session.created"
	EventSessionRotated   EventType = "session.rotated"
	EventTokenReuse       EventType = "session.reuse_detected"
	EventSessionRevoked   EventType = "session.revoked"
	EventSessionsRevoked  EventType = "session.revoked_all"
	EventLoginFailed      EventType = "login.failed"
	EventLeaseRenewed     EventType = "secrets.lease_renewed"
	EventLeaseRenewFailed EventType = "secrets.lease_renew_failed"
	EventLeaseExpired     EventType = "secrets.lease_expired"
)

// Event is a best-effort audit record. Secrets and tokens never appear in it.
type Event struct {
	Type      EventType
	UserID    string // empty if not applicable
	SessionID string
	Source    string // emitting component, e.g. "session" or "secrets"
	Reason    string
	CreatedAt time.Time
}
