package domain

import "time"

// State is derived from a session's timestamps; it is never stored.
type State string

const (
	StateActive  State = "active"
	StateRevoked State = "revoked"
	StateExpired State = "expired"
)

// DeviceMetadata is a user-agent/IP snapshot taken at login. Informational
// only; never used for security decisions.
type DeviceMetadata struct {
	UserAgent string
	IPAddress string
}

// Session is one login session. ID (the rid) is stable across refresh
// rotations; RefreshSecretHash always holds the hash of the single currently
// valid refresh secret.
type Session struct {
	ID                string
	UserID            string
	RefreshSecretHash string
	RotationCounter   int64
	CSRFSecret        string
	Device            DeviceMetadata
	CreatedAt         time.Time
	LastRotatedAt     time.Time
	ExpiresAt         time.Time
	RevokedAt         *time.Time // nil when not revoked
}

// StateAt reports the session state at now. Revocation wins over expiry.
func (s *Session) StateAt(now time.Time) State {
	if s.RevokedAt != nil {
		return StateRevoked
	}
	if now.After(s.ExpiresAt) {
		return StateExpired
	}
	return StateActive
}

// ActiveAt reports whether the session can still be refreshed at now.
func (s *Session) ActiveAt(now time.Time) bool {
	return s.StateAt(now) == StateActive
}
