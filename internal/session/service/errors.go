package service

import (
	"errors"
	"fmt"
)

// Sentinel errors for the session service; the HTTP transport maps them to status codes.
var (
	// ErrSessionInvalid means the session is unknown, expired or revoked, or the
	// presented refresh token is malformed.
	ErrSessionInvalid = errors.New("session invalid")
	// ErrTokenReused means a stale or forged refresh secret was presented, or a
	// concurrent rotation won the race. The session has been revoked.
	ErrTokenReused = errors.New("refresh token reuse detected; session revoked")
	// ErrStoreUnavailable wraps transient session store failures so callers can
	// tell "could not check" apart from "invalid".
	ErrStoreUnavailable = errors.New("session store unavailable")
)

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}
