package service

import (
	"fmt"
	"strings"
)

const refreshTokenSep = "."

// FormatRefreshToken builds the opaque wire form "<session_id>.<secret>" handed to clients.
func FormatRefreshToken(sessionID, secret string) string {
	return sessionID + refreshTokenSep + secret
}

// ParseRefreshToken splits a wire refresh token. Malformed input is reported
// as ErrSessionInvalid.
func ParseRefreshToken(token string) (sessionID, secret string, err error) {
	sessionID, secret, ok := strings.Cut(strings.TrimSpace(token), refreshTokenSep)
	if !ok || sessionID == "" || secret == "" || strings.Contains(secret, refreshTokenSep) {
		return "", "", fmt.Errorf("%w: malformed refresh token", ErrSessionInvalid)
	}
	return sessionID, secret, nil
}
