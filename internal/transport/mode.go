package transport

import (
	"fmt"
	"strings"
)

// Mode selects how refresh material reaches the client. It is fixed for the
// lifetime of the process and never inferred per request.
type Mode int

const (
	// ModeBody returns refresh tokens in JSON bodies; clients present them explicitly.
	ModeBody Mode = iota
	// ModeCookie keeps the refresh token in an HttpOnly cookie and enforces CSRF.
	ModeCookie
)

func (m Mode) String() string {
	switch m {
	case ModeBody:
		return "body"
	case ModeCookie:
		return "cookie"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses "body" or "cookie" (case-insensitive). Empty selects ModeBody.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "body":
		return ModeBody, nil
	case "cookie":
		return ModeCookie, nil
	default:
		return ModeBody, fmt.Errorf("unknown auth transport mode %q (want body or cookie)", s)
	}
}
