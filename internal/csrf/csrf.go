// Package csrf implements double-submit CSRF protection for cookie transport.
package csrf

import (
	"errors"
	"net/http"

	"journal-identity/internal/security"
	"journal-identity/internal/session/domain"
)

const (
	// CookieName is the readable CSRF cookie.
	CookieName = "csrftoken"
	// HeaderName carries the client's copy of the CSRF cookie.
	HeaderName = "X-CSRF-Token"
)

// ErrCSRFMismatch means the CSRF header is missing or does not match.
var ErrCSRFMismatch = errors.New("csrf token mismatch")

// Guard issues and verifies CSRF tokens. The zero value is ready to use.
type Guard struct{}

// NewGuard returns a Guard.
func NewGuard() *Guard {
	return &Guard{}
}

// IssuePair returns the cookie value and the header value a client must echo.
// Both derive from the session's csrf secret, so they are equal.
func (g *Guard) IssuePair(sess *domain.Session) (cookieValue, headerValue string) {
	token := security.DeriveCSRFToken(sess.CSRFSecret, sess.ID)
	return token, token
}

// RequiresCheck reports whether method can mutate state.
func RequiresCheck(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

// Verify enforces double submit: for mutating verbs the header must be
// present and equal to the CSRF cookie. Fails closed.
func (g *Guard) Verify(r *http.Request) error {
	if !RequiresCheck(r.Method) {
		return nil
	}
	header := r.Header.Get(HeaderName)
	cookie, err := r.Cookie(CookieName)
	if header == "" || err != nil || cookie.Value == "" {
		return ErrCSRFMismatch
	}
	if !security.ConstantTimeEqual(header, cookie.Value) {
		return ErrCSRFMismatch
	}
	return nil
}

// VerifySession runs Verify and also checks the header against the value
// derived server-side from the session's csrf secret.
func (g *Guard) VerifySession(r *http.Request, sess *domain.Session) error {
	if err := g.Verify(r); err != nil {
		return err
	}
	if !RequiresCheck(r.Method) {
		return nil
	}
	if sess == nil {
		return ErrCSRFMismatch
	}
	_, expected := g.IssuePair(sess)
	if !security.ConstantTimeEqual(r.Header.Get(HeaderName), expected) {
		return ErrCSRFMismatch
	}
	return nil
}
