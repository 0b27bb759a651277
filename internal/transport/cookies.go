package transport

import (
	"net/http"
	"time"

	"journal-identity/internal/csrf"
)

const (
	// RefreshCookieName holds the wire refresh token in cookie mode.
	RefreshCookieName = "refresh"
	// RefreshCookiePath scopes the refresh cookie to the auth routes.
	RefreshCookiePath = "/api/auth"
)

func (a *Adapter) setAuthCookies(w http.ResponseWriter, refreshToken, csrfToken string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    refreshToken,
		Path:     RefreshCookiePath,
		Expires:  expires,
		HttpOnly: true,
		Secure:   a.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	a.setCSRFCookie(w, csrfToken, expires)
}

func (a *Adapter) setCSRFCookie(w http.ResponseWriter, csrfToken string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     csrf.CookieName,
		Value:    csrfToken,
		Path:     "/",
		Expires:  expires,
		HttpOnly: false,
		Secure:   a.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *Adapter) clearAuthCookies(w http.ResponseWriter) {
	for _, c := range []struct{ name, path string }{
		{RefreshCookieName, RefreshCookiePath},
		{csrf.CookieName, "/"},
	} {
		http.SetCookie(w, &http.Cookie{
			Name:     c.name,
			Value:    "",
			Path:     c.path,
			MaxAge:   -1,
			Expires:  time.Unix(0, 0),
			HttpOnly: c.name == RefreshCookieName,
			Secure:   a.secureCookies,
			SameSite: http.SameSiteLaxMode,
		})
	}
}
