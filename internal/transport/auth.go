package transport

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"journal-identity/internal/security"
)

const bearerPrefix = "bearer "

// AccessAuthenticator validates access tokens.
type AccessAuthenticator interface {
	Authenticate(ctx context.Context, accessToken string, checkSession bool) (*security.AccessClaims, error)
}

// RequireAccess returns middleware that validates the Bearer access token and
// stores user_id and session_id in the request context. With checkSession the
// backing session must also still be active; otherwise validation is stateless.
func RequireAccess(auth AccessAuthenticator, checkSession bool, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearer(r)
			if token == "" {
				writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
				return
			}
			claims, err := auth.Authenticate(r.Context(), token, checkSession)
			if err != nil {
				writeError(r.Context(), logger, w, err, "")
				return
			}
			ctx := WithIdentity(r.Context(), claims.Subject, claims.SessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractBearer returns the Bearer token from the Authorization header, or "" if missing or malformed.
func extractBearer(r *http.Request) string {
	v := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(v) < len(bearerPrefix) || !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
