package transport

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"journal-identity/internal/csrf"
	identity "journal-identity/internal/identity/service"
	"journal-identity/internal/security"
	session "journal-identity/internal/session/service"
)

type errorBody struct {
	Error string `json:"error"`
}

// statusFor maps a core error to an HTTP status and a generic client message.
// Security failures never reveal which check failed.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, identity.ErrInvalidCredentials),
		errors.Is(err, session.ErrSessionInvalid),
		errors.Is(err, session.ErrTokenReused),
		errors.Is(err, security.ErrInvalidToken):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, csrf.ErrCSRFMismatch):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, session.ErrStoreUnavailable),
		errors.Is(err, identity.ErrUserStoreUnavailable):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// writeError logs the precise error and writes the generic response.
func writeError(ctx context.Context, logger *slog.Logger, w http.ResponseWriter, err error, sessionID string) {
	code, msg := statusFor(err)
	level := slog.LevelInfo
	if code >= http.StatusInternalServerError {
		level = slog.LevelError
	} else if errors.Is(err, session.ErrTokenReused) {
		level = slog.LevelWarn
	}
	logger.Log(ctx, level, "auth request failed", "status", code, "session_id", sessionID, "error", err)
	writeJSON(w, code, errorBody{Error: msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
