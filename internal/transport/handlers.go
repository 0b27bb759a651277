package transport

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"journal-identity/internal/security"
	sessiondomain "journal-identity/internal/session/domain"
	session "journal-identity/internal/session/service"
)

type loginRequest struct {
	Email    string `json:"email" validate:"required,email,max=320"`
	Password string `json:"password" validate:"required,max=1024"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required,max=512"`
}

// tokenResponse is the login/refresh body. RefreshToken is omitted in cookie mode.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

type csrfResponse struct {
	CSRFToken string `json:"csrf_token"`
}

type sessionResponse struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
}

// decode reads a size-limited JSON body into v and validates it.
func (a *Adapter) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		a.logger.InfoContext(r.Context(), "malformed auth request", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid_request"})
		return false
	}
	if err := a.validate.Struct(v); err != nil {
		a.logger.InfoContext(r.Context(), "invalid auth request", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid_request"})
		return false
	}
	return true
}

func deviceFrom(r *http.Request) sessiondomain.DeviceMetadata {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		ip = host
	}
	return sessiondomain.DeviceMetadata{UserAgent: r.UserAgent(), IPAddress: ip}
}

// respondTokens writes tokens in the adapter's mode. Cookie mode never puts
// refresh material in the body; body mode never sets cookies.
func (a *Adapter) respondTokens(w http.ResponseWriter, tok *session.Tokens) {
	resp := tokenResponse{
		AccessToken: tok.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int64(tok.AccessExpiresAt.Sub(a.clock.Now()) / time.Second),
	}
	if a.mode == ModeCookie {
		csrfToken, _ := a.guard.IssuePair(tok.Session)
		a.setAuthCookies(w, tok.RefreshToken, csrfToken, tok.Session.ExpiresAt)
	} else {
		resp.RefreshToken = tok.RefreshToken
	}
	writeJSON(w, http.StatusOK, resp)
}

// presentedRefresh extracts the wire refresh token: cookie in cookie mode, JSON body otherwise.
// ok is false when a response has already been written.
func (a *Adapter) presentedRefresh(w http.ResponseWriter, r *http.Request) (token string, ok bool) {
	if a.mode == ModeCookie {
		c, err := r.Cookie(RefreshCookieName)
		if err != nil || c.Value == "" {
			return "", true
		}
		return c.Value, true
	}
	var req refreshRequest
	if !a.decode(w, r, &req) {
		return "", false
	}
	return req.RefreshToken, true
}

func (a *Adapter) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !a.decode(w, r, &req) {
		return
	}
	u, err := a.credentials.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(r.Context(), a.logger, w, err, "")
		return
	}
	tok, err := a.sessions.StartSession(r.Context(), u.ID, deviceFrom(r))
	if err != nil {
		writeError(r.Context(), a.logger, w, err, "")
		return
	}
	a.logger.InfoContext(r.Context(), "login succeeded", "user_id", u.ID, "session_id", tok.Session.ID, "mode", a.mode.String())
	a.respondTokens(w, tok)
}

func (a *Adapter) handleRefresh(w http.ResponseWriter, r *http.Request) {
	raw, ok := a.presentedRefresh(w, r)
	if !ok {
		return
	}
	sessionID, secret, err := session.ParseRefreshToken(raw)
	if err != nil {
		writeError(r.Context(), a.logger, w, err, "")
		return
	}
	tok, err := a.sessions.Refresh(r.Context(), sessionID, secret)
	if err != nil {
		if a.mode == ModeCookie && !errors.Is(err, session.ErrStoreUnavailable) {
			a.clearAuthCookies(w)
		}
		writeError(r.Context(), a.logger, w, err, sessionID)
		return
	}
	a.respondTokens(w, tok)
}

func (a *Adapter) handleLogout(w http.ResponseWriter, r *http.Request) {
	raw, ok := a.presentedRefresh(w, r)
	if !ok {
		return
	}
	if a.mode == ModeCookie && raw == "" {
		a.clearAuthCookies(w)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	sessionID, secret, err := session.ParseRefreshToken(raw)
	if err != nil {
		if a.mode == ModeCookie {
			a.clearAuthCookies(w)
		}
		writeError(r.Context(), a.logger, w, err, "")
		return
	}
	if a.mode == ModeCookie {
		// The middleware checked double submit; also bind the header to this session.
		sess, err := a.sessions.ActiveSession(r.Context(), sessionID)
		switch {
		case err == nil:
			if err := a.guard.VerifySession(r, sess); err != nil {
				writeError(r.Context(), a.logger, w, err, sessionID)
				return
			}
		case errors.Is(err, session.ErrStoreUnavailable):
			writeError(r.Context(), a.logger, w, err, sessionID)
			return
		}
		// Cookies are cleared whatever the outcome; headers must precede the write.
		a.clearAuthCookies(w)
	}
	if err := a.sessions.Logout(r.Context(), sessionID, secret); err != nil {
		writeError(r.Context(), a.logger, w, err, sessionID)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *Adapter) handleCSRF(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(RefreshCookieName)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
		return
	}
	sessionID, secret, err := session.ParseRefreshToken(c.Value)
	if err != nil {
		writeError(r.Context(), a.logger, w, err, "")
		return
	}
	sess, err := a.sessions.ActiveSession(r.Context(), sessionID)
	if err != nil {
		writeError(r.Context(), a.logger, w, err, sessionID)
		return
	}
	if !security.RefreshSecretHashEqual(secret, sess.RefreshSecretHash) {
		writeError(r.Context(), a.logger, w, session.ErrSessionInvalid, sessionID)
		return
	}
	cookieValue, headerValue := a.guard.IssuePair(sess)
	a.setCSRFCookie(w, cookieValue, sess.ExpiresAt)
	writeJSON(w, http.StatusOK, csrfResponse{CSRFToken: headerValue})
}

func (a *Adapter) handleSession(w http.ResponseWriter, r *http.Request) {
	userID, _ := GetUserID(r.Context())
	sessionID, _ := GetSessionID(r.Context())
	writeJSON(w, http.StatusOK, sessionResponse{UserID: userID, SessionID: sessionID})
}
