package secrets

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Authenticator exchanges identity credentials for a short-lived access token.
type Authenticator interface {
	Authenticate(ctx context.Context) (token string, ttl time.Duration, err error)
}

// Credentials are the long-lived machine identity.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// Configured reports whether both halves are present.
func (c Credentials) Configured() bool {
	return strings.TrimSpace(c.ClientID) != "" && strings.TrimSpace(c.ClientSecret) != ""
}

// ErrAuthRejected is returned when the secret store refuses the credentials.
var ErrAuthRejected = errors.New("secret store rejected credentials")

const universalAuthPath = "/auth/universal"

type universalAuthRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

type universalAuthResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// UniversalAuth authenticates with POST {base}/auth/universal.
type UniversalAuth struct {
	endpoint string
	creds    Credentials
	http     *http.Client
}

// NewUniversalAuth returns an Authenticator for baseURL. httpClient may be nil.
func NewUniversalAuth(baseURL string, creds Credentials, httpClient *http.Client) *UniversalAuth {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &UniversalAuth{
		endpoint: strings.TrimRight(baseURL, "/") + universalAuthPath,
		creds:    creds,
		http:     httpClient,
	}
}

func (u *UniversalAuth) Authenticate(ctx context.Context) (string, time.Duration, error) {
	body, err := json.Marshal(universalAuthRequest{ClientID: u.creds.ClientID, ClientSecret: u.creds.ClientSecret})
	if err != nil {
		return "", 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	resp, err := u.http.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("universal auth: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", 0, fmt.Errorf("%w: status %d", ErrAuthRejected, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", 0, fmt.Errorf("universal auth: unexpected status %d", resp.StatusCode)
	}

	var out universalAuthResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return "", 0, fmt.Errorf("universal auth: decode response: %w", err)
	}
	if out.AccessToken == "" || out.ExpiresIn <= 0 {
		return "", 0, errors.New("universal auth: response missing access_token or expires_in")
	}
	return out.AccessToken, time.Duration(out.ExpiresIn) * time.Second, nil
}
