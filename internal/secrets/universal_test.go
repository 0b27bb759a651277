package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestUniversalAuth_Authenticate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/auth/universal" {
			http.NotFound(w, r)
			return
		}
		var req universalAuthRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if req.ClientID != "client" || req.ClientSecret != "s3cret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(universalAuthResponse{AccessToken: "access-1", ExpiresIn: 900})
	}))
	defer srv.Close()

	auth := NewUniversalAuth(srv.URL+"/api/v1/", Credentials{ClientID: "client", ClientSecret: "s3cret"}, srv.Client())
	token, ttl, err := auth.Authenticate(context.Background())
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if token != "access-1" || ttl != 15*time.Minute {
		t.Errorf("got token=%q ttl=%v", token, ttl)
	}

	bad := NewUniversalAuth(srv.URL+"/api/v1", Credentials{ClientID: "client", ClientSecret: "wrong"}, srv.Client())
	if _, _, err := bad.Authenticate(context.Background()); !errors.Is(err, ErrAuthRejected) {
		t.Errorf("wrong secret: want ErrAuthRejected, got %v", err)
	}
}

func TestUniversalAuth_BadResponses(t *testing.T) {
	testCases := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"error":"boom"}`},
		{"forbidden", http.StatusForbidden, ""},
		{"malformed body", http.StatusOK, `{"access_token":`},
		{"missing token", http.StatusOK, `{"expires_in":60}`},
		{"non-positive ttl", http.StatusOK, `{"access_token":"x","expires_in":0}`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()
			auth := NewUniversalAuth(srv.URL, Credentials{ClientID: "a", ClientSecret: "b"}, nil)
			if _, _, err := auth.Authenticate(context.Background()); err == nil {
				t.Error("want error, got nil")
			}
		})
	}
}

func TestUniversalAuth_HonoursContext(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	auth := NewUniversalAuth(srv.URL, Credentials{ClientID: "a", ClientSecret: "b"}, nil)
	if _, _, err := auth.Authenticate(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("want context.DeadlineExceeded, got %v", err)
	}
}

func TestCredentials_Configured(t *testing.T) {
	if (Credentials{ClientID: "a", ClientSecret: " "}).Configured() {
		t.Error("blank secret should not count as configured")
	}
	if !(Credentials{ClientID: "a", ClientSecret: "b"}).Configured() {
		t.Error("both halves present should be configured")
	}
}
