package config

import (
	"os"
	"testing"
	"time"
)

// setEnv clears the environment and applies kv. APP_ENV defaults to local so
// tests do not need a signing key.
func setEnv(t *testing.T, kv map[string]string) {
	t.Helper()
	os.Clearenv()
	os.Setenv("APP_ENV", "local")
	for k, v := range kv {
		os.Setenv(k, v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	setEnv(t, nil)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8080")
	}
	if cfg.GRPCHealthAddr != ":8081" {
		t.Errorf("GRPCHealthAddr = %q, want %q", cfg.GRPCHealthAddr, ":8081")
	}
	if cfg.JWTIssuer != "journal-identity" || cfg.JWTAudience != "journal-api" {
		t.Errorf("issuer/audience = %q/%q", cfg.JWTIssuer, cfg.JWTAudience)
	}
	if cfg.AccessTTL() != 15*time.Minute {
		t.Errorf("AccessTTL = %v, want 15m", cfg.AccessTTL())
	}
	if cfg.SessionTTL() != 30*24*time.Hour {
		t.Errorf("SessionTTL = %v, want 720h", cfg.SessionTTL())
	}
	if cfg.BcryptCost != 12 {
		t.Errorf("BcryptCost = %d, want 12", cfg.BcryptCost)
	}
	if cfg.AuthTransportMode != "body" {
		t.Errorf("AuthTransportMode = %q, want body", cfg.AuthTransportMode)
	}
	if cfg.SecretsEnabled() {
		t.Error("secrets should be disabled without credentials or static token")
	}
	if cfg.SecureCookies() {
		t.Error("local env should not force Secure cookies")
	}
	if cfg.RenewMargin() != 0 || cfg.AttemptTimeout() != 10*time.Second ||
		cfg.RetryInitial() != time.Second || cfg.RetryMax() != time.Minute {
		t.Errorf("secrets durations: margin=%v attempt=%v initial=%v max=%v",
			cfg.RenewMargin(), cfg.AttemptTimeout(), cfg.RetryInitial(), cfg.RetryMax())
	}
	if cfg.OTelServiceName != "journal-identity" || cfg.OTLPEndpoint != "" {
		t.Errorf("otel: service=%q endpoint=%q", cfg.OTelServiceName, cfg.OTLPEndpoint)
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	setEnv(t, map[string]string{
		"HTTP_ADDR":            ":9090",
		"JWT_ISSUER":           "custom-issuer",
		"BCRYPT_COST":          "14",
		"AUTH_TRANSPORT_MODE":  " Cookie ",
		"SESSION_TTL":          "336h",
		"SECRETS_RENEW_MARGIN": "5m",
		"SQLITE_PATH":          "/tmp/identity.db",
	})

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":9090")
	}
	if cfg.JWTIssuer != "custom-issuer" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "custom-issuer")
	}
	if cfg.BcryptCost != 14 {
		t.Errorf("BcryptCost = %d, want 14", cfg.BcryptCost)
	}
	if cfg.AuthTransportMode != "cookie" {
		t.Errorf("AuthTransportMode = %q, want cookie", cfg.AuthTransportMode)
	}
	if cfg.SessionTTL() != 14*24*time.Hour {
		t.Errorf("SessionTTL = %v, want 336h", cfg.SessionTTL())
	}
	if cfg.RenewMargin() != 5*time.Minute {
		t.Errorf("RenewMargin = %v, want 5m", cfg.RenewMargin())
	}
	if cfg.SQLitePath != "/tmp/identity.db" {
		t.Errorf("SQLitePath = %q", cfg.SQLitePath)
	}
}

func TestLoad_BCRYPT_COSTRange(t *testing.T) {
	testCases := []struct {
		name  string
		value string
		want  int
		err   bool
	}{
		{"valid min", "4", 4, false},
		{"valid max", "31", 31, false},
		{"valid middle", "12", 12, false},
		{"too low", "3", 0, true},
		{"too high", "32", 0, true},
		{"zero", "0", 12, false}, // Should default to 12
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			setEnv(t, map[string]string{"BCRYPT_COST": tc.value})

			cfg, err := Load()
			if tc.err {
				if err == nil {
					t.Fatal("Load should return error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if cfg.BcryptCost != tc.want {
				t.Errorf("BcryptCost = %d, want %d", cfg.BcryptCost, tc.want)
			}
		})
	}
}

func TestLoad_Validation(t *testing.T) {
	testCases := []struct {
		name string
		env  map[string]string
	}{
		{"unknown transport mode", map[string]string{"AUTH_TRANSPORT_MODE": "header"}},
		{"signing key required outside local", map[string]string{"APP_ENV": "production"}},
		{"client id without secret", map[string]string{"SECRETS_CLIENT_ID": "id", "SECRETS_BASE_URL": "http://vault"}},
		{"client secret without id", map[string]string{"SECRETS_CLIENT_SECRET": "s", "SECRETS_BASE_URL": "http://vault"}},
		{"credentials without base url", map[string]string{"SECRETS_CLIENT_ID": "id", "SECRETS_CLIENT_SECRET": "s"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			setEnv(t, tc.env)
			cfg, err := Load()
			if err == nil {
				t.Fatal("Load should return error")
			}
			if cfg != nil {
				t.Error("Load should return nil config on error")
			}
		})
	}
}

func TestLoad_SecretsEnabled(t *testing.T) {
	setEnv(t, map[string]string{"SECRETS_STATIC_TOKEN": "tok"})
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.SecretsEnabled() {
		t.Error("static token alone should enable the secrets client")
	}

	setEnv(t, map[string]string{
		"SECRETS_CLIENT_ID":     "id",
		"SECRETS_CLIENT_SECRET": "s",
		"SECRETS_BASE_URL":      "http://vault:8200",
	})
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.SecretsEnabled() {
		t.Error("identity credentials should enable the secrets client")
	}
}

func TestDurationHelpers_InvalidFallsBack(t *testing.T) {
	testCases := []struct {
		name  string
		value string
	}{
		{"invalid", "invalid"},
		{"zero", "0"},
		{"negative", "-5m"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			setEnv(t, map[string]string{
				"JWT_ACCESS_TTL":          tc.value,
				"SESSION_TTL":             tc.value,
				"SECRETS_ATTEMPT_TIMEOUT": tc.value,
			})
			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if cfg.AccessTTL() != 15*time.Minute {
				t.Errorf("AccessTTL = %v, want 15m", cfg.AccessTTL())
			}
			if cfg.SessionTTL() != 720*time.Hour {
				t.Errorf("SessionTTL = %v, want 720h", cfg.SessionTTL())
			}
			if cfg.AttemptTimeout() != 10*time.Second {
				t.Errorf("AttemptTimeout = %v, want 10s", cfg.AttemptTimeout())
			}
		})
	}
}

func TestSecureCookies(t *testing.T) {
	for env, want := range map[string]bool{"local": false, "LOCAL": false, "production": true, "": true} {
		c := &Config{Env: env}
		if got := c.SecureCookies(); got != want {
			t.Errorf("SecureCookies(APP_ENV=%q) = %v, want %v", env, got, want)
		}
	}
}
