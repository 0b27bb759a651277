// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the /api/auth and /healthz server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// GRPCHealthAddr is the address for the grpc.health.v1 service; empty disables it.
	GRPCHealthAddr string `mapstructure:"GRPC_HEALTH_ADDR"`
	// DatabaseURL is the Postgres DSN. Takes precedence over SQLitePath.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// DatabaseAutoMigrate runs the embedded migrations against DatabaseURL at startup.
	DatabaseAutoMigrate bool `mapstructure:"DATABASE_AUTO_MIGRATE"`
	// SQLitePath selects the SQLite store when DatabaseURL is empty. With neither, sessions live in memory.
	SQLitePath string `mapstructure:"SQLITE_PATH"`
	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file; derived from the private key when empty.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTIssuer is the iss claim.
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim.
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the access token lifetime (e.g. "15m").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// SessionTTLValue is the absolute session (refresh) lifetime (e.g. "720h").
	SessionTTLValue string `mapstructure:"SESSION_TTL"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// AuthTransportMode is "body" or "cookie".
	AuthTransportMode string `mapstructure:"AUTH_TRANSPORT_MODE"`
	// Env is the application environment ("local", "development", "production").
	// Local allows insecure cookies and an ephemeral signing key.
	Env string `mapstructure:"APP_ENV"`

	SecretsBaseURL        string `mapstructure:"SECRETS_BASE_URL"`
	SecretsClientID       string `mapstructure:"SECRETS_CLIENT_ID"`
	SecretsClientSecret   string `mapstructure:"SECRETS_CLIENT_SECRET"`
	SecretsStaticToken    string `mapstructure:"SECRETS_STATIC_TOKEN"`
	SecretsRenewMargin    string `mapstructure:"SECRETS_RENEW_MARGIN"`
	SecretsAttemptTimeout string `mapstructure:"SECRETS_ATTEMPT_TIMEOUT"`
	SecretsRetryInitial   string `mapstructure:"SECRETS_RETRY_INITIAL"`
	SecretsRetryMax       string `mapstructure:"SECRETS_RETRY_MAX"`

	// OTLPEndpoint is the collector address; empty disables export.
	OTLPEndpoint    string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPInsecure    bool   `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	OTelServiceName string `mapstructure:"OTEL_SERVICE_NAME"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("GRPC_HEALTH_ADDR", ":8081")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DATABASE_AUTO_MIGRATE", false)
	v.SetDefault("SQLITE_PATH", "")
	v.SetDefault("JWT_PRIVATE_KEY", "")
	v.SetDefault("JWT_PUBLIC_KEY", "")
	v.SetDefault("JWT_ISSUER", "journal-identity")
	v.SetDefault("JWT_AUDIENCE", "journal-api")
	v.SetDefault("JWT_ACCESS_TTL", "15m")
	v.SetDefault("SESSION_TTL", "720h") // 30d
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("AUTH_TRANSPORT_MODE", "body")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("SECRETS_BASE_URL", "")
	v.SetDefault("SECRETS_CLIENT_ID", "")
	v.SetDefault("SECRETS_CLIENT_SECRET", "")
	v.SetDefault("SECRETS_STATIC_TOKEN", "")
	v.SetDefault("SECRETS_RENEW_MARGIN", "")
	v.SetDefault("SECRETS_ATTEMPT_TIMEOUT", "10s")
	v.SetDefault("SECRETS_RETRY_INITIAL", "1s")
	v.SetDefault("SECRETS_RETRY_MAX", "1m")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_SERVICE_NAME", "journal-identity")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}

	cfg.AuthTransportMode = strings.ToLower(strings.TrimSpace(cfg.AuthTransportMode))
	switch cfg.AuthTransportMode {
	case "", "body", "cookie":
	default:
		return nil, fmt.Errorf("config: AUTH_TRANSPORT_MODE must be body or cookie, got %q", cfg.AuthTransportMode)
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	if strings.TrimSpace(cfg.JWTPrivateKey) == "" && !cfg.IsLocal() {
		return nil, errors.New("config: JWT_PRIVATE_KEY must be set outside APP_ENV=local")
	}

	hasID := strings.TrimSpace(cfg.SecretsClientID) != ""
	hasSecret := strings.TrimSpace(cfg.SecretsClientSecret) != ""
	if hasID != hasSecret {
		return nil, errors.New("config: SECRETS_CLIENT_ID and SECRETS_CLIENT_SECRET must be set together")
	}
	if hasID && strings.TrimSpace(cfg.SecretsBaseURL) == "" {
		return nil, errors.New("config: SECRETS_BASE_URL must be set when secret store credentials are configured")
	}

	return &cfg, nil
}

// IsLocal reports whether APP_ENV is local development.
func (c *Config) IsLocal() bool {
	return strings.EqualFold(strings.TrimSpace(c.Env), "local")
}

// SecureCookies reports whether auth cookies carry the Secure attribute.
func (c *Config) SecureCookies() bool {
	return !c.IsLocal()
}

// SecretsEnabled reports whether a secret provider client should be started.
func (c *Config) SecretsEnabled() bool {
	return strings.TrimSpace(c.SecretsClientID) != "" || strings.TrimSpace(c.SecretsStaticToken) != ""
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	return parseDuration(c.JWTAccessTTL, 15*time.Minute)
}

// SessionTTL parses SessionTTLValue. Returns 720h if unset or invalid.
func (c *Config) SessionTTL() time.Duration {
	return parseDuration(c.SessionTTLValue, 720*time.Hour)
}

// RenewMargin parses SecretsRenewMargin. Zero selects the client's TTL-relative default.
func (c *Config) RenewMargin() time.Duration {
	return parseDuration(c.SecretsRenewMargin, 0)
}

// AttemptTimeout parses SecretsAttemptTimeout. Returns 10s if unset or invalid.
func (c *Config) AttemptTimeout() time.Duration {
	return parseDuration(c.SecretsAttemptTimeout, 10*time.Second)
}

// RetryInitial parses SecretsRetryInitial. Returns 1s if unset or invalid.
func (c *Config) RetryInitial() time.Duration {
	return parseDuration(c.SecretsRetryInitial, time.Second)
}

// RetryMax parses SecretsRetryMax. Returns 1m if unset or invalid.
func (c *Config) RetryMax() time.Duration {
	return parseDuration(c.SecretsRetryMax, time.Minute)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
