package security

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
)

// RefreshSecretBytes is the entropy of a refresh secret (256 bits).
const RefreshSecretBytes = 32

// RandomToken returns n bytes from crypto/rand, base64url-encoded without padding.
func RandomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// NewRefreshSecret generates a refresh secret and returns the raw value (for the
// client) and its hash (for storage). The raw value must never be logged or stored.
func NewRefreshSecret() (raw, hash string, err error) {
	raw, err = RandomToken(RefreshSecretBytes)
	if err != nil {
		return "", "", err
	}
	return raw, HashRefreshSecret(raw), nil
}

// HashRefreshSecret returns the SHA-256 hash of the refresh secret, hex-encoded.
func HashRefreshSecret(secret string) string {
	h := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(h[:])
}

// RefreshSecretHashEqual performs constant-time comparison of the provided secret's hash
// with the stored hash. Empty inputs never match.
func RefreshSecretHashEqual(providedSecret, storedHash string) bool {
	if providedSecret == "" || storedHash == "" {
		return false
	}
	providedHash := HashRefreshSecret(providedSecret)
	return subtle.ConstantTimeCompare([]byte(providedHash), []byte(storedHash)) == 1
}

// DeriveCSRFToken binds a CSRF token to a session: HMAC-SHA256 keyed by the
// session's csrf secret over the session id, base64url-encoded.
func DeriveCSRFToken(csrfSecret, sessionID string) string {
	mac := hmac.New(sha256.New, []byte(csrfSecret))
	mac.Write([]byte(sessionID))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// ConstantTimeEqual reports whether a and b are equal without leaking timing.
// Empty values never match.
func ConstantTimeEqual(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
