package security

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestTokenProvider_IssueAndValidateAccess(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	p, err := NewTestTokenProvider(clock)
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}

	token, exp, err := p.IssueAccess("u1", "s1")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if token == "" {
		t.Fatal("access token empty")
	}
	if want := clock.Now().Add(TestAccessTTL); !exp.Equal(want) {
		t.Errorf("expiresAt = %v, want %v", exp, want)
	}

	claims, err := p.ValidateAccess(token)
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
	if claims.Subject != "u1" || claims.SessionID != "s1" {
		t.Errorf("claims: sub=%q sid=%q", claims.Subject, claims.SessionID)
	}
	if claims.IssuedAt == nil || !claims.IssuedAt.Time.Equal(clock.Now()) {
		t.Errorf("iat = %v, want %v", claims.IssuedAt, clock.Now())
	}
}

func TestTokenProvider_ExpiredAccessRejectedStatelessly(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	p, err := NewTestTokenProvider(clock)
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	token, _, err := p.IssueAccess("u1", "s1")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}

	clock.Advance(TestAccessTTL + time.Second)
	if _, err := p.ValidateAccess(token); err != ErrInvalidToken {
		t.Errorf("ValidateAccess expired token: want ErrInvalidToken, got %v", err)
	}
}

func TestTokenProvider_ValidateAccessInvalid(t *testing.T) {
	p, err := NewTestTokenProvider(nil)
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	for _, tok := range []string{"", "invalid-token", "a.b.c"} {
		if _, err := p.ValidateAccess(tok); err != ErrInvalidToken {
			t.Errorf("ValidateAccess(%q): want ErrInvalidToken, got %v", tok, err)
		}
	}
}

func TestTokenProvider_RejectsOtherAudienceAndKey(t *testing.T) {
	p, err := NewTestTokenProvider(nil)
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	signer, pub, err := LoadSigningKeys(testPrivateKeyPEM, testPublicKeyPEM)
	if err != nil {
		t.Fatalf("LoadSigningKeys: %v", err)
	}
	otherAud := NewTokenProvider(signer, pub, "test-issuer", "other-audience", time.Minute, nil)
	token, _, err := otherAud.IssueAccess("u1", "s1")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if _, err := p.ValidateAccess(token); err != ErrInvalidToken {
		t.Errorf("other audience: want ErrInvalidToken, got %v", err)
	}

	ecSigner, ecPub, err := GenerateSigningKey()
	if err != nil {
		t.Fatalf("GenerateSigningKey: %v", err)
	}
	otherKey := NewTokenProvider(ecSigner, ecPub, "test-issuer", "test-audience", time.Minute, nil)
	token, _, err = otherKey.IssueAccess("u1", "s1")
	if err != nil {
		t.Fatalf("IssueAccess ES256: %v", err)
	}
	if _, err := otherKey.ValidateAccess(token); err != nil {
		t.Errorf("ES256 round trip: %v", err)
	}
	if _, err := p.ValidateAccess(token); err != ErrInvalidToken {
		t.Errorf("foreign key: want ErrInvalidToken, got %v", err)
	}
}
