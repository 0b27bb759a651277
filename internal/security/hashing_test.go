package security

import (
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHasher_RoundTrip(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	hash, err := h.Hash([]byte("Journal-Entry-42"))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if cost, err := bcrypt.Cost([]byte(hash)); err != nil || cost != bcrypt.MinCost {
		t.Errorf("stored cost = %d (%v), want %d", cost, err, bcrypt.MinCost)
	}
	if err := h.Compare(hash, []byte("Journal-Entry-42")); err != nil {
		t.Errorf("Compare correct password: %v", err)
	}
	if err := h.Compare(hash, []byte("journal-entry-42")); !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		t.Errorf("Compare wrong password: want ErrMismatchedHashAndPassword, got %v", err)
	}
	if err := h.Compare("not-a-bcrypt-hash", []byte("x")); err == nil {
		t.Error("Compare against a malformed hash should fail")
	}
}

func TestNewHasher_ClampsCost(t *testing.T) {
	testCases := []struct {
		in, want int
	}{
		{0, bcrypt.DefaultCost},
		{-3, bcrypt.DefaultCost},
		{2, bcrypt.MinCost},
		{12, 12},
		{40, bcrypt.MaxCost},
	}
	for _, tc := range testCases {
		if got := NewHasher(tc.in).Cost; got != tc.want {
			t.Errorf("NewHasher(%d).Cost = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestHasher_CompareDummyAlwaysMismatches(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	for _, pw := range []string{"journal-identity-dummy", "", "anything"} {
		if err := h.CompareDummy([]byte(pw)); !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			t.Errorf("CompareDummy(%q) = %v, want ErrMismatchedHashAndPassword", pw, err)
		}
	}
}
