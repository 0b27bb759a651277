package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"journal-identity/internal/db"
	"journal-identity/internal/user/domain"
)

func newTestUser(id, email string) *domain.User {
	now := time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)
	return &domain.User{
		ID:           id,
		Email:        email,
		Name:         "Test " + id,
		PasswordHash: "$2a$04$hash-" + id,
		Status:       domain.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func runUserContract(t *testing.T, newRepo func(t *testing.T) Repository) {
	ctx := context.Background()

	t.Run("create and lookup", func(t *testing.T) {
		r := newRepo(t)
		u := newTestUser("u1", "alice@example.com")
		if err := r.Create(ctx, u); err != nil {
			t.Fatalf("Create: %v", err)
		}
		byID, err := r.GetByID(ctx, "u1")
		if err != nil || byID == nil {
			t.Fatalf("GetByID: %v, %v", byID, err)
		}
		byEmail, err := r.GetByEmail(ctx, "alice@example.com")
		if err != nil || byEmail == nil {
			t.Fatalf("GetByEmail: %v, %v", byEmail, err)
		}
		if byEmail.ID != "u1" || byEmail.PasswordHash != u.PasswordHash || byEmail.Status != domain.UserStatusActive {
			t.Errorf("GetByEmail = %+v", byEmail)
		}
		if !byID.CreatedAt.Equal(u.CreatedAt) {
			t.Errorf("created_at = %v, want %v", byID.CreatedAt, u.CreatedAt)
		}
	})

	t.Run("missing returns nil", func(t *testing.T) {
		r := newRepo(t)
		if u, err := r.GetByID(ctx, "nope"); err != nil || u != nil {
			t.Errorf("GetByID missing = %v, %v", u, err)
		}
		if u, err := r.GetByEmail(ctx, "nope@example.com"); err != nil || u != nil {
			t.Errorf("GetByEmail missing = %v, %v", u, err)
		}
	})

	t.Run("duplicate email", func(t *testing.T) {
		r := newRepo(t)
		if err := r.Create(ctx, newTestUser("u1", "dup@example.com")); err != nil {
			t.Fatalf("Create: %v", err)
		}
		if err := r.Create(ctx, newTestUser("u2", "dup@example.com")); !errors.Is(err, ErrDuplicateEmail) {
			t.Errorf("duplicate email: want ErrDuplicateEmail, got %v", err)
		}
	})
}

func TestMemoryRepository(t *testing.T) {
	runUserContract(t, func(t *testing.T) Repository { return NewMemoryRepository() })
}

func TestSQLiteRepository(t *testing.T) {
	runUserContract(t, func(t *testing.T) Repository {
		conn, err := db.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "users.db"))
		if err != nil {
			t.Fatalf("OpenSQLite: %v", err)
		}
		t.Cleanup(func() { conn.Close() })
		return NewSQLiteRepository(conn)
	})
}

func TestPostgresRepository(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	runUserContract(t, func(t *testing.T) Repository {
		conn, err := db.Open(context.Background(), dsn)
		if err != nil {
			t.Skipf("database not reachable: %v", err)
		}
		t.Cleanup(func() { conn.Close() })
		if _, err := conn.Exec(`TRUNCATE users`); err != nil {
			t.Skipf("users table not migrated: %v", err)
		}
		return NewPostgresRepository(conn)
	})
}
