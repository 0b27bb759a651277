package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"journal-identity/internal/db"
	"journal-identity/internal/session/domain"
	"journal-identity/internal/session/repository"
)

func newSQLiteRepo(t *testing.T) repository.Repository {
	t.Helper()
	conn, err := db.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return repository.NewSQLiteRepository(conn)
}

func TestRefresh_ConcurrentSameSecretSQLite(t *testing.T) {
	env := newTestEnv(t, newSQLiteRepo(t))
	for i := 0; i < 5; i++ {
		runConcurrentRefresh(t, env)
	}
}

// cancelAfterLoadRepository cancels the request context once the session has
// been loaded, as a client disconnecting mid-refresh would.
type cancelAfterLoadRepository struct {
	repository.Repository
	cancel context.CancelFunc
}

func (r *cancelAfterLoadRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	sess, err := r.Repository.GetByID(ctx, id)
	if r.cancel != nil {
		r.cancel()
	}
	return sess, err
}

func TestRefresh_ReuseRevokesAfterClientCancel(t *testing.T) {
	sqlite := newSQLiteRepo(t)
	repo := &cancelAfterLoadRepository{Repository: sqlite}
	env := newTestEnv(t, repo)
	ctx := context.Background()

	login, err := env.svc.StartSession(ctx, "u1", testDevice)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	tokenA := login.RefreshToken
	rotated, err := env.svc.RefreshToken(ctx, tokenA)
	if err != nil {
		t.Fatalf("first refresh: %v", err)
	}

	reqCtx, cancel := context.WithCancel(ctx)
	repo.cancel = cancel
	if _, err := env.svc.RefreshToken(reqCtx, tokenA); !errors.Is(err, ErrTokenReused) {
		t.Fatalf("replay of A: want ErrTokenReused, got %v", err)
	}
	repo.cancel = nil

	stored, err := sqlite.GetByID(ctx, login.Session.ID)
	if err != nil || stored == nil {
		t.Fatalf("GetByID: %v, %v", stored, err)
	}
	if stored.RevokedAt == nil {
		t.Fatal("replay from a disconnected client should still revoke the session")
	}
	if _, err := env.svc.RefreshToken(ctx, rotated.RefreshToken); !errors.Is(err, ErrSessionInvalid) {
		t.Errorf("B after reuse: want ErrSessionInvalid, got %v", err)
	}
}
