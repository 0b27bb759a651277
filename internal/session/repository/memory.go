package repository

import (
	"context"
	"sync"
	"time"

	"journal-identity/internal/session/domain"
)

// MemoryRepository is an in-process Repository. The mutex makes
// ConditionalUpdate a true compare-and-swap; stored values are copied on the
// way in and out so callers never alias store state.
type MemoryRepository struct {
	mu sync.Mutex
	m  map[string]*domain.Session
}

// NewMemoryRepository returns an empty in-memory session repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{m: make(map[string]*domain.Session)}
}

func (r *MemoryRepository) Create(ctx context.Context, s *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.m[s.ID]; ok {
		return ErrDuplicateSession
	}
	r.m[s.ID] = cloneSession(s)
	return nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.m[id]
	if !ok {
		return nil, nil
	}
	return cloneSession(s), nil
}

func (r *MemoryRepository) ConditionalUpdate(ctx context.Context, id string, expectedCounter int64, newHash string, newCounter int64, rotatedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.m[id]
	if !ok || s.RevokedAt != nil || s.RotationCounter != expectedCounter {
		return false, nil
	}
	s.RefreshSecretHash = newHash
	s.RotationCounter = newCounter
	s.LastRotatedAt = rotatedAt
	return true, nil
}

func (r *MemoryRepository) Revoke(ctx context.Context, id string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.m[id]
	if !ok || s.RevokedAt != nil {
		return false, nil
	}
	t := at
	s.RevokedAt = &t
	return true, nil
}

func (r *MemoryRepository) RevokeAllByUser(ctx context.Context, userID string, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, s := range r.m {
		if s.UserID == userID && s.RevokedAt == nil {
			t := at
			s.RevokedAt = &t
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) Ping(ctx context.Context) error {
	return nil
}

func cloneSession(s *domain.Session) *domain.Session {
	c := *s
	if s.RevokedAt != nil {
		t := *s.RevokedAt
		c.RevokedAt = &t
	}
	return &c
}
