package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/ncruces/go-sqlite3"

	"journal-identity/internal/session/domain"
)

// SQLiteRepository stores sessions in SQLite (ncruces/go-sqlite3). Timestamps
// are kept as unix microseconds so ordering and comparisons stay numeric.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository returns a session repository over db. The schema must
// already exist (see db.EnsureSQLiteSchema).
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO sessions
		(id, user_id, refresh_secret_hash, rotation_counter, csrf_secret, user_agent, ip_address,
		 created_at, last_rotated_at, expires_at, revoked_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.RefreshSecretHash, s.RotationCounter, s.CSRFSecret,
		s.Device.UserAgent, s.Device.IPAddress,
		s.CreatedAt.UnixMicro(), s.LastRotatedAt.UnixMicro(), s.ExpiresAt.UnixMicro(),
		microOrNull(s.RevokedAt))
	if errors.Is(err, sqlite3.CONSTRAINT) {
		return ErrDuplicateSession
	}
	return err
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	var (
		s                                   domain.Session
		createdAt, lastRotatedAt, expiresAt int64
		revokedAt                           sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, `SELECT id, user_id, refresh_secret_hash, rotation_counter, csrf_secret,
		user_agent, ip_address, created_at, last_rotated_at, expires_at, revoked_at
		FROM sessions WHERE id = ?`, id).Scan(
		&s.ID, &s.UserID, &s.RefreshSecretHash, &s.RotationCounter, &s.CSRFSecret,
		&s.Device.UserAgent, &s.Device.IPAddress,
		&createdAt, &lastRotatedAt, &expiresAt, &revokedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	s.CreatedAt = time.UnixMicro(createdAt).UTC()
	s.LastRotatedAt = time.UnixMicro(lastRotatedAt).UTC()
	s.ExpiresAt = time.UnixMicro(expiresAt).UTC()
	if revokedAt.Valid {
		t := time.UnixMicro(revokedAt.Int64).UTC()
		s.RevokedAt = &t
	}
	return &s, nil
}

func (r *SQLiteRepository) ConditionalUpdate(ctx context.Context, id string, expectedCounter int64, newHash string, newCounter int64, rotatedAt time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE sessions
		SET refresh_secret_hash = ?, rotation_counter = ?, last_rotated_at = ?
		WHERE id = ? AND rotation_counter = ? AND revoked_at IS NULL`,
		newHash, newCounter, rotatedAt.UnixMicro(), id, expectedCounter)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *SQLiteRepository) Revoke(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET revoked_at = ? WHERE id = ? AND revoked_at IS NULL`, at.UnixMicro(), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *SQLiteRepository) RevokeAllByUser(ctx context.Context, userID string, at time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET revoked_at = ? WHERE user_id = ? AND revoked_at IS NULL`, at.UnixMicro(), userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func microOrNull(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMicro(), Valid: true}
}
