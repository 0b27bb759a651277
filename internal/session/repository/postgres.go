package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"journal-identity/internal/session/domain"
)

const pgUniqueViolation = "23505"

const pgSelectSession = `SELECT id, user_id, refresh_secret_hash, rotation_counter, csrf_secret,
	user_agent, ip_address, created_at, last_rotated_at, expires_at, revoked_at
	FROM sessions WHERE id = $1`

// PostgresRepository stores sessions in Postgres through the pgx stdlib driver.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the session to the database. The session must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO sessions
		(id, user_id, refresh_secret_hash, rotation_counter, csrf_secret, user_agent, ip_address,
		 created_at, last_rotated_at, expires_at, revoked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		s.ID, s.UserID, s.RefreshSecretHash, s.RotationCounter, s.CSRFSecret,
		s.Device.UserAgent, s.Device.IPAddress,
		s.CreatedAt, s.LastRotatedAt, s.ExpiresAt, timeToNullTime(s.RevokedAt))
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrDuplicateSession
	}
	return err
}

// GetByID returns the session for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	var (
		s       domain.Session
		revoked sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, pgSelectSession, id).Scan(
		&s.ID, &s.UserID, &s.RefreshSecretHash, &s.RotationCounter, &s.CSRFSecret,
		&s.Device.UserAgent, &s.Device.IPAddress,
		&s.CreatedAt, &s.LastRotatedAt, &s.ExpiresAt, &revoked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	s.RevokedAt = nullTimeToPtr(revoked)
	return &s, nil
}

// ConditionalUpdate is a single guarded UPDATE; the WHERE clause on
// rotation_counter is the compare-and-swap.
func (r *PostgresRepository) ConditionalUpdate(ctx context.Context, id string, expectedCounter int64, newHash string, newCounter int64, rotatedAt time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE sessions
		SET refresh_secret_hash = $1, rotation_counter = $2, last_rotated_at = $3
		WHERE id = $4 AND rotation_counter = $5 AND revoked_at IS NULL`,
		newHash, newCounter, rotatedAt, id, expectedCounter)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Revoke marks the session as revoked unless it already is.
func (r *PostgresRepository) Revoke(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET revoked_at = $1 WHERE id = $2 AND revoked_at IS NULL`, at, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// RevokeAllByUser revokes all unrevoked sessions for the given user.
func (r *PostgresRepository) RevokeAllByUser(ctx context.Context, userID string, at time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET revoked_at = $1 WHERE user_id = $2 AND revoked_at IS NULL`, at, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func timeToNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullTimeToPtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	t := n.Time
	return &t
}
