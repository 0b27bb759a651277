package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/ncruces/go-sqlite3"

	"journal-identity/internal/user/domain"
)

const sqliteSelectUser = `SELECT id, email, name, password_hash, status, created_at, updated_at FROM users`

// SQLiteRepository stores users in SQLite; timestamps are unix microseconds.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getOne(ctx, sqliteSelectUser+` WHERE id = ?`, id)
}

func (r *SQLiteRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, sqliteSelectUser+` WHERE email = ?`, email)
}

func (r *SQLiteRepository) getOne(ctx context.Context, query, arg string) (*domain.User, error) {
	var (
		u                domain.User
		status           string
		created, updated int64
	)
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.Email, &u.Name, &u.PasswordHash, &status, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	u.Status = domain.UserStatus(status)
	u.CreatedAt = time.UnixMicro(created).UTC()
	u.UpdatedAt = time.UnixMicro(updated).UTC()
	return &u, nil
}

func (r *SQLiteRepository) Create(ctx context.Context, u *domain.User) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO users
		(id, email, name, password_hash, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Name, u.PasswordHash, string(u.Status),
		u.CreatedAt.UnixMicro(), u.UpdatedAt.UnixMicro())
	if errors.Is(err, sqlite3.CONSTRAINT) {
		return ErrDuplicateEmail
	}
	return err
}
