package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// User is a registered player account.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	LastSeenAt   time.Time
}

// UserRepository stores player accounts.
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a user repository.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user row.
func (r *UserRepository) Create(ctx context.Context, u User) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO users (id, username, email, password_hash, created_at, last_seen_at)
		VALUES ($1, $2, $3, $4, now(), now())`,
		u.ID, u.Username, u.Email, u.PasswordHash)
	if err != nil {
		return fmt.Errorf("create user %s: %w", u.Username, err)
	}
	return nil
}

// GetByUsername fetches a user by name.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (User, error) {
	return r.get(ctx, `SELECT id, username, email, password_hash, created_at, last_seen_at
		FROM users WHERE username = $1`, username)
}

// GetByID fetches a user by id.
func (r *UserRepository) GetByID(ctx context.Context, id string) (User, error) {
	return r.get(ctx, `SELECT id, username, email, password_hash, created_at, last_seen_at
		FROM users WHERE id = $1`, id)
}

func (r *UserRepository) get(ctx context.Context, query, arg string) (User, error) {
	var u User
	err := r.db.pool.QueryRow(ctx, query, arg).Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.LastSeenAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, fmt.Errorf("user %s: %w", arg, ErrNotFound)
	}
	if err != nil {
		return User{}, fmt.Errorf("get user %s: %w", arg, err)
	}
	return u, nil
}

// UpdatePassword replaces a user's password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	tag, err := r.db.pool.Exec(ctx,
		`UPDATE users SET password_hash = $2 WHERE id = $1`, id, passwordHash)
	if err != nil {
		return fmt.Errorf("update password for %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return nil
}

// TouchLastSeen stamps the user's last activity time.
func (r *UserRepository) TouchLastSeen(ctx context.Context, id string) error {
	_, err := r.db.pool.Exec(ctx,
		`UPDATE users SET last_seen_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("touch last seen for %s: %w", id, err)
	}
	return nil
}
