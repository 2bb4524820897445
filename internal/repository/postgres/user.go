package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// UserRepo resolves platform accounts by email. It implements
// ingest.UserResolver.
type UserRepo struct{ db *sql.DB }

// NewUserRepo creates a Postgres-backed user resolver.
func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

func (r *UserRepo) ResolveUserID(ctx context.Context, email string) (string, error) {
	var id string
	err := r.db.QueryRowContext(ctx,
		`SELECT id::text FROM users WHERE lower(email) = $1 LIMIT 1`,
		email,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("resolve user: %w", err)
	}
	return id, nil
}
