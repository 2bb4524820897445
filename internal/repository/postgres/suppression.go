package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/skyspots/backend/internal/domain"
	"github.com/skyspots/backend/internal/service/suppression"
)

// SuppressionRepo implements suppression.Repository against PostgreSQL.
type SuppressionRepo struct{ db *sql.DB }

// NewSuppressionRepo creates a Postgres-backed suppression repository.
func NewSuppressionRepo(db *sql.DB) *SuppressionRepo { return &SuppressionRepo{db: db} }

func (r *SuppressionRepo) IsSuppressed(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM email_suppressions WHERE email = $1)`,
		email,
	).Scan(&exists)
	return exists, err
}

// Add relies on the unique email index; a conflicting insert returns no
// row and leaves the first entry untouched.
func (r *SuppressionRepo) Add(ctx context.Context, e *domain.SuppressionEntry) (bool, error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO email_suppressions (id, email, reason, bounce_id, complaint_id, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (email) DO NOTHING
		RETURNING created_at
	`, e.ID, e.Email, e.Reason, nullString(e.BounceID), nullString(e.ComplaintID), e.Notes,
	).Scan(&e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("add suppression: %w", err)
	}
	return true, nil
}

const suppressionColumns = `id, email, reason, bounce_id, complaint_id, notes, created_at`

func scanSuppression(row interface{ Scan(...interface{}) error }) (*domain.SuppressionEntry, error) {
	var (
		e                     domain.SuppressionEntry
		bounceID, complaintID sql.NullString
	)
	if err := row.Scan(&e.ID, &e.Email, &e.Reason, &bounceID, &complaintID, &e.Notes, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.BounceID = bounceID.String
	e.ComplaintID = complaintID.String
	return &e, nil
}

func (r *SuppressionRepo) Get(ctx context.Context, email string) (*domain.SuppressionEntry, error) {
	e, err := scanSuppression(r.db.QueryRowContext(ctx,
		`SELECT `+suppressionColumns+` FROM email_suppressions WHERE email = $1`,
		email,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, suppression.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get suppression: %w", err)
	}
	return e, nil
}

// likeEscaper makes a search term match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (r *SuppressionRepo) List(ctx context.Context, f suppression.ListFilter) ([]domain.SuppressionEntry, int, error) {
	var (
		where []string
		args  []interface{}
	)
	if f.Reason != "" {
		args = append(args, f.Reason)
		where = append(where, fmt.Sprintf("reason = $%d", len(args)))
	}
	if f.Search != "" {
		args = append(args, "%"+likeEscaper.Replace(f.Search)+"%")
		where = append(where, fmt.Sprintf(`email LIKE $%d ESCAPE '\'`, len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM email_suppressions`+clause, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count suppressions: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = total
	}
	args = append(args, limit, f.Offset)
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+suppressionColumns+` FROM email_suppressions`+clause+
			fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list suppressions: %w", err)
	}
	defer rows.Close()

	var out []domain.SuppressionEntry
	for rows.Next() {
		e, err := scanSuppression(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan suppression: %w", err)
		}
		out = append(out, *e)
	}
	return out, total, rows.Err()
}

func (r *SuppressionRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM email_suppressions`).Scan(&n)
	return n, err
}

func (r *SuppressionRepo) CountByReason(ctx context.Context) (map[domain.SuppressionReason]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT reason, COUNT(*) FROM email_suppressions GROUP BY reason`,
	)
	if err != nil {
		return nil, fmt.Errorf("count suppressions by reason: %w", err)
	}
	defer rows.Close()

	out := make(map[domain.SuppressionReason]int)
	for rows.Next() {
		var (
			reason domain.SuppressionReason
			n      int
		)
		if err := rows.Scan(&reason, &n); err != nil {
			return nil, err
		}
		out[reason] = n
	}
	return out, rows.Err()
}
