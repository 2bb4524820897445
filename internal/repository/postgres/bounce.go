package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/skyspots/backend/internal/domain"
	"github.com/skyspots/backend/internal/service/ingest"
)

// BounceRepo implements ingest.BounceRepository against PostgreSQL.
type BounceRepo struct{ db *sql.DB }

// NewBounceRepo creates a Postgres-backed bounce ledger.
func NewBounceRepo(db *sql.DB) *BounceRepo { return &BounceRepo{db: db} }

func (r *BounceRepo) FindByEmail(ctx context.Context, email string) (*domain.BounceRecord, error) {
	var (
		rec    domain.BounceRecord
		userID sql.NullString
		raw    sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, user_id, bounce_count, category, sub_type, diagnostic_code,
		       source_message_id, raw_payload::text, suppressed, first_bounced_at, last_bounced_at
		FROM ses_bounce_records
		WHERE email = $1
	`, email).Scan(&rec.ID, &rec.Email, &userID, &rec.BounceCount, &rec.Category, &rec.SubType,
		&rec.DiagnosticCode, &rec.SourceMessageID, &raw, &rec.Suppressed, &rec.FirstBouncedAt, &rec.LastBouncedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ingest.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find bounce record: %w", err)
	}
	rec.UserID = userID.String
	rec.RawPayload = rawJSON(raw)
	return &rec, nil
}

func (r *BounceRepo) Create(ctx context.Context, rec *domain.BounceRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO ses_bounce_records (id, email, user_id, bounce_count, category, sub_type,
			diagnostic_code, source_message_id, raw_payload, suppressed, first_bounced_at, last_bounced_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			COALESCE($11::timestamptz, NOW()), COALESCE($12::timestamptz, NOW()))
	`, rec.ID, rec.Email, nullString(rec.UserID), rec.BounceCount, rec.Category, rec.SubType,
		rec.DiagnosticCode, rec.SourceMessageID, nullJSON(rec.RawPayload), rec.Suppressed,
		nullTime(rec.FirstBouncedAt), nullTime(rec.LastBouncedAt))
	if isUniqueViolation(err) {
		return ingest.ErrDuplicateRecord
	}
	if err != nil {
		return fmt.Errorf("create bounce record: %w", err)
	}
	return nil
}

// RecordRepeat increments in SQL so concurrent deliveries for the same
// address never lose a count.
func (r *BounceRepo) RecordRepeat(ctx context.Context, rec *domain.BounceRecord) error {
	var userID sql.NullString
	err := r.db.QueryRowContext(ctx, `
		UPDATE ses_bounce_records
		SET bounce_count = bounce_count + 1,
		    category = $2,
		    sub_type = $3,
		    diagnostic_code = $4,
		    source_message_id = $5,
		    raw_payload = $6,
		    last_bounced_at = COALESCE($7::timestamptz, NOW()),
		    updated_at = NOW()
		WHERE email = $1
		RETURNING id, bounce_count, user_id, suppressed, first_bounced_at
	`, rec.Email, rec.Category, rec.SubType, rec.DiagnosticCode, rec.SourceMessageID,
		nullJSON(rec.RawPayload), nullTime(rec.LastBouncedAt),
	).Scan(&rec.ID, &rec.BounceCount, &userID, &rec.Suppressed, &rec.FirstBouncedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ingest.ErrRecordNotFound
	}
	if err != nil {
		return fmt.Errorf("update bounce record: %w", err)
	}
	rec.UserID = userID.String
	return nil
}

func (r *BounceRepo) MarkSuppressed(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE ses_bounce_records SET suppressed = true, updated_at = NOW() WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("mark bounce suppressed: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ingest.ErrRecordNotFound
	}
	return nil
}
