package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/skyspots/backend/internal/domain"
	"github.com/skyspots/backend/internal/service/ingest"
)

// ComplaintRepo implements ingest.ComplaintRepository against PostgreSQL.
type ComplaintRepo struct{ db *sql.DB }

// NewComplaintRepo creates a Postgres-backed complaint log.
func NewComplaintRepo(db *sql.DB) *ComplaintRepo { return &ComplaintRepo{db: db} }

func (r *ComplaintRepo) Create(ctx context.Context, rec *domain.ComplaintRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO ses_complaint_records (id, email, user_id, category, user_agent,
			feedback_id, source_message_id, raw_payload, suppressed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, COALESCE($10::timestamptz, NOW()))
	`, rec.ID, rec.Email, nullString(rec.UserID), rec.Category, rec.UserAgent,
		rec.FeedbackID, rec.SourceMessageID, nullJSON(rec.RawPayload), rec.Suppressed, nullTime(rec.CreatedAt))
	if err != nil {
		return fmt.Errorf("create complaint record: %w", err)
	}
	return nil
}

func (r *ComplaintRepo) MarkSuppressed(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE ses_complaint_records SET suppressed = true WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("mark complaint suppressed: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ingest.ErrRecordNotFound
	}
	return nil
}

// ListByEmail returns every complaint for an address, newest first.
func (r *ComplaintRepo) ListByEmail(ctx context.Context, email string) ([]domain.ComplaintRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, email, user_id, category, user_agent, feedback_id, source_message_id, suppressed, created_at
		FROM ses_complaint_records
		WHERE email = $1
		ORDER BY created_at DESC
	`, email)
	if err != nil {
		return nil, fmt.Errorf("list complaints: %w", err)
	}
	defer rows.Close()

	var out []domain.ComplaintRecord
	for rows.Next() {
		var (
			c      domain.ComplaintRecord
			userID sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.Email, &userID, &c.Category, &c.UserAgent, &c.FeedbackID,
			&c.SourceMessageID, &c.Suppressed, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan complaint: %w", err)
		}
		c.UserID = userID.String
		out = append(out, c)
	}
	return out, rows.Err()
}
