package domain

import (
	"encoding/json"
	"time"
)

// ComplaintCategory is the normalized complaint feedback type
// (RFC 5965 feedback-type vocabulary used by SES).
type ComplaintCategory string

const (
	ComplaintAbuse       ComplaintCategory = "abuse"
	ComplaintAuthFailure ComplaintCategory = "auth-failure"
	ComplaintFraud       ComplaintCategory = "fraud"
	ComplaintNotSpam     ComplaintCategory = "not-spam"
	ComplaintOther       ComplaintCategory = "other"
	ComplaintVirus       ComplaintCategory = "virus"
)

// ComplaintRecord is one complaint event. Complaints are never merged.
type ComplaintRecord struct {
	ID              string            `json:"id" db:"id"`
	Email           string            `json:"email" db:"email"`
	UserID          string            `json:"user_id,omitempty" db:"user_id"`
	Category        ComplaintCategory `json:"category" db:"category"`
	UserAgent       string            `json:"user_agent,omitempty" db:"user_agent"`
	FeedbackID      string            `json:"feedback_id,omitempty" db:"feedback_id"`
	SourceMessageID string            `json:"source_message_id,omitempty" db:"source_message_id"`
	RawPayload      json.RawMessage   `json:"raw_payload,omitempty" db:"raw_payload"`
	Suppressed      bool              `json:"suppressed" db:"suppressed"`
	CreatedAt       time.Time         `json:"created_at" db:"created_at"`
}
