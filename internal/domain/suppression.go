package domain

import "time"

// SuppressionReason enumerates why an email was suppressed.
type SuppressionReason string

const (
	ReasonHardBounce SuppressionReason = "hard_bounce"
	ReasonSoftBounce SuppressionReason = "soft_bounce"
	ReasonComplaint  SuppressionReason = "complaint"
)

// Valid reports whether r is one of the known reasons.
func (r SuppressionReason) Valid() bool {
	switch r {
	case ReasonHardBounce, ReasonSoftBounce, ReasonComplaint:
		return true
	}
	return false
}

// SuppressionRef points back at the ledger record that triggered a
// suppression. At most one of the two IDs is set.
type SuppressionRef struct {
	BounceID    string
	ComplaintID string
}

// SuppressionEntry is a single address on the global suppression list.
type SuppressionEntry struct {
	ID          string            `json:"id" db:"id"`
	Email       string            `json:"email" db:"email"`
	Reason      SuppressionReason `json:"reason" db:"reason"`
	BounceID    string            `json:"bounce_id,omitempty" db:"bounce_id"`
	ComplaintID string            `json:"complaint_id,omitempty" db:"complaint_id"`
	Notes       string            `json:"notes,omitempty" db:"notes"`
	CreatedAt   time.Time         `json:"created_at" db:"created_at"`
}
