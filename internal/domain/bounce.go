package domain

import (
	"encoding/json"
	"time"
)

// BounceCategory is the internal classification of an SES bounce type.
type BounceCategory string

const (
	BounceHard      BounceCategory = "hard"
	BounceSoft      BounceCategory = "soft"
	BounceTransient BounceCategory = "transient"
)

// SuppressionPolicy holds the occurrence thresholds after which repeated
// non-permanent bounces suppress an address. Hard bounces always suppress
// on first sight.
type SuppressionPolicy struct {
	SoftBounceThreshold      int `json:"soft_bounce_threshold"`
	TransientBounceThreshold int `json:"transient_bounce_threshold"`
}

// DefaultSuppressionPolicy returns the thresholds used when none are configured.
func DefaultSuppressionPolicy() SuppressionPolicy {
	return SuppressionPolicy{SoftBounceThreshold: 3, TransientBounceThreshold: 5}
}

// BounceRecord is the per-address bounce ledger row. There is at most one
// record per lowercased address; BounceCount only ever grows, every other
// attribute reflects the most recent bounce.
type BounceRecord struct {
	ID              string          `json:"id" db:"id"`
	Email           string          `json:"email" db:"email"`
	UserID          string          `json:"user_id,omitempty" db:"user_id"`
	BounceCount     int             `json:"bounce_count" db:"bounce_count"`
	Category        BounceCategory  `json:"category" db:"category"`
	SubType         string          `json:"sub_type" db:"sub_type"`
	DiagnosticCode  string          `json:"diagnostic_code,omitempty" db:"diagnostic_code"`
	SourceMessageID string          `json:"source_message_id,omitempty" db:"source_message_id"`
	RawPayload      json.RawMessage `json:"raw_payload,omitempty" db:"raw_payload"`
	Suppressed      bool            `json:"suppressed" db:"suppressed"`
	FirstBouncedAt  time.Time       `json:"first_bounced_at" db:"first_bounced_at"`
	LastBouncedAt   time.Time       `json:"last_bounced_at" db:"last_bounced_at"`
}

// ShouldSuppress reports whether the record has crossed the policy
// threshold for its current category. Already-suppressed records return false.
func (b *BounceRecord) ShouldSuppress(p SuppressionPolicy) bool {
	if b.Suppressed {
		return false
	}
	switch b.Category {
	case BounceHard:
		return b.BounceCount >= 1
	case BounceSoft:
		return p.SoftBounceThreshold > 0 && b.BounceCount >= p.SoftBounceThreshold
	case BounceTransient:
		return p.TransientBounceThreshold > 0 && b.BounceCount >= p.TransientBounceThreshold
	}
	return false
}

// SuppressionReason maps the record's category to a suppression reason.
func (b *BounceRecord) SuppressionReason() SuppressionReason {
	if b.Category == BounceHard {
		return ReasonHardBounce
	}
	return ReasonSoftBounce
}
