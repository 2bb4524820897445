package ses

import (
	"strings"

	"github.com/skyspots/backend/internal/domain"
)

// ClassifyBounce maps an SES bounceType to a BounceCategory. Undetermined
// and unrecognized types are treated as transient so an unknown cause never
// suppresses on first sight.
func ClassifyBounce(bounceType string) domain.BounceCategory {
	switch strings.ToLower(strings.TrimSpace(bounceType)) {
	case "permanent":
		return domain.BounceHard
	case "temporary":
		return domain.BounceSoft
	default:
		return domain.BounceTransient
	}
}

// NormalizeSubType lowercases an SES bounceSubType and replaces spaces
// with underscores ("MessageTooLarge" -> "messagetoolarge",
// "Mailbox Full" -> "mailbox_full").
func NormalizeSubType(subType string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(subType)), " ", "_")
}

var complaintCategories = map[string]domain.ComplaintCategory{
	"abuse":        domain.ComplaintAbuse,
	"auth-failure": domain.ComplaintAuthFailure,
	"fraud":        domain.ComplaintFraud,
	"not-spam":     domain.ComplaintNotSpam,
	"other":        domain.ComplaintOther,
	"virus":        domain.ComplaintVirus,
}

// ClassifyComplaint maps an SES complaintFeedbackType to a
// ComplaintCategory. Missing or unknown values fold to "other".
func ClassifyComplaint(feedbackType string) domain.ComplaintCategory {
	if c, ok := complaintCategories[strings.ToLower(strings.TrimSpace(feedbackType))]; ok {
		return c
	}
	return domain.ComplaintOther
}
