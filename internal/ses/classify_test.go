package ses

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/skyspots/backend/internal/domain"
)

func TestClassifyBounce(t *testing.T) {
	tests := []struct {
		in   string
		want domain.BounceCategory
	}{
		{"Permanent", domain.BounceHard},
		{"permanent", domain.BounceHard},
		{"Temporary", domain.BounceSoft},
		{"Transient", domain.BounceTransient},
		{"Undetermined", domain.BounceTransient},
		{"", domain.BounceTransient},
		{"something-new", domain.BounceTransient},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyBounce(tt.in))
		})
	}
}

func TestNormalizeSubType(t *testing.T) {
	assert.Equal(t, "general", NormalizeSubType("General"))
	assert.Equal(t, "mailbox_full", NormalizeSubType("Mailbox Full"))
	assert.Equal(t, "messagetoolarge", NormalizeSubType("MessageTooLarge"))
	assert.Equal(t, "", NormalizeSubType(""))
}

func TestClassifyComplaint(t *testing.T) {
	tests := []struct {
		in   string
		want domain.ComplaintCategory
	}{
		{"abuse", domain.ComplaintAbuse},
		{"auth-failure", domain.ComplaintAuthFailure},
		{"fraud", domain.ComplaintFraud},
		{"not-spam", domain.ComplaintNotSpam},
		{"other", domain.ComplaintOther},
		{"virus", domain.ComplaintVirus},
		{"ABUSE", domain.ComplaintAbuse},
		{"", domain.ComplaintOther},
		{"marketing", domain.ComplaintOther},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyComplaint(tt.in))
		})
	}
}
