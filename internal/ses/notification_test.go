package ses

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bounceJSON = `{
  "notificationType": "Bounce",
  "bounce": {
    "bounceType": "Permanent",
    "bounceSubType": "General",
    "bouncedRecipients": [{"emailAddress": "A@X.com", "action": "failed", "status": "5.1.1", "diagnosticCode": "550 5.1.1"}],
    "timestamp": "2026-10-19T12:00:00.000Z",
    "feedbackId": "fb-1"
  },
  "mail": {"timestamp": "2026-10-19T11:59:59.000Z", "messageId": "msg-1", "source": "alerts@skyspots.example", "destination": ["A@X.com"]}
}`

func TestParseNotification_Bounce(t *testing.T) {
	n, err := ParseNotification(bounceJSON)
	require.NoError(t, err)

	assert.Equal(t, TypeBounce, n.Type())
	assert.Equal(t, "msg-1", n.Mail.MessageID)
	require.NotNil(t, n.Bounce)
	assert.Nil(t, n.Complaint)
	assert.Equal(t, "Permanent", n.Bounce.BounceType)
	require.Len(t, n.Bounce.BouncedRecipients, 1)
	assert.Equal(t, "550 5.1.1", n.Bounce.BouncedRecipients[0].DiagnosticCode)
	assert.JSONEq(t, bounceJSON, string(n.Raw))
}

func TestParseNotification_Complaint(t *testing.T) {
	n, err := ParseNotification(`{"notificationType":"Complaint","complaint":{"complainedRecipients":[{"emailAddress":"b@x.com"}],"feedbackId":"fb-2","userAgent":"Yahoo!-Mail-Feedback/2.0","complaintFeedbackType":"abuse"},"mail":{"messageId":"msg-2"}}`)
	require.NoError(t, err)

	assert.Equal(t, TypeComplaint, n.Type())
	require.NotNil(t, n.Complaint)
	assert.Equal(t, "Yahoo!-Mail-Feedback/2.0", n.Complaint.UserAgent)
	assert.Equal(t, "abuse", n.Complaint.ComplaintFeedbackType)
}

func TestParseNotification_EventTypeFallback(t *testing.T) {
	n, err := ParseNotification(`{"eventType":"Bounce","bounce":{"bounceType":"Transient"}}`)
	require.NoError(t, err)
	assert.Equal(t, TypeBounce, n.Type())
}

func TestParseNotification_Invalid(t *testing.T) {
	for _, msg := range []string{"", "not json", `"string"`, `{"notificationType":`} {
		_, err := ParseNotification(msg)
		assert.ErrorIs(t, err, ErrInvalidNotification, "message %q", msg)
	}
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "stella@observatory.org", NormalizeEmail("  Stella@Observatory.ORG "))
	assert.Equal(t, "", NormalizeEmail("   "))
}
