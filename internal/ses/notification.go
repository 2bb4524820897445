// Package ses decodes Amazon SES feedback notifications delivered through
// SNS, classifies them into the platform's bounce and complaint categories,
// and talks to the SES v2 API for account-level suppression mirroring.
package ses

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Notification types carried in the inner SNS Message.
const (
	TypeBounce    = "Bounce"
	TypeComplaint = "Complaint"
	TypeDelivery  = "Delivery"
)

// ErrInvalidNotification is returned when the inner message is not a JSON object.
var ErrInvalidNotification = errors.New("ses: invalid notification JSON")

// Notification is the SES feedback document found in an SNS envelope's
// Message field.
type Notification struct {
	NotificationType string     `json:"notificationType"`
	EventType        string     `json:"eventType,omitempty"` // configuration-set event publishing
	Mail             Mail       `json:"mail"`
	Bounce           *Bounce    `json:"bounce,omitempty"`
	Complaint        *Complaint `json:"complaint,omitempty"`

	// Raw is the undecoded message, kept as the ledger's payload snapshot.
	Raw json.RawMessage `json:"-"`
}

// Mail describes the original outbound message.
type Mail struct {
	Timestamp   string   `json:"timestamp"`
	MessageID   string   `json:"messageId"`
	Source      string   `json:"source"`
	SourceArn   string   `json:"sourceArn,omitempty"`
	Destination []string `json:"destination,omitempty"`
}

// Bounce is the bounce object of a Bounce notification.
type Bounce struct {
	BounceType        string             `json:"bounceType"`
	BounceSubType     string             `json:"bounceSubType"`
	BouncedRecipients []BouncedRecipient `json:"bouncedRecipients"`
	Timestamp         string             `json:"timestamp"`
	FeedbackID        string             `json:"feedbackId"`
	ReportingMTA      string             `json:"reportingMTA,omitempty"`
}

// BouncedRecipient is one address an SES bounce reports.
type BouncedRecipient struct {
	EmailAddress   string `json:"emailAddress"`
	Action         string `json:"action,omitempty"`
	Status         string `json:"status,omitempty"`
	DiagnosticCode string `json:"diagnosticCode,omitempty"`
}

// Complaint is the complaint object of a Complaint notification.
type Complaint struct {
	ComplainedRecipients  []ComplainedRecipient `json:"complainedRecipients"`
	Timestamp             string                `json:"timestamp"`
	FeedbackID            string                `json:"feedbackId"`
	UserAgent             string                `json:"userAgent,omitempty"`
	ComplaintFeedbackType string                `json:"complaintFeedbackType,omitempty"`
	ArrivalDate           string                `json:"arrivalDate,omitempty"`
}

// ComplainedRecipient is one address an SES complaint reports.
type ComplainedRecipient struct {
	EmailAddress string `json:"emailAddress"`
}

// ParseNotification decodes the inner SNS message.
func ParseNotification(message string) (*Notification, error) {
	trimmed := strings.TrimSpace(message)
	if !strings.HasPrefix(trimmed, "{") {
		return nil, ErrInvalidNotification
	}
	var n Notification
	if err := json.Unmarshal([]byte(trimmed), &n); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidNotification, err)
	}
	n.Raw = json.RawMessage(trimmed)
	return &n, nil
}

// Type returns the declared notification type, falling back to eventType
// for configuration-set event destinations.
func (n *Notification) Type() string {
	if n.NotificationType != "" {
		return n.NotificationType
	}
	return n.EventType
}

// NormalizeEmail lowercases and trims a recipient address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
