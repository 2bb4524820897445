package sns

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// MessageType is the SNS envelope "Type" field.
type MessageType string

const (
	TypeNotification             MessageType = "Notification"
	TypeSubscriptionConfirmation MessageType = "SubscriptionConfirmation"
	TypeUnsubscribeConfirmation  MessageType = "UnsubscribeConfirmation"
)

// ErrInvalidEnvelope is returned when a request body is not a JSON object.
var ErrInvalidEnvelope = errors.New("sns: invalid envelope")

// Envelope is the outer JSON document SNS POSTs to an HTTP(S) subscriber.
// Subject is a pointer because its presence, not its value, decides
// whether it takes part in the signed string.
type Envelope struct {
	Type             MessageType `json:"Type"`
	MessageID        string      `json:"MessageId"`
	Token            string      `json:"Token,omitempty"`
	TopicArn         string      `json:"TopicArn"`
	Subject          *string     `json:"Subject,omitempty"`
	Message          string      `json:"Message"`
	SubscribeURL     string      `json:"SubscribeURL,omitempty"`
	Timestamp        string      `json:"Timestamp"`
	SignatureVersion string      `json:"SignatureVersion,omitempty"`
	Signature        string      `json:"Signature"`
	SigningCertURL   string      `json:"SigningCertURL"`
	UnsubscribeURL   string      `json:"UnsubscribeURL,omitempty"`
}

// ParseEnvelope decodes a request body into an Envelope. The body must be a
// JSON object; anything else yields ErrInvalidEnvelope.
func ParseEnvelope(body []byte) (*Envelope, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, ErrInvalidEnvelope
	}
	var env Envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	return &env, nil
}

// IsSubscriptionConfirmation reports whether the envelope is the
// subscription handshake rather than a notification.
func (e *Envelope) IsSubscriptionConfirmation() bool {
	return e.Type == TypeSubscriptionConfirmation
}
