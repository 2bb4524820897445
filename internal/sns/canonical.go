package sns

import (
	"bytes"
	"errors"
	"fmt"
)

// ErrUnverifiableType is returned for envelope types that have no known
// signing recipe.
var ErrUnverifiableType = errors.New("sns: unverifiable message type")

type field struct {
	name  string
	value func(*Envelope) (string, bool)
}

func always(get func(*Envelope) string) func(*Envelope) (string, bool) {
	return func(e *Envelope) (string, bool) { return get(e), true }
}

var (
	fMessage      = field{"Message", always(func(e *Envelope) string { return e.Message })}
	fMessageID    = field{"MessageId", always(func(e *Envelope) string { return e.MessageID })}
	fSubscribeURL = field{"SubscribeURL", always(func(e *Envelope) string { return e.SubscribeURL })}
	fTimestamp    = field{"Timestamp", always(func(e *Envelope) string { return e.Timestamp })}
	fToken        = field{"Token", always(func(e *Envelope) string { return e.Token })}
	fTopicArn     = field{"TopicArn", always(func(e *Envelope) string { return e.TopicArn })}
	fType         = field{"Type", always(func(e *Envelope) string { return string(e.Type) })}
	fSubject      = field{"Subject", func(e *Envelope) (string, bool) {
		if e.Subject == nil {
			return "", false
		}
		return *e.Subject, true
	}}
)

// Field order is fixed by the SNS signing scheme.
var signedFields = map[MessageType][]field{
	TypeNotification:             {fMessage, fMessageID, fSubject, fTimestamp, fTopicArn, fType},
	TypeSubscriptionConfirmation: {fMessage, fMessageID, fSubscribeURL, fTimestamp, fToken, fTopicArn, fType},
}

// CanonicalString rebuilds the exact bytes SNS signed for env: each signed
// field contributes "name\nvalue\n". Subject is skipped entirely when absent.
func CanonicalString(env *Envelope) ([]byte, error) {
	fields, ok := signedFields[env.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnverifiableType, env.Type)
	}

	var buf bytes.Buffer
	for _, f := range fields {
		v, present := f.value(env)
		if !present {
			continue
		}
		buf.WriteString(f.name)
		buf.WriteByte('\n')
		buf.WriteString(v)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}
