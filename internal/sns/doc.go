// Package sns parses and authenticates Amazon SNS HTTP(S) deliveries.
//
// It covers the outer SNS envelope only: message type dispatch, the
// canonical string SNS signs, signing certificate retrieval and the
// signature check, plus the subscription confirmation handshake. The
// SES notification carried in Envelope.Message is parsed by package ses.
package sns
