package sns

import (
	"context"
	"crypto"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/skyspots/backend/internal/pkg/logger"
)

var (
	ErrMissingSignature = errors.New("sns: missing signature")
	ErrNotRSAKey        = errors.New("sns: signing certificate does not carry an RSA key")
)

// Verifier checks SNS envelope signatures.
type Verifier struct {
	certs CertSource
	log   *logger.Logger
}

// NewVerifier creates a verifier that resolves certificates through certs.
func NewVerifier(certs CertSource, log *logger.Logger) *Verifier {
	if log == nil {
		log = logger.Default()
	}
	return &Verifier{certs: certs, log: log}
}

// Verify reports whether env carries a valid SNS signature. Every failure
// (bad cert URL, network, malformed certificate or base64, mismatch) is
// logged as a warning and reported as false.
func (v *Verifier) Verify(ctx context.Context, env *Envelope) bool {
	if err := v.verify(ctx, env); err != nil {
		v.log.Warn("sns: signature verification failed",
			"type", env.Type, "message_id", env.MessageID, "topic_arn", env.TopicArn, "error", err)
		return false
	}
	return true
}

func (v *Verifier) verify(ctx context.Context, env *Envelope) error {
	if !AllowedCertURL(env.SigningCertURL) {
		return fmt.Errorf("%w: %q", ErrForbiddenCertURL, env.SigningCertURL)
	}
	// Reject unknown types and unsigned envelopes before any network call.
	if _, err := CanonicalString(env); err != nil {
		return err
	}
	if env.Signature == "" {
		return ErrMissingSignature
	}
	cert, err := v.certs.Fetch(ctx, env.SigningCertURL)
	if err != nil {
		return err
	}
	return VerifySignature(cert, env)
}

// VerifySignature checks env.Signature against cert's public key using
// RSA PKCS#1 v1.5 over the SHA-1 digest of the canonical string.
func VerifySignature(cert *x509.Certificate, env *Envelope) error {
	canonical, err := CanonicalString(env)
	if err != nil {
		return err
	}
	if env.Signature == "" {
		return ErrMissingSignature
	}
	sig, err := base64.StdEncoding.DecodeString(env.Signature)
	if err != nil {
		return fmt.Errorf("decoding signature: %w", err)
	}
	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return ErrNotRSAKey
	}
	digest := sha1.Sum(canonical)
	if err := rsa.VerifyPKCS1v15(pub, crypto.SHA1, digest[:], sig); err != nil {
		return fmt.Errorf("signature mismatch: %w", err)
	}
	return nil
}
