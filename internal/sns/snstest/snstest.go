// Package snstest provides signing and transport fixtures for exercising
// SNS signature verification without network access.
package snstest

import (
	"bytes"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/skyspots/backend/internal/sns"
)

// DefaultCertURL is the certificate URL used by signers created with NewSigner.
const DefaultCertURL = "https://sns.us-east-1.amazonaws.com/SimpleNotificationService-test.pem"

// DefaultTopicArn is the topic stamped on generated envelopes.
const DefaultTopicArn = "arn:aws:sns:us-east-1:123456789012:ses-feedback"

// Signer holds a throwaway RSA key and matching self-signed certificate.
type Signer struct {
	Key     *rsa.PrivateKey
	Cert    *x509.Certificate
	CertPEM []byte
	CertURL string

	seq int
}

// NewSigner generates a fresh key pair and certificate.
func NewSigner(t testing.TB) *Signer {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("snstest: generating key: %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject:      pkix.Name{CommonName: "sns.amazonaws.com"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("snstest: creating certificate: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("snstest: parsing certificate: %v", err)
	}
	return &Signer{
		Key:     key,
		Cert:    cert,
		CertPEM: pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}),
		CertURL: DefaultCertURL,
	}
}

// Sign stamps SigningCertURL and SignatureVersion on env and fills in a
// valid Signature over its current fields.
func (s *Signer) Sign(t testing.TB, env *sns.Envelope) {
	t.Helper()
	env.SigningCertURL = s.CertURL
	env.SignatureVersion = "1"
	canonical, err := sns.CanonicalString(env)
	if err != nil {
		t.Fatalf("snstest: canonical string: %v", err)
	}
	digest := sha1.Sum(canonical)
	sig, err := rsa.SignPKCS1v15(rand.Reader, s.Key, crypto.SHA1, digest[:])
	if err != nil {
		t.Fatalf("snstest: signing: %v", err)
	}
	env.Signature = base64.StdEncoding.EncodeToString(sig)
}

// Notification builds and signs a Notification envelope carrying message.
func (s *Signer) Notification(t testing.TB, message string) *sns.Envelope {
	t.Helper()
	s.seq++
	env := &sns.Envelope{
		Type:      sns.TypeNotification,
		MessageID: fmt.Sprintf("00000000-0000-0000-0000-%012d", s.seq),
		TopicArn:  DefaultTopicArn,
		Message:   message,
		Timestamp: "2026-10-19T12:00:00.000Z",
	}
	s.Sign(t, env)
	return env
}

// SubscriptionConfirmation builds and signs a confirmation envelope.
func (s *Signer) SubscriptionConfirmation(t testing.TB, subscribeURL string) *sns.Envelope {
	t.Helper()
	s.seq++
	env := &sns.Envelope{
		Type:         sns.TypeSubscriptionConfirmation,
		MessageID:    fmt.Sprintf("00000000-0000-0000-0000-%012d", s.seq),
		Token:        "2336412f37fb687f5d51e6e2425c464de12884",
		TopicArn:     DefaultTopicArn,
		Message:      "You have chosen to subscribe to the topic " + DefaultTopicArn,
		SubscribeURL: subscribeURL,
		Timestamp:    "2026-10-19T12:00:00.000Z",
	}
	s.Sign(t, env)
	return env
}

// Doer is an in-memory httpretry.HTTPDoer. It serves registered bodies
// by exact URL, answers 404 otherwise, and records every request URL.
type Doer struct {
	mu     sync.Mutex
	bodies map[string][]byte
	calls  []string
	Err    error
}

// NewDoer creates an empty Doer.
func NewDoer() *Doer {
	return &Doer{bodies: make(map[string][]byte)}
}

// Serve registers body as the 200 response for url.
func (d *Doer) Serve(url string, body []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bodies[url] = body
}

// ServeSigner registers the signer's certificate at its CertURL.
func (d *Doer) ServeSigner(s *Signer) {
	d.Serve(s.CertURL, s.CertPEM)
}

// Do implements httpretry.HTTPDoer.
func (d *Doer) Do(req *http.Request) (*http.Response, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, req.URL.String())
	if d.Err != nil {
		return nil, d.Err
	}
	body, ok := d.bodies[req.URL.String()]
	status := http.StatusOK
	if !ok {
		status = http.StatusNotFound
		body = []byte("not found")
	}
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewReader(body)),
		Header:     make(http.Header),
		Request:    req,
	}, nil
}

// Calls returns the URLs requested so far.
func (d *Doer) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}
