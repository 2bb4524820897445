package sns

import (
	"context"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/skyspots/backend/internal/pkg/httpretry"
)

// SigningCertPrefix is the scheme+host prefix every acceptable signing
// certificate URL must start with. It keeps a caller from pointing the
// verifier at a certificate it controls.
const SigningCertPrefix = "https://sns."

// DefaultFetchTimeout bounds each outbound call to AWS.
const DefaultFetchTimeout = 10 * time.Second

// maxCertBytes caps the downloaded certificate body.
const maxCertBytes = 64 * 1024

var (
	ErrForbiddenCertURL = errors.New("sns: signing certificate URL not allowed")
	ErrInvalidCert      = errors.New("sns: invalid signing certificate")
)

// CertCache stores raw PEM bytes keyed by certificate URL.
type CertCache interface {
	Get(ctx context.Context, certURL string) ([]byte, bool)
	Set(ctx context.Context, certURL string, pemBytes []byte)
}

// CertSource resolves a signing certificate URL to a parsed certificate.
type CertSource interface {
	Fetch(ctx context.Context, certURL string) (*x509.Certificate, error)
}

// CertFetcher downloads SNS signing certificates over HTTPS.
type CertFetcher struct {
	client  httpretry.HTTPDoer
	cache   CertCache
	timeout time.Duration
}

// NewCertFetcher creates a fetcher. A nil client gets a plain http.Client
// bounded by timeout; TLS verification is never relaxed.
func NewCertFetcher(client httpretry.HTTPDoer, timeout time.Duration) *CertFetcher {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	if client == nil {
		client = httpretry.NewTimeoutClient(timeout)
	}
	return &CertFetcher{client: client, timeout: timeout}
}

// WithCache enables caching of downloaded certificates.
func (f *CertFetcher) WithCache(c CertCache) *CertFetcher {
	f.cache = c
	return f
}

// Fetch returns the certificate served at certURL.
func (f *CertFetcher) Fetch(ctx context.Context, certURL string) (*x509.Certificate, error) {
	if !AllowedCertURL(certURL) {
		return nil, fmt.Errorf("%w: %q", ErrForbiddenCertURL, certURL)
	}

	if f.cache != nil {
		if pemBytes, ok := f.cache.Get(ctx, certURL); ok {
			if cert, err := ParseCertificate(pemBytes); err == nil {
				return cert, nil
			}
		}
	}

	pemBytes, err := f.download(ctx, certURL)
	if err != nil {
		return nil, err
	}
	cert, err := ParseCertificate(pemBytes)
	if err != nil {
		return nil, err
	}
	if f.cache != nil {
		f.cache.Set(ctx, certURL, pemBytes)
	}
	return cert, nil
}

func (f *CertFetcher) download(ctx context.Context, certURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, certURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building certificate request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching signing certificate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching signing certificate: unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCertBytes))
	if err != nil {
		return nil, fmt.Errorf("reading signing certificate: %w", err)
	}
	return body, nil
}

// AllowedCertURL reports whether certURL may be used as a signing
// certificate source.
func AllowedCertURL(certURL string) bool {
	return certURL != "" && strings.HasPrefix(certURL, SigningCertPrefix)
}

// ParseCertificate decodes the first CERTIFICATE block of a PEM document.
func ParseCertificate(pemBytes []byte) (*x509.Certificate, error) {
	rest := pemBytes
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			return nil, fmt.Errorf("%w: no PEM certificate block", ErrInvalidCert)
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCert, err)
		}
		return cert, nil
	}
}
