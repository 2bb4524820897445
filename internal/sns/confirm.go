package sns

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/skyspots/backend/internal/pkg/httpretry"
	"github.com/skyspots/backend/internal/pkg/logger"
)

// ErrMissingSubscribeURL is returned for confirmations without a SubscribeURL.
var ErrMissingSubscribeURL = errors.New("sns: missing SubscribeURL")

// Confirmer completes the SNS subscription handshake by visiting the
// SubscribeURL carried in a SubscriptionConfirmation envelope.
type Confirmer struct {
	client         httpretry.HTTPDoer
	timeout        time.Duration
	requireSNSHost bool
	log            *logger.Logger
}

// NewConfirmer creates a confirmer. When requireSNSHost is set the
// SubscribeURL must carry the same https://sns. prefix as signing
// certificates, so a forged body cannot steer the GET elsewhere.
func NewConfirmer(client httpretry.HTTPDoer, timeout time.Duration, requireSNSHost bool, log *logger.Logger) *Confirmer {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	if client == nil {
		client = httpretry.NewTimeoutClient(timeout)
	}
	if log == nil {
		log = logger.Default()
	}
	return &Confirmer{client: client, timeout: timeout, requireSNSHost: requireSNSHost, log: log}
}

// Confirm issues the GET to env.SubscribeURL.
func (c *Confirmer) Confirm(ctx context.Context, env *Envelope) error {
	if env.SubscribeURL == "" {
		return ErrMissingSubscribeURL
	}
	if c.requireSNSHost && !AllowedCertURL(env.SubscribeURL) {
		return fmt.Errorf("%w: SubscribeURL %q", ErrForbiddenCertURL, env.SubscribeURL)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, env.SubscribeURL, nil)
	if err != nil {
		return fmt.Errorf("building confirmation request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("confirming subscription: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("confirming subscription: unexpected status %d", resp.StatusCode)
	}
	c.log.Info("sns: subscription confirmed", "topic_arn", env.TopicArn, "message_id", env.MessageID)
	return nil
}
