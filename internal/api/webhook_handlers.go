package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/skyspots/backend/internal/pkg/httputil"
	"github.com/skyspots/backend/internal/pkg/logger"
	"github.com/skyspots/backend/internal/service/ingest"
	"github.com/skyspots/backend/internal/ses"
	"github.com/skyspots/backend/internal/sns"
)

// EnvelopeVerifier checks the SNS signature of an envelope.
type EnvelopeVerifier interface {
	Verify(ctx context.Context, env *sns.Envelope) bool
}

// SubscriptionConfirmer completes the SNS subscription handshake.
type SubscriptionConfirmer interface {
	Confirm(ctx context.Context, env *sns.Envelope) error
}

// Ingestor turns verified SES notifications into ledger state.
type Ingestor interface {
	ProcessBounce(ctx context.Context, n *ses.Notification) (int, error)
	ProcessComplaint(ctx context.Context, n *ses.Notification) (int, error)
}

// Archiver keeps a copy of every verified notification.
type Archiver interface {
	Archive(ctx context.Context, notificationType, messageID string, payload []byte) error
}

const defaultMaxBodyBytes = 1 << 20

// WebhookHandler serves the SES bounce and complaint SNS endpoints.
type WebhookHandler struct {
	verifier            EnvelopeVerifier
	confirmer           SubscriptionConfirmer
	ingest              Ingestor
	archiver            Archiver
	verifySubscriptions bool
	maxBodyBytes        int64
	log                 *logger.Logger
}

// NewWebhookHandler creates a handler that verifies SubscriptionConfirmation
// signatures by default.
func NewWebhookHandler(verifier EnvelopeVerifier, confirmer SubscriptionConfirmer, ingestor Ingestor, log *logger.Logger) *WebhookHandler {
	if log == nil {
		log = logger.Default()
	}
	return &WebhookHandler{
		verifier:            verifier,
		confirmer:           confirmer,
		ingest:              ingestor,
		verifySubscriptions: true,
		maxBodyBytes:        defaultMaxBodyBytes,
		log:                 log,
	}
}

// WithArchiver stores every verified notification through a.
func (h *WebhookHandler) WithArchiver(a Archiver) *WebhookHandler {
	h.archiver = a
	return h
}

// WithSubscriptionVerification toggles the signature check on
// SubscriptionConfirmation envelopes.
func (h *WebhookHandler) WithSubscriptionVerification(on bool) *WebhookHandler {
	h.verifySubscriptions = on
	return h
}

// WithMaxBodyBytes caps the accepted request body size.
func (h *WebhookHandler) WithMaxBodyBytes(n int64) *WebhookHandler {
	if n > 0 {
		h.maxBodyBytes = n
	}
	return h
}

type feedbackKind struct {
	name         string
	wrongTypeMsg string
	process      func(context.Context, *ses.Notification) (int, error)
}

// HandleBounce processes SES bounce notifications.
//
//	POST /api/webhooks/ses-bounce/
func (h *WebhookHandler) HandleBounce(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, feedbackKind{
		name:         "bounce",
		wrongTypeMsg: "Not a bounce notification",
		process:      h.ingest.ProcessBounce,
	})
}

// HandleComplaint processes SES complaint notifications.
//
//	POST /api/webhooks/ses-complaint/
func (h *WebhookHandler) HandleComplaint(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, feedbackKind{
		name:         "complaint",
		wrongTypeMsg: "Not a complaint notification",
		process:      h.ingest.ProcessComplaint,
	})
}

func (h *WebhookHandler) handle(w http.ResponseWriter, r *http.Request, kind feedbackKind) {
	ctx := r.Context()
	log := h.log.With("endpoint", kind.name)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			log.Warn("webhook: body too large", "limit", tooLarge.Limit)
			httputil.Error(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		log.Warn("webhook: failed to read body", "error", err)
		httputil.BadRequest(w, "Invalid JSON")
		return
	}

	env, err := sns.ParseEnvelope(body)
	if err != nil {
		log.Warn("webhook: invalid envelope", "error", err)
		httputil.BadRequest(w, "Invalid JSON")
		return
	}
	log = log.With("sns_type", env.Type, "sns_message_id", env.MessageID)

	if env.IsSubscriptionConfirmation() {
		h.confirmSubscription(w, r, env, log)
		return
	}

	if !h.verifier.Verify(ctx, env) {
		httputil.Forbidden(w, "Invalid signature")
		return
	}

	n, err := ses.ParseNotification(env.Message)
	if err != nil {
		log.Warn("webhook: invalid notification", "error", err)
		httputil.BadRequest(w, "Invalid JSON")
		return
	}

	if h.archiver != nil {
		if err := h.archiver.Archive(ctx, n.Type(), env.MessageID, n.Raw); err != nil {
			log.Warn("webhook: archive failed", "error", err)
		}
	}

	processed, err := kind.process(ctx, n)
	if errors.Is(err, ingest.ErrWrongNotificationType) {
		log.Warn("webhook: wrong notification type", "notification_type", n.Type())
		httputil.BadRequest(w, kind.wrongTypeMsg)
		return
	}
	if err != nil {
		httputil.InternalError(w, log, err)
		return
	}

	httputil.OK(w, map[string]interface{}{
		"status":    "success",
		"processed": processed,
	})
}

func (h *WebhookHandler) confirmSubscription(w http.ResponseWriter, r *http.Request, env *sns.Envelope, log *logger.Logger) {
	if h.verifySubscriptions && !h.verifier.Verify(r.Context(), env) {
		httputil.Forbidden(w, "Invalid signature")
		return
	}
	if err := h.confirmer.Confirm(r.Context(), env); err != nil {
		httputil.InternalError(w, log, err)
		return
	}
	httputil.Text(w, http.StatusOK, "Subscription confirmed")
}
