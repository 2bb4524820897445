package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/skyspots/backend/internal/domain"
	"github.com/skyspots/backend/internal/pkg/logger"
	"github.com/skyspots/backend/internal/ses"
)

// Service processes SES feedback notifications.
type Service struct {
	bounces    BounceRepository
	complaints ComplaintRepository
	suppressor Suppressor
	users      UserResolver
	policy     domain.SuppressionPolicy
	log        *logger.Logger
	now        func() time.Time
}

// NewService creates an ingestion service using the default suppression policy.
func NewService(bounces BounceRepository, complaints ComplaintRepository, suppressor Suppressor, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Default()
	}
	return &Service{
		bounces:    bounces,
		complaints: complaints,
		suppressor: suppressor,
		policy:     domain.DefaultSuppressionPolicy(),
		log:        log,
		now:        time.Now,
	}
}

// WithPolicy overrides the bounce suppression thresholds.
func (s *Service) WithPolicy(p domain.SuppressionPolicy) *Service {
	s.policy = p
	return s
}

// WithUserResolver enables best-effort account lookup for new records.
func (s *Service) WithUserResolver(r UserResolver) *Service {
	s.users = r
	return s
}

// ProcessBounce records every bounced recipient of n and suppresses those
// whose record crosses the policy threshold. It returns the number of
// recipients processed.
func (s *Service) ProcessBounce(ctx context.Context, n *ses.Notification) (int, error) {
	if n.Type() != ses.TypeBounce {
		return 0, fmt.Errorf("%w: want %s, got %q", ErrWrongNotificationType, ses.TypeBounce, n.Type())
	}
	if n.Bounce == nil {
		return 0, nil
	}

	category := ses.ClassifyBounce(n.Bounce.BounceType)
	subType := ses.NormalizeSubType(n.Bounce.BounceSubType)

	processed := 0
	for _, r := range n.Bounce.BouncedRecipients {
		email := ses.NormalizeEmail(r.EmailAddress)
		if email == "" {
			continue
		}
		rec := &domain.BounceRecord{
			Email:           email,
			Category:        category,
			SubType:         subType,
			DiagnosticCode:  r.DiagnosticCode,
			SourceMessageID: n.Mail.MessageID,
			RawPayload:      n.Raw,
			LastBouncedAt:   s.now().UTC(),
		}
		if err := s.recordBounce(ctx, rec); err != nil {
			return processed, err
		}
		if err := s.maybeSuppressBounce(ctx, rec); err != nil {
			return processed, err
		}
		processed++
	}

	s.log.Info("ingest: bounce processed",
		"message_id", n.Mail.MessageID, "category", category, "sub_type", subType, "processed", processed)
	return processed, nil
}

func (s *Service) recordBounce(ctx context.Context, rec *domain.BounceRecord) error {
	_, err := s.bounces.FindByEmail(ctx, rec.Email)
	switch {
	case err == nil:
		if err := s.bounces.RecordRepeat(ctx, rec); err != nil {
			return fmt.Errorf("updating bounce record: %w", err)
		}
		return nil
	case !errors.Is(err, ErrRecordNotFound):
		return fmt.Errorf("looking up bounce record: %w", err)
	}

	rec.BounceCount = 1
	rec.FirstBouncedAt = rec.LastBouncedAt
	rec.UserID = s.resolveUser(ctx, rec.Email)

	err = s.bounces.Create(ctx, rec)
	if errors.Is(err, ErrDuplicateRecord) {
		// A concurrent delivery created the row first.
		err = s.bounces.RecordRepeat(ctx, rec)
	}
	if err != nil {
		return fmt.Errorf("creating bounce record: %w", err)
	}
	return nil
}

func (s *Service) maybeSuppressBounce(ctx context.Context, rec *domain.BounceRecord) error {
	if !rec.ShouldSuppress(s.policy) {
		return nil
	}
	reason := rec.SuppressionReason()
	notes := fmt.Sprintf("SES %s bounce (%s) after %d occurrence(s)", rec.Category, rec.SubType, rec.BounceCount)
	if _, err := s.suppressor.Add(ctx, rec.Email, reason, domain.SuppressionRef{BounceID: rec.ID}, notes); err != nil {
		return fmt.Errorf("suppressing bounced address: %w", err)
	}
	if err := s.bounces.MarkSuppressed(ctx, rec.ID); err != nil {
		return fmt.Errorf("marking bounce record suppressed: %w", err)
	}
	rec.Suppressed = true
	return nil
}

// ProcessComplaint records one complaint event per complained recipient and
// suppresses each address. It returns the number of recipients processed.
func (s *Service) ProcessComplaint(ctx context.Context, n *ses.Notification) (int, error) {
	if n.Type() != ses.TypeComplaint {
		return 0, fmt.Errorf("%w: want %s, got %q", ErrWrongNotificationType, ses.TypeComplaint, n.Type())
	}
	if n.Complaint == nil {
		return 0, nil
	}

	category := ses.ClassifyComplaint(n.Complaint.ComplaintFeedbackType)

	processed := 0
	for _, r := range n.Complaint.ComplainedRecipients {
		email := ses.NormalizeEmail(r.EmailAddress)
		if email == "" {
			continue
		}
		rec := &domain.ComplaintRecord{
			Email:           email,
			UserID:          s.resolveUser(ctx, email),
			Category:        category,
			UserAgent:       n.Complaint.UserAgent,
			FeedbackID:      n.Complaint.FeedbackID,
			SourceMessageID: n.Mail.MessageID,
			RawPayload:      n.Raw,
			CreatedAt:       s.now().UTC(),
		}
		if err := s.complaints.Create(ctx, rec); err != nil {
			return processed, fmt.Errorf("creating complaint record: %w", err)
		}

		notes := fmt.Sprintf("SES complaint (%s)", category)
		if _, err := s.suppressor.Add(ctx, email, domain.ReasonComplaint, domain.SuppressionRef{ComplaintID: rec.ID}, notes); err != nil {
			return processed, fmt.Errorf("suppressing complained address: %w", err)
		}
		if err := s.complaints.MarkSuppressed(ctx, rec.ID); err != nil {
			return processed, fmt.Errorf("marking complaint record suppressed: %w", err)
		}
		rec.Suppressed = true
		processed++
	}

	s.log.Info("ingest: complaint processed",
		"message_id", n.Mail.MessageID, "category", category, "processed", processed)
	return processed, nil
}

func (s *Service) resolveUser(ctx context.Context, email string) string {
	if s.users == nil {
		return ""
	}
	id, err := s.users.ResolveUserID(ctx, email)
	if err != nil {
		s.log.Warn("ingest: user lookup failed", "email", email, "error", err)
		return ""
	}
	return id
}
