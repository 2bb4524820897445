package suppression

import (
	"context"
	"fmt"
	"strings"

	"github.com/skyspots/backend/internal/domain"
	"github.com/skyspots/backend/internal/pkg/logger"
)

// Service implements suppression business logic. It is safe for concurrent use.
type Service struct {
	repo   Repository
	mirror Mirror
	log    *logger.Logger
}

// NewService creates a suppression service backed by the given repository.
func NewService(repo Repository, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Default()
	}
	return &Service{repo: repo, log: log}
}

// SetMirror enables propagation of new entries to m.
func (s *Service) SetMirror(m Mirror) {
	s.mirror = m
}

// IsSuppressed checks whether an email address should be blocked from sending.
func (s *Service) IsSuppressed(ctx context.Context, email string) (bool, error) {
	return s.repo.IsSuppressed(ctx, normalize(email))
}

// Add puts email on the suppression list. It is idempotent: when the
// address is already suppressed the existing entry is kept and added is
// false. Only newly added entries are mirrored; mirror failures are
// logged and never returned.
func (s *Service) Add(ctx context.Context, email string, reason domain.SuppressionReason, ref domain.SuppressionRef, notes string) (added bool, err error) {
	email = normalize(email)
	if email == "" {
		return false, ErrEmailRequired
	}
	if !reason.Valid() {
		return false, fmt.Errorf("%w: %q", ErrInvalidReason, reason)
	}

	entry := &domain.SuppressionEntry{
		Email:       email,
		Reason:      reason,
		BounceID:    ref.BounceID,
		ComplaintID: ref.ComplaintID,
		Notes:       notes,
	}
	added, err = s.repo.Add(ctx, entry)
	if err != nil {
		return false, fmt.Errorf("adding suppression: %w", err)
	}
	if !added {
		s.log.Debug("suppression: already suppressed", "email", email, "reason", reason)
		return false, nil
	}

	s.log.Info("suppression: address suppressed", "email", email, "reason", reason,
		"bounce_id", ref.BounceID, "complaint_id", ref.ComplaintID)

	if s.mirror != nil {
		if err := s.mirror.Suppress(ctx, email, reason); err != nil {
			s.log.Warn("suppression: mirror failed", "email", email, "reason", reason, "error", err)
		}
	}
	return true, nil
}

// Get returns the suppression entry for email.
func (s *Service) Get(ctx context.Context, email string) (*domain.SuppressionEntry, error) {
	email = normalize(email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	return s.repo.Get(ctx, email)
}

// List returns suppression entries matching the given filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]domain.SuppressionEntry, int, error) {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	filter.Search = normalize(filter.Search)
	return s.repo.List(ctx, filter)
}

// Count returns the total number of suppressed emails.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

// Stats returns aggregate counts grouped by reason.
type Stats struct {
	Total    int            `json:"total"`
	ByReason map[string]int `json:"by_reason"`
}

// GetStats computes suppression statistics for the dashboard.
func (s *Service) GetStats(ctx context.Context) (*Stats, error) {
	byReason, err := s.repo.CountByReason(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting suppressions by reason: %w", err)
	}

	stats := &Stats{ByReason: make(map[string]int, len(byReason))}
	for reason, n := range byReason {
		stats.ByReason[string(reason)] = n
		stats.Total += n
	}
	return stats, nil
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
