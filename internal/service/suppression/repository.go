package suppression

import (
	"context"

	"github.com/skyspots/backend/internal/domain"
)

// Repository defines the data access contract for the suppression list.
type Repository interface {
	// IsSuppressed returns true if the email is on the global suppression list.
	IsSuppressed(ctx context.Context, email string) (bool, error)

	// Add inserts an entry. If the email already exists the existing
	// record is preserved and added is false.
	Add(ctx context.Context, e *domain.SuppressionEntry) (added bool, err error)

	// Get returns the entry for email, or ErrNotFound.
	Get(ctx context.Context, email string) (*domain.SuppressionEntry, error)

	// List returns suppression entries matching the filter plus the
	// total number of matches before pagination.
	List(ctx context.Context, filter ListFilter) ([]domain.SuppressionEntry, int, error)

	// Count returns the total number of suppressed emails.
	Count(ctx context.Context) (int, error)

	// CountByReason returns the number of entries per reason.
	CountByReason(ctx context.Context) (map[domain.SuppressionReason]int, error)
}

// Mirror propagates newly suppressed addresses to an external list, such
// as the SES account-level suppression list.
type Mirror interface {
	Suppress(ctx context.Context, email string, reason domain.SuppressionReason) error
}

// ListFilter controls pagination and filtering for suppression lists.
type ListFilter struct {
	Reason string
	Search string
	Limit  int
	Offset int
}
