package ingest

import (
	"context"

	"github.com/skyspots/backend/internal/domain"
)

// BounceRepository defines the data access contract for the bounce ledger.
type BounceRepository interface {
	// FindByEmail returns the record for a lowercased address, or
	// ErrRecordNotFound.
	FindByEmail(ctx context.Context, email string) (*domain.BounceRecord, error)

	// Create inserts a new record, assigning its ID. Returns
	// ErrDuplicateRecord when a record for the address already exists.
	Create(ctx context.Context, r *domain.BounceRecord) error

	// RecordRepeat atomically increments the count of the record keyed by
	// r.Email and overwrites its descriptive fields with r's. On return r
	// carries the stored ID, BounceCount, UserID, Suppressed and
	// FirstBouncedAt. Returns ErrRecordNotFound when no record exists.
	RecordRepeat(ctx context.Context, r *domain.BounceRecord) error

	// MarkSuppressed flags the record as suppressed.
	MarkSuppressed(ctx context.Context, id string) error
}

// ComplaintRepository defines the data access contract for complaint events.
type ComplaintRepository interface {
	// Create inserts a new complaint event, assigning its ID.
	Create(ctx context.Context, r *domain.ComplaintRecord) error

	// MarkSuppressed flags the complaint as having suppressed its address.
	MarkSuppressed(ctx context.Context, id string) error
}

// UserResolver maps an email address to a platform account ID. An
// unknown address returns "" and a nil error.
type UserResolver interface {
	ResolveUserID(ctx context.Context, email string) (string, error)
}

// Suppressor adds addresses to the global suppression list. Add must be
// idempotent per address.
type Suppressor interface {
	Add(ctx context.Context, email string, reason domain.SuppressionReason, ref domain.SuppressionRef, notes string) (bool, error)
}
