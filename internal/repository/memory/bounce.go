package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/skyspots/backend/internal/domain"
	"github.com/skyspots/backend/internal/service/ingest"
)

// BounceRepo implements ingest.BounceRepository.
type BounceRepo struct {
	mu      sync.Mutex
	byEmail map[string]*domain.BounceRecord
	byID    map[string]*domain.BounceRecord
}

// NewBounceRepo creates an empty bounce ledger.
func NewBounceRepo() *BounceRepo {
	return &BounceRepo{
		byEmail: make(map[string]*domain.BounceRecord),
		byID:    make(map[string]*domain.BounceRecord),
	}
}

func (r *BounceRepo) FindByEmail(_ context.Context, email string) (*domain.BounceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byEmail[email]
	if !ok {
		return nil, ingest.ErrRecordNotFound
	}
	cp := *rec
	return &cp, nil
}

func (r *BounceRepo) Create(_ context.Context, rec *domain.BounceRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byEmail[rec.Email]; exists {
		return ingest.ErrDuplicateRecord
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	cp := *rec
	r.byEmail[rec.Email] = &cp
	r.byID[rec.ID] = &cp
	return nil
}

func (r *BounceRepo) RecordRepeat(_ context.Context, rec *domain.BounceRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.byEmail[rec.Email]
	if !ok {
		return ingest.ErrRecordNotFound
	}
	stored.BounceCount++
	stored.Category = rec.Category
	stored.SubType = rec.SubType
	stored.DiagnosticCode = rec.DiagnosticCode
	stored.SourceMessageID = rec.SourceMessageID
	stored.RawPayload = rec.RawPayload
	stored.LastBouncedAt = rec.LastBouncedAt

	rec.ID = stored.ID
	rec.BounceCount = stored.BounceCount
	rec.UserID = stored.UserID
	rec.Suppressed = stored.Suppressed
	rec.FirstBouncedAt = stored.FirstBouncedAt
	return nil
}

func (r *BounceRepo) MarkSuppressed(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byID[id]
	if !ok {
		return ingest.ErrRecordNotFound
	}
	rec.Suppressed = true
	return nil
}

// All returns a snapshot of every record.
func (r *BounceRepo) All() []domain.BounceRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.BounceRecord, 0, len(r.byEmail))
	for _, rec := range r.byEmail {
		out = append(out, *rec)
	}
	return out
}
