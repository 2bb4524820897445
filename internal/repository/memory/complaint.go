package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/skyspots/backend/internal/domain"
	"github.com/skyspots/backend/internal/service/ingest"
)

// ComplaintRepo implements ingest.ComplaintRepository.
type ComplaintRepo struct {
	mu      sync.Mutex
	records []*domain.ComplaintRecord
}

// NewComplaintRepo creates an empty complaint log.
func NewComplaintRepo() *ComplaintRepo {
	return &ComplaintRepo{}
}

func (r *ComplaintRepo) Create(_ context.Context, rec *domain.ComplaintRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	cp := *rec
	r.records = append(r.records, &cp)
	return nil
}

func (r *ComplaintRepo) MarkSuppressed(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.ID == id {
			rec.Suppressed = true
			return nil
		}
	}
	return ingest.ErrRecordNotFound
}

// All returns a snapshot of every complaint in insertion order.
func (r *ComplaintRepo) All() []domain.ComplaintRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.ComplaintRecord, len(r.records))
	for i, rec := range r.records {
		out[i] = *rec
	}
	return out
}
