package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/skyspots/backend/internal/domain"
	"github.com/skyspots/backend/internal/service/suppression"
)

// SuppressionRepo implements suppression.Repository.
type SuppressionRepo struct {
	mu      sync.RWMutex
	entries map[string]*domain.SuppressionEntry
}

// NewSuppressionRepo creates an empty suppression list.
func NewSuppressionRepo() *SuppressionRepo {
	return &SuppressionRepo{entries: make(map[string]*domain.SuppressionEntry)}
}

func (r *SuppressionRepo) IsSuppressed(_ context.Context, email string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[email]
	return ok, nil
}

func (r *SuppressionRepo) Add(_ context.Context, e *domain.SuppressionEntry) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[e.Email]; exists {
		return false, nil
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	cp := *e
	r.entries[e.Email] = &cp
	return true, nil
}

func (r *SuppressionRepo) Get(_ context.Context, email string) (*domain.SuppressionEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[email]
	if !ok {
		return nil, suppression.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (r *SuppressionRepo) List(_ context.Context, f suppression.ListFilter) ([]domain.SuppressionEntry, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.SuppressionEntry
	for _, e := range r.entries {
		if f.Reason != "" && string(e.Reason) != f.Reason {
			continue
		}
		if f.Search != "" && !strings.Contains(e.Email, f.Search) {
			continue
		}
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Email < out[j].Email
	})
	total := len(out)
	if f.Offset >= len(out) {
		return nil, total, nil
	}
	out = out[f.Offset:]
	if f.Limit > 0 && f.Limit < len(out) {
		out = out[:f.Limit]
	}
	return out, total, nil
}

func (r *SuppressionRepo) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries), nil
}

func (r *SuppressionRepo) CountByReason(_ context.Context) (map[domain.SuppressionReason]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[domain.SuppressionReason]int)
	for _, e := range r.entries {
		out[e.Reason]++
	}
	return out, nil
}
