package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/skyspots/backend/internal/domain"
	"github.com/skyspots/backend/internal/pkg/httputil"
	"github.com/skyspots/backend/internal/pkg/logger"
	"github.com/skyspots/backend/internal/service/suppression"
)

// SuppressionReader is the read side of the suppression service.
type SuppressionReader interface {
	List(ctx context.Context, filter suppression.ListFilter) ([]domain.SuppressionEntry, int, error)
	Get(ctx context.Context, email string) (*domain.SuppressionEntry, error)
	GetStats(ctx context.Context) (*suppression.Stats, error)
}

// SuppressionHandler serves the read-only suppression list API.
type SuppressionHandler struct {
	svc SuppressionReader
	log *logger.Logger
}

// NewSuppressionHandler creates a SuppressionHandler.
func NewSuppressionHandler(svc SuppressionReader, log *logger.Logger) *SuppressionHandler {
	if log == nil {
		log = logger.Default()
	}
	return &SuppressionHandler{svc: svc, log: log}
}

// HandleList returns a page of suppression entries.
//
//	GET /api/suppressions?reason=&search=&limit=&offset=
func (h *SuppressionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := suppression.ListFilter{
		Reason: q.Get("reason"),
		Search: q.Get("search"),
	}
	if filter.Reason != "" && !domain.SuppressionReason(filter.Reason).Valid() {
		httputil.BadRequest(w, "invalid reason")
		return
	}
	var err error
	if filter.Limit, err = intParam(q.Get("limit")); err != nil {
		httputil.BadRequest(w, "invalid limit")
		return
	}
	if filter.Offset, err = intParam(q.Get("offset")); err != nil {
		httputil.BadRequest(w, "invalid offset")
		return
	}

	entries, total, err := h.svc.List(r.Context(), filter)
	if err != nil {
		httputil.InternalError(w, h.log, err)
		return
	}
	if entries == nil {
		entries = []domain.SuppressionEntry{}
	}
	httputil.OK(w, map[string]interface{}{
		"suppressions": entries,
		"total":        total,
	})
}

// HandleStats returns counts by reason.
//
//	GET /api/suppressions/stats
func (h *SuppressionHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.GetStats(r.Context())
	if err != nil {
		httputil.InternalError(w, h.log, err)
		return
	}
	httputil.OK(w, stats)
}

// HandleGet returns the entry for one address.
//
//	GET /api/suppressions/{email}
func (h *SuppressionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	entry, err := h.svc.Get(r.Context(), chi.URLParam(r, "email"))
	switch {
	case errors.Is(err, suppression.ErrNotFound):
		httputil.NotFound(w, "email is not suppressed")
	case errors.Is(err, suppression.ErrEmailRequired):
		httputil.BadRequest(w, "email is required")
	case err != nil:
		httputil.InternalError(w, h.log, err)
	default:
		httputil.OK(w, entry)
	}
}

func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, errors.New("invalid integer")
	}
	return n, nil
}
