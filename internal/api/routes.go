package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/skyspots/backend/internal/pkg/httputil"
)

// Handlers groups the HTTP handlers mounted by SetupRoutes. Suppressions
// and Health may be nil.
type Handlers struct {
	Webhooks     *WebhookHandler
	Suppressions *SuppressionHandler
	Health       *HealthChecker
}

// RouteOptions configures access to the read API.
type RouteOptions struct {
	APIToken       string
	AllowedOrigins []string
}

// SetupRoutes configures all routes.
func SetupRoutes(h *Handlers, opts RouteOptions) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:8080"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	if h.Health != nil {
		r.Get("/health", h.Health.HandleHealth)
		r.Get("/health/live", h.Health.HandleLiveness)
		r.Get("/health/ready", h.Health.HandleReadiness)
	}

	r.Route("/api", func(r chi.Router) {
		// SNS authenticates by signature, not by session or token.
		r.Route("/webhooks", func(r chi.Router) {
			r.Post("/ses-bounce", h.Webhooks.HandleBounce)
			r.Post("/ses-bounce/", h.Webhooks.HandleBounce)
			r.Post("/ses-complaint", h.Webhooks.HandleComplaint)
			r.Post("/ses-complaint/", h.Webhooks.HandleComplaint)
		})

		if h.Suppressions != nil {
			r.Group(func(r chi.Router) {
				r.Use(requireBearerToken(opts.APIToken))
				r.Get("/suppressions", h.Suppressions.HandleList)
				r.Get("/suppressions/stats", h.Suppressions.HandleStats)
				r.Get("/suppressions/{email}", h.Suppressions.HandleGet)
			})
		}
	})

	return r
}

// requireBearerToken rejects requests whose Authorization header does not
// carry token. An empty token disables the check.
func requireBearerToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				httputil.Unauthorized(w, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
