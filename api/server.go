/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:     Unique ID per request for tracing
  2. RealIP:        Client address behind a proxy
  3. RequestLogger: One structured logrus entry per request
  4. Recoverer:     Panic recovery (500 instead of crash)
  5. CORS:          Cross-origin requests for the dashboard

ROUTE GROUPS:
  /api/fees/*           Fee quotes
  /api/tenants/*        Tenant management, schedules, statements
  /api/installments/*   Payment recording
  /api/portfolio/*      Aggregated views
  /api/drafts/*         Onboarding drafts
  /api/events           Change feed (websocket)
  /api/sweeps/*         Status sweeper
  /api/scenarios/*      Demo scenarios
  /metrics              Prometheus
  /healthz              Liveness and dependency status

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/welile/tenants-hub/events"
)

// DefaultAllowedOrigins are the dashboard dev servers.
var DefaultAllowedOrigins = []string{"http://localhost:5173", "http://localhost:3000"}

type RouterOptions struct {
	AllowedOrigins []string

	// Gatherer backs /metrics. Nil omits the endpoint.
	Gatherer prometheus.Gatherer
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = DefaultAllowedOrigins
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(h.Log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", h.Health)
	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Post("/fees/quote", h.QuoteFees)

		// Tenant routes
		r.Route("/tenants", func(r chi.Router) {
			r.Get("/", h.ListTenants)
			r.Post("/", h.CreateTenant)
			r.Get("/{id}", h.GetTenant)
			r.Delete("/{id}", h.DeleteTenant)
			r.Put("/{id}/status", h.UpdateTenantStatus)
			r.Post("/{id}/convert", h.ConvertTenant)
			r.Get("/{id}/installments", h.GetInstallments)
			r.Get("/{id}/stats", h.GetTenantStats)
			r.Get("/{id}/statement.pdf", h.GetStatement)
		})

		// Payment routes
		r.Route("/installments", func(r chi.Router) {
			r.Post("/{id}/payments", h.RecordPayment)
			r.Put("/{id}/payments", h.EditPayment)
		})

		// Portfolio routes
		r.Route("/portfolio", func(r chi.Router) {
			r.Get("/summary", h.GetSummary)
			r.Get("/risk", h.GetRisk)
			r.Get("/trend", h.GetTrend)
			r.Get("/leaderboard", h.GetLeaderboard)
		})

		// Draft routes
		r.Route("/drafts", func(r chi.Router) {
			r.Get("/{key}", h.GetDraft)
			r.Put("/{key}", h.SaveDraft)
			r.Delete("/{key}", h.DeleteDraft)
		})

		r.Get("/events", events.ServeWS(h.Hub, h.Log))

		// Sweeper routes
		r.Route("/sweeps", func(r chi.Router) {
			r.Get("/runs", h.ListSweepRuns)
			r.Post("/run", h.TriggerSweep)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}

// RequestLogger logs one entry per request with its status, size and
// latency. The request id comes from middleware.RequestID.
func RequestLogger(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			entry := log.WithFields(logrus.Fields{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      status,
				"bytes":       ww.BytesWritten(),
				"duration_ms": time.Since(start).Milliseconds(),
				"request_id":  middleware.GetReqID(r.Context()),
				"remote":      r.RemoteAddr,
			})
			switch {
			case status >= 500:
				entry.Error("request failed")
			case status >= 400:
				entry.Warn("request rejected")
			default:
				entry.Info("request served")
			}
		})
	}
}
