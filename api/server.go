/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Structured request logging (zerolog)
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the counter frontend

ROUTE GROUPS:
  /api/prescriptions/*  Prescription editing, storage and search
  /api/acuity/*         Visual acuity classification
  /api/billing/*        Stateless bill calculations
  /api/bills/*          Bill storage

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
	"github.com/rs/zerolog"
)

// NewRouter creates a new router with all routes configured. An empty
// origins list allows any origin.
func NewRouter(h *Handler, origins []string) *chi.Mux {
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger(h.log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Get("/tables", h.GetTables)

		r.Route("/prescriptions", func(r chi.Router) {
			r.Get("/", h.SearchPrescriptions)
			r.Post("/", h.CreatePrescription)
			r.Get("/new", h.NewPrescription)
			r.Post("/edit", h.EditPrescription)
			r.Post("/evaluate", h.EvaluatePrescription)
			r.Get("/{id}", h.GetPrescription)
			r.Put("/{id}", h.UpdatePrescription)
			r.Get("/{id}/bills", h.ListPrescriptionBills)
		})

		r.Post("/acuity/analyze", h.AnalyzeAcuity)

		r.Route("/billing", func(r chi.Router) {
			r.Post("/discount", h.ApplyDiscount)
			r.Post("/items", h.EditItems)
			r.Post("/items/discount", h.EditItemDiscount)
			r.Post("/summary", h.Summarize)
		})

		r.Route("/bills", func(r chi.Router) {
			r.Post("/", h.CreateBill)
			r.Get("/{id}", h.GetBill)
		})
	})

	return r
}

// requestLogger logs one line per request at info, or warn for 5xx.
func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				event := log.Info()
				if ww.Status() >= http.StatusInternalServerError {
					event = log.Warn()
				}
				event.
					Str("request_id", middleware.GetReqID(r.Context())).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", ww.Status()).
					Int("bytes", ww.BytesWritten()).
					Dur("duration", time.Since(start)).
					Msg("request")
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
