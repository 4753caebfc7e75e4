/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestLogger: zerolog JSON request logging with request ids
  2. Recoverer:     Panic recovery (500 instead of crash)
  3. Metrics:       Prometheus counter + latency histogram
  4. CORS:          Cross-origin requests for a local frontend

ROUTE GROUPS:
  /api/accounts/*     Billing accounts, charges, payments
  /api/tickets/*      Dispatch tickets
  /api/meters/*       Meters, readings, consumption
  /api/contractors/*  Contractor lookup set
  /api/tariffs        Fixed tariff catalog
  /api/reports/*      Aggregated reports
  /api/scenarios/*    Demo datasets (dev only)
  /metrics            Prometheus scrape endpoint
  /healthz            Liveness probe

SECURITY NOTE:
  No authentication middleware: the system is single-user and desk-side.
  A multi-user deployment needs its own auth in front of this router.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(RequestLogger(h.Log))
	r.Use(middleware.Recoverer)
	r.Use(Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", h.ListAccounts)
			r.Post("/", h.CreateAccount)
			r.Get("/{id}", h.GetAccount)
			r.Put("/{id}", h.UpdateAccount)
			r.Delete("/{id}", h.DeleteAccount)
			r.Get("/{id}/charges", h.GetCharges)
			r.Post("/{id}/payments", h.PostPayment)
		})

		r.Route("/tickets", func(r chi.Router) {
			r.Get("/", h.ListTickets)
			r.Post("/", h.OpenTicket)
			r.Get("/{id}", h.GetTicket)
			r.Post("/{id}/assign", h.AssignContractor)
			r.Post("/{id}/close", h.CloseTicket)
		})

		r.Get("/tariffs", h.GetTariffs)

		r.Route("/meters", func(r chi.Router) {
			r.Get("/", h.ListMeters)
			r.Post("/", h.CreateMeter)
			r.Get("/types", h.MeterTypes)
			r.Get("/{id}", h.GetMeter)
			r.Delete("/{id}", h.DeleteMeter)
			r.Post("/{id}/readings", h.AppendReading)
			r.Get("/{id}/readings/latest", h.LatestReading)
			r.Get("/{id}/consumption", h.GetConsumption)
		})

		r.Route("/contractors", func(r chi.Router) {
			r.Get("/", h.ListContractors)
			r.Post("/", h.CreateContractor)
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/debtors", h.GetDebtors)
			r.Get("/tickets", h.GetTicketSummary)
			r.Get("/meters", h.GetMeterSummary)
		})

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Post("/load", h.LoadScenario)
		})
	})

	// Observability
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return r
}
