package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robertarktes/busops/internal/idempotency"
	"github.com/robertarktes/busops/internal/observability"
	"github.com/robertarktes/busops/internal/rateLimit"
)

// SetupRouter wires the API. A nil rate limiter disables rate limiting.
func SetupRouter(h *Handlers, logger observability.Logger, rl *rateLimit.RateLimiter, idemp *idempotency.Idempotency) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(logger))
	r.Use(TracingMiddleware)
	r.Use(MetricsMiddleware)

	r.Get("/v1/healthz", h.Healthz)
	r.Get("/v1/readyz", h.Readyz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/v1", func(r chi.Router) {
		if rl != nil {
			r.Use(RateLimitMiddleware(rl, logger))
		}
		once := IdempotencyMiddleware(idemp, logger)

		r.Route("/buses", func(r chi.Router) {
			r.Get("/", h.ListBuses)
			r.Post("/", h.CreateBus)
			r.Get("/{id}", h.GetBus)
			r.Put("/{id}", h.UpdateBus)
			r.Delete("/{id}", h.DeleteBus)
		})
		r.Route("/employees", func(r chi.Router) {
			r.Get("/", h.ListEmployees)
			r.Post("/", h.CreateEmployee)
			r.Get("/{id}", h.GetEmployee)
			r.Put("/{id}", h.UpdateEmployee)
			r.Delete("/{id}", h.DeleteEmployee)
		})
		r.Get("/payroll/due", h.PayrollDue)
		r.With(once).Post("/payroll/{id}/pay", h.PayEmployee)

		r.Route("/trips", func(r chi.Router) {
			r.Get("/", h.ListTrips)
			r.Post("/", h.CreateTrip)
			r.Get("/{id}", h.GetTrip)
			r.Put("/{id}", h.UpdateTrip)
			r.Delete("/{id}", h.DeleteTrip)
			r.Get("/{id}/seats", h.TripSeats)
		})
		r.Route("/bookings", func(r chi.Router) {
			r.Get("/", h.ListBookings)
			r.With(once).Post("/", h.CreateBooking)
			r.Get("/{id}", h.GetBooking)
			r.Put("/{id}", h.UpdateBooking)
			r.Delete("/{id}", h.DeleteBooking)
		})
		r.Route("/finance", func(r chi.Router) {
			r.Get("/", h.ListFinance)
			r.With(once).Post("/", h.CreateFinance)
			r.Get("/summary", h.FinanceSummary)
			r.Get("/overview", h.FinanceOverview)
			r.Delete("/{id}", h.DeleteFinance)
		})
		r.Get("/dashboard", h.Dashboard)
	})

	return r
}
