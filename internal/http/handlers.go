package http

import (
	"context"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/robertarktes/busops/internal/booking"
	"github.com/robertarktes/busops/internal/finance"
	"github.com/robertarktes/busops/internal/fleet"
	"github.com/robertarktes/busops/internal/observability"
	"github.com/robertarktes/busops/internal/payroll"
)

// Deps are the services behind the API.
type Deps struct {
	Ledger  *booking.Ledger
	Fleet   *fleet.Registry
	Finance *finance.Service
	Payroll *payroll.Service
	Logger  observability.Logger
	// Ready reports whether the backing stores are reachable.
	Ready func(ctx context.Context) error
}

type Handlers struct {
	ledger   *booking.Ledger
	fleet    *fleet.Registry
	finance  *finance.Service
	payroll  *payroll.Service
	logger   observability.Logger
	ready    func(ctx context.Context) error
	validate *validator.Validate
}

func NewHandlers(d Deps) *Handlers {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Handlers{
		ledger:   d.Ledger,
		fleet:    d.Fleet,
		finance:  d.Finance,
		payroll:  d.Payroll,
		logger:   d.Logger,
		ready:    d.Ready,
		validate: v,
	}
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready(r.Context()); err != nil {
			loggerFrom(r.Context(), h.logger).WithError(err).Warn("not ready")
			writeMessage(w, http.StatusServiceUnavailable, "not ready")
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}
