package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/robertarktes/busops/internal/domain"
)

type financeRequest struct {
	Type        string    `json:"type" validate:"required,oneof=Income Expense"`
	Category    string    `json:"category" validate:"required,oneof='Ticket Sale' Salary Maintenance Rent Other"`
	Amount      float64   `json:"amount" validate:"gt=0"`
	Date        time.Time `json:"date"`
	Description string    `json:"description" validate:"required"`
}

func dateRange(r *http.Request) (domain.DateRange, error) {
	return domain.ParseDateRange(r.URL.Query().Get("range"))
}

func (h *Handlers) ListFinance(w http.ResponseWriter, r *http.Request) {
	rng, err := dateRange(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	records, err := h.finance.List(r.Context(), rng)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *Handlers) CreateFinance(w http.ResponseWriter, r *http.Request) {
	var req financeRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	rec, err := h.finance.Record(r.Context(), domain.FinanceRecord{
		Type:        domain.FinanceType(req.Type),
		Category:    domain.FinanceCategory(req.Category),
		Amount:      req.Amount,
		Date:        req.Date,
		Description: req.Description,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (h *Handlers) DeleteFinance(w http.ResponseWriter, r *http.Request) {
	if err := h.finance.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) FinanceSummary(w http.ResponseWriter, r *http.Request) {
	rng, err := dateRange(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	sum, err := h.finance.Summary(r.Context(), rng)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (h *Handlers) FinanceOverview(w http.ResponseWriter, r *http.Request) {
	year := time.Now().Year()
	if s := r.URL.Query().Get("year"); s != "" {
		y, err := strconv.Atoi(s)
		if err != nil || y < 1 {
			writeError(w, r, h.logger, domain.Invalid("invalid year %q", s))
			return
		}
		year = y
	}
	months, err := h.finance.Overview(r.Context(), year)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, months)
}

func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.finance.Dashboard(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
