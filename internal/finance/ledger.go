// Package finance records income and expenses and derives the read-only
// views built on them.
package finance

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/busops/internal/domain"
	"github.com/robertarktes/busops/internal/observability"
	"github.com/robertarktes/busops/internal/outbox"
	"github.com/robertarktes/busops/internal/store"
	"github.com/shopspring/decimal"
)

type Service struct {
	store  store.Gateway
	events outbox.Sink
	logger observability.Logger
	now    func() time.Time
}

func NewService(st store.Gateway, events outbox.Sink, logger observability.Logger) *Service {
	return &Service{store: st, events: events, logger: logger, now: time.Now}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) Get(ctx context.Context, id string) (*domain.FinanceRecord, error) {
	var rec domain.FinanceRecord
	if err := s.store.Get(ctx, domain.CollectionFinance, id, &rec); err != nil {
		return nil, errors.Wrap(err, "load finance record")
	}
	return &rec, nil
}

// List returns the records dated inside the range, newest first.
func (s *Service) List(ctx context.Context, r domain.DateRange) ([]domain.FinanceRecord, error) {
	var filters []store.Filter
	if start, end, ok := r.Bounds(s.now()); ok {
		filters = append(filters,
			store.Where("date", store.Gte, start.UTC()),
			store.Where("date", store.Lt, end.UTC()),
		)
	}
	var records []domain.FinanceRecord
	if err := s.store.Query(ctx, domain.CollectionFinance, filters, []store.Order{store.Desc("date")}, &records); err != nil {
		return nil, errors.Wrap(err, "query finance records")
	}
	return records, nil
}

// Record stores a manual income or expense entry. A missing date means now.
func (s *Service) Record(ctx context.Context, rec domain.FinanceRecord) (*domain.FinanceRecord, error) {
	rec.ID = ""
	rec.Description = strings.TrimSpace(rec.Description)
	if rec.Date.IsZero() {
		rec.Date = s.now()
	}
	rec.Date = rec.Date.UTC()
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	id, err := s.store.Create(ctx, domain.CollectionFinance, rec)
	if err != nil {
		return nil, errors.Wrap(err, "create finance record")
	}
	rec.ID = id

	event := domain.NewEvent(domain.EventFinanceRecorded, "finance_record", id, map[string]interface{}{
		"type":     rec.Type,
		"category": rec.Category,
		"amount":   rec.Amount,
	})
	if err := s.events.Emit(ctx, event); err != nil {
		s.logger.WithError(err).WithField("record_id", id).Warn("failed to emit event")
	}
	return &rec, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return errors.Wrap(s.store.Delete(ctx, domain.CollectionFinance, id), "delete finance record")
}

type Summary struct {
	Income   decimal.Decimal `json:"totalIncome"`
	Expenses decimal.Decimal `json:"totalExpenses"`
	Net      decimal.Decimal `json:"netBalance"`
}

func summarize(records []domain.FinanceRecord) Summary {
	var sum Summary
	for _, rec := range records {
		amount := decimal.NewFromFloat(rec.Amount)
		switch rec.Type {
		case domain.FinanceIncome:
			sum.Income = sum.Income.Add(amount)
		case domain.FinanceExpense:
			sum.Expenses = sum.Expenses.Add(amount)
		}
	}
	sum.Net = sum.Income.Sub(sum.Expenses)
	return sum
}

// Summary totals income and expenses inside the range.
func (s *Service) Summary(ctx context.Context, r domain.DateRange) (Summary, error) {
	records, err := s.List(ctx, r)
	if err != nil {
		return Summary{}, err
	}
	return summarize(records), nil
}

type MonthTotals struct {
	Month   string          `json:"name"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
}

// Overview buckets a calendar year of records by month, January first.
func (s *Service) Overview(ctx context.Context, year int) ([]MonthTotals, error) {
	loc := s.now().Location()
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
	var records []domain.FinanceRecord
	err := s.store.Query(ctx, domain.CollectionFinance, []store.Filter{
		store.Where("date", store.Gte, start.UTC()),
		store.Where("date", store.Lt, start.AddDate(1, 0, 0).UTC()),
	}, nil, &records)
	if err != nil {
		return nil, errors.Wrap(err, "query finance records")
	}

	months := make([]MonthTotals, 12)
	for i := range months {
		months[i].Month = time.Month(i + 1).String()[:3]
	}
	for _, rec := range records {
		m := &months[rec.Date.In(loc).Month()-1]
		amount := decimal.NewFromFloat(rec.Amount)
		switch rec.Type {
		case domain.FinanceIncome:
			m.Income = m.Income.Add(amount)
		case domain.FinanceExpense:
			m.Expense = m.Expense.Add(amount)
		}
	}
	return months, nil
}
