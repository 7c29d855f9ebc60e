// Package payroll lists employees whose salary is due and records payments.
package payroll

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/busops/internal/domain"
	"github.com/robertarktes/busops/internal/finance"
	"github.com/robertarktes/busops/internal/observability"
	"github.com/robertarktes/busops/internal/outbox"
	"github.com/robertarktes/busops/internal/store"
)

// Marker records a key once; later calls for the same key report false.
// Unmark forgets a key so the next MarkOnce succeeds again.
type Marker interface {
	MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unmark(ctx context.Context, key string) error
}

type Service struct {
	store   store.Gateway
	finance *finance.Service
	events  outbox.Sink
	logger  observability.Logger
	now     func() time.Time
}

func NewService(st store.Gateway, fin *finance.Service, events outbox.Sink, logger observability.Logger) *Service {
	return &Service{store: st, finance: fin, events: events, logger: logger, now: time.Now}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Due returns the employees whose salary is due today and unpaid this month.
func (s *Service) Due(ctx context.Context) ([]domain.Employee, error) {
	var employees []domain.Employee
	if err := s.store.Query(ctx, domain.CollectionEmployees, nil, []store.Order{store.Asc("fullName")}, &employees); err != nil {
		return nil, errors.Wrap(err, "query employees")
	}
	return domain.DuePayroll(employees, s.now()), nil
}

// MarkPaid books the salary as an expense and stamps the payment date.
// Paying an employee twice in one month fails with ErrConflict.
func (s *Service) MarkPaid(ctx context.Context, employeeID string) (*domain.Employee, *domain.FinanceRecord, error) {
	var e domain.Employee
	if err := s.store.Get(ctx, domain.CollectionEmployees, employeeID, &e); err != nil {
		return nil, nil, errors.Wrap(err, "load employee")
	}
	now := s.now()
	if domain.PaidThisMonth(e, now) {
		return nil, nil, domain.Conflict("employee %s already paid for %s", e.ID, now.Format("2006-01"))
	}

	rec, err := s.finance.Record(ctx, domain.FinanceRecord{
		Type:        domain.FinanceExpense,
		Category:    domain.CategorySalary,
		Amount:      e.Salary,
		Date:        now,
		Description: fmt.Sprintf("Salary payment for %s", e.FullName),
	})
	if err != nil {
		return nil, nil, err
	}

	paid := now.UTC()
	if err := s.store.Update(ctx, domain.CollectionEmployees, e.ID, map[string]interface{}{"lastPaidDate": paid}); err != nil {
		if derr := s.finance.Delete(context.WithoutCancel(ctx), rec.ID); derr != nil {
			observability.Compensations.WithLabelValues("delete salary expense", "failed").Inc()
			s.logger.WithError(derr).WithField("record_id", rec.ID).Error("compensation failed")
		} else {
			observability.Compensations.WithLabelValues("delete salary expense", "ok").Inc()
		}
		return nil, nil, errors.Wrap(err, "stamp last paid date")
	}
	e.LastPaidDate = &paid

	event := domain.NewEvent(domain.EventPayrollPaid, "employee", e.ID, map[string]interface{}{
		"amount":    e.Salary,
		"record_id": rec.ID,
	})
	if err := s.events.Emit(ctx, event); err != nil {
		s.logger.WithError(err).WithField("employee_id", e.ID).Warn("failed to emit event")
	}
	return &e, rec, nil
}

// Scan refreshes the due gauge and emits payroll.due once per employee and
// month. It returns the number of newly announced employees.
func (s *Service) Scan(ctx context.Context, marks Marker) (int, error) {
	due, err := s.Due(ctx)
	if err != nil {
		return 0, err
	}
	observability.PayrollDue.Set(float64(len(due)))

	month := s.now().Format("2006-01")
	announced := 0
	for _, e := range due {
		key := "payroll:due:" + e.ID + ":" + month
		first, err := marks.MarkOnce(ctx, key, 32*24*time.Hour)
		if err != nil {
			return announced, errors.Wrapf(err, "mark employee %s", e.ID)
		}
		if !first {
			continue
		}
		event := domain.NewEvent(domain.EventPayrollDue, "employee", e.ID, map[string]interface{}{
			"full_name": e.FullName,
			"amount":    e.Salary,
			"month":     month,
		})
		if err := s.events.Emit(ctx, event); err != nil {
			// The next scan must announce this employee again.
			if unmarkErr := marks.Unmark(context.WithoutCancel(ctx), key); unmarkErr != nil {
				s.logger.WithError(unmarkErr).WithField("employee_id", e.ID).Error("failed to clear payroll due mark")
			}
			return announced, errors.Wrap(err, "emit payroll due")
		}
		announced++
	}
	return announced, nil
}
