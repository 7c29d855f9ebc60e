package finance_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/robertarktes/busops/internal/adapters/memory"
	"github.com/robertarktes/busops/internal/domain"
	"github.com/robertarktes/busops/internal/finance"
	"github.com/robertarktes/busops/internal/observability"
	"github.com/robertarktes/busops/internal/outbox"
	"github.com/shopspring/decimal"
)

// Wednesday.
var now = time.Date(2026, time.October, 14, 12, 0, 0, 0, time.UTC)

func newService() (*finance.Service, *memory.Store) {
	st := memory.NewStore()
	logger := observability.NewDiscardLogger()
	return finance.NewService(st, outbox.LogSink{Logger: logger}, logger).WithClock(func() time.Time { return now }), st
}

func record(t *testing.T, s *finance.Service, typ domain.FinanceType, amount float64, date time.Time) *domain.FinanceRecord {
	t.Helper()
	category := domain.CategoryOther
	if typ == domain.FinanceIncome {
		category = domain.CategoryTicketSale
	}
	rec, err := s.Record(context.Background(), domain.FinanceRecord{Type: typ, Category: category, Amount: amount, Date: date, Description: "entry"})
	if err != nil {
		t.Fatal(err)
	}
	return rec
}

func TestService_RecordValidation(t *testing.T) {
	s, _ := newService()
	cases := []struct {
		name string
		rec  domain.FinanceRecord
	}{
		{"bad type", domain.FinanceRecord{Type: "Gift", Category: domain.CategoryOther, Amount: 1, Description: "x"}},
		{"bad category", domain.FinanceRecord{Type: domain.FinanceIncome, Category: "Misc", Amount: 1, Description: "x"}},
		{"zero amount", domain.FinanceRecord{Type: domain.FinanceIncome, Category: domain.CategoryOther, Description: "x"}},
		{"no description", domain.FinanceRecord{Type: domain.FinanceIncome, Category: domain.CategoryOther, Amount: 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := s.Record(context.Background(), tc.rec); !errors.Is(err, domain.ErrInvalidInput) {
				t.Errorf("expected invalid input, got %v", err)
			}
		})
	}

	rec, err := s.Record(context.Background(), domain.FinanceRecord{Type: domain.FinanceExpense, Category: domain.CategoryRent, Amount: 10, Description: "depot"})
	if err != nil {
		t.Fatal(err)
	}
	if !rec.Date.Equal(now) {
		t.Errorf("expected missing date to default to now, got %v", rec.Date)
	}
}

func TestService_ListByRange(t *testing.T) {
	ctx := context.Background()
	s, _ := newService()
	today := record(t, s, domain.FinanceIncome, 10, now.Add(-time.Hour))
	monday := record(t, s, domain.FinanceIncome, 20, time.Date(2026, time.October, 12, 8, 0, 0, 0, time.UTC))
	lastSunday := record(t, s, domain.FinanceExpense, 5, time.Date(2026, time.October, 11, 23, 0, 0, 0, time.UTC))
	march := record(t, s, domain.FinanceExpense, 7, time.Date(2026, time.March, 3, 0, 0, 0, 0, time.UTC))
	lastYear := record(t, s, domain.FinanceIncome, 9, time.Date(2025, time.December, 31, 0, 0, 0, 0, time.UTC))

	cases := []struct {
		r    domain.DateRange
		want []string
	}{
		{domain.RangeToday, []string{today.ID}},
		{domain.RangeWeek, []string{today.ID, monday.ID}},
		{domain.RangeMonth, []string{today.ID, monday.ID, lastSunday.ID}},
		{domain.RangeYear, []string{today.ID, monday.ID, lastSunday.ID, march.ID}},
		{domain.RangeAll, []string{today.ID, monday.ID, lastSunday.ID, march.ID, lastYear.ID}},
	}
	for _, tc := range cases {
		t.Run(string(tc.r), func(t *testing.T) {
			got, err := s.List(ctx, tc.r)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("expected %d records, got %d", len(tc.want), len(got))
			}
			for i, rec := range got {
				if rec.ID != tc.want[i] {
					t.Errorf("position %d: expected %s, got %s", i, tc.want[i], rec.ID)
				}
			}
		})
	}
}

func TestService_Summary(t *testing.T) {
	s, _ := newService()
	record(t, s, domain.FinanceIncome, 0.1, now)
	record(t, s, domain.FinanceIncome, 0.2, now)
	record(t, s, domain.FinanceExpense, 0.05, now)
	record(t, s, domain.FinanceExpense, 100, now.AddDate(-1, 0, 0))

	sum, err := s.Summary(context.Background(), domain.RangeMonth)
	if err != nil {
		t.Fatal(err)
	}
	if !sum.Income.Equal(decimal.RequireFromString("0.3")) {
		t.Errorf("expected income 0.3, got %s", sum.Income)
	}
	if !sum.Expenses.Equal(decimal.RequireFromString("0.05")) {
		t.Errorf("expected expenses 0.05, got %s", sum.Expenses)
	}
	if !sum.Net.Equal(decimal.RequireFromString("0.25")) {
		t.Errorf("expected net 0.25, got %s", sum.Net)
	}
}

func TestService_Overview(t *testing.T) {
	s, _ := newService()
	record(t, s, domain.FinanceIncome, 40, time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC))
	record(t, s, domain.FinanceIncome, 2, time.Date(2026, time.January, 31, 23, 0, 0, 0, time.UTC))
	record(t, s, domain.FinanceExpense, 15, time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC))
	record(t, s, domain.FinanceExpense, 99, time.Date(2025, time.October, 1, 0, 0, 0, 0, time.UTC))

	months, err := s.Overview(context.Background(), 2026)
	if err != nil {
		t.Fatal(err)
	}
	if len(months) != 12 || months[0].Month != "Jan" || months[11].Month != "Dec" {
		t.Fatalf("unexpected buckets %+v", months)
	}
	if !months[0].Income.Equal(decimal.NewFromInt(42)) {
		t.Errorf("expected January income 42, got %s", months[0].Income)
	}
	if !months[9].Expense.Equal(decimal.NewFromInt(15)) {
		t.Errorf("expected October expense 15, got %s", months[9].Expense)
	}
	if !months[1].Income.IsZero() || !months[1].Expense.IsZero() {
		t.Errorf("expected empty February, got %+v", months[1])
	}
}

func TestService_Dashboard(t *testing.T) {
	ctx := context.Background()
	s, st := newService()
	record(t, s, domain.FinanceIncome, 30, now)
	record(t, s, domain.FinanceIncome, 12.5, now.AddDate(-2, 0, 0))
	record(t, s, domain.FinanceExpense, 1000, now)

	for _, status := range []domain.MaintenanceStatus{domain.MaintenanceOperational, domain.MaintenanceOperational, domain.MaintenanceInProgress, domain.MaintenanceOutOfService} {
		if _, err := st.Create(ctx, domain.CollectionBuses, domain.Bus{Name: "b", PlateNumber: "p", Capacity: 1, MaintenanceStatus: status}); err != nil {
			t.Fatal(err)
		}
	}
	for _, at := range []time.Time{now.AddDate(0, 0, -13), now.AddDate(0, 1, 0), now.AddDate(0, -1, 0)} {
		if _, err := st.Create(ctx, domain.CollectionTrips, domain.Trip{DateTime: at, TotalSeats: 1, BookedSeats: []int{}, Status: domain.TripScheduled}); err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i < 7; i++ {
		if _, err := st.Create(ctx, domain.CollectionBookings, domain.Booking{CustomerName: "c", BookingDate: now.Add(time.Duration(i) * time.Minute), Status: domain.BookingConfirmed}); err != nil {
			t.Fatal(err)
		}
	}

	d, err := s.Dashboard(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !d.TotalRevenue.Equal(decimal.RequireFromString("42.5")) {
		t.Errorf("expected revenue 42.5, got %s", d.TotalRevenue)
	}
	if d.TotalPassengers != 7 || d.ActiveBuses != 2 || d.BusesInMaintenance != 1 || d.TripsThisMonth != 2 {
		t.Errorf("unexpected KPIs %+v", d)
	}
	if len(d.RecentBookings) != 5 || !d.RecentBookings[0].BookingDate.Equal(now.Add(6*time.Minute)) {
		t.Errorf("expected the five newest bookings, got %+v", d.RecentBookings)
	}
}
