package finance

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/busops/internal/domain"
	"github.com/robertarktes/busops/internal/store"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const recentBookings = 5

type Dashboard struct {
	TotalRevenue       decimal.Decimal  `json:"totalRevenue"`
	TotalPassengers    int              `json:"totalPassengers"`
	ActiveBuses        int              `json:"activeBuses"`
	BusesInMaintenance int              `json:"busesInMaintenance"`
	TripsThisMonth     int              `json:"tripsThisMonth"`
	RecentBookings     []domain.Booking `json:"recentBookings"`
}

// Dashboard computes the operator KPIs. Trips this month counts every trip
// departing on or after the first of the current month.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	now := s.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	var (
		income   []domain.FinanceRecord
		bookings []domain.Booking
		buses    []domain.Bus
		trips    []domain.Trip
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return errors.Wrap(s.store.Query(gctx, domain.CollectionFinance,
			[]store.Filter{store.Where("type", store.Eq, domain.FinanceIncome)}, nil, &income), "query income")
	})
	g.Go(func() error {
		return errors.Wrap(s.store.Query(gctx, domain.CollectionBookings,
			nil, []store.Order{store.Desc("bookingDate")}, &bookings), "query bookings")
	})
	g.Go(func() error {
		return errors.Wrap(s.store.Query(gctx, domain.CollectionBuses, nil, nil, &buses), "query buses")
	})
	g.Go(func() error {
		return errors.Wrap(s.store.Query(gctx, domain.CollectionTrips,
			[]store.Filter{store.Where("dateTime", store.Gte, monthStart.UTC())}, nil, &trips), "query trips")
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	d := &Dashboard{
		TotalRevenue:    summarize(income).Income,
		TotalPassengers: len(bookings),
		TripsThisMonth:  len(trips),
	}
	for _, b := range buses {
		switch b.MaintenanceStatus {
		case domain.MaintenanceOperational:
			d.ActiveBuses++
		case domain.MaintenanceInProgress:
			d.BusesInMaintenance++
		}
	}
	if len(bookings) > recentBookings {
		bookings = bookings[:recentBookings]
	}
	d.RecentBookings = bookings
	return d, nil
}
