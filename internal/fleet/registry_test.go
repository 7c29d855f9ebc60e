package fleet_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/robertarktes/busops/internal/adapters/memory"
	"github.com/robertarktes/busops/internal/domain"
	"github.com/robertarktes/busops/internal/fleet"
	"github.com/robertarktes/busops/internal/observability"
)

func newRegistry() (*fleet.Registry, *memory.Store) {
	st := memory.NewStore()
	return fleet.NewRegistry(st, observability.NewDiscardLogger()), st
}

func mustBus(t *testing.T, r *fleet.Registry, name string, capacity int) *domain.Bus {
	t.Helper()
	bus, err := r.CreateBus(context.Background(), domain.Bus{
		Name:              name,
		PlateNumber:       "KBX " + name,
		Capacity:          capacity,
		MaintenanceStatus: domain.MaintenanceOperational,
	})
	if err != nil {
		t.Fatal(err)
	}
	return bus
}

func tripFor(busID string) domain.Trip {
	return domain.Trip{
		From:        "Nairobi",
		To:          "Kisumu",
		DateTime:    time.Date(2026, time.November, 2, 7, 30, 0, 0, time.UTC),
		BusID:       busID,
		TicketPrice: 15,
	}
}

func TestRegistry_BusValidation(t *testing.T) {
	r, _ := newRegistry()
	cases := []struct {
		name string
		bus  domain.Bus
	}{
		{"no name", domain.Bus{PlateNumber: "A", Capacity: 10, MaintenanceStatus: domain.MaintenanceOperational}},
		{"no plate", domain.Bus{Name: "A", Capacity: 10, MaintenanceStatus: domain.MaintenanceOperational}},
		{"zero capacity", domain.Bus{Name: "A", PlateNumber: "A", MaintenanceStatus: domain.MaintenanceOperational}},
		{"bad status", domain.Bus{Name: "A", PlateNumber: "A", Capacity: 10, MaintenanceStatus: "Broken"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := r.CreateBus(context.Background(), tc.bus); !errors.Is(err, domain.ErrInvalidInput) {
				t.Errorf("expected invalid input, got %v", err)
			}
		})
	}
}

func TestRegistry_BusCRUD(t *testing.T) {
	ctx := context.Background()
	r, _ := newRegistry()
	bus := mustBus(t, r, "Beta", 30)
	mustBus(t, r, "Alpha", 40)

	bus.MaintenanceStatus = domain.MaintenanceInProgress
	bus.ImageURL = "https://cdn.example.com/buses/beta.jpg"
	if _, err := r.UpdateBus(ctx, bus.ID, *bus); err != nil {
		t.Fatal(err)
	}
	got, err := r.GetBus(ctx, bus.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.MaintenanceStatus != domain.MaintenanceInProgress || got.ImageURL != bus.ImageURL {
		t.Errorf("expected status and image to be updated, got %+v", got)
	}

	buses, err := r.ListBuses(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(buses) != 2 || buses[0].Name != "Alpha" {
		t.Errorf("expected buses sorted by name, got %+v", buses)
	}

	if err := r.DeleteBus(ctx, bus.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := r.GetBus(ctx, bus.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	if _, err := r.UpdateBus(ctx, "missing", *bus); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not found updating a missing bus, got %v", err)
	}
}

func TestRegistry_EmployeeKeepsLastPaidDate(t *testing.T) {
	ctx := context.Background()
	r, st := newRegistry()
	e, err := r.CreateEmployee(ctx, domain.Employee{FullName: "Jane", Role: domain.RoleDriver, ContactInfo: "0700", Salary: 900, SalaryPayday: 25})
	if err != nil {
		t.Fatal(err)
	}
	paid := time.Date(2026, time.September, 25, 0, 0, 0, 0, time.UTC)
	if err := st.Update(ctx, domain.CollectionEmployees, e.ID, map[string]interface{}{"lastPaidDate": paid}); err != nil {
		t.Fatal(err)
	}

	e.Salary = 1000
	e.LastPaidDate = nil
	updated, err := r.UpdateEmployee(ctx, e.ID, *e)
	if err != nil {
		t.Fatal(err)
	}
	if updated.LastPaidDate == nil || !updated.LastPaidDate.Equal(paid) {
		t.Errorf("expected last paid date to survive an update, got %v", updated.LastPaidDate)
	}

	if _, err := r.CreateEmployee(ctx, domain.Employee{FullName: "Bad", Role: domain.RoleDriver, ContactInfo: "x", Salary: 1, SalaryPayday: 32}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected invalid payday, got %v", err)
	}
}

func TestRegistry_CreateTripFromBus(t *testing.T) {
	ctx := context.Background()
	r, _ := newRegistry()
	bus := mustBus(t, r, "Coach", 44)

	trip, err := r.CreateTrip(ctx, tripFor(bus.ID))
	if err != nil {
		t.Fatal(err)
	}
	if trip.TotalSeats != 44 || trip.Status != domain.TripScheduled || trip.BookedSeats == nil || len(trip.BookedSeats) != 0 {
		t.Errorf("unexpected trip %+v", trip)
	}

	stored, err := r.GetTrip(ctx, trip.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.TotalSeats != 44 || len(stored.BookedSeats) != 0 {
		t.Errorf("unexpected stored trip %+v", stored)
	}

	in := tripFor(bus.ID)
	in.BookedSeats = []int{1, 2}
	trip, err = r.CreateTrip(ctx, in)
	if err != nil {
		t.Fatal(err)
	}
	if len(trip.BookedSeats) != 0 {
		t.Errorf("expected booked seats to be ignored, got %v", trip.BookedSeats)
	}

	if _, err := r.CreateTrip(ctx, tripFor("nope")); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected invalid input for unknown bus, got %v", err)
	}
	noDriver := tripFor(bus.ID)
	noDriver.DriverID = "ghost"
	if _, err := r.CreateTrip(ctx, noDriver); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected invalid input for unknown driver, got %v", err)
	}
}

func TestRegistry_UpdateTripBusChange(t *testing.T) {
	ctx := context.Background()
	r, st := newRegistry()
	big := mustBus(t, r, "Big", 40)
	small := mustBus(t, r, "Small", 10)
	trip, err := r.CreateTrip(ctx, tripFor(big.ID))
	if err != nil {
		t.Fatal(err)
	}
	if err := st.ClaimSeat(ctx, trip.ID, 12); err != nil {
		t.Fatal(err)
	}

	in := tripFor(small.ID)
	if _, err := r.UpdateTrip(ctx, trip.ID, in); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict shrinking below a booked seat, got %v", err)
	}

	if err := st.ReleaseSeat(ctx, trip.ID, 12); err != nil {
		t.Fatal(err)
	}
	if err := st.ClaimSeat(ctx, trip.ID, 3); err != nil {
		t.Fatal(err)
	}
	updated, err := r.UpdateTrip(ctx, trip.ID, in)
	if err != nil {
		t.Fatal(err)
	}
	if updated.TotalSeats != 10 || len(updated.BookedSeats) != 1 || updated.BookedSeats[0] != 3 {
		t.Errorf("unexpected trip %+v", updated)
	}
	stored, _ := r.GetTrip(ctx, trip.ID)
	if stored.TotalSeats != 10 || len(stored.BookedSeats) != 1 {
		t.Errorf("unexpected stored trip %+v", stored)
	}

	in.TicketPrice = 0
	if _, err := r.UpdateTrip(ctx, trip.ID, in); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected invalid price, got %v", err)
	}
}

func TestRegistry_DeleteTripWithBookings(t *testing.T) {
	ctx := context.Background()
	r, st := newRegistry()
	bus := mustBus(t, r, "Coach", 10)
	trip, err := r.CreateTrip(ctx, tripFor(bus.ID))
	if err != nil {
		t.Fatal(err)
	}
	id, err := st.Create(ctx, domain.CollectionBookings, domain.Booking{TripID: trip.ID, CustomerName: "A", SeatNumber: 1, Status: domain.BookingPending})
	if err != nil {
		t.Fatal(err)
	}

	if err := r.DeleteTrip(ctx, trip.ID); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	if err := st.Update(ctx, domain.CollectionBookings, id, map[string]interface{}{"status": domain.BookingCancelled}); err != nil {
		t.Fatal(err)
	}
	if err := r.DeleteTrip(ctx, trip.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := r.GetTrip(ctx, trip.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestRegistry_ListTripsByStatus(t *testing.T) {
	ctx := context.Background()
	r, _ := newRegistry()
	bus := mustBus(t, r, "Coach", 10)
	later := tripFor(bus.ID)
	later.DateTime = later.DateTime.Add(24 * time.Hour)
	if _, err := r.CreateTrip(ctx, later); err != nil {
		t.Fatal(err)
	}
	done := tripFor(bus.ID)
	done.Status = domain.TripCompleted
	if _, err := r.CreateTrip(ctx, done); err != nil {
		t.Fatal(err)
	}
	if _, err := r.CreateTrip(ctx, tripFor(bus.ID)); err != nil {
		t.Fatal(err)
	}

	all, err := r.ListTrips(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[2].DateTime.Before(all[0].DateTime) {
		t.Errorf("expected three trips by departure, got %+v", all)
	}
	scheduled, err := r.ListTrips(ctx, domain.TripScheduled)
	if err != nil {
		t.Fatal(err)
	}
	if len(scheduled) != 2 {
		t.Errorf("expected two scheduled trips, got %d", len(scheduled))
	}
	if _, err := r.ListTrips(ctx, "Parked"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected invalid status, got %v", err)
	}
}
