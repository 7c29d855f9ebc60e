package fleet

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/busops/internal/domain"
	"github.com/robertarktes/busops/internal/store"
)

// ListTrips returns trips by departure time, optionally only those in status.
func (r *Registry) ListTrips(ctx context.Context, status domain.TripStatus) ([]domain.Trip, error) {
	var filters []store.Filter
	if status != "" {
		if !status.Valid() {
			return nil, domain.Invalid("unknown trip status %q", status)
		}
		filters = append(filters, store.Where("status", store.Eq, status))
	}
	var trips []domain.Trip
	if err := r.store.Query(ctx, domain.CollectionTrips, filters, []store.Order{store.Asc("dateTime")}, &trips); err != nil {
		return nil, errors.Wrap(err, "query trips")
	}
	return trips, nil
}

func (r *Registry) GetTrip(ctx context.Context, id string) (*domain.Trip, error) {
	var trip domain.Trip
	if err := r.store.Get(ctx, domain.CollectionTrips, id, &trip); err != nil {
		return nil, errors.Wrap(err, "load trip")
	}
	if trip.BookedSeats == nil {
		trip.BookedSeats = []int{}
	}
	return &trip, nil
}

// busFor resolves the bus a trip runs on. An unknown bus is an input error.
func (r *Registry) busFor(ctx context.Context, busID string) (*domain.Bus, error) {
	if strings.TrimSpace(busID) == "" {
		return nil, domain.Invalid("bus is required")
	}
	bus, err := r.GetBus(ctx, busID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.Invalid("unknown bus %s", busID)
	}
	return bus, err
}

func (r *Registry) checkDriver(ctx context.Context, driverID string) error {
	if driverID == "" {
		return nil
	}
	_, err := r.GetEmployee(ctx, driverID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Invalid("unknown driver %s", driverID)
	}
	return err
}

// CreateTrip schedules a trip with an empty seat inventory. Total seats
// default to the capacity of the assigned bus.
func (r *Registry) CreateTrip(ctx context.Context, trip domain.Trip) (*domain.Trip, error) {
	bus, err := r.busFor(ctx, trip.BusID)
	if err != nil {
		return nil, err
	}
	if err := r.checkDriver(ctx, trip.DriverID); err != nil {
		return nil, err
	}
	trip.ID = ""
	trip.From = strings.TrimSpace(trip.From)
	trip.To = strings.TrimSpace(trip.To)
	trip.DateTime = trip.DateTime.UTC()
	trip.BookedSeats = []int{}
	if trip.TotalSeats == 0 {
		trip.TotalSeats = bus.Capacity
	}
	if trip.Status == "" {
		trip.Status = domain.TripScheduled
	}
	if err := trip.Validate(); err != nil {
		return nil, err
	}
	id, err := r.store.Create(ctx, domain.CollectionTrips, trip)
	if err != nil {
		return nil, errors.Wrap(err, "create trip")
	}
	trip.ID = id
	r.logger.WithField("trip_id", id).WithField("total_seats", trip.TotalSeats).Info("trip scheduled")
	return &trip, nil
}

// UpdateTrip changes the schedule fields of a trip. The seat inventory is
// left alone; moving the trip to another bus takes that bus's capacity and
// fails with ErrConflict if a booked seat would no longer exist.
func (r *Registry) UpdateTrip(ctx context.Context, id string, in domain.Trip) (*domain.Trip, error) {
	current, err := r.GetTrip(ctx, id)
	if err != nil {
		return nil, err
	}
	updated := *current
	updated.From = strings.TrimSpace(in.From)
	updated.To = strings.TrimSpace(in.To)
	updated.DateTime = in.DateTime.UTC()
	updated.DriverID = in.DriverID
	updated.TicketPrice = in.TicketPrice
	if in.Status != "" {
		updated.Status = in.Status
	}

	if in.BusID != current.BusID {
		bus, err := r.busFor(ctx, in.BusID)
		if err != nil {
			return nil, err
		}
		updated.BusID = bus.ID
		updated.TotalSeats = bus.Capacity
		if max := current.MaxBookedSeat(); max > bus.Capacity {
			return nil, domain.Conflict("seat %d is booked but bus %s has %d seats", max, bus.ID, bus.Capacity)
		}
	}
	if in.DriverID != current.DriverID {
		if err := r.checkDriver(ctx, in.DriverID); err != nil {
			return nil, err
		}
	}
	if err := updated.Validate(); err != nil {
		return nil, err
	}

	err = r.store.Update(ctx, domain.CollectionTrips, id, map[string]interface{}{
		"from":        updated.From,
		"to":          updated.To,
		"dateTime":    updated.DateTime,
		"busId":       updated.BusID,
		"driverId":    updated.DriverID,
		"ticketPrice": updated.TicketPrice,
		"totalSeats":  updated.TotalSeats,
		"status":      updated.Status,
	})
	if err != nil {
		return nil, errors.Wrap(err, "update trip")
	}
	return &updated, nil
}

// DeleteTrip removes a trip that has no active bookings.
func (r *Registry) DeleteTrip(ctx context.Context, id string) error {
	var bookings []domain.Booking
	err := r.store.Query(ctx, domain.CollectionBookings, []store.Filter{
		store.Where("tripId", store.Eq, id),
		store.Where("status", store.Ne, domain.BookingCancelled),
	}, nil, &bookings)
	if err != nil {
		return errors.Wrap(err, "query trip bookings")
	}
	if len(bookings) > 0 {
		return domain.Conflict("trip %s still has %d active bookings", id, len(bookings))
	}
	return errors.Wrap(r.store.Delete(ctx, domain.CollectionTrips, id), "delete trip")
}
