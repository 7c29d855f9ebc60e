// Package booking keeps ticket bookings and the seat inventory of their trips
// consistent.
//
// Seat membership is changed through the store's atomic ClaimSeat and
// ReleaseSeat, so two concurrent bookings of one seat cannot both succeed.
// Operations that write more than one document undo their completed writes
// when a later write fails.
package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/busops/internal/domain"
	"github.com/robertarktes/busops/internal/observability"
	"github.com/robertarktes/busops/internal/outbox"
	"github.com/robertarktes/busops/internal/store"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("booking")

type Ledger struct {
	store  store.Store
	events outbox.Sink
	logger observability.Logger
	now    func() time.Time
}

func NewLedger(st store.Store, events outbox.Sink, logger observability.Logger) *Ledger {
	return &Ledger{store: st, events: events, logger: logger, now: time.Now}
}

// WithClock replaces the ledger's time source.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

type CreateRequest struct {
	TripID           string
	CustomerName     string
	IDNumber         string
	SeatNumber       int
	CustomerPhotoURL string
}

func (r CreateRequest) Validate() error {
	switch {
	case strings.TrimSpace(r.TripID) == "":
		return domain.Invalid("trip is required")
	case strings.TrimSpace(r.CustomerName) == "":
		return domain.Invalid("customer name is required")
	case strings.TrimSpace(r.IDNumber) == "":
		return domain.Invalid("id number is required")
	case r.SeatNumber <= 0:
		return domain.Invalid("seat number is required")
	}
	return nil
}

// UpdateRequest carries the complete editable state of a booking.
type UpdateRequest struct {
	TripID           string
	CustomerName     string
	IDNumber         string
	SeatNumber       int
	Status           domain.BookingStatus
	CustomerPhotoURL string
}

func (r UpdateRequest) Validate() error {
	if err := (CreateRequest{TripID: r.TripID, CustomerName: r.CustomerName, IDNumber: r.IDNumber, SeatNumber: r.SeatNumber}).Validate(); err != nil {
		return err
	}
	if !r.Status.Valid() {
		return domain.Invalid("unknown booking status %q", r.Status)
	}
	return nil
}

func (l *Ledger) Get(ctx context.Context, id string) (*domain.Booking, error) {
	var b domain.Booking
	if err := l.store.Get(ctx, domain.CollectionBookings, id, &b); err != nil {
		return nil, errors.Wrap(err, "load booking")
	}
	return &b, nil
}

// List returns bookings newest first, optionally limited to one trip.
func (l *Ledger) List(ctx context.Context, tripID string) ([]domain.Booking, error) {
	var filters []store.Filter
	if tripID != "" {
		filters = append(filters, store.Where("tripId", store.Eq, tripID))
	}
	var bookings []domain.Booking
	err := l.store.Query(ctx, domain.CollectionBookings, filters, []store.Order{store.Desc("bookingDate")}, &bookings)
	if err != nil {
		return nil, errors.Wrap(err, "query bookings")
	}
	return bookings, nil
}

// loadTrip returns nil without error when the trip does not exist.
func (l *Ledger) loadTrip(ctx context.Context, id string) (*domain.Trip, error) {
	var trip domain.Trip
	err := l.store.Get(ctx, domain.CollectionTrips, id, &trip)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "load trip")
	}
	return &trip, nil
}

// AvailableSeats lists the seats selectable on a trip. When editingBookingID
// names a booking on the same trip, that booking's seat is included.
// A missing trip has no seats.
func (l *Ledger) AvailableSeats(ctx context.Context, tripID, editingBookingID string) ([]int, error) {
	trip, err := l.loadTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	keep := 0
	if editingBookingID != "" {
		b, err := l.Get(ctx, editingBookingID)
		if err != nil {
			return nil, err
		}
		if b.TripID == tripID && b.Status.HoldsSeat() {
			keep = b.SeatNumber
		}
	}
	return domain.AvailableSeats(trip, keep), nil
}

func (l *Ledger) claim(ctx context.Context, tripID string, seat int) error {
	err := l.store.ClaimSeat(ctx, tripID, seat)
	if errors.Is(err, domain.ErrConflict) {
		observability.SeatConflicts.Inc()
	}
	return errors.Wrapf(err, "claim seat %d on trip %s", seat, tripID)
}

func openForBooking(trip *domain.Trip, seat int) error {
	if trip.Status != domain.TripScheduled {
		return domain.Invalid("trip %s is %s and not open for booking", trip.ID, trip.Status)
	}
	if !trip.SeatInRange(seat) {
		return domain.Invalid("seat %d outside 1..%d", seat, trip.TotalSeats)
	}
	return nil
}

// Create reserves the seat, records the booking as Confirmed at the trip's
// current ticket price and books the matching ticket sale income.
func (l *Ledger) Create(ctx context.Context, req CreateRequest) (b *domain.Booking, err error) {
	ctx, span := tracer.Start(ctx, "booking.Create")
	defer func() { l.finish(span, "create", err) }()
	span.SetAttributes(attribute.String("trip.id", req.TripID), attribute.Int("seat", req.SeatNumber))

	if err := req.Validate(); err != nil {
		return nil, err
	}
	trip, err := l.loadTrip(ctx, req.TripID)
	if err != nil {
		return nil, err
	}
	if trip == nil {
		return nil, errors.Wrapf(domain.ErrNotFound, "trip %s", req.TripID)
	}
	if err := openForBooking(trip, req.SeatNumber); err != nil {
		return nil, err
	}

	if err := l.claim(ctx, trip.ID, req.SeatNumber); err != nil {
		return nil, err
	}
	tx := &saga{logger: l.logger}
	tx.add("release seat", func(ctx context.Context) error {
		return l.store.ReleaseSeat(ctx, trip.ID, req.SeatNumber)
	})

	booking := domain.Booking{
		TripID:           trip.ID,
		CustomerName:     strings.TrimSpace(req.CustomerName),
		IDNumber:         strings.TrimSpace(req.IDNumber),
		SeatNumber:       req.SeatNumber,
		Price:            trip.TicketPrice,
		BookingDate:      l.now().UTC(),
		Status:           domain.BookingConfirmed,
		CustomerPhotoURL: strings.TrimSpace(req.CustomerPhotoURL),
	}
	id, err := l.store.Create(ctx, domain.CollectionBookings, booking)
	if err != nil {
		tx.rollback(ctx, err)
		return nil, errors.Wrap(err, "create booking")
	}
	booking.ID = id
	tx.add("delete booking", func(ctx context.Context) error {
		return l.store.Delete(ctx, domain.CollectionBookings, id)
	})

	income := domain.FinanceRecord{
		Type:        domain.FinanceIncome,
		Category:    domain.CategoryTicketSale,
		Amount:      booking.Price,
		Date:        booking.BookingDate,
		Description: fmt.Sprintf("Ticket sale for %s on trip %s", booking.CustomerName, booking.TripID),
	}
	if _, err := l.store.Create(ctx, domain.CollectionFinance, income); err != nil {
		tx.rollback(ctx, err)
		return nil, errors.Wrap(err, "record ticket sale")
	}

	l.emit(ctx, domain.EventBookingCreated, booking)
	return &booking, nil
}

// Update replaces the editable fields of a booking. The seat inventory follows
// the booking: a new (trip, seat) pair is claimed before the booking is
// written and the old one released afterwards, and cancelling a booking gives
// its seat back.
func (l *Ledger) Update(ctx context.Context, id string, req UpdateRequest) (b *domain.Booking, err error) {
	ctx, span := tracer.Start(ctx, "booking.Update")
	defer func() { l.finish(span, "update", err) }()
	span.SetAttributes(attribute.String("booking.id", id))

	if err := req.Validate(); err != nil {
		return nil, err
	}
	current, err := l.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	oldHolds := current.Status.HoldsSeat()
	newHolds := req.Status.HoldsSeat()
	moved := current.TripID != req.TripID || current.SeatNumber != req.SeatNumber
	needClaim := newHolds && (moved || !oldHolds)
	needRelease := oldHolds && (moved || !newHolds)

	updated := *current
	updated.TripID = req.TripID
	updated.CustomerName = strings.TrimSpace(req.CustomerName)
	updated.IDNumber = strings.TrimSpace(req.IDNumber)
	updated.SeatNumber = req.SeatNumber
	updated.Status = req.Status
	updated.CustomerPhotoURL = strings.TrimSpace(req.CustomerPhotoURL)

	var trip *domain.Trip
	if req.TripID != current.TripID || needClaim {
		if trip, err = l.loadTrip(ctx, req.TripID); err != nil {
			return nil, err
		}
	}
	if req.TripID != current.TripID && trip != nil {
		updated.Price = trip.TicketPrice
	}
	// A vanished trip has no inventory to update; the booking still moves.
	if trip == nil {
		needClaim = false
	}
	if needClaim {
		if err := openForBooking(trip, req.SeatNumber); err != nil {
			return nil, err
		}
	}

	tx := &saga{logger: l.logger}
	if needClaim {
		if err := l.claim(ctx, req.TripID, req.SeatNumber); err != nil {
			return nil, err
		}
		tx.add("release new seat", func(ctx context.Context) error {
			return l.store.ReleaseSeat(ctx, req.TripID, req.SeatNumber)
		})
	}

	if err := l.store.Update(ctx, domain.CollectionBookings, id, bookingFields(updated)); err != nil {
		tx.rollback(ctx, err)
		return nil, errors.Wrap(err, "update booking")
	}
	tx.add("restore booking", func(ctx context.Context) error {
		return l.store.Update(ctx, domain.CollectionBookings, id, bookingFields(*current))
	})

	if needRelease {
		err := l.store.ReleaseSeat(ctx, current.TripID, current.SeatNumber)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			l.logger.WithField("trip_id", current.TripID).Debug("old trip gone, nothing to release")
		case err != nil:
			tx.rollback(ctx, err)
			return nil, errors.Wrapf(err, "release seat %d on trip %s", current.SeatNumber, current.TripID)
		}
	}

	l.emit(ctx, domain.EventBookingUpdated, updated)
	return &updated, nil
}

// Delete removes a booking and gives its seat back to the trip. A booking
// whose trip no longer exists is still deleted.
func (l *Ledger) Delete(ctx context.Context, id string) (err error) {
	ctx, span := tracer.Start(ctx, "booking.Delete")
	defer func() { l.finish(span, "delete", err) }()
	span.SetAttributes(attribute.String("booking.id", id))

	current, err := l.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := l.store.Delete(ctx, domain.CollectionBookings, id); err != nil {
		return errors.Wrap(err, "delete booking")
	}
	if current.Status.HoldsSeat() {
		err := l.store.ReleaseSeat(ctx, current.TripID, current.SeatNumber)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			l.logger.WithField("trip_id", current.TripID).Debug("trip gone, nothing to release")
		case err != nil:
			return errors.Wrapf(err, "release seat %d on trip %s", current.SeatNumber, current.TripID)
		}
	}

	l.emit(ctx, domain.EventBookingDeleted, *current)
	return nil
}

func bookingFields(b domain.Booking) map[string]interface{} {
	return map[string]interface{}{
		"tripId":           b.TripID,
		"customerName":     b.CustomerName,
		"idNumber":         b.IDNumber,
		"seatNumber":       b.SeatNumber,
		"price":            b.Price,
		"status":           b.Status,
		"customerPhotoUrl": b.CustomerPhotoURL,
	}
}

func (l *Ledger) emit(ctx context.Context, eventType string, b domain.Booking) {
	event := domain.NewEvent(eventType, "booking", b.ID, map[string]interface{}{
		"trip_id":     b.TripID,
		"seat_number": b.SeatNumber,
		"customer":    b.CustomerName,
		"price":       b.Price,
		"status":      b.Status,
	})
	if err := l.events.Emit(ctx, event); err != nil {
		l.logger.WithError(err).WithField("event_type", eventType).WithField("booking_id", b.ID).Warn("failed to emit event")
	}
}

func (l *Ledger) finish(span trace.Span, op string, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	observability.BookingOps.WithLabelValues(op, outcome(err)).Inc()
	span.End()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	}
	return "error"
}
