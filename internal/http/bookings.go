package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/robertarktes/busops/internal/booking"
	"github.com/robertarktes/busops/internal/domain"
)

type createBookingRequest struct {
	TripID           string `json:"tripId" validate:"required"`
	CustomerName     string `json:"customerName" validate:"required"`
	IDNumber         string `json:"idNumber" validate:"required"`
	SeatNumber       int    `json:"seatNumber" validate:"gt=0"`
	CustomerPhotoURL string `json:"customerPhotoUrl" validate:"omitempty,url"`
}

type updateBookingRequest struct {
	createBookingRequest
	Status string `json:"status" validate:"required,oneof=Confirmed Pending Cancelled"`
}

func (h *Handlers) ListBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.ledger.List(r.Context(), r.URL.Query().Get("tripId"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

func (h *Handlers) GetBooking(w http.ResponseWriter, r *http.Request) {
	b, err := h.ledger.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handlers) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	b, err := h.ledger.Create(r.Context(), booking.CreateRequest{
		TripID:           req.TripID,
		CustomerName:     req.CustomerName,
		IDNumber:         req.IDNumber,
		SeatNumber:       req.SeatNumber,
		CustomerPhotoURL: req.CustomerPhotoURL,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	loggerFrom(r.Context(), h.logger).WithField("booking_id", b.ID).WithField("trip_id", b.TripID).Info("booking created")
	writeJSON(w, http.StatusCreated, b)
}

func (h *Handlers) UpdateBooking(w http.ResponseWriter, r *http.Request) {
	var req updateBookingRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	b, err := h.ledger.Update(r.Context(), chi.URLParam(r, "id"), booking.UpdateRequest{
		TripID:           req.TripID,
		CustomerName:     req.CustomerName,
		IDNumber:         req.IDNumber,
		SeatNumber:       req.SeatNumber,
		Status:           domain.BookingStatus(req.Status),
		CustomerPhotoURL: req.CustomerPhotoURL,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handlers) DeleteBooking(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
