package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/robertarktes/busops/internal/domain"
)

type busRequest struct {
	Name              string `json:"name" validate:"required"`
	PlateNumber       string `json:"plateNumber" validate:"required"`
	Capacity          int    `json:"capacity" validate:"gt=0"`
	MaintenanceStatus string `json:"maintenanceStatus" validate:"required,oneof=Operational Maintenance 'Out of Service'"`
	AssignedDriverID  string `json:"assignedDriverId"`
	ImageURL          string `json:"imageUrl" validate:"omitempty,url"`
}

func (req busRequest) bus() domain.Bus {
	return domain.Bus{
		Name:              req.Name,
		PlateNumber:       req.PlateNumber,
		Capacity:          req.Capacity,
		MaintenanceStatus: domain.MaintenanceStatus(req.MaintenanceStatus),
		AssignedDriverID:  req.AssignedDriverID,
		ImageURL:          req.ImageURL,
	}
}

func (h *Handlers) ListBuses(w http.ResponseWriter, r *http.Request) {
	buses, err := h.fleet.ListBuses(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, buses)
}

func (h *Handlers) GetBus(w http.ResponseWriter, r *http.Request) {
	bus, err := h.fleet.GetBus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, bus)
}

func (h *Handlers) CreateBus(w http.ResponseWriter, r *http.Request) {
	var req busRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	bus, err := h.fleet.CreateBus(r.Context(), req.bus())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, bus)
}

func (h *Handlers) UpdateBus(w http.ResponseWriter, r *http.Request) {
	var req busRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	bus, err := h.fleet.UpdateBus(r.Context(), chi.URLParam(r, "id"), req.bus())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, bus)
}

func (h *Handlers) DeleteBus(w http.ResponseWriter, r *http.Request) {
	if err := h.fleet.DeleteBus(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type employeeRequest struct {
	FullName        string  `json:"fullName" validate:"required"`
	Role            string  `json:"role" validate:"required,oneof=Admin Manager Driver Employee"`
	ContactInfo     string  `json:"contactInfo" validate:"required"`
	Salary          float64 `json:"salary" validate:"gt=0"`
	SalaryPayday    int     `json:"salaryPayday" validate:"min=1,max=31"`
	ProfilePhotoURL string  `json:"profilePhotoUrl" validate:"omitempty,url"`
}

func (req employeeRequest) employee() domain.Employee {
	return domain.Employee{
		FullName:        req.FullName,
		Role:            domain.Role(req.Role),
		ContactInfo:     req.ContactInfo,
		Salary:          req.Salary,
		SalaryPayday:    req.SalaryPayday,
		ProfilePhotoURL: req.ProfilePhotoURL,
	}
}

func (h *Handlers) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.fleet.ListEmployees(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, employees)
}

func (h *Handlers) GetEmployee(w http.ResponseWriter, r *http.Request) {
	e, err := h.fleet.GetEmployee(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *Handlers) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req employeeRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	e, err := h.fleet.CreateEmployee(r.Context(), req.employee())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (h *Handlers) UpdateEmployee(w http.ResponseWriter, r *http.Request) {
	var req employeeRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	e, err := h.fleet.UpdateEmployee(r.Context(), chi.URLParam(r, "id"), req.employee())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *Handlers) DeleteEmployee(w http.ResponseWriter, r *http.Request) {
	if err := h.fleet.DeleteEmployee(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) PayrollDue(w http.ResponseWriter, r *http.Request) {
	due, err := h.payroll.Due(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, due)
}

func (h *Handlers) PayEmployee(w http.ResponseWriter, r *http.Request) {
	e, rec, err := h.payroll.MarkPaid(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"employee": e,
		"expense":  rec,
	})
}

type tripRequest struct {
	From        string    `json:"from" validate:"required"`
	To          string    `json:"to" validate:"required"`
	DateTime    time.Time `json:"dateTime"`
	BusID       string    `json:"busId" validate:"required"`
	DriverID    string    `json:"driverId"`
	TicketPrice float64   `json:"ticketPrice" validate:"gt=0"`
	TotalSeats  int       `json:"totalSeats" validate:"gte=0"`
	Status      string    `json:"status" validate:"omitempty,oneof=Scheduled InProgress Completed Cancelled"`
}

func (req tripRequest) trip() domain.Trip {
	return domain.Trip{
		From:        req.From,
		To:          req.To,
		DateTime:    req.DateTime,
		BusID:       req.BusID,
		DriverID:    req.DriverID,
		TicketPrice: req.TicketPrice,
		TotalSeats:  req.TotalSeats,
		Status:      domain.TripStatus(req.Status),
	}
}

func (h *Handlers) ListTrips(w http.ResponseWriter, r *http.Request) {
	trips, err := h.fleet.ListTrips(r.Context(), domain.TripStatus(r.URL.Query().Get("status")))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, trips)
}

func (h *Handlers) GetTrip(w http.ResponseWriter, r *http.Request) {
	trip, err := h.fleet.GetTrip(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

func (h *Handlers) CreateTrip(w http.ResponseWriter, r *http.Request) {
	var req tripRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	trip, err := h.fleet.CreateTrip(r.Context(), req.trip())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, trip)
}

func (h *Handlers) UpdateTrip(w http.ResponseWriter, r *http.Request) {
	var req tripRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	trip, err := h.fleet.UpdateTrip(r.Context(), chi.URLParam(r, "id"), req.trip())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

func (h *Handlers) DeleteTrip(w http.ResponseWriter, r *http.Request) {
	if err := h.fleet.DeleteTrip(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TripSeats lists the selectable seats of a trip. The booking query
// parameter names a booking being edited whose own seat stays selectable.
func (h *Handlers) TripSeats(w http.ResponseWriter, r *http.Request) {
	seats, err := h.ledger.AvailableSeats(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("booking"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"availableSeats": seats})
}
