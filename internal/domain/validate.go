package domain

import "strings"

func (s MaintenanceStatus) Valid() bool {
	switch s {
	case MaintenanceOperational, MaintenanceInProgress, MaintenanceOutOfService:
		return true
	}
	return false
}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleDriver, RoleEmployee:
		return true
	}
	return false
}

func (s TripStatus) Valid() bool {
	switch s {
	case TripScheduled, TripInProgress, TripCompleted, TripCancelled:
		return true
	}
	return false
}

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingConfirmed, BookingPending, BookingCancelled:
		return true
	}
	return false
}

func (t FinanceType) Valid() bool {
	return t == FinanceIncome || t == FinanceExpense
}

func (c FinanceCategory) Valid() bool {
	switch c {
	case CategoryTicketSale, CategorySalary, CategoryMaintenance, CategoryRent, CategoryOther:
		return true
	}
	return false
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func (b Bus) Validate() error {
	if blank(b.Name) {
		return Invalid("bus name is required")
	}
	if blank(b.PlateNumber) {
		return Invalid("plate number is required")
	}
	if b.Capacity <= 0 {
		return Invalid("capacity must be positive, got %d", b.Capacity)
	}
	if !b.MaintenanceStatus.Valid() {
		return Invalid("unknown maintenance status %q", b.MaintenanceStatus)
	}
	return nil
}

func (e Employee) Validate() error {
	if blank(e.FullName) {
		return Invalid("full name is required")
	}
	if !e.Role.Valid() {
		return Invalid("unknown role %q", e.Role)
	}
	if blank(e.ContactInfo) {
		return Invalid("contact info is required")
	}
	if e.Salary <= 0 {
		return Invalid("salary must be positive")
	}
	if e.SalaryPayday < 1 || e.SalaryPayday > 31 {
		return Invalid("salary payday must be between 1 and 31, got %d", e.SalaryPayday)
	}
	return nil
}

// Validate checks the trip fields and its seat inventory invariant.
func (t Trip) Validate() error {
	if blank(t.From) || blank(t.To) {
		return Invalid("trip origin and destination are required")
	}
	if t.DateTime.IsZero() {
		return Invalid("trip date is required")
	}
	if t.TicketPrice <= 0 {
		return Invalid("ticket price must be positive")
	}
	if t.TotalSeats <= 0 {
		return Invalid("total seats must be positive, got %d", t.TotalSeats)
	}
	if !t.Status.Valid() {
		return Invalid("unknown trip status %q", t.Status)
	}
	seen := make(map[int]struct{}, len(t.BookedSeats))
	for _, seat := range t.BookedSeats {
		if seat < 1 || seat > t.TotalSeats {
			return Invalid("booked seat %d outside 1..%d", seat, t.TotalSeats)
		}
		if _, dup := seen[seat]; dup {
			return Invalid("seat %d booked twice", seat)
		}
		seen[seat] = struct{}{}
	}
	return nil
}

func (f FinanceRecord) Validate() error {
	if !f.Type.Valid() {
		return Invalid("unknown finance type %q", f.Type)
	}
	if !f.Category.Valid() {
		return Invalid("unknown finance category %q", f.Category)
	}
	if f.Amount <= 0 {
		return Invalid("amount must be positive")
	}
	if f.Date.IsZero() {
		return Invalid("date is required")
	}
	if blank(f.Description) {
		return Invalid("description is required")
	}
	return nil
}
