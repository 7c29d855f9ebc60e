package domain

import "time"

const (
	CollectionBuses     = "buses"
	CollectionEmployees = "employees"
	CollectionTrips     = "trips"
	CollectionBookings  = "ticketBookings"
	CollectionFinance   = "financeRecords"
)

type MaintenanceStatus string

const (
	MaintenanceOperational  MaintenanceStatus = "Operational"
	MaintenanceInProgress   MaintenanceStatus = "Maintenance"
	MaintenanceOutOfService MaintenanceStatus = "Out of Service"
)

type Bus struct {
	ID                string            `json:"id" bson:"_id"`
	Name              string            `json:"name" bson:"name"`
	PlateNumber       string            `json:"plateNumber" bson:"plateNumber"`
	Capacity          int               `json:"capacity" bson:"capacity"`
	MaintenanceStatus MaintenanceStatus `json:"maintenanceStatus" bson:"maintenanceStatus"`
	AssignedDriverID  string            `json:"assignedDriverId,omitempty" bson:"assignedDriverId,omitempty"`
	ImageURL          string            `json:"imageUrl,omitempty" bson:"imageUrl,omitempty"`
}

type Role string

const (
	RoleAdmin    Role = "Admin"
	RoleManager  Role = "Manager"
	RoleDriver   Role = "Driver"
	RoleEmployee Role = "Employee"
)

type Employee struct {
	ID              string     `json:"id" bson:"_id"`
	FullName        string     `json:"fullName" bson:"fullName"`
	Role            Role       `json:"role" bson:"role"`
	ContactInfo     string     `json:"contactInfo" bson:"contactInfo"`
	Salary          float64    `json:"salary" bson:"salary"`
	SalaryPayday    int        `json:"salaryPayday" bson:"salaryPayday"`
	LastPaidDate    *time.Time `json:"lastPaidDate,omitempty" bson:"lastPaidDate,omitempty"`
	ProfilePhotoURL string     `json:"profilePhotoUrl,omitempty" bson:"profilePhotoUrl,omitempty"`
}

type TripStatus string

const (
	TripScheduled  TripStatus = "Scheduled"
	TripInProgress TripStatus = "InProgress"
	TripCompleted  TripStatus = "Completed"
	TripCancelled  TripStatus = "Cancelled"
)

type Trip struct {
	ID          string     `json:"id" bson:"_id"`
	From        string     `json:"from" bson:"from"`
	To          string     `json:"to" bson:"to"`
	DateTime    time.Time  `json:"dateTime" bson:"dateTime"`
	BusID       string     `json:"busId" bson:"busId"`
	DriverID    string     `json:"driverId" bson:"driverId"`
	TicketPrice float64    `json:"ticketPrice" bson:"ticketPrice"`
	TotalSeats  int        `json:"totalSeats" bson:"totalSeats"`
	BookedSeats []int      `json:"bookedSeats" bson:"bookedSeats"`
	Status      TripStatus `json:"status" bson:"status"`
}

type BookingStatus string

const (
	BookingConfirmed BookingStatus = "Confirmed"
	BookingPending   BookingStatus = "Pending"
	BookingCancelled BookingStatus = "Cancelled"
)

// HoldsSeat reports whether a booking in this status must own its seat in
// the trip inventory.
func (s BookingStatus) HoldsSeat() bool {
	return s == BookingConfirmed || s == BookingPending
}

type Booking struct {
	ID               string        `json:"id" bson:"_id"`
	TripID           string        `json:"tripId" bson:"tripId"`
	CustomerName     string        `json:"customerName" bson:"customerName"`
	IDNumber         string        `json:"idNumber" bson:"idNumber"`
	SeatNumber       int           `json:"seatNumber" bson:"seatNumber"`
	Price            float64       `json:"price" bson:"price"`
	BookingDate      time.Time     `json:"bookingDate" bson:"bookingDate"`
	Status           BookingStatus `json:"status" bson:"status"`
	CustomerPhotoURL string        `json:"customerPhotoUrl,omitempty" bson:"customerPhotoUrl,omitempty"`
}

type FinanceType string

const (
	FinanceIncome  FinanceType = "Income"
	FinanceExpense FinanceType = "Expense"
)

type FinanceCategory string

const (
	CategoryTicketSale  FinanceCategory = "Ticket Sale"
	CategorySalary      FinanceCategory = "Salary"
	CategoryMaintenance FinanceCategory = "Maintenance"
	CategoryRent        FinanceCategory = "Rent"
	CategoryOther       FinanceCategory = "Other"
)

type FinanceRecord struct {
	ID          string          `json:"id" bson:"_id"`
	Type        FinanceType     `json:"type" bson:"type"`
	Category    FinanceCategory `json:"category" bson:"category"`
	Amount      float64         `json:"amount" bson:"amount"`
	Date        time.Time       `json:"date" bson:"date"`
	Description string          `json:"description" bson:"description"`
}
