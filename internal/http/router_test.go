package http_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/robertarktes/busops/internal/adapters/memory"
	"github.com/robertarktes/busops/internal/booking"
	"github.com/robertarktes/busops/internal/domain"
	"github.com/robertarktes/busops/internal/finance"
	"github.com/robertarktes/busops/internal/fleet"
	apihttp "github.com/robertarktes/busops/internal/http"
	"github.com/robertarktes/busops/internal/idempotency"
	"github.com/robertarktes/busops/internal/observability"
	"github.com/robertarktes/busops/internal/outbox"
	"github.com/robertarktes/busops/internal/payroll"
	"github.com/robertarktes/busops/internal/rateLimit"
)

type api struct {
	t      *testing.T
	server *httptest.Server
	store  *memory.Store
}

func newAPI(t *testing.T, ratePerMinute int) *api {
	t.Helper()
	st := memory.NewStore()
	logger := observability.NewDiscardLogger()
	sink := outbox.LogSink{Logger: logger}
	fin := finance.NewService(st, sink, logger)
	h := apihttp.NewHandlers(apihttp.Deps{
		Ledger:  booking.NewLedger(st, sink, logger),
		Fleet:   fleet.NewRegistry(st, logger),
		Finance: fin,
		Payroll: payroll.NewService(st, fin, sink, logger),
		Logger:  logger,
	})
	rl := rateLimit.NewRateLimiter(rateLimit.NewMemoryCounter(), ratePerMinute, time.Minute)
	idem := idempotency.NewIdempotency(idempotency.NewMemoryBackend(), time.Hour)
	srv := httptest.NewServer(apihttp.SetupRouter(h, logger, rl, idem))
	t.Cleanup(srv.Close)
	return &api{t: t, server: srv, store: st}
}

func (a *api) do(method, path string, body interface{}, headers map[string]string, out interface{}) *http.Response {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			a.t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, a.server.URL+path, &buf)
	if err != nil {
		a.t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		a.t.Fatal(err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			a.t.Fatalf("%s %s: decode response: %v", method, path, err)
		}
	}
	return resp
}

func key(s string) map[string]string {
	return map[string]string{"Idempotency-Key": "test-key-" + s + "-0000000000"}
}

func (a *api) seedTrip(seats int) domain.Trip {
	a.t.Helper()
	var bus domain.Bus
	resp := a.do(http.MethodPost, "/v1/buses", map[string]interface{}{
		"name": "Coach", "plateNumber": "KCA 100A", "capacity": seats, "maintenanceStatus": "Operational",
	}, nil, &bus)
	if resp.StatusCode != http.StatusCreated {
		a.t.Fatalf("create bus: status %d", resp.StatusCode)
	}
	var trip domain.Trip
	resp = a.do(http.MethodPost, "/v1/trips", map[string]interface{}{
		"from": "Nairobi", "to": "Nakuru", "dateTime": time.Now().Add(48 * time.Hour).Format(time.RFC3339),
		"busId": bus.ID, "ticketPrice": 12.5,
	}, nil, &trip)
	if resp.StatusCode != http.StatusCreated {
		a.t.Fatalf("create trip: status %d", resp.StatusCode)
	}
	return trip
}

func bookingBody(tripID string, seat int) map[string]interface{} {
	return map[string]interface{}{"tripId": tripID, "customerName": "Alice", "idNumber": "A-1", "seatNumber": seat}
}

func TestRouter_BookingFlow(t *testing.T) {
	a := newAPI(t, 1000)
	trip := a.seedTrip(2)
	if trip.TotalSeats != 2 {
		t.Fatalf("expected seats from bus capacity, got %d", trip.TotalSeats)
	}

	var alice domain.Booking
	body := bookingBody(trip.ID, 1)
	body["customerPhotoUrl"] = "https://cdn.example.com/customers/alice.jpg"
	resp := a.do(http.MethodPost, "/v1/bookings", body, key("alice"), &alice)
	if resp.StatusCode != http.StatusCreated || alice.Status != domain.BookingConfirmed || alice.Price != 12.5 || alice.CustomerPhotoURL != body["customerPhotoUrl"] {
		t.Fatalf("unexpected create: %d %+v", resp.StatusCode, alice)
	}

	var seats struct {
		AvailableSeats []int `json:"availableSeats"`
	}
	a.do(http.MethodGet, "/v1/trips/"+trip.ID+"/seats", nil, nil, &seats)
	if len(seats.AvailableSeats) != 1 || seats.AvailableSeats[0] != 2 {
		t.Errorf("expected [2] available, got %v", seats.AvailableSeats)
	}
	a.do(http.MethodGet, "/v1/trips/"+trip.ID+"/seats?booking="+alice.ID, nil, nil, &seats)
	if len(seats.AvailableSeats) != 2 {
		t.Errorf("expected own seat to be offered while editing, got %v", seats.AvailableSeats)
	}

	var errBody map[string]string
	resp = a.do(http.MethodPost, "/v1/bookings", bookingBody(trip.ID, 1), key("bob"), &errBody)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 for a taken seat, got %d", resp.StatusCode)
	}

	update := bookingBody(trip.ID, 2)
	update["status"] = "Confirmed"
	var moved domain.Booking
	resp = a.do(http.MethodPut, "/v1/bookings/"+alice.ID, update, nil, &moved)
	if resp.StatusCode != http.StatusOK || moved.SeatNumber != 2 {
		t.Fatalf("unexpected update: %d %+v", resp.StatusCode, moved)
	}

	var stored domain.Trip
	a.do(http.MethodGet, "/v1/trips/"+trip.ID, nil, nil, &stored)
	if len(stored.BookedSeats) != 1 || stored.BookedSeats[0] != 2 {
		t.Errorf("expected seat 2 booked, got %v", stored.BookedSeats)
	}

	resp = a.do(http.MethodDelete, "/v1/trips/"+trip.ID, nil, nil, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 deleting a booked trip, got %d", resp.StatusCode)
	}

	resp = a.do(http.MethodDelete, "/v1/bookings/"+alice.ID, nil, nil, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	a.do(http.MethodGet, "/v1/trips/"+trip.ID, nil, nil, &stored)
	if len(stored.BookedSeats) != 0 {
		t.Errorf("expected no booked seats, got %v", stored.BookedSeats)
	}

	var summary map[string]string
	a.do(http.MethodGet, "/v1/finance/summary", nil, nil, &summary)
	if summary["totalIncome"] != "12.5" {
		t.Errorf("expected ticket sale income, got %v", summary)
	}
}

func TestRouter_IdempotentReplay(t *testing.T) {
	a := newAPI(t, 1000)
	trip := a.seedTrip(5)

	resp := a.do(http.MethodPost, "/v1/bookings", bookingBody(trip.ID, 3), nil, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 without a key, got %d", resp.StatusCode)
	}
	resp = a.do(http.MethodPost, "/v1/bookings", bookingBody(trip.ID, 3), map[string]string{"Idempotency-Key": "short"}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for a short key, got %d", resp.StatusCode)
	}

	var first, second domain.Booking
	resp = a.do(http.MethodPost, "/v1/bookings", bookingBody(trip.ID, 3), key("retry"), &first)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	resp = a.do(http.MethodPost, "/v1/bookings", bookingBody(trip.ID, 3), key("retry"), &second)
	if resp.StatusCode != http.StatusCreated || resp.Header.Get("Idempotent-Replayed") != "true" {
		t.Fatalf("expected a replayed 201, got %d", resp.StatusCode)
	}
	if first.ID != second.ID {
		t.Errorf("expected the same booking back, got %s and %s", first.ID, second.ID)
	}

	var bookings []domain.Booking
	a.do(http.MethodGet, "/v1/bookings?tripId="+trip.ID, nil, nil, &bookings)
	if len(bookings) != 1 {
		t.Errorf("expected one booking, got %d", len(bookings))
	}
}

func TestRouter_ValidationAndNotFound(t *testing.T) {
	a := newAPI(t, 1000)

	cases := []struct {
		name   string
		method string
		path   string
		body   interface{}
		hdr    map[string]string
		want   int
	}{
		{"bus without capacity", http.MethodPost, "/v1/buses", map[string]interface{}{"name": "x", "plateNumber": "y", "maintenanceStatus": "Operational"}, nil, http.StatusBadRequest},
		{"bus with unknown status", http.MethodPost, "/v1/buses", map[string]interface{}{"name": "x", "plateNumber": "y", "capacity": 3, "maintenanceStatus": "Scrapped"}, nil, http.StatusBadRequest},
		{"employee payday out of range", http.MethodPost, "/v1/employees", map[string]interface{}{"fullName": "x", "role": "Driver", "contactInfo": "c", "salary": 10, "salaryPayday": 40}, nil, http.StatusBadRequest},
		{"bus image not a url", http.MethodPost, "/v1/buses", map[string]interface{}{"name": "x", "plateNumber": "y", "capacity": 3, "maintenanceStatus": "Operational", "imageUrl": "not a url"}, nil, http.StatusBadRequest},
		{"malformed json", http.MethodPost, "/v1/buses", "not an object", nil, http.StatusBadRequest},
		{"unknown bus", http.MethodGet, "/v1/buses/missing", nil, nil, http.StatusNotFound},
		{"unknown booking", http.MethodDelete, "/v1/bookings/missing", nil, nil, http.StatusNotFound},
		{"booking on unknown trip", http.MethodPost, "/v1/bookings", bookingBody("missing", 1), key("missing-trip"), http.StatusNotFound},
		{"unknown range", http.MethodGet, "/v1/finance?range=decade", nil, nil, http.StatusBadRequest},
		{"bad year", http.MethodGet, "/v1/finance/overview?year=abc", nil, nil, http.StatusBadRequest},
		{"pay unknown employee", http.MethodPost, "/v1/payroll/missing/pay", nil, key("pay-missing"), http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := a.do(tc.method, tc.path, tc.body, tc.hdr, nil)
			if resp.StatusCode != tc.want {
				t.Errorf("expected %d, got %d", tc.want, resp.StatusCode)
			}
		})
	}
}

func TestRouter_PayrollAndDashboard(t *testing.T) {
	a := newAPI(t, 1000)
	var e domain.Employee
	resp := a.do(http.MethodPost, "/v1/employees", map[string]interface{}{
		"fullName": "Dee", "role": "Driver", "contactInfo": "0711", "salary": 800, "salaryPayday": 1,
	}, nil, &e)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var due []domain.Employee
	a.do(http.MethodGet, "/v1/payroll/due", nil, nil, &due)
	if len(due) != 1 {
		t.Fatalf("expected employee with payday 1 to be due, got %v", due)
	}

	resp = a.do(http.MethodPost, "/v1/payroll/"+e.ID+"/pay", nil, key("pay-dee"), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	resp = a.do(http.MethodPost, "/v1/payroll/"+e.ID+"/pay", nil, key("pay-dee-again"), nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 paying twice, got %d", resp.StatusCode)
	}

	var records []domain.FinanceRecord
	a.do(http.MethodGet, "/v1/finance?range=month", nil, nil, &records)
	if len(records) != 1 || records[0].Category != domain.CategorySalary {
		t.Errorf("expected the salary expense, got %+v", records)
	}

	var dash map[string]interface{}
	resp = a.do(http.MethodGet, "/v1/dashboard", nil, nil, &dash)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if dash["totalRevenue"] != "0" {
		t.Errorf("expected no revenue, got %v", dash["totalRevenue"])
	}

	var months []map[string]interface{}
	a.do(http.MethodGet, "/v1/finance/overview", nil, nil, &months)
	if len(months) != 12 {
		t.Errorf("expected twelve months, got %d", len(months))
	}
}

func TestRouter_RateLimit(t *testing.T) {
	a := newAPI(t, 2)
	for i := 0; i < 2; i++ {
		if resp := a.do(http.MethodGet, "/v1/buses", nil, nil, nil); resp.StatusCode != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, resp.StatusCode)
		}
	}
	if resp := a.do(http.MethodGet, "/v1/buses", nil, nil, nil); resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", resp.StatusCode)
	}
	if resp := a.do(http.MethodGet, "/v1/healthz", nil, nil, nil); resp.StatusCode != http.StatusOK {
		t.Errorf("expected health checks to bypass the limiter, got %d", resp.StatusCode)
	}
}
