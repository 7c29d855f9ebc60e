package domain

// AvailableSeats lists, in ascending order, the seats of trip that a user may
// pick. keepSeat is the seat already held by the booking being edited on the
// same trip (0 when creating); it stays selectable even though it is booked.
func AvailableSeats(trip *Trip, keepSeat int) []int {
	seats := []int{}
	if trip == nil || trip.TotalSeats <= 0 {
		return seats
	}
	booked := make(map[int]struct{}, len(trip.BookedSeats))
	for _, s := range trip.BookedSeats {
		booked[s] = struct{}{}
	}
	for s := 1; s <= trip.TotalSeats; s++ {
		if _, taken := booked[s]; !taken || s == keepSeat {
			seats = append(seats, s)
		}
	}
	return seats
}

func (t *Trip) HasSeat(seat int) bool {
	for _, s := range t.BookedSeats {
		if s == seat {
			return true
		}
	}
	return false
}

func (t *Trip) SeatInRange(seat int) bool {
	return seat >= 1 && seat <= t.TotalSeats
}

// MaxBookedSeat returns the highest booked seat number, or 0.
func (t *Trip) MaxBookedSeat() int {
	max := 0
	for _, s := range t.BookedSeats {
		if s > max {
			max = s
		}
	}
	return max
}
