package domain

import "time"

type DateRange string

const (
	RangeAll   DateRange = "all"
	RangeToday DateRange = "today"
	RangeWeek  DateRange = "week"
	RangeMonth DateRange = "month"
	RangeYear  DateRange = "year"
)

func ParseDateRange(s string) (DateRange, error) {
	switch r := DateRange(s); r {
	case "":
		return RangeAll, nil
	case RangeAll, RangeToday, RangeWeek, RangeMonth, RangeYear:
		return r, nil
	}
	return "", Invalid("unknown date range %q", s)
}

// Bounds returns the half-open interval [start, end) of the range around
// now. Weeks start on Monday. ok is false for RangeAll.
func (r DateRange) Bounds(now time.Time) (start, end time.Time, ok bool) {
	y, m, d := now.Date()
	loc := now.Location()
	day := time.Date(y, m, d, 0, 0, 0, 0, loc)
	switch r {
	case RangeToday:
		return day, day.AddDate(0, 0, 1), true
	case RangeWeek:
		offset := (int(day.Weekday()) + 6) % 7
		start = day.AddDate(0, 0, -offset)
		return start, start.AddDate(0, 0, 7), true
	case RangeMonth:
		start = time.Date(y, m, 1, 0, 0, 0, 0, loc)
		return start, start.AddDate(0, 1, 0), true
	case RangeYear:
		start = time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
		return start, start.AddDate(1, 0, 0), true
	}
	return time.Time{}, time.Time{}, false
}

func (r DateRange) Contains(t, now time.Time) bool {
	start, end, ok := r.Bounds(now)
	if !ok {
		return true
	}
	return !t.Before(start) && t.Before(end)
}
