package domain

import "time"

func daysInMonth(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

// IsPayrollDue reports whether the employee's salary for the month of now is
// due and not yet paid. A payday past the end of a short month falls on its
// last day.
func IsPayrollDue(e Employee, now time.Time) bool {
	payday := e.SalaryPayday
	if last := daysInMonth(now.Year(), now.Month(), now.Location()); payday > last {
		payday = last
	}
	if now.Day() < payday {
		return false
	}
	if e.LastPaidDate == nil {
		return true
	}
	paid := e.LastPaidDate.In(now.Location())
	if paid.Year() != now.Year() {
		return paid.Year() < now.Year()
	}
	return paid.Month() < now.Month()
}

// DuePayroll filters employees down to those due for payment at now.
func DuePayroll(employees []Employee, now time.Time) []Employee {
	due := []Employee{}
	for _, e := range employees {
		if IsPayrollDue(e, now) {
			due = append(due, e)
		}
	}
	return due
}

// PaidThisMonth reports whether the employee already received the salary for
// the month of now.
func PaidThisMonth(e Employee, now time.Time) bool {
	if e.LastPaidDate == nil {
		return false
	}
	paid := e.LastPaidDate.In(now.Location())
	return paid.Year() == now.Year() && paid.Month() == now.Month()
}
