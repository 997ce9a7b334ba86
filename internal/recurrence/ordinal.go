package recurrence

import (
	"strconv"
	"time"
)

var weekdayCodes = [...]string{"SU", "MO", "TU", "WE", "TH", "FR", "SA"}

// WeekdayCode returns the two-letter rule code for d.
func WeekdayCode(d time.Weekday) string {
	return weekdayCodes[d]
}

// OrdinalOccurrence reports which occurrence of its weekday t is within its
// month: 1 for the first Tuesday, 2 for the second, and so on. It walks the
// month day by day from the 1st.
func OrdinalOccurrence(t time.Time) int {
	year, month, day := t.Date()
	target := t.Weekday()

	count := 0
	for d := time.Date(year, month, 1, 12, 0, 0, 0, t.Location()); d.Month() == month; d = d.AddDate(0, 0, 1) {
		if d.Weekday() != target {
			continue
		}
		count++
		if d.Day() == day {
			return count
		}
	}
	return count
}

// OrdinalSuffix returns the English suffix for n: "st", "nd", "rd" or "th".
func OrdinalSuffix(n int) string {
	v := n % 100
	if v < 0 {
		v = -v
	}
	if v >= 11 && v <= 13 {
		return "th"
	}
	switch v % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	}
	return "th"
}

// Ordinal renders n with its suffix, e.g. "2nd".
func Ordinal(n int) string {
	return strconv.Itoa(n) + OrdinalSuffix(n)
}
