// Package calendar holds the bounded availability calendar: window and
// month-grid date math, slot grouping and the date/slot selection.
package calendar

import (
	"time"

	"github.com/detailongo/dotg-team/internal/models"
)

const dateLayout = "2006-01-02"

// civil drops the clock and zone of t, keeping its calendar date.
func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MonthOf returns the first day of t's month.
func MonthOf(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}

// Window is the closed range of bookable dates, Today through Last.
type Window struct {
	Today time.Time
	Last  time.Time
}

// NewWindow returns the window starting on today's date and spanning days
// more days.
func NewWindow(today time.Time, days int) Window {
	t := civil(today)
	return Window{Today: t, Last: t.AddDate(0, 0, days)}
}

func (w Window) Contains(date time.Time) bool {
	d := civil(date)
	return !d.Before(w.Today) && !d.After(w.Last)
}

// DaysIn returns the number of days in month.
func DaysIn(month time.Time) int {
	return daysIn(month.Month(), month.Year())
}

func daysIn(m time.Month, year int) int {
	switch m {
	case time.February:
		if (year%4 == 0 && year%100 != 0) || year%400 == 0 {
			return 29
		}
		return 28
	case time.April, time.June, time.September, time.November:
		return 30
	default:
		return 31
	}
}

// CanGoPrev reports whether month lies after the month containing today.
func CanGoPrev(month time.Time, w Window) bool {
	return MonthOf(month).After(MonthOf(w.Today))
}

// CanGoNext reports whether the first day of the following month is still
// inside the window.
func CanGoNext(month time.Time, w Window) bool {
	return !MonthOf(month).AddDate(0, 1, 0).After(w.Last)
}

// SlotsForDate returns the slots whose literal date component is date.
func SlotsForDate(slots []models.TimeSlot, date string) []models.TimeSlot {
	var out []models.TimeSlot
	for _, s := range slots {
		if s.Date() == date {
			out = append(out, s)
		}
	}
	return out
}

// FormatSlotTime renders the slot's start as "09:30 AM".
func FormatSlotTime(slot models.TimeSlot) string {
	return slot.Clock()
}

// Cell is one square of the month grid. Leading blanks have Day == 0.
type Cell struct {
	Day         int    `json:"day"`
	Date        string `json:"date,omitempty"`
	InWindow    bool   `json:"inWindow"`
	SlotCount   int    `json:"slotCount"`
	Interactive bool   `json:"interactive"`
	Selected    bool   `json:"selected"`
}

func (c Cell) Blank() bool { return c.Day == 0 }

// Grid is a Sunday-first month grid.
type Grid struct {
	Month   time.Time `json:"month"`
	Offset  int       `json:"offset"`
	Days    int       `json:"days"`
	Cells   []Cell    `json:"cells"`
	CanPrev bool      `json:"canPrev"`
	CanNext bool      `json:"canNext"`
}

// Title renders the month heading, e.g. "January 2024".
func (g Grid) Title() string {
	return g.Month.Format("January 2006")
}

// MonthGrid lays out month: Offset blank cells followed by one cell per
// day. A day is interactive only when it is inside the window and at least
// one slot falls on it.
func MonthGrid(month time.Time, w Window, slots []models.TimeSlot, selected string) Grid {
	first := MonthOf(month)
	offset := int(first.Weekday())
	days := DaysIn(first)

	byDate := make(map[string]int, len(slots))
	for _, s := range slots {
		byDate[s.Date()]++
	}

	cells := make([]Cell, 0, offset+days)
	for i := 0; i < offset; i++ {
		cells = append(cells, Cell{})
	}
	for day := 1; day <= days; day++ {
		d := first.AddDate(0, 0, day-1)
		date := d.Format(dateLayout)
		in := w.Contains(d)
		cells = append(cells, Cell{
			Day:         day,
			Date:        date,
			InWindow:    in,
			SlotCount:   byDate[date],
			Interactive: in && byDate[date] > 0,
			Selected:    date == selected,
		})
	}

	return Grid{
		Month:   first,
		Offset:  offset,
		Days:    days,
		Cells:   cells,
		CanPrev: CanGoPrev(first, w),
		CanNext: CanGoNext(first, w),
	}
}
