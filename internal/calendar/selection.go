package calendar

import "github.com/detailongo/dotg-team/internal/models"

type SelectionState int

const (
	NoSelection SelectionState = iota
	DateSelected
	SlotSelected
)

func (s SelectionState) String() string {
	switch s {
	case DateSelected:
		return "date_selected"
	case SlotSelected:
		return "slot_selected"
	default:
		return "no_selection"
	}
}

// Selection is NoSelection, DateSelected(date) or SlotSelected(date, slot).
// A slot is never carried across a date change.
type Selection struct {
	Date string          `json:"date,omitempty"`
	Slot models.TimeSlot `json:"slot"`
}

func (s Selection) State() SelectionState {
	switch {
	case s.Date == "":
		return NoSelection
	case s.Slot.IsZero():
		return DateSelected
	default:
		return SlotSelected
	}
}

func (s Selection) WithDate(date string) Selection {
	return Selection{Date: date}
}

func (s Selection) WithSlot(slot models.TimeSlot) Selection {
	s.Slot = slot
	return s
}

// Reconcile keeps as much of s as slots still offer. A vanished date clears
// the selection; a vanished slot falls back to the date alone.
func (s Selection) Reconcile(slots []models.TimeSlot) Selection {
	if s.Date == "" {
		return s
	}
	day := SlotsForDate(slots, s.Date)
	if len(day) == 0 {
		return Selection{}
	}
	if s.Slot.IsZero() {
		return s
	}
	for _, slot := range day {
		if slot.Start == s.Slot.Start {
			return s.WithSlot(slot)
		}
	}
	return s.WithDate(s.Date)
}
