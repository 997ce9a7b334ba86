package wizard

import (
	"github.com/detailongo/dotg-team/internal/calendar"
	"github.com/detailongo/dotg-team/internal/models"
)

// SlotOption is a selectable time on the chosen date.
type SlotOption struct {
	Start string `json:"start"`
	Label string `json:"label"`
}

type CalendarView struct {
	Title     string             `json:"title"`
	Grid      calendar.Grid      `json:"grid"`
	Selection calendar.Selection `json:"selection"`
	DaySlots  []SlotOption       `json:"daySlots"`
}

// View is everything a frontend needs to render the current step.
type View struct {
	SessionID     string                    `json:"sessionId"`
	Step          Step                      `json:"step"`
	StepName      string                    `json:"stepName"`
	Allowed       []Event                   `json:"allowed"`
	Draft         models.BookingDraft       `json:"draft"`
	TaxRate       string                    `json:"taxRate"`
	TaxAmount     string                    `json:"taxAmount"`
	Dropdowns     VehicleDropdowns          `json:"dropdowns"`
	PackagePrices map[models.Package]string `json:"packagePrices"`
	AddonPrices   map[models.Addon]string   `json:"addonPrices"`
	Calendar      *CalendarView             `json:"calendar,omitempty"`
	Notice        string                    `json:"notice,omitempty"`
}

func (w *Wizard) View() View {
	v := View{
		SessionID:     w.sessionID,
		Step:          w.step,
		StepName:      w.step.String(),
		Allowed:       Allowed(w.step),
		Draft:         w.draft,
		TaxRate:       w.draft.Quote.TaxRateLabel(),
		TaxAmount:     w.draft.Quote.TaxAmountLabel(),
		Dropdowns:     w.dropdowns,
		PackagePrices: make(map[models.Package]string, len(models.Packages)),
		AddonPrices:   make(map[models.Addon]string, len(models.Addons)),
		Notice:        w.notice,
	}
	for _, p := range models.Packages {
		v.PackagePrices[p] = w.deps.Pricing.PackagePrice(w.draft.Vehicle.SizeClass, p).StringFixed(0)
	}
	for _, a := range models.Addons {
		v.AddonPrices[a] = w.deps.Pricing.AddonPrice(a).StringFixed(0)
	}

	if w.step == StepSchedule {
		grid := w.cal.Grid()
		cv := &CalendarView{Title: grid.Title(), Grid: grid, Selection: w.cal.Selection()}
		for _, s := range w.cal.DaySlots() {
			cv.DaySlots = append(cv.DaySlots, SlotOption{Start: s.Start, Label: calendar.FormatSlotTime(s)})
		}
		v.Calendar = cv
	}
	return v
}
