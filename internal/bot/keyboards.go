package bot

import (
	"fmt"

	"github.com/detailongo/dotg-team/internal/calendar"
	"github.com/detailongo/dotg-team/internal/models"
	"github.com/detailongo/dotg-team/internal/wizard"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	cbNoop    = "noop"
	cbEvent   = "ev:"
	cbConfirm = "confirm:"
	cbSize    = "size:"
	cbCond    = "cond:"
	cbPackage = "pkg:"
	cbAddon   = "addon:"
	cbFreq    = "freq:"
	cbMonth   = "month:"
	cbDate    = "date:"
	cbSlot    = "slot:"
)

var eventLabels = map[wizard.Event]string{
	wizard.EventBack:           "⬅️ Back",
	wizard.EventNext:           "Next ➡️",
	wizard.EventPetHairYes:     "Yes, add pet hair removal",
	wizard.EventPetHairNo:      "No pet hair",
	wizard.EventConfirmBilling: "💳 Pay now",
	wizard.EventSkipPayment:    "Pay on service day",
	wizard.EventBookAnother:    "📅 Book another",
}

var frequencyLabels = []struct {
	freq  models.Frequency
	label string
}{
	{models.FrequencyNone, "One time"},
	{models.FrequencyWeekly, "Weekly"},
	{models.FrequencyBiweekly, "Every 2 weeks"},
	{models.FrequencyMonthly, "Monthly"},
	{models.FrequencyBimonthly, "Every 2 months"},
}

// viewKeyboard builds the inline keyboard for the step of v.
func viewKeyboard(v wizard.View) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton

	switch v.Step {
	case wizard.StepVehicle:
		rows = append(rows, vehicleRows(v)...)
	case wizard.StepSchedule:
		if v.Calendar != nil {
			rows = append(rows, calendarRows(v.Calendar.Grid)...)
			rows = append(rows, slotRows(v.Calendar.DaySlots, v.Draft.Slot.Start)...)
		}
		rows = append(rows, frequencyRows(v.Draft.Frequency)...)
	}

	rows = append(rows, eventRows(v.Allowed)...)
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func eventRows(allowed []wizard.Event) [][]tgbotapi.InlineKeyboardButton {
	var row []tgbotapi.InlineKeyboardButton
	for _, ev := range allowed {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(eventLabels[ev], cbEvent+string(ev)))
	}
	return chunk(row, 2)
}

func vehicleRows(v wizard.View) [][]tgbotapi.InlineKeyboardButton {
	var rows [][]tgbotapi.InlineKeyboardButton

	sizes := make([]tgbotapi.InlineKeyboardButton, 0, len(models.SizeClasses))
	for _, s := range models.SizeClasses {
		sizes = append(sizes, tgbotapi.NewInlineKeyboardButtonData(mark(string(s), v.Draft.Vehicle.SizeClass == s), cbSize+string(s)))
	}
	rows = append(rows, chunk(sizes, 2)...)

	conds := []models.Condition{models.ConditionClean, models.ConditionModerate, models.ConditionHeavy}
	condRow := make([]tgbotapi.InlineKeyboardButton, 0, len(conds))
	for _, c := range conds {
		condRow = append(condRow, tgbotapi.NewInlineKeyboardButtonData(mark(string(c), v.Draft.Vehicle.Condition == c), cbCond+string(c)))
	}
	rows = append(rows, condRow)

	pkgRow := make([]tgbotapi.InlineKeyboardButton, 0, len(models.Packages))
	for _, p := range models.Packages {
		label := fmt.Sprintf("%s $%s", p, v.PackagePrices[p])
		pkgRow = append(pkgRow, tgbotapi.NewInlineKeyboardButtonData(mark(label, v.Draft.Service.Package == p), cbPackage+string(p)))
	}
	rows = append(rows, pkgRow)

	addonRow := make([]tgbotapi.InlineKeyboardButton, 0, len(models.Addons))
	for _, a := range models.Addons {
		label := fmt.Sprintf("+%s $%s", a, v.AddonPrices[a])
		addonRow = append(addonRow, tgbotapi.NewInlineKeyboardButtonData(mark(label, v.Draft.Service.Addons.Has(a)), cbAddon+string(a)))
	}
	rows = append(rows, addonRow)
	return rows
}

// calendarRows lays out the month grid Sunday-first. Days without slots
// are shown but not selectable.
func calendarRows(g calendar.Grid) [][]tgbotapi.InlineKeyboardButton {
	prev := tgbotapi.NewInlineKeyboardButtonData(" ", cbNoop)
	if g.CanPrev {
		prev = tgbotapi.NewInlineKeyboardButtonData("◀️", cbMonth+"prev")
	}
	next := tgbotapi.NewInlineKeyboardButtonData(" ", cbNoop)
	if g.CanNext {
		next = tgbotapi.NewInlineKeyboardButtonData("▶️", cbMonth+"next")
	}

	rows := [][]tgbotapi.InlineKeyboardButton{
		{prev, tgbotapi.NewInlineKeyboardButtonData(g.Title(), cbNoop), next},
	}

	header := make([]tgbotapi.InlineKeyboardButton, 0, 7)
	for _, d := range []string{"Su", "Mo", "Tu", "We", "Th", "Fr", "Sa"} {
		header = append(header, tgbotapi.NewInlineKeyboardButtonData(d, cbNoop))
	}
	rows = append(rows, header)

	week := make([]tgbotapi.InlineKeyboardButton, 0, 7)
	for _, c := range g.Cells {
		week = append(week, dayButton(c))
		if len(week) == 7 {
			rows = append(rows, week)
			week = make([]tgbotapi.InlineKeyboardButton, 0, 7)
		}
	}
	if len(week) > 0 {
		for len(week) < 7 {
			week = append(week, tgbotapi.NewInlineKeyboardButtonData(" ", cbNoop))
		}
		rows = append(rows, week)
	}
	return rows
}

func dayButton(c calendar.Cell) tgbotapi.InlineKeyboardButton {
	switch {
	case c.Blank():
		return tgbotapi.NewInlineKeyboardButtonData(" ", cbNoop)
	case !c.Interactive:
		return tgbotapi.NewInlineKeyboardButtonData("·", cbNoop)
	case c.Selected:
		return tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("[%d]", c.Day), cbDate+c.Date)
	default:
		return tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%d", c.Day), cbDate+c.Date)
	}
}

func slotRows(slots []wizard.SlotOption, selected string) [][]tgbotapi.InlineKeyboardButton {
	buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(slots))
	for _, s := range slots {
		buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(mark(s.Label, s.Start == selected), cbSlot+s.Start))
	}
	return chunk(buttons, 3)
}

func frequencyRows(current models.Frequency) [][]tgbotapi.InlineKeyboardButton {
	buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(frequencyLabels))
	for _, f := range frequencyLabels {
		data := cbFreq + string(f.freq)
		if f.freq == models.FrequencyNone {
			data = cbFreq + "none"
		}
		buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(mark(f.label, current == f.freq), data))
	}
	return chunk(buttons, 3)
}

func confirmKeyboard(ev wizard.Event) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Yes, continue", cbConfirm+string(ev)),
			tgbotapi.NewInlineKeyboardButtonData("Cancel", cbNoop),
		),
	)
}

func mark(label string, selected bool) string {
	if selected {
		return "✅ " + label
	}
	return label
}

func chunk(buttons []tgbotapi.InlineKeyboardButton, size int) [][]tgbotapi.InlineKeyboardButton {
	var rows [][]tgbotapi.InlineKeyboardButton
	for len(buttons) > 0 {
		n := size
		if len(buttons) < n {
			n = len(buttons)
		}
		rows = append(rows, buttons[:n])
		buttons = buttons[n:]
	}
	return rows
}
