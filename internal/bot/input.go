package bot

import (
	"strings"
	"unicode"

	"github.com/detailongo/dotg-team/internal/models"
	"github.com/detailongo/dotg-team/internal/service"
	"github.com/detailongo/dotg-team/internal/wizard"
)

// parseFields reads "key: value" lines. Keys are lower-cased; lines
// without a colon are ignored.
func parseFields(text string) map[string]string {
	out := make(map[string]string)
	for _, line := range strings.Split(text, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			continue
		}
		out[key] = sanitizeInput(value)
	}
	return out
}

// fieldUpdate maps text fields onto a draft update for the current step.
// Partial groups are merged with what the draft already holds. ok is false
// when nothing applicable was found.
func fieldUpdate(v wizard.View, fields map[string]string) (service.FieldUpdate, bool) {
	var upd service.FieldUpdate
	d := v.Draft
	found := false

	pick := func(dst *string, keys ...string) {
		for _, k := range keys {
			if val, ok := fields[k]; ok {
				*dst = val
				found = true
				return
			}
		}
	}

	switch v.Step {
	case wizard.StepContact:
		c := d.Contact
		pick(&c.Phone, "phone")
		pick(&c.Address, "address")
		if found {
			upd.Contact = &c
		}
	case wizard.StepVehicle:
		if val, ok := fields["year"]; ok {
			upd.Year = &val
			found = true
		}
		if val, ok := fields["make"]; ok {
			upd.Make = &val
			found = true
		}
		if val, ok := fields["model"]; ok {
			upd.Model = &val
			found = true
		}
	case wizard.StepCustomer:
		c := d.Customer
		pick(&c.FirstName, "first", "first name")
		pick(&c.LastName, "last", "last name")
		pick(&c.Email, "email")
		pick(&c.Utilities, "utilities")
		pick(&c.Garage, "garage")
		pick(&c.Notes, "notes")
		if found {
			upd.Customer = &c
		}
	case wizard.StepPayment:
		b := d.Billing
		pick(&b.NameOnCard, "card name", "name")
		pick(&b.Email, "card email", "email")
		pick(&b.Phone, "card phone", "phone")
		pick(&b.PaymentMethodID, "card", "payment method")
		if found {
			upd.Billing = &b
		}
	}
	return upd, found
}

// callbackUpdate maps selection buttons onto a draft update.
func callbackUpdate(data string) (service.FieldUpdate, bool) {
	var upd service.FieldUpdate
	switch {
	case strings.HasPrefix(data, cbSize):
		s := models.SizeClass(strings.TrimPrefix(data, cbSize))
		upd.VehicleSize = &s
	case strings.HasPrefix(data, cbCond):
		c := models.Condition(strings.TrimPrefix(data, cbCond))
		upd.Condition = &c
	case strings.HasPrefix(data, cbPackage):
		p := models.Package(strings.TrimPrefix(data, cbPackage))
		upd.Package = &p
	case strings.HasPrefix(data, cbAddon):
		a := models.Addon(strings.TrimPrefix(data, cbAddon))
		upd.ToggleAddon = &a
	case strings.HasPrefix(data, cbFreq):
		raw := strings.TrimPrefix(data, cbFreq)
		if raw == "none" {
			raw = ""
		}
		f := models.Frequency(raw)
		upd.Frequency = &f
	case strings.HasPrefix(data, cbMonth):
		upd.Month = strings.TrimPrefix(data, cbMonth)
	case strings.HasPrefix(data, cbDate):
		date := strings.TrimPrefix(data, cbDate)
		upd.Date = &date
	case strings.HasPrefix(data, cbSlot):
		slot := strings.TrimPrefix(data, cbSlot)
		upd.Slot = &slot
	default:
		return upd, false
	}
	return upd, true
}

// sanitizeInput drops control characters and collapses whitespace.
func sanitizeInput(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}
