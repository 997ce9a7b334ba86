package bot

import (
	"fmt"
	"strings"

	"github.com/detailongo/dotg-team/internal/wizard"
)

var stepTitles = map[wizard.Step]string{
	wizard.StepContact:  "Contact",
	wizard.StepVehicle:  "Vehicle & service",
	wizard.StepPetHair:  "Pet hair",
	wizard.StepSchedule: "Schedule",
	wizard.StepCustomer: "Your details",
	wizard.StepPayment:  "Payment",
	wizard.StepDone:     "Booked",
}

var stepHints = map[wizard.Step]string{
	wizard.StepContact:  "Send your details, one per line:\nphone: 785-555-0100\naddress: 123 Main St, Lawrence, KS",
	wizard.StepVehicle:  "Pick size, condition and package below. Send vehicle details as text:\nyear: 2021\nmake: Toyota\nmodel: RAV4",
	wizard.StepPetHair:  "Does the vehicle have pet hair?",
	wizard.StepSchedule: "Pick a day, then a time.",
	wizard.StepCustomer: "Send your details, one per line:\nfirst: Jane\nlast: Doe\nemail: jane@example.com\nnotes: gate code 1234",
	wizard.StepPayment:  "To pay now send:\ncard name: Jane Doe\ncard email: jane@example.com\ncard: <payment method id>",
}

// renderView is the message text for v.
func renderView(v wizard.View) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Step %d/%d: %s\n", int(v.Step), int(wizard.StepDone), stepTitles[v.Step])

	d := v.Draft
	switch v.Step {
	case wizard.StepContact:
		writeField(&sb, "Phone", d.Contact.Phone)
		writeField(&sb, "Address", d.Contact.Address)
		if d.Detailer.Name != "" {
			writeField(&sb, "Your detailer", fmt.Sprintf("%s %s", d.Detailer.Name, d.Detailer.Phone))
		}
	case wizard.StepVehicle, wizard.StepPetHair:
		writeField(&sb, "Size", string(d.Vehicle.SizeClass))
		writeField(&sb, "Vehicle", strings.TrimSpace(strings.Join([]string{d.Vehicle.Year, d.Vehicle.Make, d.Vehicle.Model}, " ")))
		if opts := v.Dropdowns.Make.Options; len(opts) > 0 && d.Vehicle.Make == "" {
			writeField(&sb, "Makes", strings.Join(limit(opts, 15), ", "))
		}
		if opts := v.Dropdowns.Model.Options; len(opts) > 0 && d.Vehicle.Model == "" {
			writeField(&sb, "Models", strings.Join(limit(opts, 15), ", "))
		}
		writeField(&sb, "Package", string(d.Service.Package))
	case wizard.StepSchedule:
		if v.Calendar != nil && len(v.Calendar.DaySlots) == 0 && v.Calendar.Selection.Date != "" {
			sb.WriteString("No times left on that day.\n")
		}
		if !d.Slot.IsZero() {
			writeField(&sb, "Selected", d.Slot.Start)
		}
	case wizard.StepCustomer:
		writeField(&sb, "Name", strings.TrimSpace(d.Customer.FirstName+" "+d.Customer.LastName))
		writeField(&sb, "Email", d.Customer.Email)
		writeField(&sb, "Notes", d.Customer.Notes)
	case wizard.StepPayment:
		writeField(&sb, "Name on card", d.Billing.NameOnCard)
		writeField(&sb, "Card email", d.Billing.Email)
		writeField(&sb, "Card phone", d.Billing.Phone)
	case wizard.StepDone:
		writeField(&sb, "When", d.Slot.Start)
		if d.Paid {
			sb.WriteString("Payment received. Thank you!\n")
		} else {
			sb.WriteString("You will pay on the day of service.\n")
		}
	}

	if !d.Quote.PriceBeforeTax.IsZero() {
		fmt.Fprintf(&sb, "\nPrice: $%s", d.Quote.PriceBeforeTax.StringFixed(2))
		if d.Quote.TaxKnown {
			fmt.Fprintf(&sb, " + tax %s = $%s", v.TaxRate, d.Quote.PriceAfterTax.StringFixed(2))
		}
		sb.WriteString("\n")
	}
	if hint, ok := stepHints[v.Step]; ok {
		sb.WriteString("\n" + hint + "\n")
	}
	if v.Notice != "" {
		sb.WriteString("\n⚠️ " + v.Notice + "\n")
	}
	return sb.String()
}

func writeField(sb *strings.Builder, name, value string) {
	if strings.TrimSpace(value) == "" {
		value = "-"
	}
	fmt.Fprintf(sb, "%s: %s\n", name, value)
}

func limit(opts []string, n int) []string {
	if len(opts) <= n {
		return opts
	}
	return append(append([]string{}, opts[:n]...), "…")
}
