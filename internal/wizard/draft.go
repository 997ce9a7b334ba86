package wizard

import (
	"context"
	"errors"
	"strings"

	"github.com/detailongo/dotg-team/internal/apperr"
	"github.com/detailongo/dotg-team/internal/models"
)

var errNoCatalog = errors.New("vehicle catalog not configured")

// editable rejects a draft edit unless the wizard is on the step that owns
// field. Nothing is editable once the booking is done.
func (w *Wizard) editable(field string, owner Step) error {
	if w.step == owner {
		return nil
	}
	if w.step == StepDone {
		return apperr.Validation(field, "booking is complete, start a new one to make changes")
	}
	return apperr.Validation(field, "%s can only be changed on the %s step", field, owner)
}

// SetContact stores the contact step. A new address is matched to the
// nearest branch; a failed match keeps the default branch.
func (w *Wizard) SetContact(ctx context.Context, c models.Contact) error {
	if err := w.editable("contact", StepContact); err != nil {
		return err
	}
	c.Phone = strings.TrimSpace(c.Phone)
	c.Address = strings.TrimSpace(c.Address)
	if c.Parts.Country == "" {
		c.Parts.Country = models.DefaultCountry
	}

	addressChanged := c.Address != w.draft.Contact.Address
	w.draft = w.draft.WithContact(c)

	if addressChanged && c.Address != "" {
		w.matchBranch(ctx, c.Address)
	}
	return nil
}

func (w *Wizard) matchBranch(ctx context.Context, address string) {
	branch, detailer := w.deps.DefaultBranch, w.detailerFor(w.deps.DefaultBranch)

	if w.deps.Branches != nil {
		m, err := w.deps.Branches.MatchBranch(ctx, address)
		if err != nil {
			w.logger.Warn().Err(err).Msg("branch match failed, using default branch")
		} else {
			if m.Branch != "" && (len(w.deps.KnownBranches) == 0 || w.knownBranch(m.Branch)) {
				branch = m.Branch
			}
			detailer = models.Detailer{
				Name:  orNA(m.EmployeeName),
				Email: orNA(m.EmployeeEmail),
				Phone: orNA(m.BusinessNumber),
			}
		}
	}

	if branch != w.draft.Branch || detailer != w.draft.Detailer {
		w.draft = w.draft.WithBranch(branch, detailer)
		w.cal.SetBranch(branch)
	}
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

func (w *Wizard) SetVehicleSize(size models.SizeClass) error {
	if err := w.editable("vehicleSize", StepVehicle); err != nil {
		return err
	}
	if !size.Valid() {
		return apperr.Validation("vehicleSize", "unknown vehicle size %q", size)
	}
	v := w.draft.Vehicle
	v.SizeClass = size
	w.draft = w.draft.WithVehicle(v)
	w.requote()
	return nil
}

func (w *Wizard) SetCondition(c models.Condition) error {
	if err := w.editable("condition", StepVehicle); err != nil {
		return err
	}
	if !c.Valid() {
		return apperr.Validation("condition", "unknown condition %q", c)
	}
	v := w.draft.Vehicle
	v.Condition = c
	w.draft = w.draft.WithVehicle(v)
	return nil
}

// SelectYear picks the model year, clears make and model and loads the
// makes for that year.
func (w *Wizard) SelectYear(ctx context.Context, year string) error {
	if err := w.editable("vehicleYear", StepVehicle); err != nil {
		return err
	}
	if !w.dropdowns.Year.Has(year) {
		return apperr.Validation("vehicleYear", "unknown year %q", year)
	}
	w.dropdowns.Year.Selected = year
	w.dropdowns.Make = Dropdown{State: LoadLoading}
	w.dropdowns.Model = Dropdown{State: LoadIdle}

	v := w.draft.Vehicle
	v.Year, v.Make, v.Model = year, "", ""
	w.draft = w.draft.WithVehicle(v)

	w.dropdowns.Make = w.fetchOptions(func() ([]string, error) {
		if w.deps.Catalog == nil {
			return nil, errNoCatalog
		}
		return w.deps.Catalog.Makes(ctx, year)
	})
	return nil
}

// SelectMake picks the make, clears the model and loads the models.
func (w *Wizard) SelectMake(ctx context.Context, vehicleMake string) error {
	if err := w.editable("vehicleMake", StepVehicle); err != nil {
		return err
	}
	year := w.dropdowns.Year.Selected
	if year == "" {
		return apperr.Validation("vehicleMake", "select a year first")
	}
	if !acceptable(w.dropdowns.Make, vehicleMake) {
		return apperr.Validation("vehicleMake", "unknown make %q", vehicleMake)
	}
	w.dropdowns.Make.Selected = vehicleMake
	w.dropdowns.Model = Dropdown{State: LoadLoading}

	v := w.draft.Vehicle
	v.Make, v.Model = vehicleMake, ""
	w.draft = w.draft.WithVehicle(v)

	w.dropdowns.Model = w.fetchOptions(func() ([]string, error) {
		if w.deps.Catalog == nil {
			return nil, errNoCatalog
		}
		return w.deps.Catalog.Models(ctx, vehicleMake, year)
	})
	return nil
}

func (w *Wizard) SelectModel(model string) error {
	if err := w.editable("vehicleModel", StepVehicle); err != nil {
		return err
	}
	if w.dropdowns.Make.Selected == "" {
		return apperr.Validation("vehicleModel", "select a make first")
	}
	if !acceptable(w.dropdowns.Model, model) {
		return apperr.Validation("vehicleModel", "unknown model %q", model)
	}
	w.dropdowns.Model.Selected = model

	v := w.draft.Vehicle
	v.Model = model
	w.draft = w.draft.WithVehicle(v)
	return nil
}

// acceptable allows free text once a catalog lookup failed so the flow is
// never blocked by the catalog.
func acceptable(d Dropdown, value string) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return false
	}
	if d.State == LoadFailed {
		return true
	}
	return d.State == LoadLoaded && d.Has(value)
}

func (w *Wizard) fetchOptions(fetch func() ([]string, error)) Dropdown {
	opts, err := fetch()
	if err != nil {
		w.logger.Warn().Err(apperr.Recoverable("catalog", err)).Msg("vehicle catalog lookup failed")
		return Dropdown{State: LoadFailed}
	}
	return Dropdown{Options: opts, State: LoadLoaded}
}

func (w *Wizard) SetPackage(pkg models.Package) error {
	if err := w.editable("package", StepVehicle); err != nil {
		return err
	}
	if !pkg.Valid() {
		return apperr.Validation("package", "unknown package %q", pkg)
	}
	s := w.draft.Service
	s.Package = pkg
	w.draft = w.draft.WithService(s)
	w.requote()
	return nil
}

func (w *Wizard) ToggleAddon(a models.Addon) error {
	if err := w.editable("addons", StepVehicle); err != nil {
		return err
	}
	if !a.Valid() {
		return apperr.Validation("addons", "unknown add-on %q", a)
	}
	s := w.draft.Service
	s.Addons = s.Addons.Toggle(a)
	w.draft = w.draft.WithService(s)
	w.requote()
	return nil
}

func (w *Wizard) SetFrequency(f models.Frequency) error {
	if err := w.editable("frequency", StepSchedule); err != nil {
		return err
	}
	if !f.Valid() {
		return apperr.Validation("frequency", "unknown frequency %q", f)
	}
	w.draft = w.draft.WithFrequency(f)
	return nil
}

// SelectDate selects a calendar date and clears the chosen slot.
func (w *Wizard) SelectDate(date string) error {
	if err := w.editable("date", StepSchedule); err != nil {
		return err
	}
	if err := w.cal.SelectDate(date); err != nil {
		return err
	}
	if !w.draft.Slot.IsZero() {
		w.draft = w.draft.WithSlot(models.TimeSlot{})
	}
	return nil
}

func (w *Wizard) SelectSlot(start string) error {
	if err := w.editable("slot", StepSchedule); err != nil {
		return err
	}
	slot, err := w.cal.SelectSlot(start)
	if err != nil {
		return err
	}
	w.draft = w.draft.WithSlot(slot)
	return nil
}

func (w *Wizard) NextMonth() error {
	return w.changeMonth(w.cal.NextMonth)
}

func (w *Wizard) PrevMonth() error {
	return w.changeMonth(w.cal.PrevMonth)
}

func (w *Wizard) changeMonth(move func() error) error {
	if err := w.editable("month", StepSchedule); err != nil {
		return err
	}
	if err := move(); err != nil {
		return err
	}
	if !w.draft.Slot.IsZero() {
		w.draft = w.draft.WithSlot(models.TimeSlot{})
	}
	return nil
}

func (w *Wizard) SetCustomer(c models.Customer) error {
	if err := w.editable("customer", StepCustomer); err != nil {
		return err
	}
	c.Email = strings.TrimSpace(c.Email)
	if c.Email != "" && !strings.Contains(c.Email, "@") {
		return apperr.Validation("email", "invalid email address")
	}
	for field, v := range map[string]string{"utilities": c.Utilities, "garage": c.Garage} {
		if v != "" && v != "yes" && v != "no" {
			return apperr.Validation(field, "answer yes or no")
		}
	}
	w.draft = w.draft.WithCustomer(c)
	return nil
}

// SetBilling stores the card holder details and the tokenised payment
// method. A previously created processor customer is kept.
func (w *Wizard) SetBilling(b models.Billing) error {
	if err := w.editable("billing", StepPayment); err != nil {
		return err
	}
	b.Email = strings.TrimSpace(b.Email)
	if b.Email != "" && !strings.Contains(b.Email, "@") {
		return apperr.Validation("cardEmail", "invalid email address")
	}
	if b.StripeCustomerID == "" {
		b.StripeCustomerID = w.draft.Billing.StripeCustomerID
	}
	w.draft = w.draft.WithBilling(b)
	return nil
}
