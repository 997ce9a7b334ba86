package wizard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/detailongo/dotg-team/internal/apperr"
	"github.com/detailongo/dotg-team/internal/calendar"
	"github.com/detailongo/dotg-team/internal/gateway"
	"github.com/detailongo/dotg-team/internal/models"
	"github.com/detailongo/dotg-team/internal/payments"
	"github.com/detailongo/dotg-team/internal/pricing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, time.January, 9, 10, 0, 0, 0, time.UTC)

type fakeSlots struct{ slots map[string][]models.TimeSlot }

func (f *fakeSlots) Availability(ctx context.Context, branch string) ([]models.TimeSlot, error) {
	return f.slots[branch], nil
}

type fakeCatalog struct{ err error }

func (f *fakeCatalog) Makes(ctx context.Context, year string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []string{"HONDA", "TOYOTA"}, nil
}

func (f *fakeCatalog) Models(ctx context.Context, vehicleMake, year string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []string{"Civic", "Accord"}, nil
}

type mockOrders struct{ mock.Mock }

func (m *mockOrders) SubmitOrder(ctx context.Context, order gateway.OrderPayload) error {
	return m.Called(order).Error(0)
}

type mockPayments struct{ mock.Mock }

func (m *mockPayments) Charge(ctx context.Context, req payments.ChargeRequest) (payments.ChargeResult, error) {
	args := m.Called(req)
	return args.Get(0).(payments.ChargeResult), args.Error(1)
}

type fixedTax struct{ rate decimal.Decimal }

func (f fixedTax) ComputeTax(ctx context.Context, c models.Contact, q models.PriceQuote) models.PriceQuote {
	tax := q.PriceBeforeTax.Mul(f.rate).Round(2)
	q.TaxRate = f.rate.Mul(decimal.NewFromInt(100))
	q.TaxAmount = tax
	q.PriceAfterTax = q.PriceBeforeTax.Add(tax)
	q.TaxKnown = true
	return q
}

type fakeBranches struct {
	match gateway.BranchMatch
	err   error
}

func (f *fakeBranches) MatchBranch(ctx context.Context, address string) (gateway.BranchMatch, error) {
	return f.match, f.err
}

func testDeps(orders *mockOrders, pay *mockPayments) Deps {
	return Deps{
		Pricing: pricing.NewEngine(pricing.DefaultTables()),
		Tax:     fixedTax{rate: decimal.RequireFromString("0.1")},
		Slots: &fakeSlots{slots: map[string][]models.TimeSlot{
			"lwr": {{Start: "2024-01-10T09:00:00-06:00"}, {Start: "2024-01-10T13:00:00-06:00"}},
			"kc":  {{Start: "2024-01-11T09:00:00-06:00"}},
		}},
		Catalog:       &fakeCatalog{},
		Orders:        orders,
		Payments:      pay,
		KnownBranches: []models.Branch{{ID: "lwr", Name: "Lawrence", EmployeeName: "Alex"}, {ID: "kc", Name: "Kansas City"}},
		DefaultBranch: "lwr",
		WindowDays:    90,
		Now:           func() time.Time { return testNow },
	}
}

func contact() models.Contact {
	return models.Contact{
		Phone:   "785-555-0100",
		Address: "1 Main St, Lawrence, KS 66044",
		Parts:   models.AddressParts{Street: "1 Main St", City: "Lawrence", State: "KS", Postal: "66044"},
	}
}

// toSchedule drives a fresh wizard to the scheduling step with a priced
// Sedan interior + ceramic selection.
func toSchedule(t *testing.T, w *Wizard) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, w.SetContact(ctx, contact()))
	require.NoError(t, w.Fire(ctx, EventNext))
	require.NoError(t, w.SetVehicleSize(models.SizeSedan))
	require.NoError(t, w.SelectYear(ctx, "2020"))
	require.NoError(t, w.SelectMake(ctx, "HONDA"))
	require.NoError(t, w.SelectModel("Civic"))
	require.NoError(t, w.SetCondition(models.ConditionModerate))
	require.NoError(t, w.SetPackage(models.PackageInterior))
	require.NoError(t, w.ToggleAddon(models.AddonCeramic))
	require.NoError(t, w.Fire(ctx, EventNext))
	require.NoError(t, w.Fire(ctx, EventPetHairNo))
	require.Equal(t, StepSchedule, w.Step())
}

func TestHappyPathSkipPayment(t *testing.T) {
	ctx := context.Background()
	orders := new(mockOrders)
	orders.On("SubmitOrder", mock.Anything).Return(nil).Once()
	w := New("s-1", testDeps(orders, new(mockPayments)))

	toSchedule(t, w)
	assert.True(t, w.Draft().Quote.PriceBeforeTax.Equal(decimal.NewFromInt(269)))
	assert.True(t, w.Calendar().Loaded())

	err := w.Fire(ctx, EventNext)
	assert.True(t, apperr.IsValidation(err))
	assert.Equal(t, StepSchedule, w.Step())

	require.NoError(t, w.SelectDate("2024-01-10"))
	require.NoError(t, w.SelectSlot("2024-01-10T13:00:00-06:00"))
	require.NoError(t, w.SetFrequency(models.FrequencyMonthly))
	require.NoError(t, w.Fire(ctx, EventNext))

	assert.Equal(t, StepCustomer, w.Step())
	q := w.Draft().Quote
	assert.True(t, q.TaxKnown)
	assert.True(t, q.PriceAfterTax.Equal(decimal.RequireFromString("295.9")))

	require.NoError(t, w.SetCustomer(models.Customer{FirstName: "Sam", LastName: "Lee", Email: "sam@example.com", Utilities: "yes", Garage: "no"}))
	require.NoError(t, w.Fire(ctx, EventNext))
	assert.Equal(t, StepPayment, w.Step())
	assert.Equal(t, "Sam Lee", w.Draft().Billing.NameOnCard)
	assert.Equal(t, "785-555-0100", w.Draft().Billing.Phone)
	assert.Equal(t, "sam@example.com", w.Draft().Billing.Email)

	err = w.Fire(ctx, EventSkipPayment)
	assert.True(t, apperr.IsValidation(err))
	assert.Equal(t, StepPayment, w.Step())

	require.NoError(t, w.Dispatch(ctx, Action{Event: EventSkipPayment, Confirmed: true}))
	assert.Equal(t, StepDone, w.Step())
	orders.AssertExpectations(t)

	payload := orders.Calls[0].Arguments.Get(0).(gateway.OrderPayload)
	assert.Equal(t, "2024-01-10", payload.Date)
	assert.Equal(t, "01:00 PM", payload.Time)
	assert.Equal(t, "lwr", payload.Branch)
	assert.Equal(t, models.FrequencyMonthly, payload.Frequency)

	require.NoError(t, w.Fire(ctx, EventBookAnother))
	assert.Equal(t, StepContact, w.Step())
	d := w.Draft()
	assert.Equal(t, contact().Phone, d.Contact.Phone)
	assert.Equal(t, "Sam", d.Customer.FirstName)
	assert.Equal(t, models.VehicleProfile{}, d.Vehicle)
	assert.Equal(t, models.PackageUnset, d.Service.Package)
	assert.True(t, d.Slot.IsZero())
	assert.Equal(t, models.FrequencyNone, d.Frequency)
	assert.True(t, d.Quote.PriceBeforeTax.IsZero())
	assert.Equal(t, calendar.NoSelection, w.Calendar().Selection().State())
}

func TestPetHairCyclePreservesVehicle(t *testing.T) {
	ctx := context.Background()
	w := New("s-1", testDeps(new(mockOrders), new(mockPayments)))
	require.NoError(t, w.Fire(ctx, EventNext))
	require.NoError(t, w.SetVehicleSize(models.SizeLargeSUV))
	require.NoError(t, w.SelectYear(ctx, "2021"))
	require.NoError(t, w.SelectMake(ctx, "TOYOTA"))
	require.NoError(t, w.SetPackage(models.PackageBoth))
	before := w.Draft().Vehicle

	require.NoError(t, w.Fire(ctx, EventNext))
	err := w.Fire(ctx, EventNext)
	assert.True(t, apperr.IsValidation(err))
	require.NoError(t, w.Fire(ctx, EventPetHairYes))

	assert.Equal(t, StepVehicle, w.Step())
	assert.Equal(t, before, w.Draft().Vehicle)
	assert.Equal(t, "TOYOTA", w.Dropdowns().Make.Selected)

	require.NoError(t, w.ToggleAddon(models.AddonPetHair))
	assert.True(t, w.Draft().Quote.PriceBeforeTax.Equal(decimal.NewFromInt(387)))
}

func TestBackTransitions(t *testing.T) {
	for from := StepVehicle; from <= StepPayment; from++ {
		to, ok := Target(from, EventBack)
		assert.True(t, ok, "back from %s", from)
		assert.Equal(t, from-1, to)
	}
	_, ok := Target(StepContact, EventBack)
	assert.False(t, ok)
	_, ok = Target(StepDone, EventBack)
	assert.False(t, ok)
	_, ok = Target(StepPayment, EventNext)
	assert.False(t, ok)
}

func TestSubmissionFailureStaysOnPayment(t *testing.T) {
	ctx := context.Background()
	orders := new(mockOrders)
	orders.On("SubmitOrder", mock.Anything).Return(errors.New("503")).Once()
	orders.On("SubmitOrder", mock.Anything).Return(nil).Once()
	w := New("s-1", testDeps(orders, new(mockPayments)))

	toSchedule(t, w)
	require.NoError(t, w.SelectDate("2024-01-10"))
	require.NoError(t, w.SelectSlot("2024-01-10T09:00:00-06:00"))
	require.NoError(t, w.Fire(ctx, EventNext))
	require.NoError(t, w.Fire(ctx, EventNext))
	draft := w.Draft()

	err := w.Dispatch(ctx, Action{Event: EventSkipPayment, Confirmed: true})
	assert.True(t, apperr.IsSubmission(err))
	assert.Equal(t, StepPayment, w.Step())
	assert.Equal(t, draft, w.Draft())

	require.NoError(t, w.Dispatch(ctx, Action{Event: EventSkipPayment, Confirmed: true}))
	assert.Equal(t, StepDone, w.Step())
}

func TestConfirmBillingChargesOnce(t *testing.T) {
	ctx := context.Background()
	orders := new(mockOrders)
	orders.On("SubmitOrder", mock.Anything).Return(errors.New("timeout")).Once()
	orders.On("SubmitOrder", mock.MatchedBy(func(o gateway.OrderPayload) bool { return o.Paid && o.StripeCustomerID == "cus_1" })).Return(nil).Once()
	pay := new(mockPayments)
	pay.On("Charge", mock.MatchedBy(func(r payments.ChargeRequest) bool {
		return r.PaymentMethodID == "pm_1" && r.Amount.Equal(decimal.RequireFromString("295.9"))
	})).Return(payments.ChargeResult{CustomerID: "cus_1", PaymentIntentID: "pi_1", Status: "succeeded"}, nil).Once()

	w := New("s-1", testDeps(orders, pay))
	toSchedule(t, w)
	require.NoError(t, w.SelectDate("2024-01-10"))
	require.NoError(t, w.SelectSlot("2024-01-10T09:00:00-06:00"))
	require.NoError(t, w.Fire(ctx, EventNext))
	require.NoError(t, w.Fire(ctx, EventNext))

	err := w.Fire(ctx, EventConfirmBilling)
	assert.True(t, apperr.IsValidation(err))

	require.NoError(t, w.SetBilling(models.Billing{NameOnCard: "Sam Lee", PaymentMethodID: "pm_1"}))
	err = w.Fire(ctx, EventConfirmBilling)
	assert.True(t, apperr.IsSubmission(err))
	assert.Equal(t, StepPayment, w.Step())
	assert.True(t, w.Draft().Paid)

	require.NoError(t, w.Fire(ctx, EventConfirmBilling))
	assert.Equal(t, StepDone, w.Step())
	pay.AssertNumberOfCalls(t, "Charge", 1)
	orders.AssertExpectations(t)
}

func TestCatalogFailureDoesNotBlock(t *testing.T) {
	ctx := context.Background()
	deps := testDeps(new(mockOrders), new(mockPayments))
	deps.Catalog = &fakeCatalog{err: errors.New("nhtsa down")}
	w := New("s-1", deps)

	assert.Equal(t, "2024", w.Dropdowns().Year.Options[0])
	assert.Equal(t, "1995", w.Dropdowns().Year.Options[len(w.Dropdowns().Year.Options)-1])

	w.step = StepVehicle
	require.NoError(t, w.SelectYear(ctx, "2020"))
	assert.Equal(t, LoadFailed, w.Dropdowns().Make.State)
	require.NoError(t, w.SelectMake(ctx, "Subaru"))
	assert.Equal(t, LoadFailed, w.Dropdowns().Model.State)
	require.NoError(t, w.SelectModel("Outback"))
	assert.Equal(t, "Outback", w.Draft().Vehicle.Model)

	assert.True(t, apperr.IsValidation(w.SelectYear(ctx, "1990")))
}

func TestYearChangeClearsDownstream(t *testing.T) {
	ctx := context.Background()
	w := New("s-1", testDeps(new(mockOrders), new(mockPayments)))
	w.step = StepVehicle
	require.NoError(t, w.SelectYear(ctx, "2020"))
	require.NoError(t, w.SelectMake(ctx, "HONDA"))
	require.NoError(t, w.SelectModel("Civic"))
	assert.True(t, apperr.IsValidation(w.SelectModel("Corolla")))

	require.NoError(t, w.SelectYear(ctx, "2019"))
	assert.Empty(t, w.Dropdowns().Make.Selected)
	assert.Equal(t, LoadIdle, w.Dropdowns().Model.State)
	assert.Empty(t, w.Draft().Vehicle.Make)
	assert.Empty(t, w.Draft().Vehicle.Model)
}

func toPayment(t *testing.T, w *Wizard) {
	t.Helper()
	ctx := context.Background()
	toSchedule(t, w)
	require.NoError(t, w.SelectDate("2024-01-10"))
	require.NoError(t, w.SelectSlot("2024-01-10T09:00:00-06:00"))
	require.NoError(t, w.Fire(ctx, EventNext))
	require.NoError(t, w.Fire(ctx, EventNext))
	require.Equal(t, StepPayment, w.Step())
}

func TestVehicleEditRejectedOnPayment(t *testing.T) {
	w := New("s-1", testDeps(new(mockOrders), new(mockPayments)))
	toPayment(t, w)
	draft := w.Draft()
	require.True(t, draft.Quote.TaxKnown)

	err := w.SetVehicleSize(models.SizeLargeSUV)
	assert.True(t, apperr.IsValidation(err))
	assert.True(t, apperr.IsValidation(w.ToggleAddon(models.AddonPetHair)))

	assert.Equal(t, draft, w.Draft())
	assert.True(t, w.Draft().Quote.TaxKnown)
	assert.True(t, w.Draft().Quote.PriceAfterTax.Equal(decimal.RequireFromString("295.9")))
}

func TestDoneRejectsEdits(t *testing.T) {
	ctx := context.Background()
	orders := new(mockOrders)
	orders.On("SubmitOrder", mock.Anything).Return(nil).Once()
	w := New("s-1", testDeps(orders, new(mockPayments)))
	toPayment(t, w)
	require.NoError(t, w.Dispatch(ctx, Action{Event: EventSkipPayment, Confirmed: true}))
	require.Equal(t, StepDone, w.Step())
	draft := w.Draft()

	assert.True(t, apperr.IsValidation(w.SetPackage(models.PackageBoth)))
	assert.True(t, apperr.IsValidation(w.SetContact(ctx, models.Contact{Address: "9 Elm St"})))
	assert.True(t, apperr.IsValidation(w.SetBilling(models.Billing{NameOnCard: "Kim"})))
	assert.True(t, apperr.IsValidation(w.NextMonth()))
	assert.Equal(t, draft, w.Draft())
}

func TestEditsOutsideOwningStep(t *testing.T) {
	ctx := context.Background()
	edits := []struct {
		name  string
		owner Step
		apply func(w *Wizard) error
	}{
		{"contact", StepContact, func(w *Wizard) error { return w.SetContact(ctx, contact()) }},
		{"vehicle size", StepVehicle, func(w *Wizard) error { return w.SetVehicleSize(models.SizeSedan) }},
		{"condition", StepVehicle, func(w *Wizard) error { return w.SetCondition(models.ConditionModerate) }},
		{"year", StepVehicle, func(w *Wizard) error { return w.SelectYear(ctx, "2020") }},
		{"package", StepVehicle, func(w *Wizard) error { return w.SetPackage(models.PackageInterior) }},
		{"add-on", StepVehicle, func(w *Wizard) error { return w.ToggleAddon(models.AddonCeramic) }},
		{"frequency", StepSchedule, func(w *Wizard) error { return w.SetFrequency(models.FrequencyMonthly) }},
		{"date", StepSchedule, func(w *Wizard) error { return w.SelectDate("2024-01-10") }},
		{"month", StepSchedule, func(w *Wizard) error { return w.NextMonth() }},
		{"customer", StepCustomer, func(w *Wizard) error { return w.SetCustomer(models.Customer{FirstName: "Sam"}) }},
		{"billing", StepPayment, func(w *Wizard) error { return w.SetBilling(models.Billing{NameOnCard: "Sam Lee"}) }},
	}

	for _, e := range edits {
		t.Run(e.name, func(t *testing.T) {
			for step := StepContact; step <= StepDone; step++ {
				w := New("s-1", testDeps(new(mockOrders), new(mockPayments)))
				w.step = step
				if step == StepSchedule {
					w.loadSlots(ctx)
				}
				err := e.apply(w)
				if step == e.owner {
					assert.NoError(t, err, "on %s", step)
					continue
				}
				assert.True(t, apperr.IsValidation(err), "on %s", step)
			}
		})
	}
}

func TestReturnToScheduleDropsTakenSlot(t *testing.T) {
	ctx := context.Background()
	deps := testDeps(new(mockOrders), new(mockPayments))
	w := New("s-1", deps)
	toSchedule(t, w)
	require.NoError(t, w.SelectDate("2024-01-10"))
	require.NoError(t, w.SelectSlot("2024-01-10T13:00:00-06:00"))
	require.NoError(t, w.Fire(ctx, EventNext))

	deps.Slots.(*fakeSlots).slots["lwr"] = []models.TimeSlot{{Start: "2024-01-10T09:00:00-06:00"}}
	require.NoError(t, w.Fire(ctx, EventBack))

	assert.Equal(t, StepSchedule, w.Step())
	assert.True(t, w.Draft().Slot.IsZero())
	assert.Equal(t, calendar.DateSelected, w.Calendar().Selection().State())
	assert.True(t, apperr.IsValidation(w.Fire(ctx, EventNext)))
}

func TestStaleTaxIsDropped(t *testing.T) {
	w := New("s-1", testDeps(new(mockOrders), new(mockPayments)))
	w.step = StepCustomer
	rev := w.Draft().Revision

	require.NoError(t, w.SetCustomer(models.Customer{FirstName: "Sam"}))
	q := w.Draft().Quote
	q.TaxKnown = true
	assert.False(t, w.applyTax(StepCustomer, rev, q))
	assert.False(t, w.Draft().Quote.TaxKnown)

	assert.True(t, w.applyTax(StepCustomer, w.Draft().Revision, q))
	assert.True(t, w.Draft().Quote.TaxKnown)
}

func TestBranchMatch(t *testing.T) {
	ctx := context.Background()
	deps := testDeps(new(mockOrders), new(mockPayments))
	deps.Branches = &fakeBranches{match: gateway.BranchMatch{Branch: "kc", EmployeeName: "Jo", EmployeeEmail: "jo@example.com"}}
	w := New("s-1", deps)
	assert.Equal(t, "Alex", w.Draft().Detailer.Name)

	require.NoError(t, w.SetContact(ctx, contact()))
	assert.Equal(t, "kc", w.Draft().Branch)
	assert.Equal(t, "Jo", w.Draft().Detailer.Name)
	assert.Equal(t, "N/A", w.Draft().Detailer.Phone)
	assert.Equal(t, "kc", w.Calendar().Branch())

	deps.Branches = &fakeBranches{err: errors.New("unreachable")}
	w = New("s-2", deps)
	require.NoError(t, w.SetContact(ctx, contact()))
	assert.Equal(t, "lwr", w.Draft().Branch)
}

func TestSnapshotRoundTrip(t *testing.T) {
	deps := testDeps(new(mockOrders), new(mockPayments))
	w := New("s-1", deps)
	toSchedule(t, w)
	require.NoError(t, w.SelectDate("2024-01-10"))
	require.NoError(t, w.SelectSlot("2024-01-10T09:00:00-06:00"))

	data, err := w.MarshalState()
	require.NoError(t, err)

	restored, err := UnmarshalState(deps, data)
	require.NoError(t, err)
	assert.Equal(t, StepSchedule, restored.Step())
	assert.Equal(t, w.Draft().Slot, restored.Draft().Slot)
	assert.True(t, restored.Draft().Quote.PriceBeforeTax.Equal(decimal.NewFromInt(269)))
	assert.True(t, restored.Draft().Service.Addons.Has(models.AddonCeramic))
	assert.Equal(t, "Civic", restored.Dropdowns().Model.Selected)
	assert.Equal(t, calendar.SlotSelected, restored.Calendar().Selection().State())

	v := restored.View()
	require.NotNil(t, v.Calendar)
	assert.Equal(t, "January 2024", v.Calendar.Title)
	assert.Len(t, v.Calendar.DaySlots, 2)
	assert.Equal(t, "09:00 AM", v.Calendar.DaySlots[0].Label)
	assert.Equal(t, "219", v.PackagePrices[models.PackageInterior])

	_, err = Restore(deps, State{Version: 99})
	assert.Error(t, err)
}
