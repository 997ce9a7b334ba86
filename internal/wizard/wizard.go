// Package wizard drives the seven-step booking flow over an immutable
// BookingDraft.
package wizard

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/detailongo/dotg-team/internal/apperr"
	"github.com/detailongo/dotg-team/internal/calendar"
	"github.com/detailongo/dotg-team/internal/gateway"
	"github.com/detailongo/dotg-team/internal/metrics"
	"github.com/detailongo/dotg-team/internal/models"
	"github.com/detailongo/dotg-team/internal/payments"
	"github.com/detailongo/dotg-team/internal/pricing"

	"github.com/rs/zerolog"
)

const skipPaymentPrompt = "Are you sure you want to skip payment? You can pay on the day of service."

type Catalog interface {
	Makes(ctx context.Context, year string) ([]string, error)
	Models(ctx context.Context, vehicleMake, year string) ([]string, error)
}

type OrderSubmitter interface {
	SubmitOrder(ctx context.Context, order gateway.OrderPayload) error
}

type BranchMatcher interface {
	MatchBranch(ctx context.Context, address string) (gateway.BranchMatch, error)
}

type TaxQuoter interface {
	ComputeTax(ctx context.Context, contact models.Contact, quote models.PriceQuote) models.PriceQuote
}

type PaymentProcessor interface {
	Charge(ctx context.Context, req payments.ChargeRequest) (payments.ChargeResult, error)
}

// Deps are the collaborators shared by all wizard sessions.
type Deps struct {
	Pricing       *pricing.Engine
	Tax           TaxQuoter
	Slots         calendar.SlotSource
	Catalog       Catalog
	Orders        OrderSubmitter
	Payments      PaymentProcessor
	Branches      BranchMatcher
	KnownBranches []models.Branch
	DefaultBranch string
	WindowDays    int
	Now           func() time.Time
	Logger        *zerolog.Logger
}

// Action is an event plus the confirmation some events require.
type Action struct {
	Event     Event `json:"event"`
	Confirmed bool  `json:"confirmed"`
}

// Wizard is one booking session. It is not safe for concurrent use; the
// session service serialises access per session.
type Wizard struct {
	deps      Deps
	sessionID string
	logger    *zerolog.Logger

	step      Step
	draft     models.BookingDraft
	dropdowns VehicleDropdowns
	cal       *calendar.Calendar
	notice    string
}

func New(sessionID string, deps Deps) *Wizard {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Pricing == nil {
		deps.Pricing = pricing.NewEngine(pricing.DefaultTables())
	}
	if deps.Logger == nil {
		nop := zerolog.Nop()
		deps.Logger = &nop
	}
	l := deps.Logger.With().Str("component", "wizard").Str("session_id", sessionID).Logger()

	w := &Wizard{
		deps:      deps,
		sessionID: sessionID,
		logger:    &l,
		step:      StepContact,
		dropdowns: newVehicleDropdowns(deps.Now()),
		cal:       calendar.New(deps.Slots, deps.WindowDays, calendar.WithClock(deps.Now), calendar.WithLogger(&l)),
	}
	w.draft = w.draft.WithBranch(deps.DefaultBranch, w.detailerFor(deps.DefaultBranch))
	w.cal.SetBranch(deps.DefaultBranch)
	w.requote()
	return w
}

func (w *Wizard) SessionID() string { return w.sessionID }
func (w *Wizard) Step() Step { return w.step }
func (w *Wizard) Draft() models.BookingDraft { return w.draft }
func (w *Wizard) Dropdowns() VehicleDropdowns { return w.dropdowns }
func (w *Wizard) Calendar() *calendar.Calendar { return w.cal }

// Notice is the last non-blocking warning shown to the user.
func (w *Wizard) Notice() string { return w.notice }

func (w *Wizard) detailerFor(branchID string) models.Detailer {
	for _, b := range w.deps.KnownBranches {
		if b.ID == branchID {
			return models.Detailer{Name: b.EmployeeName, Email: b.EmployeeEmail, Phone: b.Phone}
		}
	}
	return models.Detailer{}
}

func (w *Wizard) knownBranch(id string) bool {
	for _, b := range w.deps.KnownBranches {
		if b.ID == id {
			return true
		}
	}
	return false
}

func (w *Wizard) requote() {
	q := w.deps.Pricing.Quote(w.draft.Vehicle, w.draft.Service)
	w.draft = w.draft.WithQuote(q)
}

// Fire applies ev without confirmation.
func (w *Wizard) Fire(ctx context.Context, ev Event) error {
	return w.Dispatch(ctx, Action{Event: ev})
}

// Dispatch runs the guard of the action, performs its side effects and
// moves to the target step. On error the step is unchanged.
func (w *Wizard) Dispatch(ctx context.Context, a Action) error {
	to, ok := Target(w.step, a.Event)
	if !ok {
		if w.step == StepPetHair && a.Event == EventNext {
			return apperr.Validation("petHair", "tell us whether the vehicle has pet hair")
		}
		return apperr.Validation("event", "%s is not available on the %s step", a.Event, w.step)
	}

	switch a.Event {
	case EventNext:
		if w.step == StepSchedule && w.draft.Slot.IsZero() {
			return apperr.Validation("slot", "Please select a date/time slot before continuing.")
		}
	case EventSkipPayment:
		if !a.Confirmed {
			return apperr.Validation("confirm", skipPaymentPrompt)
		}
		if err := w.submit(ctx); err != nil {
			return err
		}
	case EventConfirmBilling:
		if err := w.pay(ctx); err != nil {
			return err
		}
		if err := w.submit(ctx); err != nil {
			return err
		}
	case EventBookAnother:
		w.resetForAnother()
	}

	from := w.step
	w.step = to
	w.notice = ""
	metrics.IncTransition(from.String(), string(a.Event))
	w.logger.Debug().Str("from", from.String()).Str("to", to.String()).Str("event", string(a.Event)).Msg("transition")
	w.enter(ctx, to)
	return nil
}

func (w *Wizard) enter(ctx context.Context, s Step) {
	switch s {
	case StepSchedule:
		w.loadSlots(ctx)
	case StepCustomer:
		w.RefreshTax(ctx)
	case StepPayment:
		w.autofillBilling()
	}
}

func (w *Wizard) loadSlots(ctx context.Context) {
	if w.deps.Slots == nil {
		w.notice = "Online scheduling is unavailable right now."
		return
	}
	err := w.cal.LoadSlots(ctx, w.draft.Branch)
	switch {
	case err == nil:
		if sel := w.cal.Selection(); sel.Slot.IsZero() && !w.draft.Slot.IsZero() {
			w.draft = w.draft.WithSlot(models.TimeSlot{})
		}
	case errors.Is(err, calendar.ErrStaleResponse):
	default:
		w.notice = "We could not load availability. Please try again shortly."
	}
}

// RefreshTax requests a tax quote for the current draft. The result is
// applied only if the wizard is still on the customer step with the same
// draft revision.
func (w *Wizard) RefreshTax(ctx context.Context) {
	step, rev := w.step, w.draft.Revision
	base := w.draft.Quote.WithoutTax()
	if w.deps.Tax == nil {
		w.applyTax(step, rev, base)
		return
	}
	q := w.deps.Tax.ComputeTax(ctx, w.draft.Contact, base)
	w.applyTax(step, rev, q)
}

func (w *Wizard) applyTax(step Step, rev int, q models.PriceQuote) bool {
	if step != StepCustomer || w.step != StepCustomer || w.draft.Revision != rev {
		w.logger.Debug().Int("revision", rev).Msg("dropping stale tax quote")
		return false
	}
	w.draft = w.draft.WithQuote(q)
	return true
}

func (w *Wizard) autofillBilling() {
	b := w.draft.Billing
	if b.NameOnCard == "" {
		b.NameOnCard = w.draft.Customer.FullName()
	}
	if b.Phone == "" {
		b.Phone = w.draft.Contact.Phone
	}
	if b.Email == "" {
		b.Email = w.draft.Customer.Email
	}
	if b != w.draft.Billing {
		w.draft = w.draft.WithBilling(b)
	}
}

func (w *Wizard) pay(ctx context.Context) error {
	if w.draft.Paid {
		return nil
	}
	if w.draft.Slot.IsZero() {
		return apperr.Validation("slot", "no slot selected")
	}
	if w.draft.Billing.PaymentMethodID == "" {
		return apperr.Validation("paymentMethod", "card details are required")
	}
	if w.deps.Payments == nil {
		return apperr.Submission("payment", payments.ErrNotConfigured)
	}

	res, err := w.deps.Payments.Charge(ctx, payments.ChargeRequest{
		Name:            w.draft.Billing.NameOnCard,
		Email:           w.draft.Billing.Email,
		Phone:           w.draft.Billing.Phone,
		PaymentMethodID: w.draft.Billing.PaymentMethodID,
		CustomerID:      w.draft.Billing.StripeCustomerID,
		Amount:          w.draft.Quote.PriceAfterTax,
		Description:     describeService(w.draft),
		Metadata:        map[string]string{"session_id": w.sessionID, "branch": w.draft.Branch, "slot": w.draft.Slot.Start},
	})
	if res.CustomerID != "" && res.CustomerID != w.draft.Billing.StripeCustomerID {
		b := w.draft.Billing
		b.StripeCustomerID = res.CustomerID
		w.draft = w.draft.WithBilling(b)
	}
	if err != nil {
		w.logger.Warn().Err(err).Msg("payment failed")
		return apperr.Submission("payment", err)
	}
	w.draft = w.draft.WithPaid(true)
	return nil
}

func (w *Wizard) submit(ctx context.Context) error {
	if w.draft.Slot.IsZero() {
		return apperr.Validation("slot", "no slot selected")
	}
	if w.deps.Orders == nil {
		return apperr.Submission("order", gateway.ErrNotConfigured)
	}
	err := w.deps.Orders.SubmitOrder(ctx, gateway.NewOrderPayload(w.sessionID, w.draft))
	metrics.IncSubmission("order", err == nil)
	if err != nil {
		w.logger.Error().Err(err).Msg("order submission failed")
		return apperr.Submission("order", err)
	}
	w.logger.Info().Str("branch", w.draft.Branch).Str("slot", w.draft.Slot.Start).Bool("paid", w.draft.Paid).Msg("order submitted")
	return nil
}

func (w *Wizard) resetForAnother() {
	w.draft = w.draft.ForAnotherBooking()
	w.requote()
	w.dropdowns = newVehicleDropdowns(w.deps.Now())
	w.cal.ClearSelection()
}

func describeService(d models.BookingDraft) string {
	parts := []string{"Detailing"}
	if d.Service.Package != models.PackageUnset {
		parts = append(parts, string(d.Service.Package))
	}
	if v := strings.TrimSpace(strings.Join([]string{d.Vehicle.Year, d.Vehicle.Make, d.Vehicle.Model}, " ")); v != "" {
		parts = append(parts, v)
	}
	return strings.Join(parts, " - ")
}
