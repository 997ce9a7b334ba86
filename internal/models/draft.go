package models

import "strings"

// AddressParts is the structured form of the service address, as needed
// by the tax service.
type AddressParts struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Postal  string `json:"postal"`
	Country string `json:"country"`
}

func (a AddressParts) Complete() bool {
	return strings.TrimSpace(a.Street) != "" &&
		strings.TrimSpace(a.City) != "" &&
		strings.TrimSpace(a.State) != "" &&
		strings.TrimSpace(a.Postal) != ""
}

// Contact is collected on the first step and survives "book another".
type Contact struct {
	Phone     string       `json:"phone"`
	Address   string       `json:"address"`
	Parts     AddressParts `json:"addressParts"`
	Latitude  *float64     `json:"latitude"`
	Longitude *float64     `json:"longitude"`
}

type Frequency string

const (
	FrequencyNone      Frequency = ""
	FrequencyWeekly    Frequency = "weekly"
	FrequencyBiweekly  Frequency = "biweekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyBimonthly Frequency = "bimonthly"
)

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyNone, FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly, FrequencyBimonthly:
		return true
	}
	return false
}

type Customer struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Utilities string `json:"utilities"`
	Garage    string `json:"garage"`
	Notes     string `json:"notes"`
}

func (c Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

type Billing struct {
	NameOnCard       string `json:"nameOnCard"`
	Phone            string `json:"cardPhone"`
	Email            string `json:"cardEmail"`
	PaymentMethodID  string `json:"paymentMethodId,omitempty"`
	StripeCustomerID string `json:"stripeCustomerID"`
}

// Detailer is the branch contact shown once the address is matched.
type Detailer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// BookingDraft is the aggregate threaded through the wizard. It is a value:
// every With* method returns an updated copy and leaves the receiver as is.
type BookingDraft struct {
	Contact   Contact        `json:"contact"`
	Branch    string         `json:"branch"`
	Detailer  Detailer       `json:"detailer"`
	Vehicle   VehicleProfile `json:"vehicle"`
	Service   ServicePackage `json:"service"`
	Quote     PriceQuote     `json:"quote"`
	Slot      TimeSlot       `json:"slot"`
	Frequency Frequency      `json:"frequency"`
	Customer  Customer       `json:"customer"`
	Billing   Billing        `json:"billing"`
	Paid      bool           `json:"paid"`
	Revision  int            `json:"revision"`
}

func (d BookingDraft) bump() BookingDraft {
	d.Revision++
	return d
}

func (d BookingDraft) WithContact(c Contact) BookingDraft {
	d.Contact = c
	return d.bump()
}

func (d BookingDraft) WithBranch(branch string, detailer Detailer) BookingDraft {
	if d.Branch != branch {
		d.Slot = TimeSlot{}
	}
	d.Branch = branch
	d.Detailer = detailer
	return d.bump()
}

func (d BookingDraft) WithVehicle(v VehicleProfile) BookingDraft {
	d.Vehicle = v
	return d.bump()
}

func (d BookingDraft) WithService(s ServicePackage) BookingDraft {
	d.Service = s
	return d.bump()
}

func (d BookingDraft) WithQuote(q PriceQuote) BookingDraft {
	d.Quote = q
	return d.bump()
}

func (d BookingDraft) WithSlot(s TimeSlot) BookingDraft {
	d.Slot = s
	return d.bump()
}

func (d BookingDraft) WithFrequency(f Frequency) BookingDraft {
	d.Frequency = f
	return d.bump()
}

func (d BookingDraft) WithCustomer(c Customer) BookingDraft {
	d.Customer = c
	return d.bump()
}

func (d BookingDraft) WithBilling(b Billing) BookingDraft {
	d.Billing = b
	return d.bump()
}

func (d BookingDraft) WithPaid(paid bool) BookingDraft {
	d.Paid = paid
	return d.bump()
}

// ForAnotherBooking keeps the contact, branch and customer details and
// clears the vehicle, package and schedule.
func (d BookingDraft) ForAnotherBooking() BookingDraft {
	next := BookingDraft{
		Contact:  d.Contact,
		Branch:   d.Branch,
		Detailer: d.Detailer,
		Customer: d.Customer,
		Billing:  d.Billing,
		Revision: d.Revision,
	}
	next.Billing.PaymentMethodID = ""
	return next.bump()
}
