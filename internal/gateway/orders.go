package gateway

import (
	"context"
	"fmt"

	"github.com/detailongo/dotg-team/internal/models"

	"github.com/shopspring/decimal"
)

// OrderPayload is the flat order document posted to /book. Field names
// follow the booking form so downstream consumers keep working.
type OrderPayload struct {
	SessionID string `json:"sessionId,omitempty"`
	Branch    string `json:"branch"`

	Phone     string   `json:"phone"`
	Address   string   `json:"address"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`

	VehicleSize     models.SizeClass `json:"vehicleSize"`
	VehicleYear     string           `json:"vehicleYear"`
	VehicleMake     string           `json:"vehicleMake"`
	VehicleModel    string           `json:"vehicleModel"`
	Condition       models.Condition `json:"condition"`
	Package         models.Package   `json:"package"`
	Addons          models.AddonSet  `json:"addons"`
	CalculatedPrice decimal.Decimal  `json:"calculatedPrice"`
	TaxRate         string           `json:"taxRate"`
	TotalTax        string           `json:"totalTax"`
	TotalAfterTax   decimal.Decimal  `json:"totalAfterTax"`

	Date      string           `json:"date"`
	Time      string           `json:"time"`
	SlotStart string           `json:"slotStart"`
	Frequency models.Frequency `json:"frequency"`

	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Utilities string `json:"utilities"`
	Garage    string `json:"garage"`
	Notes     string `json:"notes"`

	NameOnCard       string `json:"nameOnCard"`
	CardPhone        string `json:"cardPhone"`
	CardEmail        string `json:"cardEmail"`
	StripeCustomerID string `json:"stripeCustomerID"`
	Paid             bool   `json:"paid"`

	DetailerName  string `json:"detailerName,omitempty"`
	DetailerEmail string `json:"detailerEmail,omitempty"`
}

// NewOrderPayload flattens a draft into the order document.
func NewOrderPayload(sessionID string, d models.BookingDraft) OrderPayload {
	return OrderPayload{
		SessionID:        sessionID,
		Branch:           d.Branch,
		Phone:            d.Contact.Phone,
		Address:          d.Contact.Address,
		Latitude:         d.Contact.Latitude,
		Longitude:        d.Contact.Longitude,
		VehicleSize:      d.Vehicle.SizeClass,
		VehicleYear:      d.Vehicle.Year,
		VehicleMake:      d.Vehicle.Make,
		VehicleModel:     d.Vehicle.Model,
		Condition:        d.Vehicle.Condition,
		Package:          d.Service.Package,
		Addons:           d.Service.Addons,
		CalculatedPrice:  d.Quote.PriceBeforeTax,
		TaxRate:          d.Quote.TaxRateLabel(),
		TotalTax:         d.Quote.TaxAmountLabel(),
		TotalAfterTax:    d.Quote.PriceAfterTax,
		Date:             d.Slot.Date(),
		Time:             d.Slot.Clock(),
		SlotStart:        d.Slot.Start,
		Frequency:        d.Frequency,
		FirstName:        d.Customer.FirstName,
		LastName:         d.Customer.LastName,
		Email:            d.Customer.Email,
		Utilities:        d.Customer.Utilities,
		Garage:           d.Customer.Garage,
		Notes:            d.Customer.Notes,
		NameOnCard:       d.Billing.NameOnCard,
		CardPhone:        d.Billing.Phone,
		CardEmail:        d.Billing.Email,
		StripeCustomerID: d.Billing.StripeCustomerID,
		Paid:             d.Paid,
		DetailerName:     d.Detailer.Name,
		DetailerEmail:    d.Detailer.Email,
	}
}

// SubmitOrder posts the order. Only the HTTP status is inspected.
func (c *Client) SubmitOrder(ctx context.Context, order OrderPayload) error {
	if c.cfg.OrdersURL == "" {
		return fmt.Errorf("%w: orders", ErrNotConfigured)
	}
	if err := c.doPost(ctx, joinURL(c.cfg.OrdersURL, "/book"), order, nil); err != nil {
		return err
	}
	c.logger.Info().Str("branch", order.Branch).Str("slot", order.SlotStart).Msg("order submitted")
	return nil
}
