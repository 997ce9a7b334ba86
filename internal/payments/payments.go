// Package payments charges booking deposits through Stripe.
package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/detailongo/dotg-team/internal/config"
	"github.com/detailongo/dotg-team/internal/metrics"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

var (
	ErrNotConfigured     = errors.New("payments: processor not configured")
	ErrMissingMethod     = errors.New("payments: payment method is required")
	ErrInvalidAmount     = errors.New("payments: amount must be positive")
	ErrPaymentIncomplete = errors.New("payments: payment did not succeed")
)

// ChargeRequest saves the card on a customer and charges Amount.
type ChargeRequest struct {
	Name            string
	Email           string
	Phone           string
	PaymentMethodID string
	CustomerID      string
	Amount          decimal.Decimal
	Description     string
	Metadata        map[string]string
}

type ChargeResult struct {
	CustomerID      string `json:"customerId"`
	PaymentIntentID string `json:"paymentIntentId"`
	Status          string `json:"status"`
}

type customerCreator interface {
	New(params *stripe.CustomerParams) (*stripe.Customer, error)
}

type intentCreator interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// Processor creates Stripe customers and confirms payment intents.
type Processor struct {
	customers customerCreator
	intents   intentCreator
	currency  string
	logger    *zerolog.Logger
}

// NewStripeProcessor returns nil when no secret key is configured.
func NewStripeProcessor(cfg config.StripeConfig, logger *zerolog.Logger) *Processor {
	if cfg.SecretKey == "" {
		return nil
	}
	sc := &client.API{}
	sc.Init(cfg.SecretKey, nil)
	return newProcessor(sc.Customers, sc.PaymentIntents, cfg.Currency, logger)
}

func newProcessor(customers customerCreator, intents intentCreator, currency string, logger *zerolog.Logger) *Processor {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}
	l := logger.With().Str("component", "payments").Logger()
	return &Processor{customers: customers, intents: intents, currency: strings.ToLower(currency), logger: &l}
}

// Charge attaches the payment method to a (new or existing) customer and
// charges the amount immediately.
func (p *Processor) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	if p == nil {
		return ChargeResult{}, ErrNotConfigured
	}
	if req.PaymentMethodID == "" {
		return ChargeResult{}, ErrMissingMethod
	}
	cents := req.Amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	if cents <= 0 {
		return ChargeResult{}, ErrInvalidAmount
	}

	customerID := req.CustomerID
	if customerID == "" {
		params := &stripe.CustomerParams{
			Name:          stripe.String(req.Name),
			Email:         stripe.String(req.Email),
			Phone:         stripe.String(req.Phone),
			PaymentMethod: stripe.String(req.PaymentMethodID),
		}
		params.Context = ctx
		cust, err := p.customers.New(params)
		if err != nil {
			metrics.IncPayment("customer_failed")
			return ChargeResult{}, fmt.Errorf("create customer: %w", describe(err))
		}
		customerID = cust.ID
	}

	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(cents),
		Currency:      stripe.String(p.currency),
		Customer:      stripe.String(customerID),
		PaymentMethod: stripe.String(req.PaymentMethodID),
		Confirm:       stripe.Bool(true),
		OffSession:    stripe.Bool(true),
	}
	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}
	if req.Email != "" {
		params.ReceiptEmail = stripe.String(req.Email)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	params.Context = ctx

	pi, err := p.intents.New(params)
	if err != nil {
		metrics.IncPayment("charge_failed")
		return ChargeResult{CustomerID: customerID}, fmt.Errorf("charge: %w", describe(err))
	}

	result := ChargeResult{CustomerID: customerID, PaymentIntentID: pi.ID, Status: string(pi.Status)}
	if pi.Status != stripe.PaymentIntentStatusSucceeded && pi.Status != stripe.PaymentIntentStatusProcessing {
		metrics.IncPayment("incomplete")
		return result, fmt.Errorf("%w: status %s", ErrPaymentIncomplete, pi.Status)
	}

	metrics.IncPayment("succeeded")
	p.logger.Info().Str("customer", customerID).Str("intent", pi.ID).Int64("cents", cents).Msg("payment captured")
	return result, nil
}

func describe(err error) error {
	var se *stripe.Error
	if errors.As(err, &se) && se.Msg != "" {
		return fmt.Errorf("%s (%s): %w", se.Msg, se.Code, err)
	}
	return err
}
