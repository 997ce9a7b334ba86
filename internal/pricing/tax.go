package pricing

import (
	"context"
	"errors"

	"github.com/detailongo/dotg-team/internal/gateway"
	"github.com/detailongo/dotg-team/internal/metrics"
	"github.com/detailongo/dotg-team/internal/models"

	"github.com/rs/zerolog"
)

// TaxClient is the tax quote endpoint.
type TaxClient interface {
	QuoteTax(ctx context.Context, req gateway.TaxRequest) (gateway.TaxResponse, error)
}

// TaxQuoter completes a quote with tax. It never fails: on any problem the
// quote falls back to "tax unknown" with the after-tax price equal to the
// before-tax price.
type TaxQuoter struct {
	client TaxClient
	logger *zerolog.Logger
}

func NewTaxQuoter(client TaxClient, logger *zerolog.Logger) *TaxQuoter {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("component", "tax").Logger()
	return &TaxQuoter{client: client, logger: &l}
}

// ComputeTax asks the tax service for the tax on quote.PriceBeforeTax at the
// contact's address.
func (t *TaxQuoter) ComputeTax(ctx context.Context, contact models.Contact, quote models.PriceQuote) models.PriceQuote {
	fallback := quote.WithoutTax()

	if t.client == nil {
		return t.fallback(fallback, "not_configured", nil)
	}
	if !quote.PriceBeforeTax.IsPositive() {
		return t.fallback(fallback, "zero_amount", nil)
	}
	if contact.Address == "" || !contact.Parts.Complete() {
		return t.fallback(fallback, "missing_address", nil)
	}

	country := contact.Parts.Country
	if country == "" {
		country = models.DefaultCountry
	}
	resp, err := t.client.QuoteTax(ctx, gateway.TaxRequest{
		AddressStreet:  contact.Parts.Street,
		AddressCity:    contact.Parts.City,
		AddressState:   contact.Parts.State,
		AddressPostal:  contact.Parts.Postal,
		AddressCountry: country,
		Amount:         gateway.NewTaxAmount(quote.PriceBeforeTax),
	})
	if err != nil {
		return t.fallback(fallback, reasonFor(err), err)
	}

	after := resp.TotalAfterTax
	if resp.TotalTax.IsNegative() || after.LessThan(quote.PriceBeforeTax) {
		return t.fallback(fallback, "inconsistent", nil)
	}

	out := quote
	out.TaxRate = resp.TaxRate
	out.TaxAmount = after.Sub(quote.PriceBeforeTax)
	out.PriceAfterTax = after
	out.TaxKnown = true
	return out
}

func (t *TaxQuoter) fallback(q models.PriceQuote, reason string, err error) models.PriceQuote {
	metrics.IncTaxFallback(reason)
	ev := t.logger.Warn().Str("reason", reason).Str("amount", q.PriceBeforeTax.StringFixed(2))
	if err != nil {
		ev = ev.Err(err)
	}
	ev.Msg("tax quote unavailable, using fallback")
	return q
}

func reasonFor(err error) string {
	switch {
	case errors.Is(err, gateway.ErrRejected):
		return "error_body"
	case errors.Is(err, gateway.ErrUnexpectedStatus):
		return "status"
	case errors.Is(err, gateway.ErrInvalidResponse):
		return "malformed"
	case errors.Is(err, gateway.ErrNotConfigured):
		return "not_configured"
	default:
		return "request_failed"
	}
}
