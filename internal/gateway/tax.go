package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// TaxRequest is the body of the tax quote call.
type TaxRequest struct {
	AddressStreet  string      `json:"addressStreet"`
	AddressCity    string      `json:"addressCity"`
	AddressState   string      `json:"addressState"`
	AddressPostal  string      `json:"addressPostal"`
	AddressCountry string      `json:"addressCountry"`
	Amount         json.Number `json:"amount"`
}

// TaxResponse is a successful tax quote. The service answers either with
// the totals or with an error body.
type TaxResponse struct {
	TotalBeforeTax decimal.Decimal `json:"totalBeforeTax"`
	TaxRate        decimal.Decimal `json:"taxRate"`
	TotalTax       decimal.Decimal `json:"totalTax"`
	TotalAfterTax  decimal.Decimal `json:"totalAfterTax"`
}

type taxEnvelope struct {
	TotalBeforeTax decimal.NullDecimal `json:"totalBeforeTax"`
	TaxRate        decimal.NullDecimal `json:"taxRate"`
	TotalTax       decimal.NullDecimal `json:"totalTax"`
	TotalAfterTax  decimal.NullDecimal `json:"totalAfterTax"`
	Error          json.RawMessage     `json:"error"`
}

// QuoteTax asks the tax service for the tax on amount at the given address.
// A body without totalTax and totalAfterTax is an ErrInvalidResponse.
func (c *Client) QuoteTax(ctx context.Context, req TaxRequest) (TaxResponse, error) {
	if c.cfg.TaxURL == "" {
		return TaxResponse{}, fmt.Errorf("%w: tax", ErrNotConfigured)
	}
	var env taxEnvelope
	if err := c.doPost(ctx, c.cfg.TaxURL, req, &env); err != nil {
		return TaxResponse{}, err
	}
	if len(env.Error) > 0 && string(env.Error) != "null" && string(env.Error) != `""` {
		return TaxResponse{}, fmt.Errorf("%w: %s", ErrRejected, string(env.Error))
	}
	if !env.TotalTax.Valid || !env.TotalAfterTax.Valid {
		return TaxResponse{}, fmt.Errorf("%w: tax totals missing", ErrInvalidResponse)
	}
	return TaxResponse{
		TotalBeforeTax: env.TotalBeforeTax.Decimal,
		TaxRate:        env.TaxRate.Decimal,
		TotalTax:       env.TotalTax.Decimal,
		TotalAfterTax:  env.TotalAfterTax.Decimal,
	}, nil
}

// NewTaxAmount formats a decimal amount as a JSON number.
func NewTaxAmount(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}
