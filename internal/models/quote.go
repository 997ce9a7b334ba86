package models

import "github.com/shopspring/decimal"

// PriceQuote is always derived from the vehicle and service selections,
// optionally completed by a tax response. When TaxKnown is false the
// after-tax price equals the before-tax price.
type PriceQuote struct {
	BasePrice      decimal.Decimal `json:"basePrice"`
	SizeMultiplier decimal.Decimal `json:"sizeMultiplier"`
	AddonTotal     decimal.Decimal `json:"addonTotal"`
	PriceBeforeTax decimal.Decimal `json:"calculatedPrice"`
	TaxRate        decimal.Decimal `json:"taxRate"`
	TaxAmount      decimal.Decimal `json:"totalTax"`
	PriceAfterTax  decimal.Decimal `json:"totalAfterTax"`
	TaxKnown       bool            `json:"taxKnown"`
}

// WithoutTax drops any tax information and restores the fallback
// after-tax price.
func (q PriceQuote) WithoutTax() PriceQuote {
	q.TaxRate = decimal.Zero
	q.TaxAmount = decimal.Zero
	q.PriceAfterTax = q.PriceBeforeTax
	q.TaxKnown = false
	return q
}

// TaxRateLabel renders the tax rate the way the summary shows it.
func (q PriceQuote) TaxRateLabel() string {
	if !q.TaxKnown {
		return "(to be calculated)"
	}
	return q.TaxRate.String() + "%"
}

// TaxAmountLabel renders the tax amount, or a placeholder when unknown.
func (q PriceQuote) TaxAmountLabel() string {
	if !q.TaxKnown {
		return "(to be calculated)"
	}
	return q.TaxAmount.StringFixed(2)
}
