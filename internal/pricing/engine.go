package pricing

import (
	"github.com/detailongo/dotg-team/internal/metrics"
	"github.com/detailongo/dotg-team/internal/models"

	"github.com/shopspring/decimal"
)

var one = decimal.NewFromInt(1)

// Engine computes price quotes from the price tables. It holds no mutable
// state and is safe for concurrent use.
type Engine struct {
	tables Tables
}

func NewEngine(tables Tables) *Engine {
	return &Engine{tables: tables}
}

// Multiplier returns the size multiplier, 1 for unset or unknown sizes.
func (e *Engine) Multiplier(size models.SizeClass) decimal.Decimal {
	if m, ok := e.tables.Multipliers[size]; ok {
		return m
	}
	return one
}

// PackagePrice is the package price for the size, rounded to whole dollars.
func (e *Engine) PackagePrice(size models.SizeClass, pkg models.Package) decimal.Decimal {
	base, ok := e.tables.Base[pkg]
	if !ok {
		return decimal.Zero
	}
	return base.Mul(e.Multiplier(size)).Round(0)
}

// AddonPrice returns the flat price of one add-on.
func (e *Engine) AddonPrice(a models.Addon) decimal.Decimal {
	return e.tables.Addons[a]
}

// ComputePrice prices a selection. The package price is rounded once after
// the multiplication; add-ons are flat and added afterwards. An unset
// package prices to zero. The returned quote has no tax.
func (e *Engine) ComputePrice(size models.SizeClass, pkg models.Package, addons models.AddonSet) models.PriceQuote {
	q := models.PriceQuote{
		BasePrice:      decimal.Zero,
		SizeMultiplier: e.Multiplier(size),
		AddonTotal:     decimal.Zero,
		PriceBeforeTax: decimal.Zero,
	}

	if base, ok := e.tables.Base[pkg]; ok {
		q.BasePrice = base
		addonTotal := decimal.Zero
		for _, a := range addons.Items() {
			addonTotal = addonTotal.Add(e.AddonPrice(a))
		}
		q.AddonTotal = addonTotal
		q.PriceBeforeTax = e.PackagePrice(size, pkg).Add(addonTotal)
	}

	metrics.IncQuote(string(pkg))
	return q.WithoutTax()
}

// Quote prices the vehicle and service of a draft.
func (e *Engine) Quote(v models.VehicleProfile, s models.ServicePackage) models.PriceQuote {
	return e.ComputePrice(v.SizeClass, s.Package, s.Addons)
}
