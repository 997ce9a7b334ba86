package pricing

import (
	"fmt"

	"github.com/detailongo/dotg-team/internal/config"
	"github.com/detailongo/dotg-team/internal/models"

	"github.com/shopspring/decimal"
)

// Tables holds the flat package prices, size multipliers and add-on prices.
type Tables struct {
	Base        map[models.Package]decimal.Decimal
	Multipliers map[models.SizeClass]decimal.Decimal
	Addons      map[models.Addon]decimal.Decimal
}

func DefaultTables() Tables {
	return Tables{
		Base: map[models.Package]decimal.Decimal{
			models.PackageInterior: decimal.NewFromInt(219),
			models.PackageExterior: decimal.NewFromInt(99),
			models.PackageBoth:     decimal.NewFromInt(260),
		},
		Multipliers: map[models.SizeClass]decimal.Decimal{
			models.SizeSedan:         decimal.NewFromInt(1),
			models.SizeSmallMidSUV:   decimal.RequireFromString("1.13"),
			models.SizeLargeSUV:      decimal.RequireFromString("1.2"),
			models.SizeSmallMidTruck: decimal.RequireFromString("1.1"),
			models.SizeLargeTruck:    decimal.RequireFromString("1.15"),
			models.SizeTransitVan1:   decimal.RequireFromString("1.1"),
			models.SizeTransitVan2:   decimal.RequireFromString("1.8"),
		},
		Addons: map[models.Addon]decimal.Decimal{
			models.AddonCeramic: decimal.NewFromInt(50),
			models.AddonPaint:   decimal.NewFromInt(100),
			models.AddonPetHair: decimal.NewFromInt(75),
		},
	}
}

// TablesFromConfig applies the configured overrides on top of the defaults.
// Unknown keys and negative values are rejected.
func TablesFromConfig(cfg config.PricingConfig) (Tables, error) {
	t := DefaultTables()

	for k, v := range cfg.BasePrices {
		p := models.Package(k)
		if p == models.PackageUnset || !p.Valid() {
			return Tables{}, fmt.Errorf("pricing.base_prices: unknown package %q", k)
		}
		if v < 0 {
			return Tables{}, fmt.Errorf("pricing.base_prices.%s: negative price", k)
		}
		t.Base[p] = decimal.NewFromFloat(v)
	}
	for k, v := range cfg.Multipliers {
		s := models.SizeClass(k)
		if s == models.SizeUnset || !s.Valid() {
			return Tables{}, fmt.Errorf("pricing.multipliers: unknown size class %q", k)
		}
		if v <= 0 {
			return Tables{}, fmt.Errorf("pricing.multipliers.%s: must be positive", k)
		}
		t.Multipliers[s] = decimal.NewFromFloat(v)
	}
	for k, v := range cfg.Addons {
		a := models.Addon(k)
		if !a.Valid() {
			return Tables{}, fmt.Errorf("pricing.addons: unknown add-on %q", k)
		}
		if v < 0 {
			return Tables{}, fmt.Errorf("pricing.addons.%s: negative price", k)
		}
		t.Addons[a] = decimal.NewFromFloat(v)
	}
	return t, nil
}
