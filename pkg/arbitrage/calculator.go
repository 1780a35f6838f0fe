// Package arbitrage computes cost spreads between marketplace listings
// and independently sourced reference prices. The calculator is pure:
// given the same listing, reference price, and tunables it always
// produces the same opportunity, with no side effects. Money math runs
// on decimals so tax and spread rounding is exact.
package arbitrage

import (
	"github.com/shopspring/decimal"

	"github.com/spreadscan/spreadscan/pkg/listings"
)

// Calculator derives arbitrage opportunities from listings and reference
// prices.
type Calculator struct {
	taxRate      decimal.Decimal
	minSpreadPct float64
}

// NewCalculator creates a calculator. taxRate is the estimated sales tax
// applied to the listing price. minSpreadPct, when positive, is a
// minimum spread percentage an opportunity must clear to count as
// arbitrage; zero disables the filter.
func NewCalculator(taxRate, minSpreadPct float64) *Calculator {
	return &Calculator{
		taxRate:      decimal.NewFromFloat(taxRate),
		minSpreadPct: minSpreadPct,
	}
}

// AllInCost returns price + shipping + round(taxRate*price, 2).
func (c *Calculator) AllInCost(price, shipping float64) float64 {
	p := decimal.NewFromFloat(price)
	tax := p.Mul(c.taxRate).Round(2)
	return p.Add(decimal.NewFromFloat(shipping)).Add(tax).InexactFloat64()
}

// Evaluate combines a listing with its resolved reference price. A nil
// or unresolved reference price yields an opportunity with a nil spread
// and IsArbitrage false: "we couldn't value this", not "no profit".
func (c *Calculator) Evaluate(l listings.Listing, ref *listings.ReferencePrice) listings.ArbitrageOpportunity {
	opp := listings.ArbitrageOpportunity{
		Listing:        l,
		AllInCost:      c.AllInCost(l.Price, l.Shipping),
		ReferencePrice: ref,
	}

	if !ref.Resolved() {
		return opp
	}

	refVal := decimal.NewFromFloat(*ref.Value)
	allIn := decimal.NewFromFloat(opp.AllInCost)
	spread := refVal.Sub(allIn).Round(2)
	spreadF := spread.InexactFloat64()
	opp.Spread = &spreadF

	// Guard the percentage against a non-positive reference value.
	if refVal.IsPositive() {
		opp.SpreadPct = spread.Div(refVal).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
	}

	opp.IsArbitrage = spreadF > 0 && (c.minSpreadPct <= 0 || opp.SpreadPct >= c.minSpreadPct)
	return opp
}
