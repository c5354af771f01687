// Package discount compares a listing's price with its reference price.
package discount

import (
	"github.com/shopspring/decimal"

	"github.com/pauljones0/discogs-deals/internal/models"
)

const (
	BasisMedian    = "median"
	BasisSuggested = "suggested"
)

var hundred = decimal.NewFromInt(100)

// Percent returns round((reference - price) / reference * 100), rounding half
// away from zero. The reference must be positive.
func Percent(price, reference decimal.Decimal) int {
	return int(reference.Sub(price).Div(reference).Mul(hundred).Round(0).IntPart())
}

// Evaluator computes discounts for listings.
type Evaluator struct {
	// StandardShipping is subtracted from price + shipping so listings that
	// charge ordinary postage are compared on the record price alone.
	StandardShipping decimal.Decimal
}

// EffectivePrice is the price used for comparisons.
func (e Evaluator) EffectivePrice(l models.Listing) decimal.Decimal {
	return l.Price.Add(l.Shipping).Sub(e.StandardShipping)
}

// Evaluate returns the listing's discount. The median sale price is preferred;
// the suggested price for the listing's condition is the fallback. Without a
// positive reference the result is indeterminate.
func (e Evaluator) Evaluate(l models.Listing) models.Discount {
	ref, basis, ok := Reference(l.Stats)
	if !ok {
		return models.Discount{}
	}
	return models.Discount{
		Percent:     Percent(e.EffectivePrice(l), ref),
		Reference:   ref,
		Basis:       basis,
		Determinate: true,
	}
}

// Reference picks the reference price out of the release stats.
func Reference(s models.ReleaseStats) (decimal.Decimal, string, bool) {
	if s.Median != nil && s.Median.IsPositive() {
		return *s.Median, BasisMedian, true
	}
	if s.Suggested != nil && s.Suggested.IsPositive() {
		return *s.Suggested, BasisSuggested, true
	}
	return decimal.Zero, "", false
}

// IsNeverSold reports whether the release has a known sales history of zero.
func IsNeverSold(l models.Listing) bool {
	return l.Stats.TimesSold != nil && *l.Stats.TimesSold == 0
}
