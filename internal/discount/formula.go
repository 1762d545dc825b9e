// Package discount holds the pure pieces of discount resolution: the
// amount formula and the eligibility predicates. Nothing here performs I/O.
package discount

import (
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/discount-campaign-service/internal/model"
)

// centPlaces is the precision amounts are stored with.
const centPlaces = 2

var hundred = decimal.NewFromInt(100)

// Compute returns the discount a campaign yields on baseAmount.
//
// The raw amount depends on the value type (a percentage of the base, or
// the flat value), then it is capped by maxDiscount when set, clamped to the
// remaining budget and floored at zero. A flat discount is not bounded by
// baseAmount.
func Compute(valueType model.ValueType, baseAmount, value decimal.Decimal, maxDiscount decimal.NullDecimal, remainingBudget decimal.Decimal) decimal.Decimal {
	if !baseAmount.IsPositive() {
		return decimal.Zero
	}

	var amount decimal.Decimal
	switch valueType {
	case model.ValueTypePercent:
		amount = baseAmount.Mul(value).Div(hundred).Truncate(centPlaces)
	case model.ValueTypeFlat:
		amount = value
	default:
		return decimal.Zero
	}

	if maxDiscount.Valid {
		amount = decimal.Min(amount, maxDiscount.Decimal)
	}
	amount = decimal.Min(amount, remainingBudget)
	return decimal.Max(amount, decimal.Zero)
}

// ForCampaign picks the base amount by the campaign's scope and runs Compute.
func ForCampaign(c *model.Campaign, cartTotal, deliveryCharge, remainingBudget decimal.Decimal) decimal.Decimal {
	return Compute(c.ValueType, BaseAmount(c.Scope, cartTotal, deliveryCharge), c.DiscountValue, c.MaxDiscountAmount, remainingBudget)
}

// BaseAmount selects the order component the scope reduces.
func BaseAmount(scope model.Scope, cartTotal, deliveryCharge decimal.Decimal) decimal.Decimal {
	if scope == model.ScopeCart {
		return cartTotal
	}
	return deliveryCharge
}

// Totals applies amount to the component selected by scope. The reduced
// component is floored at zero.
func Totals(scope model.Scope, cartTotal, deliveryCharge, amount decimal.Decimal) (finalCart, finalDelivery decimal.Decimal) {
	finalCart, finalDelivery = cartTotal, deliveryCharge
	if scope == model.ScopeCart {
		finalCart = decimal.Max(cartTotal.Sub(amount), decimal.Zero)
	} else {
		finalDelivery = decimal.Max(deliveryCharge.Sub(amount), decimal.Zero)
	}
	return finalCart, finalDelivery
}
