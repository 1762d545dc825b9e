package discount

import (
	"context"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/discount-campaign-service/internal/model"
)

// Reason identifies why a campaign is not applicable. The empty Reason means
// the check passed.
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonInactive        Reason = "campaign_inactive"
	ReasonOutsideWindow   Reason = "outside_validity_window"
	ReasonNotTargeted     Reason = "customer_not_targeted"
	ReasonDailyLimit      Reason = "daily_usage_limit_reached"
	ReasonOverallLimit    Reason = "overall_usage_limit_reached"
	ReasonBelowMinimum    Reason = "minimum_not_met"
	ReasonBudgetExhausted Reason = "budget_exhausted"
	ReasonNoDiscount      Reason = "no_discount_applicable"
	ReasonOrderRefUsed    Reason = "order_reference_in_use"
	ReasonConflict        Reason = "concurrent_redemption"
)

var reasonMessages = map[Reason]string{
	ReasonInactive:        "campaign is not active",
	ReasonOutsideWindow:   "campaign not active in current date range",
	ReasonNotTargeted:     "customer not eligible for this campaign",
	ReasonDailyLimit:      "daily usage limit exceeded for this campaign",
	ReasonOverallLimit:    "overall usage limit exceeded for this campaign",
	ReasonBelowMinimum:    "order does not meet minimum requirements",
	ReasonBudgetExhausted: "campaign budget exhausted",
	ReasonNoDiscount:      "no discount applicable",
	ReasonOrderRefUsed:    "order reference already redeemed by another customer",
	ReasonConflict:        "campaign limits were consumed by a concurrent redemption",
}

// Message returns the human readable text for r.
func (r Reason) Message() string {
	if msg, ok := reasonMessages[r]; ok {
		return msg
	}
	return "discount not applicable"
}

// Request is the order context a campaign is evaluated against.
type Request struct {
	CustomerID     string
	CartTotal      decimal.Decimal
	DeliveryCharge decimal.Decimal
	Now            time.Time
}

// Usage holds the ledger counts the usage predicate needs.
type Usage struct {
	Today int
	Total int
}

// UsageSource supplies ledger counts for a campaign. Implementations decide
// which snapshot (pool read or locked transaction) the counts come from.
type UsageSource interface {
	UsageToday(ctx context.Context, campaignID int64, customerID string, now time.Time) (int, error)
	UsageTotal(ctx context.Context, campaignID int64) (int, error)
}

// CheckWindow requires the campaign to be active with start <= now <= end.
func CheckWindow(c *model.Campaign, now time.Time) Reason {
	if !c.IsActive {
		return ReasonInactive
	}
	if now.Before(c.StartDate) || now.After(c.EndDate) {
		return ReasonOutsideWindow
	}
	return ReasonNone
}

// CheckTarget passes everyone for an untargeted campaign, otherwise only members.
func CheckTarget(c *model.Campaign, customerID string) Reason {
	if len(c.TargetCustomerIDs) == 0 || slices.Contains(c.TargetCustomerIDs, customerID) {
		return ReasonNone
	}
	return ReasonNotTargeted
}

// CheckUsage enforces the per-customer daily cap and the optional overall cap.
func CheckUsage(c *model.Campaign, u Usage) Reason {
	if u.Today >= c.MaxTransactionsPerCustomerPerDay {
		return ReasonDailyLimit
	}
	if c.MaxUsesOverall != nil && u.Total >= *c.MaxUsesOverall {
		return ReasonOverallLimit
	}
	return ReasonNone
}

// CheckMinimums enforces the optional cart and delivery thresholds.
func CheckMinimums(c *model.Campaign, cartTotal, deliveryCharge decimal.Decimal) Reason {
	if c.MinCartTotal.Valid && cartTotal.LessThan(c.MinCartTotal.Decimal) {
		return ReasonBelowMinimum
	}
	if c.MinDeliveryCharge.Valid && deliveryCharge.LessThan(c.MinDeliveryCharge.Decimal) {
		return ReasonBelowMinimum
	}
	return ReasonNone
}

// Evaluate runs the full predicate chain (window, target, usage, minimums)
// and returns the first failing Reason. Ledger counts are only fetched once
// the window and target checks pass, and the overall count only when the
// campaign has an overall cap.
func Evaluate(ctx context.Context, c *model.Campaign, req Request, src UsageSource) (Reason, error) {
	if r := CheckWindow(c, req.Now); r != ReasonNone {
		return r, nil
	}
	if r := CheckTarget(c, req.CustomerID); r != ReasonNone {
		return r, nil
	}

	var u Usage
	var err error
	u.Today, err = src.UsageToday(ctx, c.ID, req.CustomerID, req.Now)
	if err != nil {
		return ReasonNone, err
	}
	if c.MaxUsesOverall != nil {
		u.Total, err = src.UsageTotal(ctx, c.ID)
		if err != nil {
			return ReasonNone, err
		}
	}
	if r := CheckUsage(c, u); r != ReasonNone {
		return r, nil
	}
	return CheckMinimums(c, req.CartTotal, req.DeliveryCharge), nil
}
