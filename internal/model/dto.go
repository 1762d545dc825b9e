package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CampaignRequest is the DTO for creating or fully replacing a campaign.
// Decimal rules are enforced by the struct-level validation in internal/validator.
type CampaignRequest struct {
	Name        string  `json:"name" validate:"required,notblank,max=255"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	Code        *string `json:"code" validate:"omitempty,min=3,max=50"`

	Scope             Scope               `json:"discount_scope" validate:"required,oneof=cart delivery"`
	ValueType         ValueType           `json:"discount_value_type" validate:"required,oneof=percent flat"`
	DiscountValue     decimal.Decimal     `json:"discount_value"`
	MaxDiscountAmount decimal.NullDecimal `json:"max_discount_amount"`

	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required"`

	TotalBudget decimal.Decimal `json:"total_budget"`

	MinCartTotal      decimal.NullDecimal `json:"min_cart_total"`
	MinDeliveryCharge decimal.NullDecimal `json:"min_delivery_charge"`

	MaxTransactionsPerCustomerPerDay int  `json:"max_transactions_per_customer_per_day" validate:"required,gt=0"`
	MaxUsesOverall                   *int `json:"max_uses_overall" validate:"omitempty,gt=0"`

	AllowStack bool `json:"allow_stack_with_other_discounts"`
	Priority   int  `json:"priority"`

	// IsActive is honoured on update only; new campaigns always start active.
	IsActive *bool `json:"is_active"`

	TargetCustomerIDs []string `json:"target_customer_ids" validate:"omitempty,dive,required,notblank,max=255"`
}

// CampaignStatusRequest toggles a campaign's lifecycle flag.
type CampaignStatusRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

// CampaignResponse is the API representation of a campaign.
type CampaignResponse struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Code        *string `json:"code"`

	Scope             Scope               `json:"discount_scope"`
	ValueType         ValueType           `json:"discount_value_type"`
	DiscountValue     decimal.Decimal     `json:"discount_value"`
	MaxDiscountAmount decimal.NullDecimal `json:"max_discount_amount"`

	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`

	TotalBudget decimal.Decimal `json:"total_budget"`

	MinCartTotal      decimal.NullDecimal `json:"min_cart_total"`
	MinDeliveryCharge decimal.NullDecimal `json:"min_delivery_charge"`

	MaxTransactionsPerCustomerPerDay int  `json:"max_transactions_per_customer_per_day"`
	MaxUsesOverall                   *int `json:"max_uses_overall"`

	AllowStack bool `json:"allow_stack_with_other_discounts"`
	Priority   int  `json:"priority"`
	IsActive   bool `json:"is_active"`

	TargetCustomerIDs []string `json:"target_customer_ids"`
}

// CampaignDetailResponse adds ledger-derived consumption to a campaign.
type CampaignDetailResponse struct {
	CampaignResponse
	SpentBudget     decimal.Decimal `json:"spent_budget"`
	RemainingBudget decimal.Decimal `json:"remaining_budget"`
	TotalUses       int             `json:"total_uses"`
}

// CampaignPage is a single page of campaigns.
type CampaignPage struct {
	Items      []CampaignResponse `json:"items"`
	Page       int                `json:"page"`
	PageSize   int                `json:"page_size"`
	TotalItems int                `json:"total_items"`
	TotalPages int                `json:"total_pages"`
}

// DiscountCheckRequest is the DTO for previewing available discounts.
type DiscountCheckRequest struct {
	CustomerID     string          `json:"customer_id" validate:"required,notblank,max=255"`
	CartTotal      decimal.Decimal `json:"cart_total"`
	DeliveryCharge decimal.Decimal `json:"delivery_charge"`
}

// AvailableDiscount is one campaign the customer could apply right now.
type AvailableDiscount struct {
	Campaign            CampaignResponse `json:"campaign"`
	ApplicableDiscount  decimal.Decimal  `json:"applicable_discount"`
	FinalCartTotal      decimal.Decimal  `json:"final_cart_total"`
	FinalDeliveryCharge decimal.Decimal  `json:"final_delivery_charge"`
}

// DiscountApplyRequest is the DTO for redeeming a campaign against an order.
type DiscountApplyRequest struct {
	CampaignID     int64           `json:"campaign_id" validate:"required,gt=0"`
	CustomerID     string          `json:"customer_id" validate:"required,notblank,max=255"`
	CartTotal      decimal.Decimal `json:"cart_total"`
	DeliveryCharge decimal.Decimal `json:"delivery_charge"`
	OrderRef       *string         `json:"order_id" validate:"omitempty,notblank,max=255"`
}

// DiscountApplyResponse is returned after a successful redemption.
type DiscountApplyResponse struct {
	CampaignID          int64           `json:"campaign_id"`
	CustomerID          string          `json:"customer_id"`
	AppliedDiscount     decimal.Decimal `json:"applied_discount"`
	FinalCartTotal      decimal.Decimal `json:"final_cart_total"`
	FinalDeliveryCharge decimal.Decimal `json:"final_delivery_charge"`
	// Replayed is true when the order reference matched an earlier redemption.
	Replayed bool `json:"replayed"`
}

// ToResponse converts a campaign to its API representation.
func (c *Campaign) ToResponse() CampaignResponse {
	targets := c.TargetCustomerIDs
	if targets == nil {
		targets = []string{}
	}
	return CampaignResponse{
		ID:                               c.ID,
		Name:                             c.Name,
		Description:                      c.Description,
		Code:                             c.Code,
		Scope:                            c.Scope,
		ValueType:                        c.ValueType,
		DiscountValue:                    c.DiscountValue,
		MaxDiscountAmount:                c.MaxDiscountAmount,
		StartDate:                        c.StartDate,
		EndDate:                          c.EndDate,
		TotalBudget:                      c.TotalBudget,
		MinCartTotal:                     c.MinCartTotal,
		MinDeliveryCharge:                c.MinDeliveryCharge,
		MaxTransactionsPerCustomerPerDay: c.MaxTransactionsPerCustomerPerDay,
		MaxUsesOverall:                   c.MaxUsesOverall,
		AllowStack:                       c.AllowStack,
		Priority:                         c.Priority,
		IsActive:                         c.IsActive,
		TargetCustomerIDs:                targets,
	}
}
