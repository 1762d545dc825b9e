package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Scope selects which order component a campaign's discount reduces.
type Scope string

const (
	ScopeCart     Scope = "cart"
	ScopeDelivery Scope = "delivery"
)

// Valid reports whether s is one of the known scopes.
func (s Scope) Valid() bool {
	return s == ScopeCart || s == ScopeDelivery
}

// ValueType selects the discount formula.
type ValueType string

const (
	ValueTypePercent ValueType = "percent"
	ValueTypeFlat    ValueType = "flat"
)

// Valid reports whether t is one of the known value types.
func (t ValueType) Valid() bool {
	return t == ValueTypePercent || t == ValueTypeFlat
}

// Campaign represents a promotional rule in the system.
type Campaign struct {
	ID          int64
	Name        string
	Description *string
	Code        *string

	Scope             Scope
	ValueType         ValueType
	DiscountValue     decimal.Decimal
	MaxDiscountAmount decimal.NullDecimal

	StartDate time.Time
	EndDate   time.Time

	TotalBudget decimal.Decimal

	MinCartTotal      decimal.NullDecimal
	MinDeliveryCharge decimal.NullDecimal

	MaxTransactionsPerCustomerPerDay int
	MaxUsesOverall                   *int

	// AllowStack is persisted and returned but not consulted by resolution.
	AllowStack bool
	Priority   int
	IsActive   bool

	// TargetCustomerIDs empty means the campaign is open to every customer.
	TargetCustomerIDs []string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Redemption is an immutable record of one successful discount application.
type Redemption struct {
	ID             int64
	CampaignID     int64
	CustomerID     string
	DiscountAmount decimal.Decimal
	OrderRef       *string
	CreatedAt      time.Time
}

// RedemptionLimits carries the campaign caps the ledger re-verifies when appending.
type RedemptionLimits struct {
	TotalBudget    decimal.Decimal
	MaxUsesOverall *int
	MaxPerDay      int
	DayStart       time.Time
	DayEnd         time.Time
}
