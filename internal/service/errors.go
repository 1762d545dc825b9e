package service

import (
	"errors"

	"github.com/fairyhunter13/discount-campaign-service/internal/discount"
)

var (
	// ErrCampaignNotFound is returned when a campaign cannot be found
	ErrCampaignNotFound = errors.New("campaign not found")

	// ErrCampaignCodeExists is returned when a campaign code is already taken
	ErrCampaignCodeExists = errors.New("campaign code already exists")

	// ErrInvalidRequest is returned when request data is invalid or incomplete
	ErrInvalidRequest = errors.New("invalid request")

	// ErrConcurrencyConflict is returned when the ledger refuses an append
	// because a concurrent redemption consumed the remaining headroom
	ErrConcurrencyConflict = errors.New("concurrent redemption conflict")

	// ErrNotApplicable matches every *Rejection via errors.Is
	ErrNotApplicable = errors.New("discount not applicable")
)

// Rejection reports why a campaign could not be applied to an order.
type Rejection struct {
	Reason discount.Reason
}

func (r *Rejection) Error() string {
	return r.Reason.Message()
}

// Is makes errors.Is(err, ErrNotApplicable) true for any rejection.
func (r *Rejection) Is(target error) bool {
	return target == ErrNotApplicable
}

func reject(reason discount.Reason) error {
	return &Rejection{Reason: reason}
}
