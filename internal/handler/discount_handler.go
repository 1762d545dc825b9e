package handler

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/fairyhunter13/discount-campaign-service/internal/model"
)

// DiscountServiceInterface defines the interface for discount resolution and redemption.
type DiscountServiceInterface interface {
	GetAvailableDiscounts(ctx context.Context, req *model.DiscountCheckRequest) ([]model.AvailableDiscount, error)
	ApplyDiscount(ctx context.Context, req *model.DiscountApplyRequest) (*model.DiscountApplyResponse, error)
}

// DiscountHandler handles HTTP requests for discount operations.
type DiscountHandler struct {
	service   DiscountServiceInterface
	validator *validator.Validate
}

// NewDiscountHandler creates a new DiscountHandler with the given service and validator.
func NewDiscountHandler(svc DiscountServiceInterface, v *validator.Validate) *DiscountHandler {
	return &DiscountHandler{service: svc, validator: v}
}

// AvailableDiscounts handles POST /api/discounts/available.
// Returns the applicable campaigns in priority order; an empty list when none apply.
func (h *DiscountHandler) AvailableDiscounts(c *fiber.Ctx) error {
	var req model.DiscountCheckRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	discounts, err := h.service.GetAvailableDiscounts(c.Context(), &req)
	if err != nil {
		return respondServiceError(c, err, "failed to resolve available discounts")
	}
	return c.JSON(discounts)
}

// ApplyDiscount handles POST /api/discounts/apply.
// Returns 200 with the applied amount, 404 for an unknown campaign, or
// 400 with a reason when the campaign cannot be applied.
func (h *DiscountHandler) ApplyDiscount(c *fiber.Ctx) error {
	var req model.DiscountApplyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	resp, err := h.service.ApplyDiscount(c.Context(), &req)
	if err != nil {
		return respondServiceError(c, err, "failed to apply discount")
	}
	return c.JSON(resp)
}
