package handler

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/discount-campaign-service/internal/service"
)

// formatValidationError converts the first validator error to a client message.
// Field names are JSON names (see validator.New).
func formatValidationError(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return "invalid request"
	}

	fe := ve[0]
	field, param := fe.Field(), fe.Param()
	switch fe.Tag() {
	case "required":
		return "invalid request: " + field + " is required"
	case "notblank":
		return "invalid request: " + field + " cannot be whitespace only"
	case "max":
		return "invalid request: " + field + " exceeds maximum length of " + param
	case "min":
		return "invalid request: " + field + " must be at least " + param + " characters"
	case "oneof":
		return "invalid request: " + field + " must be one of: " + param
	case "gt":
		return "invalid request: " + field + " must be greater than " + param
	case "gte":
		return "invalid request: " + field + " must be at least " + param
	case "lte", "ltefield":
		return "invalid request: " + field + " must not exceed " + param
	case "gtfield":
		return "invalid request: " + field + " must be after " + param
	default:
		return "invalid request: " + field + " is invalid"
	}
}

// respondServiceError maps service errors to HTTP responses. Unexpected
// errors are logged with msg and surface as 500.
func respondServiceError(c *fiber.Ctx, err error, msg string) error {
	var rej *service.Rejection
	switch {
	case errors.As(err, &rej):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":  rej.Error(),
			"reason": string(rej.Reason),
		})
	case errors.Is(err, service.ErrCampaignNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "campaign not found"})
	case errors.Is(err, service.ErrCampaignCodeExists):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "campaign code already exists"})
	case errors.Is(err, service.ErrInvalidRequest):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}

	log.Error().
		Err(err).
		Str("request_id", c.GetRespHeader("X-Request-ID")).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Msg(msg)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
}

// campaignID parses the :id route parameter.
func campaignID(c *fiber.Ctx) (int64, bool) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func invalidID(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "invalid request: id must be a positive integer",
	})
}
