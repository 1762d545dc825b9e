package handler

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/discount-campaign-service/internal/model"
	"github.com/fairyhunter13/discount-campaign-service/internal/service"
)

// CampaignServiceInterface defines the interface for campaign lifecycle logic.
type CampaignServiceInterface interface {
	Create(ctx context.Context, req *model.CampaignRequest) (*model.CampaignResponse, error)
	Get(ctx context.Context, id int64) (*model.CampaignDetailResponse, error)
	List(ctx context.Context, page, pageSize int) (*model.CampaignPage, error)
	Update(ctx context.Context, id int64, req *model.CampaignRequest) (*model.CampaignResponse, error)
	SetActive(ctx context.Context, id int64, active bool) error
	Delete(ctx context.Context, id int64) error
}

// CampaignHandler handles HTTP requests for campaign management.
type CampaignHandler struct {
	service   CampaignServiceInterface
	validator *validator.Validate
}

// NewCampaignHandler creates a new CampaignHandler with the given service and validator.
func NewCampaignHandler(svc CampaignServiceInterface, v *validator.Validate) *CampaignHandler {
	return &CampaignHandler{service: svc, validator: v}
}

// CreateCampaign handles POST /api/campaigns.
func (h *CampaignHandler) CreateCampaign(c *fiber.Ctx) error {
	var req model.CampaignRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	campaign, err := h.service.Create(c.Context(), &req)
	if err != nil {
		return respondServiceError(c, err, "failed to create campaign")
	}

	log.Info().Int64("campaign_id", campaign.ID).Str("name", campaign.Name).Msg("campaign created")
	return c.Status(fiber.StatusCreated).JSON(campaign)
}

// ListCampaigns handles GET /api/campaigns?page=&page_size=.
func (h *CampaignHandler) ListCampaigns(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	pageSize := c.QueryInt("page_size", service.DefaultPageSize)

	result, err := h.service.List(c.Context(), page, pageSize)
	if err != nil {
		return respondServiceError(c, err, "failed to list campaigns")
	}
	return c.JSON(result)
}

// GetCampaign handles GET /api/campaigns/:id.
func (h *CampaignHandler) GetCampaign(c *fiber.Ctx) error {
	id, ok := campaignID(c)
	if !ok {
		return invalidID(c)
	}

	campaign, err := h.service.Get(c.Context(), id)
	if err != nil {
		return respondServiceError(c, err, "failed to get campaign")
	}
	return c.JSON(campaign)
}

// UpdateCampaign handles PUT /api/campaigns/:id. The body replaces the whole definition.
func (h *CampaignHandler) UpdateCampaign(c *fiber.Ctx) error {
	id, ok := campaignID(c)
	if !ok {
		return invalidID(c)
	}

	var req model.CampaignRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	campaign, err := h.service.Update(c.Context(), id, &req)
	if err != nil {
		return respondServiceError(c, err, "failed to update campaign")
	}
	return c.JSON(campaign)
}

// SetCampaignStatus handles PATCH /api/campaigns/:id/status.
func (h *CampaignHandler) SetCampaignStatus(c *fiber.Ctx) error {
	id, ok := campaignID(c)
	if !ok {
		return invalidID(c)
	}

	var req model.CampaignStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	if err := h.service.SetActive(c.Context(), id, *req.IsActive); err != nil {
		return respondServiceError(c, err, "failed to set campaign status")
	}
	return c.JSON(fiber.Map{"id": id, "is_active": *req.IsActive})
}

// DeleteCampaign handles DELETE /api/campaigns/:id.
func (h *CampaignHandler) DeleteCampaign(c *fiber.Ctx) error {
	id, ok := campaignID(c)
	if !ok {
		return invalidID(c)
	}

	if err := h.service.Delete(c.Context(), id); err != nil {
		return respondServiceError(c, err, "failed to delete campaign")
	}
	return c.SendStatus(fiber.StatusNoContent)
}
