package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/discount-campaign-service/internal/event"
	"github.com/fairyhunter13/discount-campaign-service/internal/model"
)

// Pagination bounds for List.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// CampaignService provides business logic for campaign lifecycle operations.
type CampaignService struct {
	pool           TxBeginner
	campaignRepo   CampaignRepositoryInterface
	redemptionRepo RedemptionRepositoryInterface
	opts           options
}

// NewCampaignService creates a new CampaignService with the given pool and repositories.
func NewCampaignService(pool *pgxpool.Pool, campaignRepo CampaignRepositoryInterface, redemptionRepo RedemptionRepositoryInterface, opts ...Option) *CampaignService {
	return NewCampaignServiceWithTxBeginner(pool, campaignRepo, redemptionRepo, opts...)
}

// NewCampaignServiceWithTxBeginner creates a CampaignService with a custom TxBeginner.
// Primarily used for testing.
func NewCampaignServiceWithTxBeginner(pool TxBeginner, campaignRepo CampaignRepositoryInterface, redemptionRepo RedemptionRepositoryInterface, opts ...Option) *CampaignService {
	return &CampaignService{
		pool:           pool,
		campaignRepo:   campaignRepo,
		redemptionRepo: redemptionRepo,
		opts:           buildOptions(opts),
	}
}

// Create stores a new, active campaign together with its target list.
// Returns ErrCampaignCodeExists if the code is already taken.
// Returns ErrInvalidRequest if request data is nil.
func (s *CampaignService) Create(ctx context.Context, req *model.CampaignRequest) (*model.CampaignResponse, error) {
	if req == nil {
		return nil, ErrInvalidRequest
	}

	c := campaignFromRequest(req)
	c.IsActive = true

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }() // Safe: no-op if committed

	if err := s.campaignRepo.Insert(ctx, tx, c); err != nil {
		if errors.Is(err, ErrCampaignCodeExists) {
			return nil, ErrCampaignCodeExists
		}
		return nil, fmt.Errorf("insert campaign: %w", err)
	}
	if err := s.campaignRepo.ReplaceTargets(ctx, tx, c.ID, c.TargetCustomerIDs); err != nil {
		return nil, fmt.Errorf("insert targets: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	s.changed(ctx, c.ID, event.ActionCreated)

	resp := c.ToResponse()
	return &resp, nil
}

// Get retrieves a campaign with its ledger-derived consumption.
// Returns ErrCampaignNotFound if the campaign doesn't exist.
func (s *CampaignService) Get(ctx context.Context, id int64) (*model.CampaignDetailResponse, error) {
	c, err := s.campaignRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get campaign: %w", err)
	}
	if c == nil {
		return nil, ErrCampaignNotFound
	}

	spent, uses, err := s.redemptionRepo.Stats(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get ledger stats: %w", err)
	}

	remaining := c.TotalBudget.Sub(spent)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}

	return &model.CampaignDetailResponse{
		CampaignResponse: c.ToResponse(),
		SpentBudget:      spent,
		RemainingBudget:  remaining,
		TotalUses:        uses,
	}, nil
}

// List returns one page of campaigns, newest first.
// A zero pageSize selects DefaultPageSize.
// Returns ErrInvalidRequest for page < 1 or pageSize outside 1..MaxPageSize.
func (s *CampaignService) List(ctx context.Context, page, pageSize int) (*model.CampaignPage, error) {
	if pageSize == 0 {
		pageSize = DefaultPageSize
	}
	if page < 1 || pageSize < 1 || pageSize > MaxPageSize {
		return nil, ErrInvalidRequest
	}

	campaigns, total, err := s.campaignRepo.List(ctx, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}

	items := make([]model.CampaignResponse, 0, len(campaigns))
	for i := range campaigns {
		items = append(items, campaigns[i].ToResponse())
	}

	totalPages := (total + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}

	return &model.CampaignPage{
		Items:      items,
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
		TotalPages: totalPages,
	}, nil
}

// Update fully replaces a campaign definition and its target list.
// A nil IsActive keeps the current lifecycle state.
// Returns ErrCampaignNotFound if the campaign doesn't exist.
// Returns ErrCampaignCodeExists if the new code is already taken.
func (s *CampaignService) Update(ctx context.Context, id int64, req *model.CampaignRequest) (*model.CampaignResponse, error) {
	if req == nil {
		return nil, ErrInvalidRequest
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }() // Safe: no-op if committed

	// Lock so the definition does not change under an in-flight redemption
	current, err := s.campaignRepo.GetByIDForUpdate(ctx, tx, id)
	if err != nil {
		if errors.Is(err, ErrCampaignNotFound) {
			return nil, ErrCampaignNotFound
		}
		return nil, fmt.Errorf("get campaign for update: %w", err)
	}

	c := campaignFromRequest(req)
	c.ID = id
	c.IsActive = current.IsActive
	if req.IsActive != nil {
		c.IsActive = *req.IsActive
	}

	if err := s.campaignRepo.Update(ctx, tx, c); err != nil {
		if errors.Is(err, ErrCampaignNotFound) || errors.Is(err, ErrCampaignCodeExists) {
			return nil, err
		}
		return nil, fmt.Errorf("update campaign: %w", err)
	}
	if err := s.campaignRepo.ReplaceTargets(ctx, tx, id, c.TargetCustomerIDs); err != nil {
		return nil, fmt.Errorf("replace targets: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	s.changed(ctx, id, event.ActionUpdated)

	resp := c.ToResponse()
	return &resp, nil
}

// SetActive activates or deactivates a campaign.
// Returns ErrCampaignNotFound if the campaign doesn't exist.
func (s *CampaignService) SetActive(ctx context.Context, id int64, active bool) error {
	if err := s.campaignRepo.SetActive(ctx, id, active); err != nil {
		if errors.Is(err, ErrCampaignNotFound) {
			return ErrCampaignNotFound
		}
		return fmt.Errorf("set campaign status: %w", err)
	}

	action := event.ActionDeactivated
	if active {
		action = event.ActionActivated
	}
	s.changed(ctx, id, action)
	return nil
}

// Delete removes a campaign along with its targets and redemptions.
// Returns ErrCampaignNotFound if the campaign doesn't exist.
func (s *CampaignService) Delete(ctx context.Context, id int64) error {
	if err := s.campaignRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrCampaignNotFound) {
			return ErrCampaignNotFound
		}
		return fmt.Errorf("delete campaign: %w", err)
	}

	s.changed(ctx, id, event.ActionDeleted)
	return nil
}

// changed runs the post-commit side effects of a campaign write. Failures
// are logged only; the write itself already succeeded.
func (s *CampaignService) changed(ctx context.Context, id int64, action event.Action) {
	if s.opts.cache != nil {
		s.opts.cache.Invalidate(ctx)
	}
	if err := s.opts.events.PublishCampaignChanged(ctx, id, action); err != nil {
		log.Error().Err(err).
			Int64("campaign_id", id).
			Str("action", string(action)).
			Msg("failed to publish campaign event")
	}
}

func campaignFromRequest(req *model.CampaignRequest) *model.Campaign {
	targets := dedupe(req.TargetCustomerIDs)
	return &model.Campaign{
		Name:                             req.Name,
		Description:                      req.Description,
		Code:                             req.Code,
		Scope:                            req.Scope,
		ValueType:                        req.ValueType,
		DiscountValue:                    req.DiscountValue,
		MaxDiscountAmount:                req.MaxDiscountAmount,
		StartDate:                        req.StartDate,
		EndDate:                          req.EndDate,
		TotalBudget:                      req.TotalBudget,
		MinCartTotal:                     req.MinCartTotal,
		MinDeliveryCharge:                req.MinDeliveryCharge,
		MaxTransactionsPerCustomerPerDay: req.MaxTransactionsPerCustomerPerDay,
		MaxUsesOverall:                   req.MaxUsesOverall,
		AllowStack:                       req.AllowStack,
		Priority:                         req.Priority,
		TargetCustomerIDs:                targets,
	}
}

// dedupe keeps the first occurrence of each id, preserving order.
func dedupe(ids []string) []string {
	if len(ids) == 0 {
		return []string{}
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
