package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/discount-campaign-service/internal/discount"
	"github.com/fairyhunter13/discount-campaign-service/internal/metrics"
	"github.com/fairyhunter13/discount-campaign-service/internal/model"
	"github.com/fairyhunter13/discount-campaign-service/pkg/database"
)

// CampaignRepositoryInterface defines the interface for campaign data access.
type CampaignRepositoryInterface interface {
	Insert(ctx context.Context, q database.TxQuerier, c *model.Campaign) error
	Update(ctx context.Context, q database.TxQuerier, c *model.Campaign) error
	ReplaceTargets(ctx context.Context, q database.TxQuerier, campaignID int64, customerIDs []string) error
	GetByID(ctx context.Context, id int64) (*model.Campaign, error)
	GetByIDForUpdate(ctx context.Context, tx database.TxQuerier, id int64) (*model.Campaign, error)
	ActiveAt(ctx context.Context, at time.Time) ([]model.Campaign, error)
	Unexpired(ctx context.Context, at time.Time) ([]model.Campaign, error)
	List(ctx context.Context, page, pageSize int) ([]model.Campaign, int, error)
	SetActive(ctx context.Context, id int64, active bool) error
	Delete(ctx context.Context, id int64) error
}

// RedemptionRepositoryInterface defines the interface for the redemption ledger.
type RedemptionRepositoryInterface interface {
	SpendToDate(ctx context.Context, q database.TxQuerier, campaignID int64) (decimal.Decimal, error)
	UsageCountToday(ctx context.Context, q database.TxQuerier, campaignID int64, customerID string, dayStart, dayEnd time.Time) (int, error)
	UsageCountTotal(ctx context.Context, q database.TxQuerier, campaignID int64) (int, error)
	FindByOrderRef(ctx context.Context, q database.TxQuerier, campaignID int64, orderRef string) (*model.Redemption, error)
	AppendAtomic(ctx context.Context, tx database.TxQuerier, r *model.Redemption, limits model.RedemptionLimits) error
	Stats(ctx context.Context, campaignID int64) (decimal.Decimal, int, error)
}

// DiscountService resolves and applies campaign discounts.
type DiscountService struct {
	db             DB
	campaignRepo   CampaignRepositoryInterface
	redemptionRepo RedemptionRepositoryInterface
	opts           options
}

// NewDiscountService creates a new DiscountService with the given pool and repositories.
func NewDiscountService(pool *pgxpool.Pool, campaignRepo CampaignRepositoryInterface, redemptionRepo RedemptionRepositoryInterface, opts ...Option) *DiscountService {
	return NewDiscountServiceWithDB(pool, campaignRepo, redemptionRepo, opts...)
}

// NewDiscountServiceWithDB creates a DiscountService with a custom DB.
// Primarily used for testing.
func NewDiscountServiceWithDB(db DB, campaignRepo CampaignRepositoryInterface, redemptionRepo RedemptionRepositoryInterface, opts ...Option) *DiscountService {
	return &DiscountService{
		db:             db,
		campaignRepo:   campaignRepo,
		redemptionRepo: redemptionRepo,
		opts:           buildOptions(opts),
	}
}

// GetAvailableDiscounts lists every campaign the customer could apply to
// this order right now, in priority order, with the discount it would grant.
func (s *DiscountService) GetAvailableDiscounts(ctx context.Context, req *model.DiscountCheckRequest) ([]model.AvailableDiscount, error) {
	if req == nil {
		return nil, ErrInvalidRequest
	}
	return s.Resolve(ctx, req.CustomerID, req.CartTotal, req.DeliveryCharge, s.opts.now())
}

// Resolve is GetAvailableDiscounts evaluated at an explicit instant.
// Ledger reads happen outside any transaction, so the result is advisory.
func (s *DiscountService) Resolve(ctx context.Context, customerID string, cartTotal, deliveryCharge decimal.Decimal, now time.Time) ([]model.AvailableDiscount, error) {
	campaigns, err := s.activeCampaigns(ctx, now)
	if err != nil {
		return nil, err
	}

	usage := s.usage(s.db)
	req := discount.Request{
		CustomerID:     customerID,
		CartTotal:      cartTotal,
		DeliveryCharge: deliveryCharge,
		Now:            now,
	}

	available := []model.AvailableDiscount{}
	for i := range campaigns {
		c := &campaigns[i]

		reason, err := discount.Evaluate(ctx, c, req, usage)
		if err != nil {
			return nil, fmt.Errorf("evaluate campaign %d: %w", c.ID, err)
		}
		if reason != discount.ReasonNone {
			continue
		}

		amount, reason, err := s.quote(ctx, s.db, c, cartTotal, deliveryCharge)
		if err != nil {
			return nil, err
		}
		if reason != discount.ReasonNone {
			continue
		}

		finalCart, finalDelivery := discount.Totals(c.Scope, cartTotal, deliveryCharge, amount)
		available = append(available, model.AvailableDiscount{
			Campaign:            c.ToResponse(),
			ApplicableDiscount:  amount,
			FinalCartTotal:      finalCart,
			FinalDeliveryCharge: finalDelivery,
		})
	}

	metrics.ObserveResolution(len(available))
	return available, nil
}

// ApplyDiscount redeems one campaign against an order.
// The campaign row is locked for the duration of the transaction and the
// ledger re-verifies every limit on insert; a lost race is retried once.
// Returns:
//   - ErrCampaignNotFound if the campaign doesn't exist
//   - *Rejection (matching ErrNotApplicable) when the campaign cannot be applied
func (s *DiscountService) ApplyDiscount(ctx context.Context, req *model.DiscountApplyRequest) (*model.DiscountApplyResponse, error) {
	if req == nil {
		return nil, ErrInvalidRequest
	}

	now := s.opts.now()
	resp, err := s.applyOnce(ctx, req, now)
	if errors.Is(err, ErrConcurrencyConflict) {
		log.Warn().
			Int64("campaign_id", req.CampaignID).
			Str("customer_id", req.CustomerID).
			Msg("redemption lost a race, retrying")
		resp, err = s.applyOnce(ctx, req, now)
		if errors.Is(err, ErrConcurrencyConflict) {
			err = reject(discount.ReasonConflict)
		}
	}

	switch {
	case err == nil && resp.Replayed:
		metrics.ObserveApplication(metrics.OutcomeReplayed, decimal.Zero)
	case err == nil:
		metrics.ObserveApplication(metrics.OutcomeApplied, resp.AppliedDiscount)
	case errors.Is(err, ErrNotApplicable), errors.Is(err, ErrCampaignNotFound):
		metrics.ObserveApplication(metrics.OutcomeRejected, decimal.Zero)
	default:
		metrics.ObserveApplication(metrics.OutcomeError, decimal.Zero)
	}

	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *DiscountService) applyOnce(ctx context.Context, req *model.DiscountApplyRequest, now time.Time) (*model.DiscountApplyResponse, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }() // Safe: no-op if committed

	// 1. Lock the campaign row (SELECT FOR UPDATE)
	c, err := s.campaignRepo.GetByIDForUpdate(ctx, tx, req.CampaignID)
	if err != nil {
		if errors.Is(err, ErrCampaignNotFound) {
			return nil, ErrCampaignNotFound
		}
		if database.IsRetryable(err) {
			return nil, ErrConcurrencyConflict
		}
		return nil, fmt.Errorf("get campaign for update: %w", err)
	}

	// 2. Replay a previously recorded order
	if req.OrderRef != nil {
		prior, err := s.redemptionRepo.FindByOrderRef(ctx, tx, c.ID, *req.OrderRef)
		if err != nil {
			return nil, fmt.Errorf("find order ref: %w", err)
		}
		if prior != nil {
			if prior.CustomerID != req.CustomerID {
				return nil, reject(discount.ReasonOrderRefUsed)
			}
			return s.response(c, req, prior.DiscountAmount, true), nil
		}
	}

	// 3. Eligibility against the locked snapshot
	reason, err := discount.Evaluate(ctx, c, discount.Request{
		CustomerID:     req.CustomerID,
		CartTotal:      req.CartTotal,
		DeliveryCharge: req.DeliveryCharge,
		Now:            now,
	}, s.usage(tx))
	if err != nil {
		return nil, fmt.Errorf("evaluate campaign %d: %w", c.ID, err)
	}
	if reason != discount.ReasonNone {
		return nil, reject(reason)
	}

	// 4. Price it against the remaining budget
	amount, reason, err := s.quote(ctx, tx, c, req.CartTotal, req.DeliveryCharge)
	if err != nil {
		return nil, err
	}
	if reason != discount.ReasonNone {
		return nil, reject(reason)
	}

	// 5. Append to the ledger (guard re-checks every cap)
	red := &model.Redemption{
		CampaignID:     c.ID,
		CustomerID:     req.CustomerID,
		DiscountAmount: amount,
		OrderRef:       req.OrderRef,
		CreatedAt:      now,
	}
	if err := s.redemptionRepo.AppendAtomic(ctx, tx, red, s.limits(c, now)); err != nil {
		if errors.Is(err, ErrConcurrencyConflict) {
			return nil, ErrConcurrencyConflict
		}
		return nil, fmt.Errorf("append redemption: %w", err)
	}

	// 6. Commit
	if err := tx.Commit(ctx); err != nil {
		if database.IsRetryable(err) {
			return nil, ErrConcurrencyConflict
		}
		return nil, fmt.Errorf("commit: %w", err)
	}

	if err := s.opts.events.PublishRedemption(ctx, c, red); err != nil {
		log.Error().Err(err).
			Int64("campaign_id", c.ID).
			Int64("redemption_id", red.ID).
			Msg("failed to publish redemption event")
	}

	log.Info().
		Int64("campaign_id", c.ID).
		Str("customer_id", red.CustomerID).
		Str("discount", amount.StringFixed(2)).
		Msg("discount applied")

	return s.response(c, req, amount, false), nil
}

// quote prices a campaign against its remaining budget. A non-empty Reason
// means the campaign yields nothing.
func (s *DiscountService) quote(ctx context.Context, q database.TxQuerier, c *model.Campaign, cartTotal, deliveryCharge decimal.Decimal) (decimal.Decimal, discount.Reason, error) {
	spent, err := s.redemptionRepo.SpendToDate(ctx, q, c.ID)
	if err != nil {
		return decimal.Zero, discount.ReasonNone, fmt.Errorf("spend to date: %w", err)
	}

	remaining := c.TotalBudget.Sub(spent)
	if !remaining.IsPositive() {
		return decimal.Zero, discount.ReasonBudgetExhausted, nil
	}

	amount := discount.ForCampaign(c, cartTotal, deliveryCharge, remaining)
	if !amount.IsPositive() {
		return decimal.Zero, discount.ReasonNoDiscount, nil
	}
	return amount, discount.ReasonNone, nil
}

func (s *DiscountService) response(c *model.Campaign, req *model.DiscountApplyRequest, amount decimal.Decimal, replayed bool) *model.DiscountApplyResponse {
	finalCart, finalDelivery := discount.Totals(c.Scope, req.CartTotal, req.DeliveryCharge, amount)
	return &model.DiscountApplyResponse{
		CampaignID:          c.ID,
		CustomerID:          req.CustomerID,
		AppliedDiscount:     amount,
		FinalCartTotal:      finalCart,
		FinalDeliveryCharge: finalDelivery,
		Replayed:            replayed,
	}
}

func (s *DiscountService) limits(c *model.Campaign, now time.Time) model.RedemptionLimits {
	dayStart, dayEnd := dayBounds(now, s.opts.loc)
	return model.RedemptionLimits{
		TotalBudget:    c.TotalBudget,
		MaxUsesOverall: c.MaxUsesOverall,
		MaxPerDay:      c.MaxTransactionsPerCustomerPerDay,
		DayStart:       dayStart,
		DayEnd:         dayEnd,
	}
}

// activeCampaigns returns the campaigns active at now. The cache holds every
// unexpired campaign, so one that starts while an entry is live is still
// picked up once now reaches its start date.
func (s *DiscountService) activeCampaigns(ctx context.Context, now time.Time) ([]model.Campaign, error) {
	if s.opts.cache == nil {
		campaigns, err := s.campaignRepo.ActiveAt(ctx, now)
		if err != nil {
			return nil, fmt.Errorf("active campaigns: %w", err)
		}
		return campaigns, nil
	}

	candidates, ok := s.opts.cache.Get(ctx, now)
	if !ok {
		var err error
		candidates, err = s.campaignRepo.Unexpired(ctx, now)
		if err != nil {
			return nil, fmt.Errorf("active campaigns: %w", err)
		}
		s.opts.cache.Set(ctx, now, candidates)
	}

	active := make([]model.Campaign, 0, len(candidates))
	for _, c := range candidates {
		if discount.CheckWindow(&c, now) == discount.ReasonNone {
			active = append(active, c)
		}
	}
	return active, nil
}

func (s *DiscountService) usage(q database.TxQuerier) discount.UsageSource {
	return ledgerUsage{ledger: s.redemptionRepo, q: q, loc: s.opts.loc}
}

// ledgerUsage adapts the redemption ledger to discount.UsageSource, reading
// through q so apply sees its own locked transaction.
type ledgerUsage struct {
	ledger RedemptionRepositoryInterface
	q      database.TxQuerier
	loc    *time.Location
}

func (u ledgerUsage) UsageToday(ctx context.Context, campaignID int64, customerID string, now time.Time) (int, error) {
	dayStart, dayEnd := dayBounds(now, u.loc)
	n, err := u.ledger.UsageCountToday(ctx, u.q, campaignID, customerID, dayStart, dayEnd)
	if err != nil {
		return 0, fmt.Errorf("daily usage: %w", err)
	}
	return n, nil
}

func (u ledgerUsage) UsageTotal(ctx context.Context, campaignID int64) (int, error) {
	n, err := u.ledger.UsageCountTotal(ctx, u.q, campaignID)
	if err != nil {
		return 0, fmt.Errorf("overall usage: %w", err)
	}
	return n, nil
}
