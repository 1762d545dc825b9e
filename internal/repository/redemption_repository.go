package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/discount-campaign-service/internal/model"
	"github.com/fairyhunter13/discount-campaign-service/internal/service"
	"github.com/fairyhunter13/discount-campaign-service/pkg/database"
)

// RedemptionRepository is the append-only redemption ledger. Spend and
// usage counts are always derived from it.
type RedemptionRepository struct {
	pool PoolInterface
}

// NewRedemptionRepository creates a new RedemptionRepository with the given pool.
func NewRedemptionRepository(pool *pgxpool.Pool) *RedemptionRepository {
	return &RedemptionRepository{pool: pool}
}

// NewRedemptionRepositoryWithPool creates a new RedemptionRepository with a custom pool interface.
// This is primarily used for testing.
func NewRedemptionRepositoryWithPool(pool PoolInterface) *RedemptionRepository {
	return &RedemptionRepository{pool: pool}
}

// SpendToDate sums every discount granted by the campaign.
func (r *RedemptionRepository) SpendToDate(ctx context.Context, q database.TxQuerier, campaignID int64) (decimal.Decimal, error) {
	var spent decimal.Decimal
	err := q.QueryRow(ctx,
		`SELECT COALESCE(SUM(discount_amount), 0) FROM redemptions WHERE campaign_id = $1`,
		campaignID).Scan(&spent)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum spend for campaign %d: %w", campaignID, err)
	}
	return spent, nil
}

// UsageCountToday counts the customer's redemptions of the campaign with
// dayStart <= created_at < dayEnd.
func (r *RedemptionRepository) UsageCountToday(ctx context.Context, q database.TxQuerier, campaignID int64, customerID string, dayStart, dayEnd time.Time) (int, error) {
	var n int
	err := q.QueryRow(ctx,
		`SELECT COUNT(*) FROM redemptions
		WHERE campaign_id = $1 AND customer_id = $2 AND created_at >= $3 AND created_at < $4`,
		campaignID, customerID, dayStart, dayEnd).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count daily usage for campaign %d: %w", campaignID, err)
	}
	return n, nil
}

// UsageCountTotal counts every redemption of the campaign.
func (r *RedemptionRepository) UsageCountTotal(ctx context.Context, q database.TxQuerier, campaignID int64) (int, error) {
	var n int
	err := q.QueryRow(ctx,
		`SELECT COUNT(*) FROM redemptions WHERE campaign_id = $1`,
		campaignID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count usage for campaign %d: %w", campaignID, err)
	}
	return n, nil
}

// FindByOrderRef returns the redemption recorded for orderRef on the campaign.
// Returns nil, nil if there is none.
func (r *RedemptionRepository) FindByOrderRef(ctx context.Context, q database.TxQuerier, campaignID int64, orderRef string) (*model.Redemption, error) {
	query := `SELECT id, campaign_id, customer_id, discount_amount, order_ref, created_at
		FROM redemptions WHERE campaign_id = $1 AND order_ref = $2`

	var red model.Redemption
	err := q.QueryRow(ctx, query, campaignID, orderRef).Scan(
		&red.ID,
		&red.CampaignID,
		&red.CustomerID,
		&red.DiscountAmount,
		&red.OrderRef,
		&red.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find redemption by order ref for campaign %d: %w", campaignID, err)
	}
	return &red, nil
}

// AppendAtomic inserts red only if, counting the ledger at insert time, the
// budget, the overall cap and the customer's daily cap all still hold.
// On success red.ID and red.CreatedAt are filled in.
// Returns service.ErrConcurrencyConflict when the guard rejects the row or
// PostgreSQL reports a serialization failure, deadlock or duplicate order ref.
func (r *RedemptionRepository) AppendAtomic(ctx context.Context, tx database.TxQuerier, red *model.Redemption, limits model.RedemptionLimits) error {
	query := `INSERT INTO redemptions (campaign_id, customer_id, discount_amount, order_ref, created_at)
		SELECT $1::bigint, $2::varchar, $3::numeric, $4::varchar, $5::timestamptz
		WHERE (SELECT COALESCE(SUM(discount_amount), 0) FROM redemptions WHERE campaign_id = $1) + $3::numeric <= $6::numeric
		  AND ($7::int IS NULL OR (SELECT COUNT(*) FROM redemptions WHERE campaign_id = $1) < $7::int)
		  AND (SELECT COUNT(*) FROM redemptions
		       WHERE campaign_id = $1 AND customer_id = $2
		         AND created_at >= $8::timestamptz AND created_at < $9::timestamptz) < $10::int
		RETURNING id, created_at`

	err := tx.QueryRow(ctx, query,
		red.CampaignID, red.CustomerID, red.DiscountAmount, red.OrderRef, red.CreatedAt,
		limits.TotalBudget, limits.MaxUsesOverall,
		limits.DayStart, limits.DayEnd, limits.MaxPerDay,
	).Scan(&red.ID, &red.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || database.IsRetryable(err) || database.IsUniqueViolation(err) {
			return service.ErrConcurrencyConflict
		}
		return fmt.Errorf("append redemption for campaign %d: %w", red.CampaignID, err)
	}
	return nil
}

// Stats returns the campaign's spend to date and redemption count in one read.
func (r *RedemptionRepository) Stats(ctx context.Context, campaignID int64) (decimal.Decimal, int, error) {
	var spent decimal.Decimal
	var uses int
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(discount_amount), 0), COUNT(*) FROM redemptions WHERE campaign_id = $1`,
		campaignID).Scan(&spent, &uses)
	if err != nil {
		return decimal.Zero, 0, fmt.Errorf("ledger stats for campaign %d: %w", campaignID, err)
	}
	return spent, uses, nil
}
