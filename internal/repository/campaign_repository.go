package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairyhunter13/discount-campaign-service/internal/model"
	"github.com/fairyhunter13/discount-campaign-service/internal/service"
	"github.com/fairyhunter13/discount-campaign-service/pkg/database"
)

// PoolInterface defines the database operations needed by repositories.
// This allows for easier testing with mocks.
type PoolInterface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// campaignColumns is the projection scanCampaign expects. The alias c must
// refer to the campaigns table.
const campaignColumns = `c.id, c.name, c.description, c.code,
	c.discount_scope, c.discount_value_type, c.discount_value, c.max_discount_amount,
	c.start_date, c.end_date, c.total_budget,
	c.min_cart_total, c.min_delivery_charge,
	c.max_transactions_per_customer_per_day, c.max_uses_overall,
	c.allow_stack_with_other_discounts, c.priority, c.is_active,
	c.created_at, c.updated_at,
	ARRAY(SELECT t.customer_id FROM campaign_targets t WHERE t.campaign_id = c.id ORDER BY t.customer_id)`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCampaign(row rowScanner) (*model.Campaign, error) {
	var c model.Campaign
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Description,
		&c.Code,
		&c.Scope,
		&c.ValueType,
		&c.DiscountValue,
		&c.MaxDiscountAmount,
		&c.StartDate,
		&c.EndDate,
		&c.TotalBudget,
		&c.MinCartTotal,
		&c.MinDeliveryCharge,
		&c.MaxTransactionsPerCustomerPerDay,
		&c.MaxUsesOverall,
		&c.AllowStack,
		&c.Priority,
		&c.IsActive,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.TargetCustomerIDs,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CampaignRepository provides data access for campaigns and their target lists using pgx.
type CampaignRepository struct {
	pool PoolInterface
}

// NewCampaignRepository creates a new CampaignRepository with the given pool.
func NewCampaignRepository(pool *pgxpool.Pool) *CampaignRepository {
	return &CampaignRepository{pool: pool}
}

// NewCampaignRepositoryWithPool creates a new CampaignRepository with a custom pool interface.
// This is primarily used for testing.
func NewCampaignRepositoryWithPool(pool PoolInterface) *CampaignRepository {
	return &CampaignRepository{pool: pool}
}

// Insert stores a new campaign and fills in its generated ID and timestamps.
// Targets are written separately with ReplaceTargets.
// Returns service.ErrCampaignCodeExists if the code is already taken.
func (r *CampaignRepository) Insert(ctx context.Context, q database.TxQuerier, c *model.Campaign) error {
	query := `INSERT INTO campaigns (
			name, description, code, discount_scope, discount_value_type, discount_value,
			max_discount_amount, start_date, end_date, total_budget, min_cart_total,
			min_delivery_charge, max_transactions_per_customer_per_day, max_uses_overall,
			allow_stack_with_other_discounts, priority, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id, created_at, updated_at`

	err := q.QueryRow(ctx, query,
		c.Name, c.Description, c.Code, string(c.Scope), string(c.ValueType), c.DiscountValue,
		c.MaxDiscountAmount, c.StartDate, c.EndDate, c.TotalBudget, c.MinCartTotal,
		c.MinDeliveryCharge, c.MaxTransactionsPerCustomerPerDay, c.MaxUsesOverall,
		c.AllowStack, c.Priority, c.IsActive,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return service.ErrCampaignCodeExists
		}
		return fmt.Errorf("insert campaign: %w", err)
	}
	return nil
}

// Update fully replaces the stored definition of c.
// Returns service.ErrCampaignNotFound when no row matched.
func (r *CampaignRepository) Update(ctx context.Context, q database.TxQuerier, c *model.Campaign) error {
	query := `UPDATE campaigns SET
			name = $2, description = $3, code = $4, discount_scope = $5, discount_value_type = $6,
			discount_value = $7, max_discount_amount = $8, start_date = $9, end_date = $10,
			total_budget = $11, min_cart_total = $12, min_delivery_charge = $13,
			max_transactions_per_customer_per_day = $14, max_uses_overall = $15,
			allow_stack_with_other_discounts = $16, priority = $17, is_active = $18,
			updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`

	err := q.QueryRow(ctx, query,
		c.ID, c.Name, c.Description, c.Code, string(c.Scope), string(c.ValueType),
		c.DiscountValue, c.MaxDiscountAmount, c.StartDate, c.EndDate,
		c.TotalBudget, c.MinCartTotal, c.MinDeliveryCharge,
		c.MaxTransactionsPerCustomerPerDay, c.MaxUsesOverall,
		c.AllowStack, c.Priority, c.IsActive,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return service.ErrCampaignNotFound
		}
		if database.IsUniqueViolation(err) {
			return service.ErrCampaignCodeExists
		}
		return fmt.Errorf("update campaign %d: %w", c.ID, err)
	}
	return nil
}

// ReplaceTargets swaps the campaign's target customer list for customerIDs.
// An empty list leaves the campaign open to everyone.
func (r *CampaignRepository) ReplaceTargets(ctx context.Context, q database.TxQuerier, campaignID int64, customerIDs []string) error {
	if _, err := q.Exec(ctx, `DELETE FROM campaign_targets WHERE campaign_id = $1`, campaignID); err != nil {
		return fmt.Errorf("clear targets for campaign %d: %w", campaignID, err)
	}
	if len(customerIDs) == 0 {
		return nil
	}

	query := `INSERT INTO campaign_targets (campaign_id, customer_id)
		SELECT $1, t.customer_id FROM unnest($2::text[]) AS t(customer_id)
		ON CONFLICT (campaign_id, customer_id) DO NOTHING`
	if _, err := q.Exec(ctx, query, campaignID, customerIDs); err != nil {
		return fmt.Errorf("insert targets for campaign %d: %w", campaignID, err)
	}
	return nil
}

// GetByID retrieves a campaign with its targets.
// Returns nil, nil if the campaign is not found (service layer handles this).
func (r *CampaignRepository) GetByID(ctx context.Context, id int64) (*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns c WHERE c.id = $1`

	c, err := scanCampaign(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found - let service handle
		}
		return nil, fmt.Errorf("get campaign %d: %w", id, err)
	}
	return c, nil
}

// GetByIDForUpdate retrieves a campaign with a row lock (SELECT FOR UPDATE).
// This serializes redemptions of the same campaign until the transaction completes.
// Returns service.ErrCampaignNotFound if the campaign doesn't exist.
func (r *CampaignRepository) GetByIDForUpdate(ctx context.Context, tx database.TxQuerier, id int64) (*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns c WHERE c.id = $1 FOR UPDATE OF c`

	c, err := scanCampaign(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrCampaignNotFound
		}
		return nil, fmt.Errorf("get campaign for update %d: %w", id, err)
	}
	return c, nil
}

// ActiveAt returns the active campaigns whose window contains at, in
// resolution order: priority descending, then id ascending.
func (r *CampaignRepository) ActiveAt(ctx context.Context, at time.Time) ([]model.Campaign, error) {
	campaigns, err := r.activeWhere(ctx, `c.start_date <= $1 AND c.end_date >= $1`, at)
	if err != nil {
		return nil, fmt.Errorf("active campaigns: %w", err)
	}
	return campaigns, nil
}

// Unexpired returns the active campaigns that have not ended by at,
// including those that start later, in resolution order.
func (r *CampaignRepository) Unexpired(ctx context.Context, at time.Time) ([]model.Campaign, error) {
	campaigns, err := r.activeWhere(ctx, `c.end_date >= $1`, at)
	if err != nil {
		return nil, fmt.Errorf("unexpired campaigns: %w", err)
	}
	return campaigns, nil
}

func (r *CampaignRepository) activeWhere(ctx context.Context, window string, at time.Time) ([]model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns c
		WHERE c.is_active AND ` + window + `
		ORDER BY c.priority DESC, c.id ASC`

	rows, err := r.pool.Query(ctx, query, at)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	campaigns, err := collectCampaigns(rows)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	return campaigns, nil
}

// List returns one page of campaigns, newest first, and the total row count.
func (r *CampaignRepository) List(ctx context.Context, page, pageSize int) ([]model.Campaign, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM campaigns`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count campaigns: %w", err)
	}

	query := `SELECT ` + campaignColumns + ` FROM campaigns c
		ORDER BY c.id DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	campaigns, err := collectCampaigns(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("scan campaigns: %w", err)
	}
	return campaigns, total, nil
}

// SetActive flips the lifecycle flag. Returns service.ErrCampaignNotFound when no row matched.
func (r *CampaignRepository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE campaigns SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("set campaign %d active=%t: %w", id, active, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrCampaignNotFound
	}
	return nil
}

// Delete removes a campaign; targets and redemptions cascade.
// Returns service.ErrCampaignNotFound when no row matched.
func (r *CampaignRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM campaigns WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete campaign %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrCampaignNotFound
	}
	return nil
}

func collectCampaigns(rows pgx.Rows) ([]model.Campaign, error) {
	campaigns := []model.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return campaigns, nil
}
