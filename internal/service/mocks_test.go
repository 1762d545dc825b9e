package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/discount-campaign-service/internal/event"
	"github.com/fairyhunter13/discount-campaign-service/internal/model"
	"github.com/fairyhunter13/discount-campaign-service/pkg/database"
)

// mockCampaignRepository is a mock implementation of CampaignRepositoryInterface.
type mockCampaignRepository struct {
	insertFn           func(ctx context.Context, q database.TxQuerier, c *model.Campaign) error
	updateFn           func(ctx context.Context, q database.TxQuerier, c *model.Campaign) error
	replaceTargetsFn   func(ctx context.Context, q database.TxQuerier, campaignID int64, customerIDs []string) error
	getByIDFn          func(ctx context.Context, id int64) (*model.Campaign, error)
	getByIDForUpdateFn func(ctx context.Context, tx database.TxQuerier, id int64) (*model.Campaign, error)
	activeAtFn         func(ctx context.Context, at time.Time) ([]model.Campaign, error)
	unexpiredFn        func(ctx context.Context, at time.Time) ([]model.Campaign, error)
	listFn             func(ctx context.Context, page, pageSize int) ([]model.Campaign, int, error)
	setActiveFn        func(ctx context.Context, id int64, active bool) error
	deleteFn           func(ctx context.Context, id int64) error
}

func (m *mockCampaignRepository) Insert(ctx context.Context, q database.TxQuerier, c *model.Campaign) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, q, c)
	}
	return nil
}

func (m *mockCampaignRepository) Update(ctx context.Context, q database.TxQuerier, c *model.Campaign) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, q, c)
	}
	return nil
}

func (m *mockCampaignRepository) ReplaceTargets(ctx context.Context, q database.TxQuerier, campaignID int64, customerIDs []string) error {
	if m.replaceTargetsFn != nil {
		return m.replaceTargetsFn(ctx, q, campaignID, customerIDs)
	}
	return nil
}

func (m *mockCampaignRepository) GetByID(ctx context.Context, id int64) (*model.Campaign, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockCampaignRepository) GetByIDForUpdate(ctx context.Context, tx database.TxQuerier, id int64) (*model.Campaign, error) {
	if m.getByIDForUpdateFn != nil {
		return m.getByIDForUpdateFn(ctx, tx, id)
	}
	return nil, ErrCampaignNotFound
}

func (m *mockCampaignRepository) ActiveAt(ctx context.Context, at time.Time) ([]model.Campaign, error) {
	if m.activeAtFn != nil {
		return m.activeAtFn(ctx, at)
	}
	return []model.Campaign{}, nil
}

func (m *mockCampaignRepository) Unexpired(ctx context.Context, at time.Time) ([]model.Campaign, error) {
	if m.unexpiredFn != nil {
		return m.unexpiredFn(ctx, at)
	}
	return []model.Campaign{}, nil
}

func (m *mockCampaignRepository) List(ctx context.Context, page, pageSize int) ([]model.Campaign, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, page, pageSize)
	}
	return []model.Campaign{}, 0, nil
}

func (m *mockCampaignRepository) SetActive(ctx context.Context, id int64, active bool) error {
	if m.setActiveFn != nil {
		return m.setActiveFn(ctx, id, active)
	}
	return nil
}

func (m *mockCampaignRepository) Delete(ctx context.Context, id int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

// mockRedemptionRepository is a mock implementation of RedemptionRepositoryInterface.
type mockRedemptionRepository struct {
	spendToDateFn     func(ctx context.Context, q database.TxQuerier, campaignID int64) (decimal.Decimal, error)
	usageCountTodayFn func(ctx context.Context, q database.TxQuerier, campaignID int64, customerID string, dayStart, dayEnd time.Time) (int, error)
	usageCountTotalFn func(ctx context.Context, q database.TxQuerier, campaignID int64) (int, error)
	findByOrderRefFn  func(ctx context.Context, q database.TxQuerier, campaignID int64, orderRef string) (*model.Redemption, error)
	appendAtomicFn    func(ctx context.Context, tx database.TxQuerier, r *model.Redemption, limits model.RedemptionLimits) error
	statsFn           func(ctx context.Context, campaignID int64) (decimal.Decimal, int, error)
}

func (m *mockRedemptionRepository) SpendToDate(ctx context.Context, q database.TxQuerier, campaignID int64) (decimal.Decimal, error) {
	if m.spendToDateFn != nil {
		return m.spendToDateFn(ctx, q, campaignID)
	}
	return decimal.Zero, nil
}

func (m *mockRedemptionRepository) UsageCountToday(ctx context.Context, q database.TxQuerier, campaignID int64, customerID string, dayStart, dayEnd time.Time) (int, error) {
	if m.usageCountTodayFn != nil {
		return m.usageCountTodayFn(ctx, q, campaignID, customerID, dayStart, dayEnd)
	}
	return 0, nil
}

func (m *mockRedemptionRepository) UsageCountTotal(ctx context.Context, q database.TxQuerier, campaignID int64) (int, error) {
	if m.usageCountTotalFn != nil {
		return m.usageCountTotalFn(ctx, q, campaignID)
	}
	return 0, nil
}

func (m *mockRedemptionRepository) FindByOrderRef(ctx context.Context, q database.TxQuerier, campaignID int64, orderRef string) (*model.Redemption, error) {
	if m.findByOrderRefFn != nil {
		return m.findByOrderRefFn(ctx, q, campaignID, orderRef)
	}
	return nil, nil
}

func (m *mockRedemptionRepository) AppendAtomic(ctx context.Context, tx database.TxQuerier, r *model.Redemption, limits model.RedemptionLimits) error {
	if m.appendAtomicFn != nil {
		return m.appendAtomicFn(ctx, tx, r, limits)
	}
	return nil
}

func (m *mockRedemptionRepository) Stats(ctx context.Context, campaignID int64) (decimal.Decimal, int, error) {
	if m.statsFn != nil {
		return m.statsFn(ctx, campaignID)
	}
	return decimal.Zero, 0, nil
}

// mockTx is a mock implementation of pgx.Tx for testing transactions.
type mockTx struct {
	commitFn   func(ctx context.Context) error
	rollbackFn func(ctx context.Context) error
	committed  bool
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) {
	return nil, errors.New("nested transactions not supported")
}

func (m *mockTx) Commit(ctx context.Context) error {
	if m.commitFn != nil {
		return m.commitFn(ctx)
	}
	m.committed = true
	return nil
}

func (m *mockTx) Rollback(ctx context.Context) error {
	if m.rollbackFn != nil {
		return m.rollbackFn(ctx)
	}
	return nil
}

func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}

func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	return nil
}

func (m *mockTx) LargeObjects() pgx.LargeObjects {
	return pgx.LargeObjects{}
}

func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}

func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}

func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}

func (m *mockTx) Conn() *pgx.Conn {
	return nil
}

// mockDB is a mock implementation of DB. Reads are served by the repository
// mocks, so only Begin carries behavior.
type mockDB struct {
	beginFn func(ctx context.Context) (pgx.Tx, error)
	begins  int
}

func (m *mockDB) Begin(ctx context.Context) (pgx.Tx, error) {
	m.begins++
	if m.beginFn != nil {
		return m.beginFn(ctx)
	}
	return &mockTx{}, nil
}

func (m *mockDB) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (m *mockDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}

func (m *mockDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}

// mockCache is a mock implementation of ActiveCampaignCache.
type mockCache struct {
	campaigns   []model.Campaign
	hit         bool
	sets        int
	filledAt    time.Time
	invalidated int
}

func (m *mockCache) Get(ctx context.Context, at time.Time) ([]model.Campaign, bool) {
	return m.campaigns, m.hit
}

func (m *mockCache) Set(ctx context.Context, filledAt time.Time, campaigns []model.Campaign) {
	m.sets++
	m.filledAt = filledAt
	m.campaigns = campaigns
}

func (m *mockCache) Invalidate(ctx context.Context) {
	m.invalidated++
}

// mockPublisher is a mock implementation of EventPublisher.
type mockPublisher struct {
	redemptions []*model.Redemption
	changes     []event.Action
	err         error
}

func (m *mockPublisher) PublishRedemption(ctx context.Context, c *model.Campaign, r *model.Redemption) error {
	m.redemptions = append(m.redemptions, r)
	return m.err
}

func (m *mockPublisher) PublishCampaignChanged(ctx context.Context, campaignID int64, action event.Action) error {
	m.changes = append(m.changes, action)
	return m.err
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func intPtr(i int) *int {
	return &i
}

func strPtr(s string) *string {
	return &s
}
