package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/discount-campaign-service/internal/model"
)

// mockCampaignService is a mock implementation of CampaignServiceInterface.
type mockCampaignService struct {
	createFn    func(ctx context.Context, req *model.CampaignRequest) (*model.CampaignResponse, error)
	getFn       func(ctx context.Context, id int64) (*model.CampaignDetailResponse, error)
	listFn      func(ctx context.Context, page, pageSize int) (*model.CampaignPage, error)
	updateFn    func(ctx context.Context, id int64, req *model.CampaignRequest) (*model.CampaignResponse, error)
	setActiveFn func(ctx context.Context, id int64, active bool) error
	deleteFn    func(ctx context.Context, id int64) error
}

func (m *mockCampaignService) Create(ctx context.Context, req *model.CampaignRequest) (*model.CampaignResponse, error) {
	if m.createFn != nil {
		return m.createFn(ctx, req)
	}
	return &model.CampaignResponse{ID: 1, Name: req.Name}, nil
}

func (m *mockCampaignService) Get(ctx context.Context, id int64) (*model.CampaignDetailResponse, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return &model.CampaignDetailResponse{CampaignResponse: model.CampaignResponse{ID: id}}, nil
}

func (m *mockCampaignService) List(ctx context.Context, page, pageSize int) (*model.CampaignPage, error) {
	if m.listFn != nil {
		return m.listFn(ctx, page, pageSize)
	}
	return &model.CampaignPage{Items: []model.CampaignResponse{}, Page: page, PageSize: pageSize, TotalPages: 1}, nil
}

func (m *mockCampaignService) Update(ctx context.Context, id int64, req *model.CampaignRequest) (*model.CampaignResponse, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, req)
	}
	return &model.CampaignResponse{ID: id, Name: req.Name}, nil
}

func (m *mockCampaignService) SetActive(ctx context.Context, id int64, active bool) error {
	if m.setActiveFn != nil {
		return m.setActiveFn(ctx, id, active)
	}
	return nil
}

func (m *mockCampaignService) Delete(ctx context.Context, id int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

// mockDiscountService is a mock implementation of DiscountServiceInterface.
type mockDiscountService struct {
	availableFn func(ctx context.Context, req *model.DiscountCheckRequest) ([]model.AvailableDiscount, error)
	applyFn     func(ctx context.Context, req *model.DiscountApplyRequest) (*model.DiscountApplyResponse, error)
}

func (m *mockDiscountService) GetAvailableDiscounts(ctx context.Context, req *model.DiscountCheckRequest) ([]model.AvailableDiscount, error) {
	if m.availableFn != nil {
		return m.availableFn(ctx, req)
	}
	return []model.AvailableDiscount{}, nil
}

func (m *mockDiscountService) ApplyDiscount(ctx context.Context, req *model.DiscountApplyRequest) (*model.DiscountApplyResponse, error) {
	if m.applyFn != nil {
		return m.applyFn(ctx, req)
	}
	return &model.DiscountApplyResponse{CampaignID: req.CampaignID, CustomerID: req.CustomerID}, nil
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer func() {
		_ = resp.Body.Close()
	}()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out), "body: %s", raw)
	return out
}

func readAll(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer func() {
		_ = resp.Body.Close()
	}()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(raw)
}
