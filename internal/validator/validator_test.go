package validator

import (
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/discount-campaign-service/internal/model"
)

// TestNew verifies that New() returns a properly configured validator
func TestNew(t *testing.T) {
	v := New()
	require.NotNil(t, v, "New() should return a non-nil validator")
}

// TestNotblankValidator tests the custom notblank validation
func TestNotblankValidator(t *testing.T) {
	v := New()

	type TestStruct struct {
		Name string `validate:"notblank"`
	}

	testCases := []struct {
		name        string
		input       string
		expectError bool
	}{
		{"valid_string", "valid", false},
		{"valid_with_spaces", "  valid  ", false},
		{"whitespace_only_spaces", "   ", true},
		{"whitespace_only_tabs", "\t\t", true},
		{"whitespace_mixed", " \t\n ", true},
		{"empty_string", "", true},
		{"unicode_content", "日本語", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := v.Struct(TestStruct{Name: tc.input})

			if tc.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// TestNotblankOnNonStringField tests that notblank handles non-string fields gracefully
func TestNotblankOnNonStringField(t *testing.T) {
	v := New()

	type TestStructInt struct {
		Value int `validate:"notblank"`
	}

	err := v.Struct(TestStructInt{Value: 0})
	assert.NoError(t, err, "notblank should pass for non-string types")
}

func validCampaign() model.CampaignRequest {
	return model.CampaignRequest{
		Name:                             "Summer",
		Scope:                            model.ScopeCart,
		ValueType:                        model.ValueTypePercent,
		DiscountValue:                    decimal.RequireFromString("10"),
		MaxDiscountAmount:                decimal.NewNullDecimal(decimal.RequireFromString("50")),
		StartDate:                        time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		EndDate:                          time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC),
		TotalBudget:                      decimal.RequireFromString("1000"),
		MaxTransactionsPerCustomerPerDay: 1,
	}
}

// failures returns "field:tag" for every reported error.
func failures(t *testing.T, err error) []string {
	t.Helper()
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	require.True(t, errors.As(err, &ve), "expected ValidationErrors, got %T", err)
	out := make([]string, 0, len(ve))
	for _, fe := range ve {
		out = append(out, fe.Field()+":"+fe.Tag())
	}
	return out
}

func TestCampaignRequestRules(t *testing.T) {
	v := New()

	tests := []struct {
		name   string
		mutate func(r *model.CampaignRequest)
		want   []string
	}{
		{name: "valid", mutate: func(r *model.CampaignRequest) {}},
		{name: "flat above 100 is fine", mutate: func(r *model.CampaignRequest) {
			r.ValueType = model.ValueTypeFlat
			r.DiscountValue = decimal.RequireFromString("15000")
			r.MaxDiscountAmount = decimal.NullDecimal{}
			r.TotalBudget = decimal.RequireFromString("1000000")
		}},
		{name: "blank name", mutate: func(r *model.CampaignRequest) { r.Name = "  " }, want: []string{"name:notblank"}},
		{name: "unknown scope", mutate: func(r *model.CampaignRequest) { r.Scope = "shipping" }, want: []string{"discount_scope:oneof"}},
		{name: "unknown value type", mutate: func(r *model.CampaignRequest) { r.ValueType = "bogo" }, want: []string{"discount_value_type:oneof"}},
		{name: "zero value", mutate: func(r *model.CampaignRequest) { r.DiscountValue = decimal.Zero }, want: []string{"discount_value:gt"}},
		{name: "percent above 100", mutate: func(r *model.CampaignRequest) { r.DiscountValue = decimal.RequireFromString("100.01") }, want: []string{"discount_value:lte"}},
		{name: "zero budget", mutate: func(r *model.CampaignRequest) {
			r.TotalBudget = decimal.Zero
			r.MaxDiscountAmount = decimal.NullDecimal{}
		}, want: []string{"total_budget:gt"}},
		{name: "cap above budget", mutate: func(r *model.CampaignRequest) {
			r.MaxDiscountAmount = decimal.NewNullDecimal(decimal.RequireFromString("1000.01"))
		}, want: []string{"max_discount_amount:ltefield"}},
		{name: "non-positive cap", mutate: func(r *model.CampaignRequest) {
			r.MaxDiscountAmount = decimal.NewNullDecimal(decimal.Zero)
		}, want: []string{"max_discount_amount:gt"}},
		{name: "negative minimums", mutate: func(r *model.CampaignRequest) {
			r.MinCartTotal = decimal.NewNullDecimal(decimal.RequireFromString("-1"))
			r.MinDeliveryCharge = decimal.NewNullDecimal(decimal.RequireFromString("-0.01"))
		}, want: []string{"min_cart_total:gte", "min_delivery_charge:gte"}},
		{name: "zero minimums allowed", mutate: func(r *model.CampaignRequest) {
			r.MinCartTotal = decimal.NewNullDecimal(decimal.Zero)
		}},
		{name: "end equals start", mutate: func(r *model.CampaignRequest) { r.EndDate = r.StartDate }, want: []string{"end_date:gtfield"}},
		{name: "missing start", mutate: func(r *model.CampaignRequest) { r.StartDate = time.Time{} }, want: []string{"start_date:required"}},
		{name: "zero daily cap", mutate: func(r *model.CampaignRequest) { r.MaxTransactionsPerCustomerPerDay = 0 }, want: []string{"max_transactions_per_customer_per_day:required"}},
		{name: "zero overall cap", mutate: func(r *model.CampaignRequest) {
			zero := 0
			r.MaxUsesOverall = &zero
		}, want: []string{"max_uses_overall:gt"}},
		{name: "short code", mutate: func(r *model.CampaignRequest) {
			code := "AB"
			r.Code = &code
		}, want: []string{"code:min"}},
		{name: "blank target", mutate: func(r *model.CampaignRequest) { r.TargetCustomerIDs = []string{"cust-1", " "} }, want: []string{"target_customer_ids[1]:notblank"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validCampaign()
			tt.mutate(&req)

			got := failures(t, v.Struct(req))

			assert.ElementsMatch(t, tt.want, got)
		})
	}
}

func TestOrderTotalsRules(t *testing.T) {
	v := New()

	check := model.DiscountCheckRequest{
		CustomerID:     "cust-1",
		CartTotal:      decimal.RequireFromString("-5"),
		DeliveryCharge: decimal.Zero,
	}
	assert.ElementsMatch(t, []string{"cart_total:gte"}, failures(t, v.Struct(check)))

	apply := model.DiscountApplyRequest{
		CampaignID:     1,
		CustomerID:     "cust-1",
		CartTotal:      decimal.Zero,
		DeliveryCharge: decimal.RequireFromString("-1"),
	}
	assert.ElementsMatch(t, []string{"delivery_charge:gte"}, failures(t, v.Struct(apply)))

	apply.DeliveryCharge = decimal.Zero
	apply.CampaignID = 0
	apply.CustomerID = ""
	assert.ElementsMatch(t, []string{"campaign_id:required", "customer_id:required"}, failures(t, v.Struct(apply)))
}
