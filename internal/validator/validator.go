package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/discount-campaign-service/internal/model"
)

var hundred = decimal.NewFromInt(100)

// New creates a new validator instance with custom validations registered.
// This ensures consistent validation across the application and tests.
// Field names in reported errors are the JSON names.
func New() *validator.Validate {
	v := validator.New()

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	// Register custom "notblank" validator - rejects whitespace-only strings
	// This is used for fields like campaign names and customer ids that must have meaningful content
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		str, ok := fl.Field().Interface().(string)
		if !ok {
			return true // Not a string, let other validators handle it
		}
		return strings.TrimSpace(str) != ""
	})

	// Decimal amounts have no tag support, so their rules live at struct level
	v.RegisterStructValidation(validateCampaignRequest, model.CampaignRequest{})
	v.RegisterStructValidation(validateOrderTotals, model.DiscountCheckRequest{}, model.DiscountApplyRequest{})

	return v
}

func validateCampaignRequest(sl validator.StructLevel) {
	req := sl.Current().Interface().(model.CampaignRequest)

	switch {
	case !req.DiscountValue.IsPositive():
		sl.ReportError(req.DiscountValue, "discount_value", "DiscountValue", "gt", "0")
	case req.ValueType == model.ValueTypePercent && req.DiscountValue.GreaterThan(hundred):
		sl.ReportError(req.DiscountValue, "discount_value", "DiscountValue", "lte", "100")
	}

	if !req.TotalBudget.IsPositive() {
		sl.ReportError(req.TotalBudget, "total_budget", "TotalBudget", "gt", "0")
	}

	if req.MaxDiscountAmount.Valid {
		switch {
		case !req.MaxDiscountAmount.Decimal.IsPositive():
			sl.ReportError(req.MaxDiscountAmount, "max_discount_amount", "MaxDiscountAmount", "gt", "0")
		case req.MaxDiscountAmount.Decimal.GreaterThan(req.TotalBudget):
			sl.ReportError(req.MaxDiscountAmount, "max_discount_amount", "MaxDiscountAmount", "ltefield", "total_budget")
		}
	}

	if req.MinCartTotal.Valid && req.MinCartTotal.Decimal.IsNegative() {
		sl.ReportError(req.MinCartTotal, "min_cart_total", "MinCartTotal", "gte", "0")
	}
	if req.MinDeliveryCharge.Valid && req.MinDeliveryCharge.Decimal.IsNegative() {
		sl.ReportError(req.MinDeliveryCharge, "min_delivery_charge", "MinDeliveryCharge", "gte", "0")
	}

	// Zero dates are reported by "required"
	if !req.StartDate.IsZero() && !req.EndDate.IsZero() && !req.EndDate.After(req.StartDate) {
		sl.ReportError(req.EndDate, "end_date", "EndDate", "gtfield", "start_date")
	}
}

func validateOrderTotals(sl validator.StructLevel) {
	var cart, delivery decimal.Decimal
	switch req := sl.Current().Interface().(type) {
	case model.DiscountCheckRequest:
		cart, delivery = req.CartTotal, req.DeliveryCharge
	case model.DiscountApplyRequest:
		cart, delivery = req.CartTotal, req.DeliveryCharge
	default:
		return
	}

	if cart.IsNegative() {
		sl.ReportError(cart, "cart_total", "CartTotal", "gte", "0")
	}
	if delivery.IsNegative() {
		sl.ReportError(delivery, "delivery_charge", "DeliveryCharge", "gte", "0")
	}
}
