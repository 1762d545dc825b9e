// Package metrics exposes Prometheus instrumentation for discount
// resolution and redemption, HTTP traffic, and the database pool.
package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

// Outcome labels for ObserveApplication.
const (
	OutcomeApplied  = "applied"
	OutcomeReplayed = "replayed"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

var (
	resolutionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "discount_resolutions_total",
			Help: "Total number of available-discount resolutions",
		},
	)

	availableCampaigns = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "discount_resolution_available_campaigns",
			Help:    "Number of applicable campaigns returned per resolution",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
	)

	applicationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discount_applications_total",
			Help: "Total number of discount applications by outcome",
		},
		[]string{"outcome"},
	)

	grantedAmountTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "discount_granted_amount_total",
			Help: "Sum of discount amounts granted by successful applications",
		},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// ObserveResolution records one resolution that produced available campaigns.
func ObserveResolution(available int) {
	resolutionsTotal.Inc()
	availableCampaigns.Observe(float64(available))
}

// ObserveApplication records one apply attempt. amount is only added for
// OutcomeApplied.
func ObserveApplication(outcome string, amount decimal.Decimal) {
	applicationsTotal.WithLabelValues(outcome).Inc()
	if outcome == OutcomeApplied && amount.IsPositive() {
		grantedAmountTotal.Add(amount.InexactFloat64())
	}
}

// Middleware returns Fiber middleware that collects HTTP metrics keyed by
// route pattern.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		path := c.Route().Path
		if path == "" {
			path = "unknown"
		}
		labels := []string{c.Method(), path, strconv.Itoa(status)}
		httpRequestsTotal.WithLabelValues(labels...).Inc()
		httpRequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
		return err
	}
}
