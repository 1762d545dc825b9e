package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveApplication(t *testing.T) {
	appliedBefore := testutil.ToFloat64(applicationsTotal.WithLabelValues(OutcomeApplied))
	rejectedBefore := testutil.ToFloat64(applicationsTotal.WithLabelValues(OutcomeRejected))
	grantedBefore := testutil.ToFloat64(grantedAmountTotal)

	ObserveApplication(OutcomeApplied, decimal.RequireFromString("12.50"))
	ObserveApplication(OutcomeRejected, decimal.RequireFromString("99"))

	assert.Equal(t, appliedBefore+1, testutil.ToFloat64(applicationsTotal.WithLabelValues(OutcomeApplied)))
	assert.Equal(t, rejectedBefore+1, testutil.ToFloat64(applicationsTotal.WithLabelValues(OutcomeRejected)))
	assert.InDelta(t, grantedBefore+12.5, testutil.ToFloat64(grantedAmountTotal), 1e-9, "only applied amounts are summed")
}

func TestObserveResolution(t *testing.T) {
	before := testutil.ToFloat64(resolutionsTotal)

	ObserveResolution(3)

	assert.Equal(t, before+1, testutil.ToFloat64(resolutionsTotal))
}

func TestMiddleware_LabelsByRoutePattern(t *testing.T) {
	app := fiber.New()
	app.Use(Middleware())
	app.Get("/api/campaigns/:id", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNotFound)
	})

	counter := httpRequestsTotal.WithLabelValues("GET", "/api/campaigns/:id", "404")
	before := testutil.ToFloat64(counter)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/campaigns/7", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestPoolStatsCollector_Describe(t *testing.T) {
	c := NewPoolStatsCollector(nil)
	ch := make(chan *prometheus.Desc, 16)

	c.Describe(ch)
	close(ch)

	var names []string
	for d := range ch {
		names = append(names, d.String())
	}
	assert.Len(t, names, 8)
	assert.Contains(t, names[0], "db_pool_acquired_connections")
}
