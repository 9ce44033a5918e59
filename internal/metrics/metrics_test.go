package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareRecordsRoutePattern(t *testing.T) {
	app := fiber.New()
	app.Use(Middleware())
	app.Get("/api/orders/:id", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "order not found")
	})
	app.Get("/metrics", Handler())

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/orders/:id", "404"))

	resp, err := app.Test(httptest.NewRequest("GET", "/api/orders/123", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	after := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/orders/:id", "404"))
	assert.Equal(t, before+1, after)

	resp, err = app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "foodorder_http_requests_total")
}

func TestDomainCounters(t *testing.T) {
	before := testutil.ToFloat64(orderFailures.WithLabelValues("empty_order"))
	RecordOrderFailure("empty_order")
	assert.Equal(t, before+1, testutil.ToFloat64(orderFailures.WithLabelValues("empty_order")))

	hits := testutil.ToFloat64(catalogCache.WithLabelValues("hit"))
	RecordCacheLookup(true)
	assert.Equal(t, hits+1, testutil.ToFloat64(catalogCache.WithLabelValues("hit")))
}
