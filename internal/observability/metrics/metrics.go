package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	AuthRequestsTotal   metric.Int64Counter
	SearchRequestsTotal metric.Int64Counter
	RemoteCallsTotal    metric.Int64Counter
	OrdersPlacedTotal   metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// Get returns the global instruments, creating them on first use from the
// globally configured MeterProvider. With no provider configured (tests) the
// default no-op meter is used.
func Get() *AppMetrics {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("chapterly-storefront")
		var err error
		m := &AppMetrics{}

		m.HTTPRequestsTotal, err = meter.Int64Counter(
			"http_requests_total",
			metric.WithDescription("Total number of HTTP requests completed"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create http_requests_total: %v", err)
		}

		m.HTTPRequestDuration, err = meter.Float64Histogram(
			"http_request_duration_seconds",
			metric.WithDescription("Duration of HTTP requests in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create http_request_duration_seconds: %v", err)
		}

		m.AuthRequestsTotal, err = meter.Int64Counter(
			"auth_requests_total",
			metric.WithDescription("Total number of authentication requests"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create auth_requests_total: %v", err)
		}

		m.SearchRequestsTotal, err = meter.Int64Counter(
			"search_requests_total",
			metric.WithDescription("Total number of catalog search requests"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create search_requests_total: %v", err)
		}

		m.RemoteCallsTotal, err = meter.Int64Counter(
			"store_api_calls_total",
			metric.WithDescription("Total number of calls to the remote audiobook service"),
			metric.WithUnit("{call}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create store_api_calls_total: %v", err)
		}

		m.OrdersPlacedTotal, err = meter.Int64Counter(
			"orders_placed_total",
			metric.WithDescription("Total number of order placements attempted"),
			metric.WithUnit("{order}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create orders_placed_total: %v", err)
		}

		appMetrics = m
	})
	return appMetrics
}
