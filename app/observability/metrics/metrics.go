package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	ProviderRequestsTotal          metric.Int64Counter
	ProviderRequestErrorsTotal     metric.Int64Counter
	ProviderRequestDurationSeconds metric.Float64Histogram
	DbQueryDurationSeconds         metric.Float64Histogram
	DbQueryErrorsTotal             metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// Get returns the global metric instruments, creating them on first use from
// the globally configured MeterProvider. Before main wires the SDK this is
// the otel no-op provider, so library code and tests can record freely.
func Get() *AppMetrics {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("Glasscast")
		var err error
		m := &AppMetrics{}

		m.ProviderRequestsTotal, err = meter.Int64Counter(
			"provider_requests_total",
			metric.WithDescription("Total number of remote provider requests issued"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create provider_requests_total: %v", err)
		}

		m.ProviderRequestErrorsTotal, err = meter.Int64Counter(
			"provider_request_errors_total",
			metric.WithDescription("Total number of failed remote provider requests"),
			metric.WithUnit("{error}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create provider_request_errors_total: %v", err)
		}

		m.ProviderRequestDurationSeconds, err = meter.Float64Histogram(
			"provider_request_duration_seconds",
			metric.WithDescription("Duration of remote provider requests in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create provider_request_duration_seconds: %v", err)
		}

		m.DbQueryDurationSeconds, err = meter.Float64Histogram(
			"db_query_duration_seconds",
			metric.WithDescription("Duration of database queries in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create db_query_duration_seconds: %v", err)
		}

		m.DbQueryErrorsTotal, err = meter.Int64Counter(
			"db_query_errors_total",
			metric.WithDescription("Total number of database query errors"),
			metric.WithUnit("{error}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create db_query_errors_total: %v", err)
		}

		appMetrics = m
	})
	return appMetrics
}
