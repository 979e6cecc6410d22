package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

type Metrics struct {
	HTTPRequests      metric.Int64Counter
	HTTPDuration      metric.Float64Histogram
	CacheHits         metric.Int64Counter
	CacheMisses       metric.Int64Counter
	ActiveConnections metric.Int64UpDownCounter
	Ticks             metric.Int64Counter
	TickDuration      metric.Float64Histogram
	SnapshotsSent     metric.Int64Counter
}

// Setup registers a Prometheus-backed meter provider and returns the
// instruments together with the /metrics handler.
func Setup(serviceName string) (*Metrics, http.Handler, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, err
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	m, err := newMetrics(provider.Meter(serviceName))
	if err != nil {
		return nil, nil, err
	}
	return m, promhttp.Handler(), nil
}

// NewNoop returns instruments that record nothing, for tests.
func NewNoop() *Metrics {
	m, _ := newMetrics(noop.NewMeterProvider().Meter("noop"))
	return m
}

func newMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.HTTPRequests, err = meter.Int64Counter(
		"ct_http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	m.HTTPDuration, err = meter.Float64Histogram(
		"ct_http_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
	)
	if err != nil {
		return nil, err
	}

	m.CacheHits, err = meter.Int64Counter(
		"ct_cache_hits_total",
		metric.WithDescription("Total number of cache hits"),
	)
	if err != nil {
		return nil, err
	}

	m.CacheMisses, err = meter.Int64Counter(
		"ct_cache_misses_total",
		metric.WithDescription("Total number of cache misses"),
	)
	if err != nil {
		return nil, err
	}

	m.ActiveConnections, err = meter.Int64UpDownCounter(
		"ct_live_connections",
		metric.WithDescription("Number of active WebSocket and SSE connections"),
	)
	if err != nil {
		return nil, err
	}

	m.Ticks, err = meter.Int64Counter(
		"ct_ticks_total",
		metric.WithDescription("Total number of simulated price ticks"),
	)
	if err != nil {
		return nil, err
	}

	m.TickDuration, err = meter.Float64Histogram(
		"ct_tick_duration_seconds",
		metric.WithDescription("Time spent applying one price tick"),
	)
	if err != nil {
		return nil, err
	}

	m.SnapshotsSent, err = meter.Int64Counter(
		"ct_snapshots_published_total",
		metric.WithDescription("Table snapshots published to live subscribers"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, status int, duration time.Duration) {
	labels := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("path", path),
		attribute.Int("status", status),
	)

	m.HTTPRequests.Add(ctx, 1, labels)
	m.HTTPDuration.Record(ctx, duration.Seconds(), labels)
}

func (m *Metrics) RecordCacheHit(ctx context.Context, key string) {
	m.CacheHits.Add(ctx, 1, metric.WithAttributes(attribute.String("key", key)))
}

func (m *Metrics) RecordCacheMiss(ctx context.Context, key string) {
	m.CacheMisses.Add(ctx, 1, metric.WithAttributes(attribute.String("key", key)))
}

func (m *Metrics) IncrementConnections(ctx context.Context, transport string) {
	m.ActiveConnections.Add(ctx, 1, metric.WithAttributes(attribute.String("transport", transport)))
}

func (m *Metrics) DecrementConnections(ctx context.Context, transport string) {
	m.ActiveConnections.Add(ctx, -1, metric.WithAttributes(attribute.String("transport", transport)))
}

func (m *Metrics) RecordTick(ctx context.Context, duration time.Duration) {
	m.Ticks.Add(ctx, 1)
	m.TickDuration.Record(ctx, duration.Seconds())
}

func (m *Metrics) RecordSnapshot(ctx context.Context) {
	m.SnapshotsSent.Add(ctx, 1)
}
