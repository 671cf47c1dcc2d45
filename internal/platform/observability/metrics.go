package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

// Metrics holds the route-cache instrument set. A zero-value Metrics (or one
// built with enabled=false) is a safe no-op.
type Metrics struct {
	meter metric.Meter

	CacheRequests       metric.Int64Counter
	CacheHits           metric.Int64Counter
	CacheMisses         metric.Int64Counter
	CacheWrites         metric.Int64Counter
	AdmissionRejections metric.Int64Counter
	StoreErrors         metric.Int64Counter
	DecodeFailures      metric.Int64Counter
	MergedSnapshots     metric.Int64Histogram
	StoreLatency        metric.Float64Histogram
	QuoteLatency        metric.Float64Histogram
	ShadowComparisons   metric.Int64Counter
	ShadowMismatches    metric.Int64Counter

	enabled bool
}

// NewMetrics builds the instrument set backed by an OTel meter with a
// Prometheus exporter registered on the default registry.
func NewMetrics(serviceName string, enabled bool) (*Metrics, error) {
	if !enabled {
		return &Metrics{}, nil
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String("1.0.0"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)

	m := &Metrics{meter: provider.Meter(serviceName), enabled: true}
	if err := m.initInstruments(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}
	return m, nil
}

func (m *Metrics) initInstruments() error {
	var err error

	m.CacheRequests, err = m.meter.Int64Counter(
		"routecache.requests",
		metric.WithDescription("Cache lookups attempted"),
	)
	if err != nil {
		return err
	}

	m.CacheHits, err = m.meter.Int64Counter(
		"routecache.hits",
		metric.WithDescription("Cache lookups that produced a merged route"),
	)
	if err != nil {
		return err
	}

	m.CacheMisses, err = m.meter.Int64Counter(
		"routecache.misses",
		metric.WithDescription("Cache lookups with no usable stored route"),
	)
	if err != nil {
		return err
	}

	m.CacheWrites, err = m.meter.Int64Counter(
		"routecache.writes",
		metric.WithDescription("Routes admitted and stored"),
	)
	if err != nil {
		return err
	}

	m.AdmissionRejections, err = m.meter.Int64Counter(
		"routecache.admission.rejections",
		metric.WithDescription("Writes rejected by bucket policy"),
	)
	if err != nil {
		return err
	}

	m.StoreErrors, err = m.meter.Int64Counter(
		"routecache.store.errors",
		metric.WithDescription("Backend failures absorbed as misses or dropped writes"),
	)
	if err != nil {
		return err
	}

	m.DecodeFailures, err = m.meter.Int64Counter(
		"routecache.decode.failures",
		metric.WithDescription("Stored payloads that could not be decoded"),
	)
	if err != nil {
		return err
	}

	m.MergedSnapshots, err = m.meter.Int64Histogram(
		"routecache.merged.snapshots",
		metric.WithDescription("Snapshots merged per cache hit"),
	)
	if err != nil {
		return err
	}

	m.StoreLatency, err = m.meter.Float64Histogram(
		"routecache.store.duration",
		metric.WithDescription("Backend operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	m.QuoteLatency, err = m.meter.Float64Histogram(
		"routecache.quote.duration",
		metric.WithDescription("End-to-end quote duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	m.ShadowComparisons, err = m.meter.Int64Counter(
		"routecache.shadow.comparisons",
		metric.WithDescription("Shadow-mode comparisons performed"),
	)
	if err != nil {
		return err
	}

	m.ShadowMismatches, err = m.meter.Int64Counter(
		"routecache.shadow.mismatches",
		metric.WithDescription("Shadow-mode comparisons where cached and fresh routes diverged"),
	)
	return err
}

// RecordCacheRequest records one lookup with its outcome.
func (m *Metrics) RecordCacheRequest(ctx context.Context, pair, mode string, hit bool) {
	if !m.enabled {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("pair", pair),
		attribute.String("mode", mode),
	)
	m.CacheRequests.Add(ctx, 1, attrs)
	if hit {
		m.CacheHits.Add(ctx, 1, attrs)
	} else {
		m.CacheMisses.Add(ctx, 1, attrs)
	}
}

// RecordCacheWrite records a stored route.
func (m *Metrics) RecordCacheWrite(ctx context.Context, pair string) {
	if !m.enabled {
		return
	}
	m.CacheWrites.Add(ctx, 1, metric.WithAttributes(attribute.String("pair", pair)))
}

// RecordAdmissionRejection records a write refused by policy.
func (m *Metrics) RecordAdmissionRejection(ctx context.Context, pair, reason string) {
	if !m.enabled {
		return
	}
	m.AdmissionRejections.Add(ctx, 1, metric.WithAttributes(
		attribute.String("pair", pair),
		attribute.String("reason", reason),
	))
}

// RecordStoreError records an absorbed backend failure.
func (m *Metrics) RecordStoreError(ctx context.Context, operation string) {
	if !m.enabled {
		return
	}
	m.StoreErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
}

// RecordDecodeFailure records a skipped undecodable record.
func (m *Metrics) RecordDecodeFailure(ctx context.Context) {
	if !m.enabled {
		return
	}
	m.DecodeFailures.Add(ctx, 1)
}

// RecordMerge records how many snapshots contributed to a hit.
func (m *Metrics) RecordMerge(ctx context.Context, snapshots int) {
	if !m.enabled {
		return
	}
	m.MergedSnapshots.Record(ctx, int64(snapshots))
}

// RecordStoreLatency records one backend call.
func (m *Metrics) RecordStoreLatency(ctx context.Context, operation string, d time.Duration) {
	if !m.enabled {
		return
	}
	m.StoreLatency.Record(ctx, float64(d.Milliseconds()),
		metric.WithAttributes(attribute.String("operation", operation)))
}

// RecordQuote records an end-to-end quote with its serving source.
func (m *Metrics) RecordQuote(ctx context.Context, mode, source string, d time.Duration) {
	if !m.enabled {
		return
	}
	m.QuoteLatency.Record(ctx, float64(d.Milliseconds()), metric.WithAttributes(
		attribute.String("mode", mode),
		attribute.String("source", source),
	))
}

// RecordShadowComparison records a shadow-mode comparison outcome.
func (m *Metrics) RecordShadowComparison(ctx context.Context, pair string, match bool) {
	if !m.enabled {
		return
	}
	attrs := metric.WithAttributes(attribute.String("pair", pair))
	m.ShadowComparisons.Add(ctx, 1, attrs)
	if !match {
		m.ShadowMismatches.Add(ctx, 1, attrs)
	}
}

// Handler returns the Prometheus scrape handler. The OTel Prometheus
// exporter registers on the default registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}
