// Package observe provides application-wide observability primitives for
// Vocero: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still
// be scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Vocero metrics.
const meterName = "github.com/MrWong99/vocero"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// SynthesisDuration tracks end-to-end synthesis latency. Use with
	// attribute.String("engine", ...).
	SynthesisDuration metric.Float64Histogram

	// RefreshDuration tracks voice directory refresh latency.
	RefreshDuration metric.Float64Histogram

	// --- Counters ---

	// Resolutions counts voice resolutions. Use with attribute:
	//   attribute.String("tier", ...)
	Resolutions metric.Int64Counter

	// Selections counts engine selections. Use with attributes:
	//   attribute.String("engine", ...), attribute.String("reason", ...)
	Selections metric.Int64Counter

	// SynthesisErrors counts failed synthesis calls by engine.
	SynthesisErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveStreams tracks the number of live streaming speak sessions.
	ActiveStreams metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with
	// attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds). The
// upper range is wide because XTTS synthesis on CPU can take tens of
// seconds.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.SynthesisDuration, err = m.Float64Histogram("vocero.synthesis.duration",
		metric.WithDescription("Latency of speech synthesis by engine."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.RefreshDuration, err = m.Float64Histogram("vocero.directory.refresh.duration",
		metric.WithDescription("Latency of voice directory refreshes."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.Resolutions, err = m.Int64Counter("vocero.resolver.resolutions",
		metric.WithDescription("Total voice resolutions by matching tier."),
	); err != nil {
		return nil, err
	}
	if met.Selections, err = m.Int64Counter("vocero.selector.selections",
		metric.WithDescription("Total engine selections by engine and rule."),
	); err != nil {
		return nil, err
	}
	if met.SynthesisErrors, err = m.Int64Counter("vocero.synthesis.errors",
		metric.WithDescription("Total failed synthesis calls by engine."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveStreams, err = m.Int64UpDownCounter("vocero.active_streams",
		metric.WithDescription("Number of live streaming speak sessions."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("vocero.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it
// on first call using [otel.GetMeterProvider]. Subsequent calls return the
// same pointer. Panics if instrument creation fails (should not happen with
// the global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordResolution records one voice resolution with its matching tier.
func (m *Metrics) RecordResolution(ctx context.Context, tier string) {
	m.Resolutions.Add(ctx, 1,
		metric.WithAttributes(attribute.String("tier", tier)),
	)
}

// RecordSelection records one engine selection with the rule that fired.
func (m *Metrics) RecordSelection(ctx context.Context, engine, reason string) {
	m.Selections.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("engine", engine),
			attribute.String("reason", reason),
		),
	)
}

// RecordRefresh records one directory refresh round and its outcome.
func (m *Metrics) RecordRefresh(ctx context.Context, seconds float64, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.RefreshDuration.Record(ctx, seconds,
		metric.WithAttributes(attribute.String("status", status)),
	)
}

// RecordSynthesis records one synthesis call: its latency and, on failure,
// an error count.
func (m *Metrics) RecordSynthesis(ctx context.Context, engine string, seconds float64, err error) {
	m.SynthesisDuration.Record(ctx, seconds,
		metric.WithAttributes(attribute.String("engine", engine)),
	)
	if err != nil {
		m.SynthesisErrors.Add(ctx, 1,
			metric.WithAttributes(attribute.String("engine", engine)),
		)
	}
}
