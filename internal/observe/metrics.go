// Package observe provides observability primitives for wakebench:
// OpenTelemetry metrics, run tracing, trace-aware structured logging, and
// HTTP instrumentation for the metrics endpoint.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is installed by [InitProvider] so that long-running batch
// and watch sessions can be scraped via /metrics. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all wakebench metrics.
const meterName = "github.com/MrWong99/wakebench"

// Run status attribute values for [Metrics.RecordRun].
const (
	StatusDetected = "detected"
	StatusSilent   = "silent"
	StatusFailed   = "failed"
)

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Inference ---

	// WindowsScored counts analysis windows sent to a backend. Use with
	// attribute.String("backend", ...).
	WindowsScored metric.Int64Counter

	// ScoreDuration tracks per-window inference latency.
	ScoreDuration metric.Float64Histogram

	// Detections counts detection events. Use with
	// attribute.String("keyword", ...).
	Detections metric.Int64Counter

	// BackendInitFailures counts backends that failed to load a model. Use
	// with attribute.String("backend", ...).
	BackendInitFailures metric.Int64Counter

	// --- Runs ---

	// Runs counts completed harness runs. Use with
	// attribute.String("status", ...).
	Runs metric.Int64Counter

	// RunDuration tracks wall time of whole runs, source loading included.
	RunDuration metric.Float64Histogram

	// ActiveRuns tracks runs currently streaming, mostly relevant in batch
	// mode.
	ActiveRuns metric.Int64UpDownCounter

	// --- HTTP ---

	// HTTPRequestDuration tracks metrics/health endpoint latency. Use with
	// attributes:
	//   attribute.String("method", ...), attribute.String("route", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// scoreBuckets are histogram bucket boundaries (in seconds) for single-window
// inference, which is expected to stay well below the 80 ms window length.
var scoreBuckets = []float64{
	0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.08, 0.1, 0.25,
}

// runBuckets are histogram bucket boundaries (in seconds) for whole runs.
var runBuckets = []float64{
	0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.WindowsScored, err = m.Int64Counter("wakebench.windows.scored",
		metric.WithDescription("Analysis windows scored by backend."),
	); err != nil {
		return nil, err
	}
	if met.ScoreDuration, err = m.Float64Histogram("wakebench.score.duration",
		metric.WithDescription("Latency of scoring one analysis window."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(scoreBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Detections, err = m.Int64Counter("wakebench.detections",
		metric.WithDescription("Detection events by keyword."),
	); err != nil {
		return nil, err
	}
	if met.BackendInitFailures, err = m.Int64Counter("wakebench.backend.init_failures",
		metric.WithDescription("Backends that failed to load a model, by backend."),
	); err != nil {
		return nil, err
	}

	if met.Runs, err = m.Int64Counter("wakebench.runs",
		metric.WithDescription("Completed harness runs by status."),
	); err != nil {
		return nil, err
	}
	if met.RunDuration, err = m.Float64Histogram("wakebench.run.duration",
		metric.WithDescription("Wall time of a harness run."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(runBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ActiveRuns, err = m.Int64UpDownCounter("wakebench.active_runs",
		metric.WithDescription("Number of harness runs currently in progress."),
	); err != nil {
		return nil, err
	}

	if met.HTTPRequestDuration, err = m.Float64Histogram("wakebench.http.request.duration",
		metric.WithDescription("HTTP request latency by method and route."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
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

// RecordScore records one scored window and its inference latency.
func (m *Metrics) RecordScore(ctx context.Context, backend string, d time.Duration) {
	attrs := metric.WithAttributes(attribute.String("backend", backend))
	m.WindowsScored.Add(ctx, 1, attrs)
	m.ScoreDuration.Record(ctx, d.Seconds(), attrs)
}

// RecordDetection increments the detection counter for keyword.
func (m *Metrics) RecordDetection(ctx context.Context, keyword string) {
	m.Detections.Add(ctx, 1,
		metric.WithAttributes(attribute.String("keyword", keyword)),
	)
}

// RecordBackendInitFailure increments the init-failure counter for backend.
func (m *Metrics) RecordBackendInitFailure(ctx context.Context, backend string) {
	m.BackendInitFailures.Add(ctx, 1,
		metric.WithAttributes(attribute.String("backend", backend)),
	)
}

// RecordRun records a finished run's status and wall time.
func (m *Metrics) RecordRun(ctx context.Context, status string, d time.Duration) {
	attrs := metric.WithAttributes(attribute.String("status", status))
	m.Runs.Add(ctx, 1, attrs)
	m.RunDuration.Record(ctx, d.Seconds(), attrs)
}
