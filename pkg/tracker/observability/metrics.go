package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records tracking SDK metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordTrack records a tracking call by event kind.
	RecordTrack(ctx context.Context, kind string)

	// RecordDrop records a task dropped because the ingest queue was full.
	RecordDrop(ctx context.Context)

	// RecordBatch records a delivery attempt outcome for a batch.
	RecordBatch(ctx context.Context, size int, duration time.Duration, err error)

	// RecordSpool records a batch written to the retry spool.
	RecordSpool(ctx context.Context, sizeBytes int64)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	eventsTracked   metric.Int64Counter
	queueDrops      metric.Int64Counter
	batches         metric.Int64Counter
	batchFailures   metric.Int64Counter
	deliveryLatency metric.Float64Histogram
	spooledBytes    metric.Int64Histogram
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

// newOtelMetrics creates a new OTel metrics instance.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("tracker")

	eventsTracked, err := meter.Int64Counter("tracker.events.tracked",
		metric.WithDescription("Number of tracking calls by event kind"),
	)
	if err != nil {
		return nil, err
	}

	queueDrops, err := meter.Int64Counter("tracker.queue.drops",
		metric.WithDescription("Number of tasks dropped due to a full ingest queue"),
	)
	if err != nil {
		return nil, err
	}

	batches, err := meter.Int64Counter("tracker.events.delivered",
		metric.WithDescription("Number of events handed to the delivery endpoint"),
	)
	if err != nil {
		return nil, err
	}

	batchFailures, err := meter.Int64Counter("tracker.batches.failed",
		metric.WithDescription("Number of batches that exhausted their delivery attempts"),
	)
	if err != nil {
		return nil, err
	}

	deliveryLatency, err := meter.Float64Histogram("tracker.delivery.latency_ms",
		metric.WithDescription("Batch delivery latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	spooledBytes, err := meter.Int64Histogram("tracker.spool.batch_bytes",
		metric.WithDescription("Size of batches written to the retry spool"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		eventsTracked:   eventsTracked,
		queueDrops:      queueDrops,
		batches:         batches,
		batchFailures:   batchFailures,
		deliveryLatency: deliveryLatency,
		spooledBytes:    spooledBytes,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordTrack records a tracking call.
func (m *otelMetrics) RecordTrack(ctx context.Context, kind string) {
	m.eventsTracked.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event_kind", kind),
	))
}

// RecordDrop records a dropped task.
func (m *otelMetrics) RecordDrop(ctx context.Context) {
	m.queueDrops.Add(ctx, 1)
}

// RecordBatch records a batch delivery outcome.
func (m *otelMetrics) RecordBatch(ctx context.Context, size int, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.Bool("success", err == nil),
	}
	m.batches.Add(ctx, int64(size), metric.WithAttributes(attrs...))
	m.deliveryLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	if err != nil {
		m.batchFailures.Add(ctx, 1)
	}
}

// RecordSpool records a spooled batch.
func (m *otelMetrics) RecordSpool(ctx context.Context, sizeBytes int64) {
	m.spooledBytes.Record(ctx, sizeBytes)
}
