package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/jupyter/overviews/internal/boundaries/out"
	"github.com/jupyter/overviews/internal/domain"
)

// Ensure Metrics implements out.MetricsRecorder.
var _ out.MetricsRecorder = (*Metrics)(nil)

const meterName = "github.com/jupyter/overviews"

// Metrics holds the overview sync OTel metrics instruments.
type Metrics struct {
	PublishTotal    metric.Int64Counter
	PublishErrors   metric.Int64Counter
	PublishDuration metric.Float64Histogram
	SkipTotal       metric.Int64Counter
}

// NewMetrics creates and registers all instruments on the global meter.
// All fields are always initialized; OTel returns noop instruments when no
// MeterProvider is set.
func NewMetrics() (*Metrics, error) {
	return NewMetricsWithMeter(otel.Meter(meterName))
}

// NewMetricsWithMeter creates the instruments on the given meter.
func NewMetricsWithMeter(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.PublishTotal, err = meter.Int64Counter("overviews.publish.total",
		metric.WithDescription("Total overview publish attempts")); err != nil {
		return nil, err
	}
	if m.PublishErrors, err = meter.Int64Counter("overviews.publish.errors",
		metric.WithDescription("Total overview publish attempts that did not succeed")); err != nil {
		return nil, err
	}
	if m.PublishDuration, err = meter.Float64Histogram("overviews.publish.duration_seconds",
		metric.WithDescription("Overview publish duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2, 5, 10, 30, 60)); err != nil {
		return nil, err
	}
	if m.SkipTotal, err = meter.Int64Counter("overviews.sync.skipped",
		metric.WithDescription("Total sync invocations skipped by the trigger policy")); err != nil {
		return nil, err
	}

	return m, nil
}

// RecordPublish records one publish attempt.
func (m *Metrics) RecordPublish(ctx context.Context, provider string, status domain.OutcomeStatus, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("status", string(status)),
	)
	m.PublishTotal.Add(ctx, 1, attrs)
	if status != domain.StatusSucceeded {
		m.PublishErrors.Add(ctx, 1, attrs)
	}
	m.PublishDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordSkip records a skipped sync, labelled by its skip code.
func (m *Metrics) RecordSkip(ctx context.Context, code domain.SkipCode) {
	m.SkipTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", string(code))))
}
