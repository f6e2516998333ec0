package telemetry

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the application instruments. A nil *Metrics records nothing.
type Metrics struct {
	Submissions     metric.Int64Counter
	RequestDuration metric.Float64Histogram
	LiveHandles     metric.Int64UpDownCounter
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.Submissions, err = meter.Int64Counter(
		"cogniscan_submissions_total",
		metric.WithDescription("Dataset submissions by flow and outcome"),
		metric.WithUnit("{submission}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create submissions_total: %w", err)
	}

	m.RequestDuration, err = meter.Float64Histogram(
		"cogniscan_backend_request_duration",
		metric.WithDescription("Backend API request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60),
	)
	if err != nil {
		return nil, fmt.Errorf("create backend_request_duration: %w", err)
	}

	m.LiveHandles, err = meter.Int64UpDownCounter(
		"cogniscan_visual_handles",
		metric.WithDescription("Visualization handles acquired and not yet released"),
		metric.WithUnit("{handle}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create visual_handles: %w", err)
	}

	return m, nil
}

func (m *Metrics) RecordSubmission(ctx context.Context, flow, outcome string) {
	if m == nil {
		return
	}
	m.Submissions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("flow", flow),
		attribute.String("outcome", outcome),
	))
}

// ObserveRequest records one backend call. status is 0 when no response
// arrived.
func (m *Metrics) ObserveRequest(ctx context.Context, endpoint string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
		attribute.String("endpoint", endpoint),
		attribute.String("status", strconv.Itoa(status)),
	))
}

// HandleObserver adapts LiveHandles to the visuals registry observer hook.
func (m *Metrics) HandleObserver() func(delta int64) {
	if m == nil {
		return nil
	}
	return func(delta int64) {
		m.LiveHandles.Add(context.Background(), delta)
	}
}
