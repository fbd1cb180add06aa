package shared

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Metrics records storage operation counts and latencies
type Metrics struct {
	operations metric.Int64Counter
	duration   metric.Float64Histogram
}

// NewMetrics registers the storage instruments on meter. A nil meter yields
// no-op instruments.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		meter = noop.NewMeterProvider().Meter("storage")
	}

	operations, err := meter.Int64Counter("storage_operations_total",
		metric.WithDescription("Storage operations by operation and outcome"))
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram("storage_operation_duration_seconds",
		metric.WithDescription("Storage operation latency"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	return &Metrics{operations: operations, duration: duration}, nil
}

func (m *Metrics) Record(ctx context.Context, operation string, start time.Time, err error) {
	outcome := "ok"
	switch {
	case errors.Is(err, ErrNotFound):
		outcome = "not_found"
	case err != nil:
		outcome = "error"
	}
	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	)
	m.operations.Add(ctx, 1, attrs)
	m.duration.Record(ctx, time.Since(start).Seconds(), attrs)
}
