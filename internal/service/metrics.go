package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

type metrics struct {
	cacheRequests metric.Int64Counter
	pipelineRuns  metric.Int64Counter
}

func newMetrics(meter metric.Meter) (*metrics, error) {
	if meter == nil {
		meter = noop.NewMeterProvider().Meter("service")
	}
	cacheRequests, err := meter.Int64Counter("organization_cache_requests_total",
		metric.WithDescription("Organization cache lookups by result"))
	if err != nil {
		return nil, err
	}
	pipelineRuns, err := meter.Int64Counter("organization_pipeline_runs_total",
		metric.WithDescription("Fetch and reconcile runs by mode and outcome"))
	if err != nil {
		return nil, err
	}
	return &metrics{cacheRequests: cacheRequests, pipelineRuns: pipelineRuns}, nil
}

func (m *metrics) cacheLookup(ctx context.Context, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheRequests.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

func (m *metrics) pipelineRun(ctx context.Context, mode pipelineMode, outcome string) {
	m.pipelineRuns.Add(ctx, 1, metric.WithAttributes(
		attribute.String("mode", string(mode)),
		attribute.String("outcome", outcome),
	))
}
