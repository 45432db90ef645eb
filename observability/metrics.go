package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the service instruments. Methods on a nil *Metrics are no-ops.
type Metrics struct {
	dispatchTotal  metric.Int64Counter
	webhookTotal   metric.Int64Counter
	usageMinutes   metric.Float64Counter
	ingestDuration metric.Float64Histogram
}

// Meter returns a meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	dispatchTotal, err := meter.Int64Counter("scribe.dispatch.total",
		metric.WithDescription("Supplier submissions by outcome"))
	if err != nil {
		return nil, fmt.Errorf("creating scribe.dispatch.total: %w", err)
	}
	webhookTotal, err := meter.Int64Counter("scribe.webhook.total",
		metric.WithDescription("Completion deliveries by outcome"))
	if err != nil {
		return nil, fmt.Errorf("creating scribe.webhook.total: %w", err)
	}
	usageMinutes, err := meter.Float64Counter("scribe.usage.minutes",
		metric.WithDescription("Metered minutes by model type"),
		metric.WithUnit("min"))
	if err != nil {
		return nil, fmt.Errorf("creating scribe.usage.minutes: %w", err)
	}
	ingestDuration, err := meter.Float64Histogram("scribe.ingest.duration",
		metric.WithDescription("Time to normalize and persist a transcript"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("creating scribe.ingest.duration: %w", err)
	}
	return &Metrics{
		dispatchTotal:  dispatchTotal,
		webhookTotal:   webhookTotal,
		usageMinutes:   usageMinutes,
		ingestDuration: ingestDuration,
	}, nil
}

// RecordDispatch counts one submission attempt.
func (m *Metrics) RecordDispatch(ctx context.Context, supplier, outcome string) {
	if m == nil {
		return
	}
	m.dispatchTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("supplier", supplier),
		attribute.String("outcome", outcome),
	))
}

// RecordWebhook counts one completion delivery.
func (m *Metrics) RecordWebhook(ctx context.Context, supplier, outcome string) {
	if m == nil {
		return
	}
	m.webhookTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("supplier", supplier),
		attribute.String("outcome", outcome),
	))
}

// RecordUsage adds metered minutes.
func (m *Metrics) RecordUsage(ctx context.Context, modelType string, minutes float64) {
	if m == nil || minutes <= 0 {
		return
	}
	m.usageMinutes.Add(ctx, minutes, metric.WithAttributes(attribute.String("model_type", modelType)))
}

// RecordIngest records the duration of one ingestion.
func (m *Metrics) RecordIngest(ctx context.Context, supplier string, d time.Duration) {
	if m == nil {
		return
	}
	m.ingestDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("supplier", supplier)))
}
