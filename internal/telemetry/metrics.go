package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics are the companion's counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	transitions   metric.Int64Counter
	notifications metric.Int64Counter
	deliveries    metric.Int64Counter
}

func NewMetrics(provider metric.MeterProvider) (*Metrics, error) {
	meter := provider.Meter("family-radio/companion")
	transitions, err := meter.Int64Counter("playback.transitions",
		metric.WithDescription("Playback state transitions"))
	if err != nil {
		return nil, fmt.Errorf("telemetry: create counter: %w", err)
	}
	notifications, err := meter.Int64Counter("notifications.shown",
		metric.WithDescription("Track notifications shown or replaced"))
	if err != nil {
		return nil, fmt.Errorf("telemetry: create counter: %w", err)
	}
	deliveries, err := meter.Int64Counter("push.deliveries",
		metric.WithDescription("Push deliveries received by the worker"))
	if err != nil {
		return nil, fmt.Errorf("telemetry: create counter: %w", err)
	}
	return &Metrics{transitions: transitions, notifications: notifications, deliveries: deliveries}, nil
}

func (m *Metrics) PlaybackTransition(ctx context.Context, from, to string) {
	if m == nil {
		return
	}
	m.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", from),
		attribute.String("to", to),
	))
}

func (m *Metrics) NotificationShown(ctx context.Context) {
	if m == nil {
		return
	}
	m.notifications.Add(ctx, 1)
}

func (m *Metrics) PushDelivery(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.deliveries.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
