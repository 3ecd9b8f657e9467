// Package metrics instruments ledger adapters with OpenTelemetry.
package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/bibbank/microfinance-ledger/internal/domain/event"
	"github.com/bibbank/microfinance-ledger/internal/domain/port"
)

// CountingPublisher decorates a port.EventPublisher with
// ledger_events_total{event_type,outcome}.
type CountingPublisher struct {
	next    port.EventPublisher
	counter metric.Int64Counter
}

// NewCountingPublisher registers the counter on meter.
func NewCountingPublisher(next port.EventPublisher, meter metric.Meter) (*CountingPublisher, error) {
	counter, err := meter.Int64Counter("ledger_events_total",
		metric.WithDescription("Domain events handed to the event publisher."),
	)
	if err != nil {
		return nil, fmt.Errorf("create ledger_events_total: %w", err)
	}
	return &CountingPublisher{next: next, counter: counter}, nil
}

// Publish forwards events and counts them by type and outcome.
func (p *CountingPublisher) Publish(ctx context.Context, events ...event.DomainEvent) error {
	err := p.next.Publish(ctx, events...)
	outcome := "published"
	if err != nil {
		outcome = "failed"
	}
	for _, evt := range events {
		p.counter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("event_type", evt.EventType()),
			attribute.String("outcome", outcome),
		))
	}
	return err
}
