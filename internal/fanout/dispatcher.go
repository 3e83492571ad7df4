// Package fanout turns domain events into in-app notifications and queued
// emails. A cron-invoked dispatcher claims each unprocessed event exactly
// once and routes it to a per-event-type handler.
package fanout

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"crewdeck.app/herald/common/logger"
	"crewdeck.app/herald/internal/model"
	"crewdeck.app/herald/internal/store"
)

// Result reports what a handler wrote for one event.
type Result struct {
	Notifications int
	Emails        int
}

// HandlerFunc processes one claimed event.
type HandlerFunc func(ctx context.Context, event *model.DomainEvent) (Result, error)

type Dispatcher struct {
	events    store.EventStore
	registry  map[model.EventType]HandlerFunc
	batchSize int32
}

func NewDispatcher(events store.EventStore, registry map[model.EventType]HandlerFunc, batchSize int32) *Dispatcher {
	return &Dispatcher{events: events, registry: registry, batchSize: batchSize}
}

// Run drains unclaimed events in batches until a short batch, then
// returns. Each event is claimed with a single conditional insert; losing
// the claim race is a benign skip.
func (d *Dispatcher) Run(ctx context.Context) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "herald.fanout.dispatcher"})
	total := 0

	for {
		events, err := d.events.ListUnclaimed(ctx, d.batchSize)
		if err != nil {
			return fmt.Errorf("list unclaimed events: %w", err)
		}
		if len(events) == 0 {
			break
		}

		for i := range events {
			d.processOne(ctx, &events[i])
			total++
		}

		if int32(len(events)) < d.batchSize {
			break
		}
	}

	slog.InfoContext(ctx, "fanout run finished", "events_processed", total)
	return nil
}

func (d *Dispatcher) processOne(ctx context.Context, event *model.DomainEvent) {
	sc := logger.StartSpan(ctx, "fanout.process_event", trace.WithSpanKind(trace.SpanKindConsumer))
	defer sc.End()
	ctx = logger.WithLogFields(sc.Context(), logger.LogFields{
		EventID:   logger.Ptr(event.ID),
		EventType: logger.Ptr(string(event.EventType)),
	})

	claimed, err := d.events.Claim(ctx, event.ID)
	if err != nil {
		slog.ErrorContext(ctx, "event claim failed", "error", err)
		return
	}
	if !claimed {
		// Another worker holds the claim.
		slog.DebugContext(ctx, "event already claimed, skipping")
		return
	}

	result, err := d.dispatchSafe(ctx, event)
	if err != nil {
		sc.RecordError(err)
		slog.ErrorContext(ctx, "event handler failed", "error", err)
		if failErr := d.events.Fail(ctx, event.ID, logger.Truncate(err.Error(), 1024)); failErr != nil {
			slog.ErrorContext(ctx, "marking event failed errored", "error", failErr)
		}
		return
	}

	if err := d.events.Complete(ctx, event.ID); err != nil {
		slog.ErrorContext(ctx, "marking event completed errored", "error", err)
		return
	}

	slog.InfoContext(ctx, "event processed",
		"notifications_created", result.Notifications,
		"emails_queued", result.Emails)
}

func (d *Dispatcher) dispatchSafe(ctx context.Context, event *model.DomainEvent) (result Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic recovered in event handler", "panic", r)
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return d.Dispatch(ctx, event)
}

// Dispatch routes one event through the registry. Unknown event types are
// logged and treated as handled.
func (d *Dispatcher) Dispatch(ctx context.Context, event *model.DomainEvent) (Result, error) {
	handler, ok := d.registry[event.EventType]
	if !ok {
		slog.WarnContext(ctx, "unknown event type, skipping")
		return Result{}, nil
	}
	return handler(ctx, event)
}
