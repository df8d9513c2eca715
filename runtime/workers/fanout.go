package workers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gimp-server/contract"
	"gimp-server/domain/event"
)

// EventFanout delivers domain events to the live subscribers of the
// event's group room, skipping the originating session.
//
// It is best-effort: a slow or half-closed subscriber loses the
// event, the others still receive it, and the submitter never learns
// about the failure. EventFanout is not a message broker.
//
// A single fanout goroutine consumes the event channel, so one
// member's consecutive updates reach any given subscriber in arrival
// order.
type EventFanout struct {
	log         *slog.Logger
	registry    contract.IRegistry
	events      chan event.DomainEvent
	sinkTimeout time.Duration
}

func NewEventFanout(log *slog.Logger, registry contract.IRegistry,
	events chan event.DomainEvent, sinkTimeout time.Duration) *EventFanout {
	return &EventFanout{log: log, registry: registry, events: events, sinkTimeout: sinkTimeout}
}

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping fanout")
			return nil
		case evt := <-w.events:
			w.Fanout(ctx, evt)
		}
	}
}

// Fanout routes one event to its room. Delivery failures are logged
// per subscriber and never propagate.
func (w *EventFanout) Fanout(ctx context.Context, evt event.DomainEvent) {
	group := evt.GroupName()
	if group == "" {
		// Observability-only event, nothing to route.
		w.log.Debug("Room-less event consumed", "event", fmt.Sprintf("%T", evt))
		return
	}

	sinks := w.registry.SinksForGroup(group, originSession(evt))
	for _, sink := range sinks {
		deliveryCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
		if err := sink.Consume(deliveryCtx, evt); err != nil {
			w.log.Warn("Subscriber delivery failed", "group", group, "error", err)
		}
		cancel()
	}
}

func originSession(evt event.DomainEvent) string {
	if updated, ok := evt.(event.MemberUpdated); ok {
		return updated.OriginSession
	}
	return ""
}
