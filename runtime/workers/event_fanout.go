package workers

import (
	"context"
	"log/slog"
	"time"

	"blindchat/contract"
	"blindchat/domain/event"
)

// EventFanout broadcasts domain events to multiple in-process consumers.
//
// It provides best-effort fan-out with no guarantees regarding delivery,
// ordering, durability, or retries. EventFanout is not a message broker.
//
// It is intended for observability and side effects (persistence, logs,
// metrics), not for core domain logic.
//
// EventFanout is safe for concurrent use by multiple goroutines.
type EventFanout struct {
	Log            *slog.Logger
	Name           contract.WorkerName
	DomainEvent    chan event.DomainEvent
	TelemetryEvent chan event.Event
	sinkTimeout    time.Duration
	sinks          []contract.EventSink
}

func NewEventFanout(log *slog.Logger,
	sinks []contract.EventSink,
	domainEvent chan event.DomainEvent,
	telemetryEvent chan event.Event,
	sinkTimeout time.Duration) *EventFanout {
	return &EventFanout{
		Log:            log,
		DomainEvent:    domainEvent,
		TelemetryEvent: telemetryEvent,
		sinkTimeout:    sinkTimeout,
		sinks:          sinks,
	}
}

func (w EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case evt := <-w.DomainEvent:
			w.Fanout(ctx, evt)
			select {
			case w.TelemetryEvent <- event.New(typeOf(evt), evt):
			default:
				w.Log.Debug("Observability telemetry event lost")
			}
		case <-ctx.Done():
			w.Log.Debug("Context done, stopping domainEvent send")
			return nil
		}
	}
}

// Fanout One sink for each event. A failing sink never stops the others,
// persistence problems are reported and absorbed here.
func (w EventFanout) Fanout(ctx context.Context, evt event.DomainEvent) {
	for _, sink := range w.sinks {
		sinkCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
		if err := sink.Consume(sinkCtx, evt); err != nil {
			w.Log.Warn("sink rejected event", "event", evt.Name(), "error", err)
		}
		cancel()
	}
}

func typeOf(evt event.DomainEvent) event.Type {
	switch evt.(type) {
	case event.MessageRelayed, event.SanitizedMessage:
		return event.MessageRelayedType
	}
	return event.DomainType
}
