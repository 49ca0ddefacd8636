package workers

import (
	"chat-relay/contract"
	"chat-relay/domain/event"
	"chat-relay/observability"
	"context"
	"log/slog"
	"time"
)

// EventFanout broadcasts domain events to multiple in-process consumers.
//
// It provides best-effort fan-out with no guarantees regarding durability
// or retries. EventFanout is not a message broker: each sink gets at most
// sinkTimeout to consume an event, after which the event is lost for it.
//
// Events are forwarded to the telemetry channel without blocking.
type EventFanout struct {
	log            *slog.Logger
	metrics        *observability.Metrics
	domainEvent    chan event.DomainEvent
	telemetryEvent chan event.DomainEvent
	sinkTimeout    time.Duration
	sinks          []NamedSink
}

// NamedSink labels a sink so its failures can be counted.
type NamedSink struct {
	Name string
	Sink contract.EventSink
}

func NewEventFanout(
	log *slog.Logger,
	metrics *observability.Metrics,
	domainEvent, telemetryEvent chan event.DomainEvent,
	sinkTimeout time.Duration,
	sinks ...NamedSink,
) *EventFanout {
	return &EventFanout{
		log:            log,
		metrics:        metrics,
		domainEvent:    domainEvent,
		telemetryEvent: telemetryEvent,
		sinkTimeout:    sinkTimeout,
		sinks:          sinks,
	}
}

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case evt := <-w.domainEvent:
			w.Fanout(ctx, evt)
			select {
			case w.telemetryEvent <- evt:
			default:
				w.log.Debug("Observability telemetry event lost")
			}
		case <-ctx.Done():
			w.log.Debug("Context done, stopping domain event fanout")
			return nil
		}
	}
}

// Fanout hands the event to every sink, one after the other, so that a
// channel keeps the order in which its events were published.
func (w *EventFanout) Fanout(ctx context.Context, evt event.DomainEvent) {
	for _, s := range w.sinks {
		w.consume(ctx, s, evt)
	}
}

func (w *EventFanout) consume(ctx context.Context, s NamedSink, evt event.DomainEvent) {
	sinkCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
	defer cancel()
	if err := s.Sink.Consume(sinkCtx, evt); err != nil {
		w.metrics.RecordSinkError(s.Name)
		w.log.Warn("Sink failed to consume event",
			"sink", s.Name,
			"channel", evt.Channel(),
			"error", err)
	}
}
