package workers

import (
	"chat-relay/domain/event"
	"chat-relay/observability"
	"context"
	"log/slog"
)

// TelemetryWorker turns domain events into counters.
type TelemetryWorker struct {
	log           *slog.Logger
	metrics       *observability.Metrics
	telemetryChan chan event.DomainEvent
}

func NewTelemetryWorker(log *slog.Logger, metrics *observability.Metrics, telemetryChan chan event.DomainEvent) *TelemetryWorker {
	return &TelemetryWorker{
		log:           log,
		metrics:       metrics,
		telemetryChan: telemetryChan,
	}
}

func (w *TelemetryWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case evt := <-w.telemetryChan:
			w.handle(evt)
		}
	}
}

func (w *TelemetryWorker) handle(evt event.DomainEvent) {
	switch e := evt.(type) {
	case event.MessageSent:
		w.metrics.RecordMessageSent(string(e.Message.Type), len(e.Censored) > 0)
		w.log.Debug("Message sent",
			"channel", e.Channel(),
			"type", e.Message.Type,
			"lang", e.Lang,
			"censored", len(e.Censored))
	default:
		w.log.Debug("Unhandled telemetry event", "channel", evt.Channel())
	}
}
