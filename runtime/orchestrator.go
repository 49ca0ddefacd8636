package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain/event"
	"chat-relay/moderation"
	"chat-relay/observability"
	"chat-relay/runtime/workers"
	"context"
	"embed"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

//go:embed censored/*.txt
var CensoredFS embed.FS

// CensoredDir is the directory of CensoredFS holding the dictionaries.
const CensoredDir = "censored"

var _ contract.IOrchestrator = (*Orchestrator)(nil)

// Orchestrator owns the domain event queue and the supervised workers
// draining it. Sinks must be added before Start.
type Orchestrator struct {
	mu                sync.Mutex
	log               *slog.Logger
	metrics           *observability.Metrics
	supervisor        contract.ISupervisor
	sinks             []workers.NamedSink
	domainEvents      chan event.DomainEvent
	telemetryEvents   chan event.DomainEvent
	sinkTimeout       time.Duration
	heartbeatInterval time.Duration
}

func NewOrchestrator(log *slog.Logger, supervisor contract.ISupervisor, metrics *observability.Metrics,
	bufferSize int, sinkTimeout, heartbeatInterval time.Duration) *Orchestrator {
	return &Orchestrator{
		log:               log,
		metrics:           metrics,
		supervisor:        supervisor,
		domainEvents:      make(chan event.DomainEvent, bufferSize),
		telemetryEvents:   make(chan event.DomainEvent, bufferSize),
		sinkTimeout:       sinkTimeout,
		heartbeatInterval: heartbeatInterval,
	}
}

// Add registers a permanent sink. Sinks are consumed in registration order.
func (o *Orchestrator) Add(name string, sink contract.EventSink) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sinks = append(o.sinks, workers.NamedSink{Name: name, Sink: sink})
}

// Publish enqueues a domain event without blocking.
// A full queue drops the event: the message is already stored.
func (o *Orchestrator) Publish(evt event.DomainEvent) {
	select {
	case o.domainEvents <- evt:
	default:
		o.log.Warn("Domain event queue full, dropping event", "channel", evt.Channel())
	}
}

// Start registers the pipeline workers to the supervisor and blocks until
// the context is canceled or Stop is called.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	sinks := append([]workers.NamedSink(nil), o.sinks...)
	o.mu.Unlock()

	o.supervisor.Add(
		workers.NewEventFanout(o.log, o.metrics, o.domainEvents, o.telemetryEvents, o.sinkTimeout, sinks...),
		workers.NewTelemetryWorker(o.log, o.metrics, o.telemetryEvents),
	)
	if o.heartbeatInterval > 0 {
		o.supervisor.Add(
			workers.NewHeartbeatWorker(o.log, o.metrics, o.heartbeatInterval),
			workers.NewChannelCapacityWorker(o.log, o.metrics, o.heartbeatInterval,
				workers.NamedChannel{Name: "domain", Channel: o.domainEvents},
				workers.NamedChannel{Name: "telemetry", Channel: o.telemetryEvents}),
		)
	}

	o.log.Info("Starting orchestrator and all supervised workers", "sinks", len(sinks))
	o.supervisor.Run(ctx)
	return nil
}

// Stop cancels the supervised workers. Events still queued are discarded.
func (o *Orchestrator) Stop() {
	o.log.Info("Requesting orchestrator shutdown")
	o.supervisor.Stop()
}

// LoadModerator builds the moderator from the embedded dictionaries.
func LoadModerator(log *slog.Logger, charReplacement rune) (moderation.Moderator, error) {
	data, err := NewCensoredLoader(CensoredFS).LoadAll(CensoredDir)
	if err != nil {
		return moderation.Moderator{}, err
	}

	log.Info(fmt.Sprintf("%d censored files loaded [%s]",
		len(data.Languages), strings.Join(data.Languages, ",")))
	log.Info(fmt.Sprintf("%d unique censored words loaded", len(data.Words)))

	return moderation.NewModerator(data.Words, charReplacement, log)
}
