package workers

import (
	"chat-relay/domain/event"
	"chat-relay/observability"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestTelemetryWorker_Counts_Messages(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	metrics := observability.NewMetrics()
	telemetry := make(chan event.DomainEvent, 2)
	worker := NewTelemetryWorker(log, metrics, telemetry)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	// Given one clean and one censored message
	clean := messageSent()
	censored := messageSent()
	censored.Censored = []string{"idiot"}

	// When both reach telemetry
	telemetry <- clean
	telemetry <- censored

	// Then both are counted and one is flagged as censored
	req.Eventually(func() bool {
		return testutil.ToFloat64(metrics.MessagesSent.WithLabelValues("text")) == 2
	}, time.Second, 10*time.Millisecond)
	req.Eventually(func() bool {
		return testutil.ToFloat64(metrics.MessagesCensored) == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	req.NoError(<-done)
}

func TestHeartbeatWorker_Records_Process(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	metrics := observability.NewMetrics()
	worker := NewHeartbeatWorker(log, metrics, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	// Then the resident memory gauge is eventually set
	req.Eventually(func() bool {
		return testutil.ToFloat64(metrics.ProcessRSS) > 0
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	req.NoError(<-done)
}

func TestChannelCapacityWorker_Samples_Queues(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	metrics := observability.NewMetrics()

	// Given a queue holding two events out of four
	queue := make(chan event.DomainEvent, 4)
	queue <- messageSent()
	queue <- messageSent()
	worker := NewChannelCapacityWorker(log, metrics, time.Hour,
		NamedChannel{Name: "domain", Channel: queue},
		NamedChannel{Name: "bogus", Channel: 42})

	// When it is sampled
	worker.sample()

	// Then length and capacity are exported, the bogus entry is skipped
	req.Equal(float64(2), testutil.ToFloat64(metrics.QueueLength.WithLabelValues("domain")))
	req.Equal(float64(4), testutil.ToFloat64(metrics.QueueCapacity.WithLabelValues("domain")))
}
