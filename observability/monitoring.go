// Package observability exposes the Prometheus collectors of the chat server.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups every collector on a dedicated registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	MessagesSent        *prometheus.CounterVec
	MessagesCensored    prometheus.Counter
	EventsDelivered     prometheus.Counter
	EventsDropped       prometheus.Counter
	ActiveSubscriptions prometheus.Gauge
	SinkErrors          *prometheus.CounterVec
	WorkerRestarts      *prometheus.CounterVec
	ProcessRSS          prometheus.Gauge
	ProcessCPU          prometheus.Gauge
	QueueLength         *prometheus.GaugeVec
	QueueCapacity       *prometheus.GaugeVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	return &Metrics{
		registry: registry,
		MessagesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_messages_sent_total",
			Help: "Total number of messages accepted by the send action",
		}, []string{"type"}),
		MessagesCensored: factory.NewCounter(prometheus.CounterOpts{
			Name: "chat_messages_censored_total",
			Help: "Total number of text messages altered by moderation",
		}),
		EventsDelivered: factory.NewCounter(prometheus.CounterOpts{
			Name: "chat_channel_events_delivered_total",
			Help: "Total number of channel events handed to a subscription",
		}),
		EventsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "chat_channel_events_dropped_total",
			Help: "Total number of channel events dropped on a full subscription",
		}),
		ActiveSubscriptions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "chat_active_subscriptions",
			Help: "Number of currently open channel subscriptions",
		}),
		SinkErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_fanout_sink_errors_total",
			Help: "Total number of sink failures during event fanout",
		}, []string{"sink"}),
		WorkerRestarts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_worker_restarts_total",
			Help: "Total number of supervised worker restarts",
		}, []string{"worker"}),
		ProcessRSS: factory.NewGauge(prometheus.GaugeOpts{
			Name: "chat_process_rss_bytes",
			Help: "Resident memory of the server process",
		}),
		ProcessCPU: factory.NewGauge(prometheus.GaugeOpts{
			Name: "chat_process_cpu_percent",
			Help: "CPU usage of the server process",
		}),
		QueueLength: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "chat_queue_length",
			Help: "Number of events waiting in an internal queue",
		}, []string{"queue"}),
		QueueCapacity: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "chat_queue_capacity",
			Help: "Buffer size of an internal queue",
		}, []string{"queue"}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordMessageSent(messageType string, censored bool) {
	if m == nil {
		return
	}
	m.MessagesSent.WithLabelValues(messageType).Inc()
	if censored {
		m.MessagesCensored.Inc()
	}
}

func (m *Metrics) RecordDelivery(delivered bool) {
	if m == nil {
		return
	}
	if delivered {
		m.EventsDelivered.Inc()
		return
	}
	m.EventsDropped.Inc()
}

func (m *Metrics) SubscriptionOpened() {
	if m == nil {
		return
	}
	m.ActiveSubscriptions.Inc()
}

func (m *Metrics) SubscriptionClosed() {
	if m == nil {
		return
	}
	m.ActiveSubscriptions.Dec()
}

func (m *Metrics) RecordSinkError(sink string) {
	if m == nil {
		return
	}
	m.SinkErrors.WithLabelValues(sink).Inc()
}

func (m *Metrics) RecordWorkerRestart(worker string) {
	if m == nil {
		return
	}
	m.WorkerRestarts.WithLabelValues(worker).Inc()
}

func (m *Metrics) RecordProcess(rss uint64, cpu float64) {
	if m == nil {
		return
	}
	m.ProcessRSS.Set(float64(rss))
	m.ProcessCPU.Set(cpu)
}

func (m *Metrics) RecordQueue(name string, length, capacity int) {
	if m == nil {
		return
	}
	m.QueueLength.WithLabelValues(name).Set(float64(length))
	m.QueueCapacity.WithLabelValues(name).Set(float64(capacity))
}
