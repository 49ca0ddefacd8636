// Package runtime hosts the real-time channel hub and the send pipeline.
// It orchestrates delivery without containing business rules.
package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/observability"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	_ contract.Subscriber = (*Hub)(nil)
	_ contract.EventSink  = (*Hub)(nil)
)

// Hub is an in-process publish/subscribe service keyed by channel name.
//
// Delivery is at-most-once: a subscription whose buffer stays full for
// longer than the delivery timeout misses the event. Events triggered
// sequentially reach each subscription in trigger order.
type Hub struct {
	log             *slog.Logger
	registry        contract.IRegistry
	metrics         *observability.Metrics
	bufferSize      int
	deliveryTimeout time.Duration
}

func NewHub(log *slog.Logger, registry contract.IRegistry, metrics *observability.Metrics,
	bufferSize int, deliveryTimeout time.Duration) *Hub {
	return &Hub{
		log:             log,
		registry:        registry,
		metrics:         metrics,
		bufferSize:      bufferSize,
		deliveryTimeout: deliveryTimeout,
	}
}

// Subscribe opens a subscription with no event bound yet.
func (h *Hub) Subscribe(_ context.Context, channel domain.Channel) (contract.Subscription, error) {
	if channel == "" {
		return nil, fmt.Errorf("%w: empty name", errors.ErrInvalidChannel)
	}
	sub := &hubSubscription{
		id:      uuid.New(),
		hub:     h,
		channel: channel,
		bound:   make(map[string]struct{}),
		events:  make(chan event.Event, h.bufferSize),
	}
	h.registry.Add(sub)
	h.metrics.SubscriptionOpened()
	h.log.Debug("Channel subscribed", "channel", channel, "subscription", sub.id)
	return sub, nil
}

// Unsubscribe closes the subscription. Calling it twice is harmless.
func (h *Hub) Unsubscribe(sub contract.Subscription) error {
	return sub.Close()
}

// Trigger publishes a named event on a channel and returns how many
// subscriptions received it.
func (h *Hub) Trigger(ctx context.Context, channel domain.Channel, name string, data any) int {
	evt := event.Event{
		ID:      uuid.New(),
		Channel: channel,
		Name:    name,
		Data:    data,
		At:      time.Now().UTC(),
	}
	delivered := 0
	for _, sub := range h.registry.Subscriptions(channel) {
		hs, ok := sub.(*hubSubscription)
		if !ok || !hs.isBound(name) {
			continue
		}
		ok = hs.deliver(ctx, evt, h.deliveryTimeout)
		h.metrics.RecordDelivery(ok)
		if !ok {
			h.log.Warn("Channel event dropped", "channel", channel, "event", name, "subscription", hs.id)
			continue
		}
		delivered++
	}
	return delivered
}

// Consume turns persisted messages into NewMessage channel events.
func (h *Hub) Consume(ctx context.Context, e event.DomainEvent) error {
	switch evt := e.(type) {
	case event.MessageSent:
		h.Trigger(ctx, evt.Channel(), event.NewMessage, event.NewMessagePayload{Message: evt.Message})
	default:
		h.log.Debug(fmt.Sprintf("Not implemented event : %T", evt))
	}
	return nil
}

type hubSubscription struct {
	id      uuid.UUID
	hub     *Hub
	channel domain.Channel

	mu     sync.RWMutex
	bound  map[string]struct{}
	events chan event.Event
	closed bool
	once   sync.Once
}

func (s *hubSubscription) Channel() domain.Channel { return s.channel }

func (s *hubSubscription) Events() <-chan event.Event { return s.events }

func (s *hubSubscription) Bind(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bound[name] = struct{}{}
}

func (s *hubSubscription) Unbind(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.bound, name)
}

func (s *hubSubscription) isBound(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.bound[name]
	return ok && !s.closed
}

// deliver holds the read lock while sending so Close cannot close the
// stream under a pending send.
func (s *hubSubscription) deliver(ctx context.Context, evt event.Event, timeout time.Duration) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false
	}
	if _, ok := s.bound[evt.Name]; !ok {
		return false
	}

	select {
	case s.events <- evt:
		return true
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case s.events <- evt:
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}

// Close unregisters the subscription and closes its stream exactly once.
func (s *hubSubscription) Close() error {
	s.once.Do(func() {
		s.hub.registry.Remove(s)

		s.mu.Lock()
		s.closed = true
		s.bound = make(map[string]struct{})
		close(s.events)
		s.mu.Unlock()

		s.hub.metrics.SubscriptionClosed()
		s.hub.log.Debug("Channel unsubscribed", "channel", s.channel, "subscription", s.id)
	})
	return nil
}
