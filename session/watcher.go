package session

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// SoundPreference tells whether cues may be played.
type SoundPreference interface {
	SoundEnabled() bool
}

// Watcher keeps exactly one channel subscription open: the one shared with
// the selected partner. Inbound messages go to the cache.
type Watcher struct {
	log        *slog.Logger
	subscriber contract.Subscriber
	cache      *MessageCache
	sound      SoundPreference
	player     Player

	mu        sync.Mutex
	current   *watch
	onMessage atomic.Pointer[func(domain.Message)]
}

type watch struct {
	me      string
	partner string
	sub     contract.Subscription
	done    chan struct{}
}

func NewWatcher(log *slog.Logger, subscriber contract.Subscriber, cache *MessageCache,
	sound SoundPreference, player Player) *Watcher {
	return &Watcher{
		log:        log,
		subscriber: subscriber,
		cache:      cache,
		sound:      sound,
		player:     player,
	}
}

// Watch switches the subscription to the channel of (me, partner).
// The previous channel is released before the new one is opened.
func (w *Watcher) Watch(ctx context.Context, me, partner string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.current != nil && w.current.me == me && w.current.partner == partner {
		return nil
	}
	w.release()

	channel := domain.ChannelID(me, partner)
	sub, err := w.subscriber.Subscribe(ctx, channel)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", channel, err)
	}
	sub.Bind(event.NewMessage)

	current := &watch{me: me, partner: partner, sub: sub, done: make(chan struct{})}
	w.current = current
	go w.handle(current)
	w.log.Debug("Watching channel", "channel", channel)
	return nil
}

// OnMessage registers fn to be called for every message added to the cache.
// fn runs on the delivery goroutine and must not call Watch or Close.
func (w *Watcher) OnMessage(fn func(domain.Message)) {
	w.onMessage.Store(&fn)
}

// Close releases the current subscription, if any.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.release()
	return nil
}

// release must be called with mu held.
func (w *Watcher) release() {
	if w.current == nil {
		return
	}
	current := w.current
	w.current = nil
	current.sub.Unbind(event.NewMessage)
	if err := current.sub.Close(); err != nil {
		w.log.Warn("Unable to close subscription", "channel", current.sub.Channel(), "error", err)
	}
	<-current.done
}

func (w *Watcher) handle(current *watch) {
	defer close(current.done)
	for evt := range current.sub.Events() {
		if evt.Name != event.NewMessage {
			continue
		}
		msg, ok := messageOf(evt.Data)
		if !ok {
			w.log.Warn("Unexpected event payload", "event", evt.Name, "type", fmt.Sprintf("%T", evt.Data))
			continue
		}
		// Every inbound partner event notifies, even one the history already holds.
		if w.sound.SoundEnabled() && msg.SenderID != current.me {
			w.player.Play(Notification)
		}
		if !w.cache.Append(current.partner, msg) {
			continue
		}
		if fn := w.onMessage.Load(); fn != nil {
			(*fn)(msg)
		}
	}
}

func messageOf(data any) (domain.Message, bool) {
	switch payload := data.(type) {
	case event.NewMessagePayload:
		return payload.Message, true
	case *event.NewMessagePayload:
		if payload == nil {
			return domain.Message{}, false
		}
		return payload.Message, true
	case domain.Message:
		return payload, true
	default:
		return domain.Message{}, false
	}
}
