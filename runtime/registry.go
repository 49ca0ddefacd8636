package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"sync"
)

type Set map[contract.Subscription]struct{}

// Registry indexes open subscriptions by channel.
type Registry struct {
	mu       sync.RWMutex
	channels map[domain.Channel]Set
}

func NewRegistry() *Registry {
	return &Registry{channels: make(map[domain.Channel]Set)}
}

// Add attaches a subscription to its channel.
// It returns false when the subscription was already registered.
func (r *Registry) Add(sub contract.Subscription) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.channels[sub.Channel()]
	if !ok {
		members = make(Set)
		r.channels[sub.Channel()] = members
	}
	if _, exists := members[sub]; exists {
		return false
	}
	members[sub] = struct{}{}
	return true
}

// Remove detaches a subscription and drops the channel entry once empty.
// It returns false when the subscription was not registered, so callers can
// tell a first removal from a repeated one.
func (r *Registry) Remove(sub contract.Subscription) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.channels[sub.Channel()]
	if !ok {
		return false
	}
	if _, exists := members[sub]; !exists {
		return false
	}
	delete(members, sub)
	if len(members) == 0 {
		delete(r.channels, sub.Channel())
	}
	return true
}

// Subscriptions returns a snapshot of the channel members.
// Returns nil if nobody listens on the channel.
func (r *Registry) Subscriptions(channel domain.Channel) []contract.Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.channels[channel]
	if !ok {
		return nil
	}
	subs := make([]contract.Subscription, 0, len(members))
	for sub := range members {
		subs = append(subs, sub)
	}
	return subs
}

func (r *Registry) Count(channel domain.Channel) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels[channel])
}

// Channels returns the number of channels with at least one listener.
func (r *Registry) Channels() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels)
}
