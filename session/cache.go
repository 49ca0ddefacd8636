package session

import (
	"chat-relay/domain"
	"sync"

	"github.com/google/uuid"
)

// MessageCache holds the conversation history per partner, oldest first.
type MessageCache struct {
	mu            sync.RWMutex
	conversations map[string]*conversation
}

type conversation struct {
	messages []domain.Message
	seen     map[uuid.UUID]struct{}
}

func NewMessageCache() *MessageCache {
	return &MessageCache{conversations: make(map[string]*conversation)}
}

// Set replaces the history of a partner. Messages appended before the
// history arrived and missing from it are kept after it.
func (c *MessageCache) Set(partnerID string, history []domain.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := &conversation{seen: make(map[uuid.UUID]struct{}, len(history))}
	for _, m := range history {
		next.add(m)
	}
	if previous, ok := c.conversations[partnerID]; ok {
		for _, m := range previous.messages {
			next.add(m)
		}
	}
	c.conversations[partnerID] = next
}

// Get returns a copy of the cached messages of a partner.
func (c *MessageCache) Get(partnerID string) []domain.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	conv, ok := c.conversations[partnerID]
	if !ok {
		return []domain.Message{}
	}
	return append([]domain.Message{}, conv.messages...)
}

// Append adds m at the end of the partner's history.
// It reports false when a message with the same ID is already cached.
func (c *MessageCache) Append(partnerID string, m domain.Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	conv, ok := c.conversations[partnerID]
	if !ok {
		conv = &conversation{seen: make(map[uuid.UUID]struct{})}
		c.conversations[partnerID] = conv
	}
	return conv.add(m)
}

// Invalidate forgets the partner's history so the next read reloads it.
func (c *MessageCache) Invalidate(partnerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.conversations, partnerID)
}

func (c *conversation) add(m domain.Message) bool {
	if _, ok := c.seen[m.ID]; ok {
		return false
	}
	c.seen[m.ID] = struct{}{}
	c.messages = append(c.messages, m)
	return true
}
