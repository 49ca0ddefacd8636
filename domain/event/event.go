package event

import (
	"chat-relay/domain"
	"time"

	"github.com/google/uuid"
)

// NewMessage is the channel event carrying a freshly stored message.
const NewMessage = "newMessage"

// DomainEvent is produced by the send pipeline and routed by channel.
type DomainEvent interface {
	Channel() domain.Channel
}

// MessageSent is emitted once a message has been persisted.
type MessageSent struct {
	Message  domain.Message
	Lang     string
	Censored []string
}

func (m MessageSent) Channel() domain.Channel {
	return m.Message.Channel()
}

// Event is what a channel subscriber receives.
type Event struct {
	ID      uuid.UUID
	Channel domain.Channel
	Name    string
	Data    any
	At      time.Time
}

// NewMessagePayload is the data of a NewMessage event.
type NewMessagePayload struct {
	Message domain.Message `json:"message"`
}
