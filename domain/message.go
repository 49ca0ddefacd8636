// Package domain contains core concepts of the chat system.
// This file defines Message records and the message kinds a sender may post.
// Messages are immutable once the server assigned their identifier.
package domain

import (
	"time"

	"github.com/google/uuid"
)

type MessageType string

const (
	TextMessage  MessageType = "text"
	ImageMessage MessageType = "image"
)

// ThumbsUp is the quick-reaction content sent without typing.
const ThumbsUp = "👍"

func (t MessageType) Valid() bool {
	return t == TextMessage || t == ImageMessage
}

// Message represents an immutable chat record between two users.
type Message struct {
	ID         uuid.UUID   `json:"id"`
	SenderID   string      `json:"senderId"`
	ReceiverID string      `json:"receiverId"`
	Content    string      `json:"content"`
	Type       MessageType `json:"messageType"`
	CreatedAt  time.Time   `json:"createdAt"`
}

// Channel returns the channel both participants of the message listen on.
func (m Message) Channel() Channel {
	return ChannelID(m.SenderID, m.ReceiverID)
}

// PartnerOf returns the other participant of the message as seen by userID.
func (m Message) PartnerOf(userID string) string {
	if m.SenderID == userID {
		return m.ReceiverID
	}
	return m.SenderID
}
