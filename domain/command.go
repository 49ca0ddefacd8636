package domain

import (
	"time"
)

// SendMessageCommand is the validated intent to post a message.
type SendMessageCommand struct {
	SenderID   string
	ReceiverID string
	Content    string
	Type       MessageType
	CreatedAt  time.Time
}

func (c SendMessageCommand) Channel() Channel {
	return ChannelID(c.SenderID, c.ReceiverID)
}
