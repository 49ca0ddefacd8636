package domain

import (
	"chat-relay/errors"
	"fmt"
	"sort"
	"strings"
)

// ChannelSeparator joins the two sorted participant identifiers.
const ChannelSeparator = "__"

// Channel is the name of the real-time topic shared by two participants.
type Channel string

// ChannelID derives the channel of a one-to-one conversation.
// Identifiers are sorted before being joined so both participants compute
// the same name independently.
func ChannelID(a, b string) Channel {
	ids := []string{a, b}
	sort.Strings(ids)
	return Channel(strings.Join(ids, ChannelSeparator))
}

// ParseChannel validates a channel name built by ChannelID.
// Use Participants to split it.
func ParseChannel(name string) (Channel, error) {
	a, b, ok := strings.Cut(name, ChannelSeparator)
	if !ok || a == "" || b == "" || strings.Contains(b, ChannelSeparator) {
		return "", fmt.Errorf("%w: %q", errors.ErrInvalidChannel, name)
	}
	if a > b {
		return "", fmt.Errorf("%w: %q is not sorted", errors.ErrInvalidChannel, name)
	}
	return Channel(name), nil
}

func (c Channel) String() string { return string(c) }

// Participants returns both identifiers in sorted order.
func (c Channel) Participants() (string, string) {
	a, b, _ := strings.Cut(string(c), ChannelSeparator)
	return a, b
}

// Has reports whether userID is one of the participants.
func (c Channel) Has(userID string) bool {
	a, b := c.Participants()
	return userID != "" && (a == userID || b == userID)
}
