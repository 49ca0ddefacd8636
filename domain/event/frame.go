package event

import (
	"chat-relay/domain"
	"encoding/json"
)

// FrameType is the kind of a frame exchanged on the channel websocket.
type FrameType string

const (
	SubscribeFrame   FrameType = "subscribe"
	UnsubscribeFrame FrameType = "unsubscribe"
	BindFrame        FrameType = "bind"
	UnbindFrame      FrameType = "unbind"

	SubscribedFrame FrameType = "subscribed"
	ErrorFrame      FrameType = "error"
	EventFrame      FrameType = "event"
)

// ClientFrame is sent by a client to manage its channel subscriptions.
type ClientFrame struct {
	Type    FrameType      `json:"type"`
	Channel domain.Channel `json:"channel"`
	Event   string         `json:"event,omitempty"`
}

// ServerFrame is pushed by the server: subscription acknowledgements,
// errors and channel events.
type ServerFrame struct {
	Type    FrameType       `json:"type"`
	Channel domain.Channel  `json:"channel"`
	Event   string          `json:"event,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// DecodeData turns the raw data of a pushed event back into its payload.
// Unknown events keep their raw JSON.
func DecodeData(name string, raw json.RawMessage) (any, error) {
	switch name {
	case NewMessage:
		var payload NewMessagePayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, err
		}
		return payload, nil
	default:
		return raw, nil
	}
}
