package sink

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/mocks"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type otherEvent struct{}

func (otherEvent) Channel() domain.Channel { return domain.ChannelID("a", "b") }

func TestSearchSink_Indexes_Sent_Messages(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	index := mocks.NewMockIMessageIndex(ctrl)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	message := domain.Message{
		ID:         uuid.New(),
		SenderID:   "alice",
		ReceiverID: "bob",
		Content:    "hello",
		Type:       domain.TextMessage,
		CreatedAt:  time.Now().UTC(),
	}

	// Given the index accepts the message once
	index.EXPECT().Index(message).Return(nil).Times(1)

	// When the sink consumes a sent message and an unrelated event
	s := NewSearchSink(index, log)
	req.NoError(s.Consume(context.Background(), event.MessageSent{Message: message}))
	req.NoError(s.Consume(context.Background(), otherEvent{}))
}

func TestSearchSink_Returns_Index_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	index := mocks.NewMockIMessageIndex(ctrl)
	boom := errors.New("index closed")
	index.EXPECT().Index(gomock.Any()).Return(boom)

	err := NewSearchSink(index, slog.Default()).Consume(context.Background(), event.MessageSent{})

	require.ErrorIs(t, err, boom)
}
