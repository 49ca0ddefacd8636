//go:generate go run go.uber.org/mock/mockgen -source=chat_service.go -destination=../mocks/servicemocks/mock_chat_service.go -package=servicemocks
package services

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/domain/search"
	"chat-relay/errors"
	"chat-relay/moderation"
	"chat-relay/repositories"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

var validate = validator.New()

type IChatService interface {
	SendMessage(ctx context.Context, senderID string, req SendMessageRequest) (domain.Message, error)
	GetMessages(ctx context.Context, me, partnerID string, cursor *string) (MessagePage, error)
	SearchMessages(ctx context.Context, me, partnerID, terms string, limit int) ([]domain.Message, error)
	ListContacts(ctx context.Context, me string) ([]domain.User, error)
}

// SendMessageRequest is the payload of the send action.
type SendMessageRequest struct {
	Content     string             `json:"content"`
	MessageType domain.MessageType `json:"messageType"`
	ReceiverID  string             `json:"receiverId"`
}

// MessagePage is a chronological slice of a conversation.
// Cursor points to older messages, nil when the history is exhausted.
type MessagePage struct {
	Messages []domain.Message `json:"messages"`
	Cursor   *string          `json:"cursor,omitempty"`
}

type ChatService struct {
	log              *slog.Logger
	users            repositories.IUserRepository
	messages         repositories.IMessageRepository
	index            repositories.IMessageIndex
	moderator        contract.IModerator
	publisher        contract.Publisher
	maxContentLength int
	now              func() time.Time
}

func NewChatService(
	log *slog.Logger,
	users repositories.IUserRepository,
	messages repositories.IMessageRepository,
	index repositories.IMessageIndex,
	moderator contract.IModerator,
	publisher contract.Publisher,
	maxContentLength int,
) *ChatService {
	return &ChatService{
		log:              log,
		users:            users,
		messages:         messages,
		index:            index,
		moderator:        moderator,
		publisher:        publisher,
		maxContentLength: maxContentLength,
		now:              time.Now,
	}
}

// SendMessage validates and stores a message then publishes it on the
// conversation channel. Publishing never fails the call: once stored, the
// message is part of the history.
func (s *ChatService) SendMessage(ctx context.Context, senderID string, req SendMessageRequest) (domain.Message, error) {
	cmd, err := s.toCommand(senderID, req)
	if err != nil {
		return domain.Message{}, err
	}

	if _, err = s.users.GetUserByID(cmd.ReceiverID); err != nil {
		if stderrors.Is(err, errors.ErrUserNotFound) {
			return domain.Message{}, fmt.Errorf("%w: %s", errors.ErrUnknownReceiver, cmd.ReceiverID)
		}
		return domain.Message{}, err
	}

	var verdict moderation.Verdict
	if cmd.Type == domain.TextMessage {
		verdict = s.moderator.Inspect(cmd.Content)
		cmd.Content = verdict.Content
	}

	message := domain.Message{
		ID:         uuid.New(),
		SenderID:   cmd.SenderID,
		ReceiverID: cmd.ReceiverID,
		Content:    cmd.Content,
		Type:       cmd.Type,
		CreatedAt:  cmd.CreatedAt,
	}
	if err = s.messages.StoreMessage(message); err != nil {
		return domain.Message{}, fmt.Errorf("store message: %w", err)
	}

	s.publisher.Publish(event.MessageSent{
		Message:  message,
		Lang:     verdict.Lang,
		Censored: verdict.Censored,
	})
	s.log.Debug("Message sent", "channel", message.Channel(), "id", message.ID)
	return message, nil
}

func (s *ChatService) toCommand(senderID string, req SendMessageRequest) (domain.SendMessageCommand, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return domain.SendMessageCommand{}, errors.ErrEmptyContent
	}
	if !req.MessageType.Valid() {
		return domain.SendMessageCommand{}, fmt.Errorf("%w: %q", errors.ErrInvalidMessageType, req.MessageType)
	}
	switch req.MessageType {
	case domain.ImageMessage:
		if err := validate.Var(content, "http_url"); err != nil {
			return domain.SendMessageCommand{}, errors.ErrInvalidImageURL
		}
	case domain.TextMessage:
		// Text keeps its indentation and line breaks, only the check is trimmed.
		content = req.Content
		if s.maxContentLength > 0 && utf8.RuneCountInString(content) > s.maxContentLength {
			return domain.SendMessageCommand{}, errors.ErrContentTooLong
		}
	}
	if req.ReceiverID == "" {
		return domain.SendMessageCommand{}, errors.ErrUnknownReceiver
	}
	if req.ReceiverID == senderID {
		return domain.SendMessageCommand{}, errors.ErrSelfConversation
	}
	return domain.SendMessageCommand{
		SenderID:   senderID,
		ReceiverID: req.ReceiverID,
		Content:    content,
		Type:       req.MessageType,
		CreatedAt:  s.now().UTC(),
	}, nil
}

// GetMessages returns the newest page of the conversation with partnerID,
// oldest message first, or the page preceding cursor.
func (s *ChatService) GetMessages(_ context.Context, me, partnerID string, cursor *string) (MessagePage, error) {
	channel, err := s.conversation(me, partnerID)
	if err != nil {
		return MessagePage{}, err
	}
	messages, next, err := s.messages.GetMessages(channel, cursor)
	if err != nil {
		return MessagePage{}, fmt.Errorf("get messages: %w", err)
	}
	return MessagePage{Messages: lo.Reverse(messages), Cursor: next}, nil
}

// SearchMessages runs a full-text search restricted to one conversation.
func (s *ChatService) SearchMessages(ctx context.Context, me, partnerID, terms string, limit int) ([]domain.Message, error) {
	channel, err := s.conversation(me, partnerID)
	if err != nil {
		return nil, err
	}
	terms = strings.TrimSpace(terms)
	if terms == "" {
		return nil, fmt.Errorf("%w: empty search", errors.ErrInvalidPayload)
	}
	return s.index.Search(ctx, channel, terms, search.ClampLimit(limit))
}

// ListContacts returns every user but me.
func (s *ChatService) ListContacts(_ context.Context, me string) ([]domain.User, error) {
	users, err := s.users.ListUsers()
	if err != nil {
		return nil, err
	}
	return lo.FilterMap(users, func(u repositories.User, _ int) (domain.User, bool) {
		return u.ToDomain(), u.ID != me
	}), nil
}

func (s *ChatService) conversation(me, partnerID string) (domain.Channel, error) {
	if partnerID == me {
		return "", errors.ErrSelfConversation
	}
	if _, err := s.users.GetUserByID(partnerID); err != nil {
		return "", err
	}
	return domain.ChannelID(me, partnerID), nil
}
