//go:generate go run go.uber.org/mock/mockgen -source=search.go -destination=../mocks/mock_message_index.go -package=mocks
package repositories

import (
	"chat-relay/domain"
	"context"
	"log/slog"

	"github.com/blugelabs/bluge"
	"github.com/google/uuid"
)

const (
	channelField   = "channel"
	senderField    = "senderId"
	receiverField  = "receiverId"
	contentField   = "content"
	createdAtField = "createdAt"
)

type IMessageIndex interface {
	Index(message domain.Message) error
	Search(ctx context.Context, channel domain.Channel, terms string, limit int) ([]domain.Message, error)
}

// MessageIndex is the full-text index of text messages.
// Every field is stored so that hits can be rebuilt without reading Badger.
type MessageIndex struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewMessageIndex(writer *bluge.Writer, log *slog.Logger) *MessageIndex {
	return &MessageIndex{writer: writer, log: log}
}

// Index adds a text message to the index. Image messages are skipped:
// their content is a URL.
func (i *MessageIndex) Index(message domain.Message) error {
	if message.Type != domain.TextMessage {
		return nil
	}
	doc := bluge.NewDocument(message.ID.String()).
		AddField(bluge.NewKeywordField(channelField, message.Channel().String()).StoreValue()).
		AddField(bluge.NewKeywordField(senderField, message.SenderID).StoreValue()).
		AddField(bluge.NewKeywordField(receiverField, message.ReceiverID).StoreValue()).
		AddField(bluge.NewTextField(contentField, message.Content).StoreValue()).
		AddField(bluge.NewDateTimeField(createdAtField, message.CreatedAt).StoreValue().Sortable())
	return i.writer.Update(doc.ID(), doc)
}

// Search returns the messages of one channel matching terms, newest first.
func (i *MessageIndex) Search(ctx context.Context, channel domain.Channel, terms string, limit int) ([]domain.Message, error) {
	reader, err := i.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer func() { _ = reader.Close() }()

	query := bluge.NewBooleanQuery().
		AddMust(bluge.NewTermQuery(channel.String()).SetField(channelField)).
		AddMust(bluge.NewMatchQuery(terms).SetField(contentField))
	request := bluge.NewTopNSearch(limit, query).SortBy([]string{"-" + createdAtField})

	matches, err := reader.Search(ctx, request)
	if err != nil {
		return nil, err
	}

	var messages []domain.Message
	match, err := matches.Next()
	for err == nil && match != nil {
		message := domain.Message{Type: domain.TextMessage}
		var fieldErr error
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "_id":
				message.ID, fieldErr = uuid.ParseBytes(value)
			case senderField:
				message.SenderID = string(value)
			case receiverField:
				message.ReceiverID = string(value)
			case contentField:
				message.Content = string(value)
			case createdAtField:
				message.CreatedAt, fieldErr = bluge.DecodeDateTime(value)
				message.CreatedAt = message.CreatedAt.UTC()
			}
			return fieldErr == nil
		})
		if err != nil {
			return nil, err
		}
		if fieldErr != nil {
			return nil, fieldErr
		}
		messages = append(messages, message)
		match, err = matches.Next()
	}
	if err != nil {
		return nil, err
	}
	i.log.Debug("Conversation searched", "channel", channel, "hits", len(messages))
	return messages, nil
}
