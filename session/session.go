//go:generate go run go.uber.org/mock/mockgen -source=session.go -destination=../mocks/sessionmocks/mock_session.go -package=sessionmocks

// Package session holds the state of one signed-in chat participant:
// the selected partner, cached conversations, preferences and the
// message composer.
package session

import (
	"chat-relay/domain"
	"chat-relay/services"
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Sender posts the send action on behalf of the signed-in user.
type Sender interface {
	SendMessage(ctx context.Context, req services.SendMessageRequest) (domain.Message, error)
}

// HistoryLoader fetches a page of the conversation with a partner.
type HistoryLoader interface {
	GetMessages(ctx context.Context, partnerID string, cursor *string) (services.MessagePage, error)
}

type Session struct {
	log         *slog.Logger
	me          domain.User
	preferences *Preferences
	player      Player
	cache       *MessageCache
	watcher     *Watcher
	history     HistoryLoader

	mu       sync.RWMutex
	selected *domain.User
	cursor   *string
}

func New(log *slog.Logger, me domain.User, preferences *Preferences, player Player,
	cache *MessageCache, watcher *Watcher, history HistoryLoader) *Session {
	return &Session{
		log:         log,
		me:          me,
		preferences: preferences,
		player:      player,
		cache:       cache,
		watcher:     watcher,
		history:     history,
	}
}

func (s *Session) Me() domain.User {
	return s.me
}

// Selected returns the partner of the open conversation.
func (s *Session) Selected() (domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selected == nil {
		return domain.User{}, false
	}
	return *s.selected, true
}

// Select opens the conversation with user: the channel is watched first so
// nothing sent while the history loads is missed.
func (s *Session) Select(ctx context.Context, user domain.User) error {
	if s.preferences.SoundEnabled() {
		s.player.Play(MouseClick)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected != nil && s.selected.ID == user.ID {
		return nil
	}
	if s.selected != nil {
		s.cache.Invalidate(s.selected.ID)
	}
	selected := user
	s.selected = &selected
	s.cursor = nil

	// A failed selection is forgotten so that selecting the same user retries.
	if err := s.watcher.Watch(ctx, s.me.ID, user.ID); err != nil {
		s.selected = nil
		return err
	}
	page, err := s.history.GetMessages(ctx, user.ID, nil)
	if err != nil {
		s.selected = nil
		return fmt.Errorf("load history with %s: %w", user.ID, err)
	}
	s.cache.Set(user.ID, page.Messages)
	s.cursor = page.Cursor
	s.log.Debug("Conversation selected", "partner", user.ID, "messages", len(page.Messages))
	return nil
}

// Messages returns the cached conversation with the selected partner.
func (s *Session) Messages() []domain.Message {
	selected, ok := s.Selected()
	if !ok {
		return []domain.Message{}
	}
	return s.cache.Get(selected.ID)
}

// LoadOlder prepends the page preceding the oldest cached message.
// It reports false once the history is exhausted.
func (s *Session) LoadOlder(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == nil || s.cursor == nil {
		return false, nil
	}
	page, err := s.history.GetMessages(ctx, s.selected.ID, s.cursor)
	if err != nil {
		return false, fmt.Errorf("load older messages: %w", err)
	}
	s.cache.Set(s.selected.ID, append(page.Messages, s.cache.Get(s.selected.ID)...))
	s.cursor = page.Cursor
	return len(page.Messages) > 0, nil
}

// Remember records a message the user just sent in the open conversation.
func (s *Session) Remember(m domain.Message) {
	s.cache.Append(m.PartnerOf(s.me.ID), m)
}

// Close stops watching the current channel.
func (s *Session) Close() error {
	return s.watcher.Close()
}
