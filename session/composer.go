package session

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/services"
	"context"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"sync/atomic"
)

// KeyEnter is the key name that submits the draft.
const KeyEnter = "Enter"

// Composer edits the draft of the open conversation and sends it.
type Composer struct {
	log         *slog.Logger
	session     *Session
	sender      Sender
	preferences SoundPreference
	player      Player
	pick        func(n int) int
	pending     atomic.Int32

	mu    sync.Mutex
	draft string
	image string
}

func NewComposer(log *slog.Logger, session *Session, sender Sender, preferences SoundPreference, player Player) *Composer {
	return &Composer{
		log:         log,
		session:     session,
		sender:      sender,
		preferences: preferences,
		player:      player,
		pick:        rand.IntN,
	}
}

func (c *Composer) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// Type replaces the draft with text.
func (c *Composer) Type(text string) {
	c.mu.Lock()
	c.draft = text
	c.mu.Unlock()
	if c.preferences.SoundEnabled() {
		c.player.Play(Keystrokes[c.pick(len(Keystrokes))])
	}
}

// KeyDown handles a key press in the input: Enter submits, Shift+Enter
// inserts a line break. The message is returned when one was sent.
func (c *Composer) KeyDown(ctx context.Context, key string, shift bool) (*domain.Message, error) {
	if key != KeyEnter {
		return nil, nil
	}
	if shift {
		c.mu.Lock()
		c.draft += "\n"
		c.mu.Unlock()
		return nil, nil
	}
	return c.Submit(ctx)
}

func (c *Composer) AddEmoji(emoji string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft += emoji
}

// Submit sends the draft as a text message. A blank draft is kept as is;
// otherwise the draft is cleared even when no partner is selected.
func (c *Composer) Submit(ctx context.Context) (*domain.Message, error) {
	c.mu.Lock()
	draft := c.draft
	if strings.TrimSpace(draft) == "" {
		c.mu.Unlock()
		return nil, nil
	}
	c.draft = ""
	c.mu.Unlock()

	partner, ok := c.session.Selected()
	if !ok {
		return nil, nil
	}
	return c.send(ctx, partner.ID, draft, domain.TextMessage)
}

// ThumbsUp sends the quick reaction to the selected partner.
func (c *Composer) ThumbsUp(ctx context.Context) (*domain.Message, error) {
	partner, ok := c.session.Selected()
	if !ok {
		return nil, errors.ErrUnknownReceiver
	}
	return c.send(ctx, partner.ID, domain.ThumbsUp, domain.TextMessage)
}

// AttachImage sets the image waiting for confirmation.
func (c *Composer) AttachImage(url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.image = url
}

// PendingImage returns the image waiting for confirmation, if any.
func (c *Composer) PendingImage() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.image, c.image != ""
}

// SendImage sends the attached image and clears the preview.
func (c *Composer) SendImage(ctx context.Context) (*domain.Message, error) {
	c.mu.Lock()
	url := c.image
	c.image = ""
	c.mu.Unlock()
	if url == "" {
		return nil, nil
	}
	partner, ok := c.session.Selected()
	if !ok {
		return nil, errors.ErrUnknownReceiver
	}
	return c.send(ctx, partner.ID, url, domain.ImageMessage)
}

func (c *Composer) DiscardImage() {
	c.AttachImage("")
}

// Pending reports whether a send is in flight.
func (c *Composer) Pending() bool {
	return c.pending.Load() > 0
}

func (c *Composer) send(ctx context.Context, partnerID, content string, messageType domain.MessageType) (*domain.Message, error) {
	c.pending.Add(1)
	defer c.pending.Add(-1)
	message, err := c.sender.SendMessage(ctx, services.SendMessageRequest{
		Content:     content,
		MessageType: messageType,
		ReceiverID:  partnerID,
	})
	if err != nil {
		c.log.Warn("Message not sent", "partner", partnerID, "type", messageType, "error", err)
		return nil, err
	}
	c.session.Remember(message)
	return &message, nil
}
