package session_test

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/services"
	"chat-relay/session"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newComposer(f sessionFixture) *session.Composer {
	return session.NewComposer(log, f.session, f.sender, f.prefs, f.player)
}

func selectBob(t *testing.T, f sessionFixture) {
	f.history.EXPECT().GetMessages(gomock.Any(), "bob", nil).Return(services.MessagePage{}, nil)
	require.NoError(t, f.session.Select(context.Background(), bob))
}

func TestComposer_Type_Plays_Keystroke(t *testing.T) {
	req := require.New(t)
	f := newSessionFixture(t)
	composer := newComposer(f)

	composer.Type("h")
	composer.Type("he")

	req.Equal("he", composer.Draft())
	cues := f.player.Cues()
	req.Len(cues, 2)
	for _, cue := range cues {
		req.Contains(session.Keystrokes, cue)
	}

	// And nothing is played with sound off
	req.NoError(f.prefs.SetSoundEnabled(false))
	composer.Type("hey")
	req.Len(f.player.Cues(), 3)
}

func TestComposer_Enter_Sends_And_Shift_Enter_Breaks_Line(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newSessionFixture(t)
	selectBob(t, f)
	composer := newComposer(f)
	sent := newMessage("alice", "bob", "hello\nworld")

	f.sender.EXPECT().SendMessage(gomock.Any(), services.SendMessageRequest{
		Content:     "hello\nworld",
		MessageType: domain.TextMessage,
		ReceiverID:  "bob",
	}).Return(sent, nil)

	// Given a draft split by Shift+Enter
	composer.Type("hello")
	m, err := composer.KeyDown(ctx, session.KeyEnter, true)
	req.NoError(err)
	req.Nil(m)
	composer.AddEmoji("world")
	req.Equal("hello\nworld", composer.Draft())

	// When Enter is pressed
	m, err = composer.KeyDown(ctx, session.KeyEnter, false)

	// Then the message is sent, cached and the draft cleared
	req.NoError(err)
	req.Equal(sent.ID, m.ID)
	req.Empty(composer.Draft())
	req.Equal([]domain.Message{sent}, f.session.Messages())
	req.False(composer.Pending())
}

func TestComposer_Submit_Sends_Draft_As_Typed(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newSessionFixture(t)
	selectBob(t, f)
	composer := newComposer(f)
	sent := newMessage("alice", "bob", "  indented\n")

	// Given an indented draft ending with Shift+Enter
	composer.Type("  indented")
	_, err := composer.KeyDown(ctx, session.KeyEnter, true)
	req.NoError(err)

	// Then it is sent without trimming
	f.sender.EXPECT().SendMessage(gomock.Any(), services.SendMessageRequest{
		Content:     "  indented\n",
		MessageType: domain.TextMessage,
		ReceiverID:  "bob",
	}).Return(sent, nil)
	m, err := composer.Submit(ctx)
	req.NoError(err)
	req.Equal(sent.ID, m.ID)
}

func TestComposer_Other_Keys_Do_Nothing(t *testing.T) {
	req := require.New(t)
	f := newSessionFixture(t)
	composer := newComposer(f)
	composer.Type("hi")

	m, err := composer.KeyDown(context.Background(), "a", false)
	req.NoError(err)
	req.Nil(m)
	req.Equal("hi", composer.Draft())
}

func TestComposer_Submit_Blank_Draft_Is_Kept(t *testing.T) {
	req := require.New(t)
	f := newSessionFixture(t)
	selectBob(t, f)
	composer := newComposer(f)

	composer.Type("   ")
	m, err := composer.Submit(context.Background())

	req.NoError(err)
	req.Nil(m)
	req.Equal("   ", composer.Draft())
}

func TestComposer_Submit_Without_Partner_Clears_Draft(t *testing.T) {
	req := require.New(t)
	f := newSessionFixture(t)
	composer := newComposer(f)

	composer.Type("lost words")
	m, err := composer.Submit(context.Background())

	req.NoError(err)
	req.Nil(m)
	req.Empty(composer.Draft())
}

func TestComposer_Submit_Error_Clears_Draft(t *testing.T) {
	req := require.New(t)
	f := newSessionFixture(t)
	selectBob(t, f)
	composer := newComposer(f)
	f.sender.EXPECT().SendMessage(gomock.Any(), gomock.Any()).Return(domain.Message{}, errors.ErrContentTooLong)

	composer.Type("way too long")
	_, err := composer.Submit(context.Background())

	req.ErrorIs(err, errors.ErrContentTooLong)
	req.Empty(composer.Draft())
	req.Empty(f.session.Messages())
}

func TestComposer_ThumbsUp(t *testing.T) {
	req := require.New(t)
	f := newSessionFixture(t)
	composer := newComposer(f)

	// Given no partner the reaction is refused
	_, err := composer.ThumbsUp(context.Background())
	req.ErrorIs(err, errors.ErrUnknownReceiver)

	// When bob is selected
	selectBob(t, f)
	f.sender.EXPECT().SendMessage(gomock.Any(), services.SendMessageRequest{
		Content:     domain.ThumbsUp,
		MessageType: domain.TextMessage,
		ReceiverID:  "bob",
	}).Return(newMessage("alice", "bob", domain.ThumbsUp), nil)

	// Then the thumbs up is sent as text
	m, err := composer.ThumbsUp(context.Background())
	req.NoError(err)
	req.Equal(domain.ThumbsUp, m.Content)
}

func TestComposer_Image_Preview(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newSessionFixture(t)
	selectBob(t, f)
	composer := newComposer(f)
	url := "https://cdn.example.com/cat.png"
	image := newMessage("alice", "bob", url)
	image.Type = domain.ImageMessage

	// Given a discarded preview nothing is sent
	composer.AttachImage(url)
	composer.DiscardImage()
	_, ok := composer.PendingImage()
	req.False(ok)
	m, err := composer.SendImage(ctx)
	req.NoError(err)
	req.Nil(m)

	// When a preview is confirmed
	composer.AttachImage(url)
	pending, ok := composer.PendingImage()
	req.True(ok)
	req.Equal(url, pending)
	f.sender.EXPECT().SendMessage(gomock.Any(), services.SendMessageRequest{
		Content:     url,
		MessageType: domain.ImageMessage,
		ReceiverID:  "bob",
	}).Return(image, nil)
	m, err = composer.SendImage(ctx)

	// Then the image message is sent and the preview cleared
	req.NoError(err)
	req.Equal(domain.ImageMessage, m.Type)
	_, ok = composer.PendingImage()
	req.False(ok)
}
