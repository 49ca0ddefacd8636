package session_test

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/mocks"
	"chat-relay/runtime"
	"chat-relay/session"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type fixedSound bool

func (f fixedSound) SoundEnabled() bool { return bool(f) }

func newHub() *runtime.Hub {
	return runtime.NewHub(log, runtime.NewRegistry(), nil, 16, 50*time.Millisecond)
}

// newMockSubscription returns a subscription mock and the Close behaviour
// ending its stream.
func newMockSubscription(ctrl *gomock.Controller, channel domain.Channel) (*mocks.MockSubscription, func() error) {
	sub := mocks.NewMockSubscription(ctrl)
	events := make(chan event.Event)
	sub.EXPECT().Channel().Return(channel).AnyTimes()
	sub.EXPECT().Events().Return((<-chan event.Event)(events)).AnyTimes()
	return sub, func() error {
		close(events)
		return nil
	}
}

func TestWatcher_Switch_Unsubscribes_Previous_Once_Before_Subscribing(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	subscriber := mocks.NewMockSubscriber(ctrl)
	toBob := domain.ChannelID("alice", "bob")
	toCarol := domain.ChannelID("alice", "carol")
	bobSub, closeBob := newMockSubscription(ctrl, toBob)
	carolSub, closeCarol := newMockSubscription(ctrl, toCarol)

	// Given the expected sequence of channel operations
	gomock.InOrder(
		subscriber.EXPECT().Subscribe(gomock.Any(), toBob).Return(bobSub, nil),
		bobSub.EXPECT().Bind(event.NewMessage),
		bobSub.EXPECT().Unbind(event.NewMessage).Times(1),
		bobSub.EXPECT().Close().DoAndReturn(closeBob).Times(1),
		subscriber.EXPECT().Subscribe(gomock.Any(), toCarol).Return(carolSub, nil),
		carolSub.EXPECT().Bind(event.NewMessage),
		carolSub.EXPECT().Unbind(event.NewMessage).Times(1),
		carolSub.EXPECT().Close().DoAndReturn(closeCarol).Times(1),
	)
	watcher := session.NewWatcher(log, subscriber, session.NewMessageCache(), fixedSound(true), &session.RecordingPlayer{})

	// When alice switches from bob to carol then closes
	req.NoError(watcher.Watch(ctx, "alice", "bob"))
	req.NoError(watcher.Watch(ctx, "alice", "carol"))
	req.NoError(watcher.Close())

	// Then closing again is harmless
	req.NoError(watcher.Close())
}

func TestWatcher_Same_Pair_Is_Noop(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	subscriber := mocks.NewMockSubscriber(ctrl)
	channel := domain.ChannelID("alice", "bob")
	sub, closeSub := newMockSubscription(ctrl, channel)

	subscriber.EXPECT().Subscribe(gomock.Any(), channel).Return(sub, nil).Times(1)
	sub.EXPECT().Bind(event.NewMessage).Times(1)
	sub.EXPECT().Unbind(event.NewMessage).Times(1)
	sub.EXPECT().Close().DoAndReturn(closeSub).Times(1)
	watcher := session.NewWatcher(log, subscriber, session.NewMessageCache(), fixedSound(true), &session.RecordingPlayer{})

	req.NoError(watcher.Watch(ctx, "alice", "bob"))
	req.NoError(watcher.Watch(ctx, "alice", "bob"))
	req.NoError(watcher.Close())
}

func TestWatcher_Subscribe_Error(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	subscriber := mocks.NewMockSubscriber(ctrl)
	subscriber.EXPECT().Subscribe(gomock.Any(), gomock.Any()).Return(nil, context.Canceled)
	watcher := session.NewWatcher(log, subscriber, session.NewMessageCache(), fixedSound(true), &session.RecordingPlayer{})

	err := watcher.Watch(context.Background(), "alice", "bob")
	req.ErrorIs(err, context.Canceled)
	req.NoError(watcher.Close())
}

func TestWatcher_Notification_Only_For_Partner_When_Sound_Enabled(t *testing.T) {
	tests := []struct {
		name   string
		sound  bool
		sender string
		cues   []session.Cue
	}{
		{name: "partner with sound", sound: true, sender: "bob", cues: []session.Cue{session.Notification}},
		{name: "partner without sound", sound: false, sender: "bob", cues: nil},
		{name: "self with sound", sound: true, sender: "alice", cues: nil},
		{name: "self without sound", sound: false, sender: "alice", cues: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			ctx := context.Background()
			hub := newHub()
			cache := session.NewMessageCache()
			player := &session.RecordingPlayer{}
			watcher := session.NewWatcher(log, hub, cache, fixedSound(tt.sound), player)
			req.NoError(watcher.Watch(ctx, "alice", "bob"))

			// When a message is triggered on the channel
			receiver := "bob"
			if tt.sender == "bob" {
				receiver = "alice"
			}
			m := newMessage(tt.sender, receiver, "hello")
			req.Equal(1, hub.Trigger(ctx, m.Channel(), event.NewMessage, event.NewMessagePayload{Message: m}))

			// Then it lands in the cache of the conversation with bob
			req.Eventually(func() bool { return len(cache.Get("bob")) == 1 }, time.Second, 5*time.Millisecond)
			req.NoError(watcher.Close())
			req.Equal(tt.cues, player.Cues())
		})
	}
}

func TestWatcher_Ignores_Other_Payloads(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	hub := newHub()
	cache := session.NewMessageCache()
	watcher := session.NewWatcher(log, hub, cache, fixedSound(true), &session.RecordingPlayer{})
	req.NoError(watcher.Watch(ctx, "alice", "bob"))
	channel := domain.ChannelID("alice", "bob")

	// Given a malformed payload followed by a valid one
	hub.Trigger(ctx, channel, event.NewMessage, "garbage")
	m := newMessage("bob", "alice", "hi")
	hub.Trigger(ctx, channel, event.NewMessage, event.NewMessagePayload{Message: m})

	// Then only the valid message is cached
	req.Eventually(func() bool { return len(cache.Get("bob")) == 1 }, time.Second, 5*time.Millisecond)
	req.NoError(watcher.Close())
	req.Equal(m.ID, cache.Get("bob")[0].ID)
}

func TestWatcher_OnMessage_Sees_New_Messages_Once(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	hub := newHub()
	watcher := session.NewWatcher(log, hub, session.NewMessageCache(), fixedSound(false), &session.RecordingPlayer{})
	seen := make(chan domain.Message, 4)
	watcher.OnMessage(func(m domain.Message) { seen <- m })
	req.NoError(watcher.Watch(ctx, "alice", "bob"))

	// When the same message is triggered twice
	m := newMessage("bob", "alice", "hi")
	hub.Trigger(ctx, m.Channel(), event.NewMessage, event.NewMessagePayload{Message: m})
	hub.Trigger(ctx, m.Channel(), event.NewMessage, event.NewMessagePayload{Message: m})

	// Then the listener is called once
	select {
	case got := <-seen:
		req.Equal(m.ID, got.ID)
	case <-time.After(time.Second):
		req.Fail("listener not called")
	}
	req.NoError(watcher.Close())
	req.Empty(seen)
}

func TestWatcher_Notifies_Partner_Message_Already_In_History(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	hub := newHub()
	cache := session.NewMessageCache()
	player := &session.RecordingPlayer{}
	watcher := session.NewWatcher(log, hub, cache, fixedSound(true), player)
	req.NoError(watcher.Watch(ctx, "alice", "bob"))

	// Given a partner message already loaded with the history
	m := newMessage("bob", "alice", "hi")
	cache.Set("bob", []domain.Message{m})

	// When its live event arrives afterwards
	req.Equal(1, hub.Trigger(ctx, m.Channel(), event.NewMessage, event.NewMessagePayload{Message: m}))

	// Then the cue is played once and the cache is not duplicated
	req.Eventually(func() bool { return len(player.Cues()) == 1 }, time.Second, 5*time.Millisecond)
	req.NoError(watcher.Close())
	req.Equal([]session.Cue{session.Notification}, player.Cues())
	req.Len(cache.Get("bob"), 1)
}
