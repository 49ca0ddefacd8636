package main

import (
	"chat-relay/auth"
	"chat-relay/client"
	"chat-relay/domain"
	"chat-relay/services"
	"chat-relay/session"
	"context"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

const password = "Correct-Horse-42"

func newTestApp(t *testing.T) (*app, string) {
	t.Helper()
	dir := t.TempDir()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	config := Config{
		Host:                 "127.0.0.1",
		BadgerFilepath:       filepath.Join(dir, "badger"),
		BlugeFilepath:        filepath.Join(dir, "bluge"),
		MediaDir:             filepath.Join(dir, "media"),
		PublicBaseURL:        "http://localhost",
		AllowedOrigins:       "*",
		JWTSecret:            "integration-secret",
		AuthTokenDuration:    time.Hour,
		BufferSize:           128,
		ConnectionBufferSize: 32,
		SinkTimeout:          time.Second,
		DeliveryTimeout:      200 * time.Millisecond,
		RestartInterval:      50 * time.Millisecond,
		ShutdownTimeout:      time.Second,
		LimitMessages:        lo.ToPtr(50),
		MaxContentLength:     500,
		MaxUploadBytes:       1 << 20,
	}
	ctx, cancel := context.WithCancel(context.Background())
	application, err := newApp(ctx, config, '*', log)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = application.orchestrator.Start(ctx)
	}()
	ts := httptest.NewServer(application.http.Handler())
	t.Cleanup(func() {
		ts.Close()
		cancel()
		application.orchestrator.Stop()
		<-done
		application.Close()
	})
	return application, ts.URL
}

func register(t *testing.T, url, name, email string) (*client.Client, domain.User) {
	c := client.New(logs.GetLoggerFromLevel(slog.LevelInfo), url, 5*time.Second)
	authSession, err := c.Register(context.Background(), auth.RegisterRequest{
		Email: email, Password: password, Name: name,
	})
	require.NoError(t, err)
	return c, authSession.User
}

func Test_Scenario_Two_Users_Chat(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	_, url := newTestApp(t)

	// Given two registered users
	aliceClient, alice := register(t, url, "Alice", "alice@example.com")
	bobClient, bob := register(t, url, "Bob", "bob@example.com")

	contacts, err := aliceClient.Contacts(ctx)
	req.NoError(err)
	req.Equal([]string{bob.ID}, lo.Map(contacts, func(u domain.User, _ int) string { return u.ID }))

	// And alice has bob's conversation open
	conn, err := aliceClient.Dial(ctx, 32)
	req.NoError(err)
	defer conn.Close()
	player := &session.RecordingPlayer{}
	prefs := session.NewPreferences(log, session.NewMemoryStorage(), player)
	cache := session.NewMessageCache()
	watcher := session.NewWatcher(log, conn, cache, prefs, player)
	aliceSession := session.New(log, alice, prefs, player, cache, watcher, aliceClient)
	defer aliceSession.Close()
	req.NoError(aliceSession.Select(ctx, bob))
	req.Empty(aliceSession.Messages())

	// When bob sends a rude message
	sent, err := bobClient.SendMessage(ctx, services.SendMessageRequest{
		Content: "you idiot", MessageType: domain.TextMessage, ReceiverID: alice.ID,
	})
	req.NoError(err)
	req.Equal("you *****", sent.Content)

	// Then alice receives the censored message with a notification
	req.Eventually(func() bool { return len(aliceSession.Messages()) == 1 }, 3*time.Second, 20*time.Millisecond)
	req.Equal(sent.ID, aliceSession.Messages()[0].ID)
	req.Eventually(func() bool {
		return lo.Contains(player.Cues(), session.Notification)
	}, time.Second, 10*time.Millisecond)

	// When alice answers through the composer
	composer := session.NewComposer(log, aliceSession, aliceClient, prefs, player)
	composer.Type("pizza tonight?")
	answer, err := composer.KeyDown(ctx, session.KeyEnter, false)
	req.NoError(err)
	req.NotNil(answer)

	// Then her own echo is not duplicated
	req.Len(aliceSession.Messages(), 2)
	req.Never(func() bool { return len(aliceSession.Messages()) > 2 }, 300*time.Millisecond, 20*time.Millisecond)

	// And the answer becomes searchable
	req.Eventually(func() bool {
		found, err := bobClient.Search(ctx, alice.ID, "pizza", 10)
		return err == nil && len(found) == 1 && found[0].ID == answer.ID
	}, 3*time.Second, 50*time.Millisecond)

	// And bob's history is chronological
	page, err := bobClient.GetMessages(ctx, alice.ID, nil)
	req.NoError(err)
	req.Equal([]string{"you *****", "pizza tonight?"},
		lo.Map(page.Messages, func(m domain.Message, _ int) string { return m.Content }))
	req.Nil(page.Cursor)
}

func Test_Scenario_Rejected_Sends(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	_, url := newTestApp(t)
	aliceClient, alice := register(t, url, "Alice", "alice@example.com")

	tests := []struct {
		name string
		req  services.SendMessageRequest
	}{
		{name: "empty", req: services.SendMessageRequest{Content: "  ", MessageType: domain.TextMessage, ReceiverID: "x"}},
		{name: "bad type", req: services.SendMessageRequest{Content: "hi", MessageType: "video", ReceiverID: "x"}},
		{name: "self", req: services.SendMessageRequest{Content: "hi", MessageType: domain.TextMessage, ReceiverID: alice.ID}},
		{name: "unknown receiver", req: services.SendMessageRequest{Content: "hi", MessageType: domain.TextMessage, ReceiverID: "ghost"}},
		{name: "relative image", req: services.SendMessageRequest{Content: "/cat.png", MessageType: domain.ImageMessage, ReceiverID: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := aliceClient.SendMessage(ctx, tt.req)
			var apiErr *client.APIError
			require.ErrorAs(t, err, &apiErr)
			require.Less(t, apiErr.StatusCode, 500)
		})
	}
	req.NotEmpty(alice.ID)
}

func TestCharacterRune(t *testing.T) {
	req := require.New(t)
	r, err := CharacterRune("#")
	req.NoError(err)
	req.Equal('#', r)

	_, err = CharacterRune("##")
	req.Error(err)
}

func TestConfig_Origins(t *testing.T) {
	config := Config{AllowedOrigins: " http://a.com, ,http://b.com "}
	require.Equal(t, []string{"http://a.com", "http://b.com"}, config.Origins())
}
