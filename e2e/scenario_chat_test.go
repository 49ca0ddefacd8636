package e2e

import (
	"chat-relay/domain"
	healthgrpc "chat-relay/infrastructure/grpc"
	"chat-relay/services"
	"chat-relay/session"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/suite"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type testChatSuite struct {
	BaseSuite
}

func TestChatSuite(t *testing.T) {
	suite.Run(t, &testChatSuite{})
}

func (s *testChatSuite) TestHealth() {
	s.WithHealth("Server reports serving", func(ctx context.Context, client healthpb.HealthClient) {
		resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: healthgrpc.ServiceName})
		s.Require().NoError(err)
		s.Require().Equal(healthpb.HealthCheckResponse_SERVING, resp.Status)
	})
}

func (s *testChatSuite) TestConversationFlow() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	log := logs.GetLoggerFromLevel(slog.LevelInfo)

	s.Step(s.T(), "Step 1: register two users")
	aliceAPI, alice := s.NewUser(ctx, "Alice")
	bobAPI, bob := s.NewUser(ctx, "Bob")

	s.Step(s.T(), "Step 2: alice opens the conversation over the websocket")
	conn, err := aliceAPI.Dial(ctx, 32)
	s.Require().NoError(err)
	defer conn.Close()
	player := &session.RecordingPlayer{}
	prefs := session.NewPreferences(log, session.NewMemoryStorage(), player)
	cache := session.NewMessageCache()
	chat := session.New(log, alice, prefs, player, cache,
		session.NewWatcher(log, conn, cache, prefs, player), aliceAPI)
	defer chat.Close()
	s.Require().NoError(chat.Select(ctx, bob))

	s.Step(s.T(), "Step 3: bob sends a censored message")
	sent, err := bobAPI.SendMessage(ctx, services.SendMessageRequest{
		Content: "you idiot", MessageType: domain.TextMessage, ReceiverID: alice.ID,
	})
	s.Require().NoError(err)
	s.Require().Equal("you *****", sent.Content)

	s.Step(s.T(), "Step 4: alice receives it live with a notification")
	s.Require().Eventually(func() bool {
		messages := chat.Messages()
		return len(messages) == 1 && messages[0].ID == sent.ID
	}, 5*time.Second, 50*time.Millisecond)
	s.Require().Contains(player.Cues(), session.Notification)

	s.Step(s.T(), "Step 5: the message is searchable")
	s.Require().Eventually(func() bool {
		found, err := aliceAPI.Search(ctx, bob.ID, "you", 10)
		return err == nil && len(found) == 1
	}, 5*time.Second, 100*time.Millisecond)
}
