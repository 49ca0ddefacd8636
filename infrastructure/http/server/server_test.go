package server

import (
	"bytes"
	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/mocks/servicemocks"
	"chat-relay/runtime"
	"chat-relay/services"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type serverFixture struct {
	auth    *servicemocks.MockIAuthService
	chat    *servicemocks.MockIChatService
	uploads *servicemocks.MockIUploadService
	tokens  *auth.TokenIssuer
	hub     *runtime.Hub
	server  *Server
}

func newServerFixture(t *testing.T) serverFixture {
	ctrl := gomock.NewController(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	f := serverFixture{
		auth:    servicemocks.NewMockIAuthService(ctrl),
		chat:    servicemocks.NewMockIChatService(ctrl),
		uploads: servicemocks.NewMockIUploadService(ctrl),
		tokens:  auth.NewTokenIssuer("test-secret", time.Hour),
		hub:     runtime.NewHub(log, runtime.NewRegistry(), nil, 16, 50*time.Millisecond),
	}
	f.server = New(log, Options{
		AllowedOrigins:       []string{"http://localhost:3000"},
		MediaDir:             t.TempDir(),
		ConnectionBufferSize: 16,
		MaxUploadBytes:       1 << 20,
		ShutdownTimeout:      time.Second,
	}, Dependencies{
		Auth:       f.auth,
		Chat:       f.chat,
		Uploads:    f.uploads,
		Tokens:     f.tokens,
		Subscriber: f.hub,
	})
	return f
}

func (f serverFixture) token(t *testing.T, userID string) string {
	token, err := f.tokens.Generate(userID, nil)
	require.NoError(t, err)
	return token
}

func (f serverFixture) do(t *testing.T, method, path, userID string, body io.Reader) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, path, body)
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		r.Header.Set("Authorization", "Bearer "+f.token(t, userID))
	}
	w := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, r)
	return w
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorResponse {
	var body errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestServer_Healthz_And_RequestID(t *testing.T) {
	req := require.New(t)
	f := newServerFixture(t)

	w := f.do(t, http.MethodGet, "/healthz", "", nil)

	req.Equal(http.StatusOK, w.Code)
	req.NotEmpty(w.Header().Get(RequestIDHeader))
}

func TestServer_Protected_Route_Requires_Token(t *testing.T) {
	req := require.New(t)
	f := newServerFixture(t)

	w := f.do(t, http.MethodGet, "/api/users", "", nil)

	req.Equal(http.StatusUnauthorized, w.Code)
	req.Equal("unauthorized_error", decodeError(t, w).Error.Type)
}

func TestServer_Send_Uses_Authenticated_Sender(t *testing.T) {
	req := require.New(t)
	f := newServerFixture(t)
	sent := domain.Message{ID: uuid.New(), SenderID: "alice", ReceiverID: "bob", Content: "hi", Type: domain.TextMessage}

	// Given the service accepts the message from alice
	f.chat.EXPECT().SendMessage(gomock.Any(), "alice", services.SendMessageRequest{
		Content: "hi", MessageType: domain.TextMessage, ReceiverID: "bob",
	}).Return(sent, nil)

	// When alice posts the send action
	w := f.do(t, http.MethodPost, "/api/messages", "alice",
		strings.NewReader(`{"content":"hi","messageType":"text","receiverId":"bob"}`))

	// Then the stored message is returned
	req.Equal(http.StatusCreated, w.Code)
	var got domain.Message
	req.NoError(json.Unmarshal(w.Body.Bytes(), &got))
	req.Equal(sent.ID, got.ID)
}

func TestServer_Send_Maps_Domain_Errors(t *testing.T) {
	tests := []struct {
		err    error
		status int
		kind   string
	}{
		{err: errors.ErrEmptyContent, status: http.StatusBadRequest, kind: "validation_error"},
		{err: errors.ErrUnknownReceiver, status: http.StatusNotFound, kind: "not_found_error"},
		{err: io.ErrUnexpectedEOF, status: http.StatusInternalServerError, kind: "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			req := require.New(t)
			f := newServerFixture(t)
			f.chat.EXPECT().SendMessage(gomock.Any(), "alice", gomock.Any()).Return(domain.Message{}, tt.err)

			w := f.do(t, http.MethodPost, "/api/messages", "alice",
				strings.NewReader(`{"content":"","messageType":"text","receiverId":"bob"}`))

			req.Equal(tt.status, w.Code)
			req.Equal(tt.kind, decodeError(t, w).Error.Type)
		})
	}
}

func TestServer_Send_Rejects_Malformed_Body(t *testing.T) {
	req := require.New(t)
	f := newServerFixture(t)

	w := f.do(t, http.MethodPost, "/api/messages", "alice", strings.NewReader(`{"content":`))

	req.Equal(http.StatusBadRequest, w.Code)
}

func TestServer_Messages_Passes_Cursor(t *testing.T) {
	req := require.New(t)
	f := newServerFixture(t)
	cursor := "msg:bob__alice:1"
	next := "msg:bob__alice:0"
	f.chat.EXPECT().GetMessages(gomock.Any(), "alice", "bob", &cursor).
		Return(services.MessagePage{Messages: []domain.Message{}, Cursor: &next}, nil)

	w := f.do(t, http.MethodGet, "/api/messages/bob?cursor="+cursor, "alice", nil)

	req.Equal(http.StatusOK, w.Code)
	var page services.MessagePage
	req.NoError(json.Unmarshal(w.Body.Bytes(), &page))
	req.Equal(next, *page.Cursor)
}

func TestServer_Search(t *testing.T) {
	req := require.New(t)
	f := newServerFixture(t)
	f.chat.EXPECT().SearchMessages(gomock.Any(), "alice", "bob", "pizza", 5).Return([]domain.Message{{Content: "pizza?"}}, nil)

	w := f.do(t, http.MethodGet, "/api/messages/bob/search?q=pizza&limit=5", "alice", nil)
	req.Equal(http.StatusOK, w.Code)
	req.Contains(w.Body.String(), "pizza?")

	// And a malformed limit is refused
	w = f.do(t, http.MethodGet, "/api/messages/bob/search?q=pizza&limit=abc", "alice", nil)
	req.Equal(http.StatusBadRequest, w.Code)
}

func TestServer_Contacts(t *testing.T) {
	req := require.New(t)
	f := newServerFixture(t)
	f.chat.EXPECT().ListContacts(gomock.Any(), "alice").Return([]domain.User{{ID: "bob", Name: "Bob"}}, nil)

	w := f.do(t, http.MethodGet, "/api/users", "alice", nil)

	req.Equal(http.StatusOK, w.Code)
	var body struct {
		Users []domain.User `json:"users"`
	}
	req.NoError(json.Unmarshal(w.Body.Bytes(), &body))
	req.Equal([]domain.User{{ID: "bob", Name: "Bob"}}, body.Users)
}

func TestServer_Login_Invalid_Credentials(t *testing.T) {
	req := require.New(t)
	f := newServerFixture(t)
	f.auth.EXPECT().Login(auth.LoginRequest{Email: "a@b.c", Password: "nope"}).
		Return(services.AuthSession{}, errors.ErrInvalidCredentials)

	w := f.do(t, http.MethodPost, "/api/auth/login", "", strings.NewReader(`{"email":"a@b.c","password":"nope"}`))

	req.Equal(http.StatusUnauthorized, w.Code)
}

func TestServer_SignUploadParams(t *testing.T) {
	req := require.New(t)
	f := newServerFixture(t)
	params := map[string]string{"timestamp": "1315060510"}
	f.uploads.EXPECT().SignParams(params).Return(services.SignedParams{Signature: "sig", Timestamp: "1315060510", APIKey: "key"}, nil)

	w := f.do(t, http.MethodPost, "/api/sign-upload-params", "alice",
		strings.NewReader(`{"paramsToSign":{"timestamp":"1315060510"}}`))

	req.Equal(http.StatusOK, w.Code)
	req.JSONEq(`{"signature":"sig","timestamp":"1315060510","apiKey":"key"}`, w.Body.String())
}

func TestServer_Upload(t *testing.T) {
	req := require.New(t)
	f := newServerFixture(t)
	f.uploads.EXPECT().Store(gomock.Any(), gomock.Any()).DoAndReturn(func(_ any, r io.Reader) (string, error) {
		content, err := io.ReadAll(r)
		req.NoError(err)
		req.Equal("fake image", string(content))
		return "http://localhost:8080/media/a.png", nil
	})

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "cat.png")
	req.NoError(err)
	_, err = part.Write([]byte("fake image"))
	req.NoError(err)
	req.NoError(writer.Close())

	r := httptest.NewRequest(http.MethodPost, "/api/uploads", &body)
	r.Header.Set("Content-Type", writer.FormDataContentType())
	r.Header.Set("Authorization", "Bearer "+f.token(t, "alice"))
	w := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, r)

	req.Equal(http.StatusCreated, w.Code)
	req.JSONEq(`{"url":"http://localhost:8080/media/a.png"}`, w.Body.String())
}

func TestServer_Upload_Not_An_Image(t *testing.T) {
	req := require.New(t)
	f := newServerFixture(t)
	f.uploads.EXPECT().Store(gomock.Any(), gomock.Any()).Return("", errors.ErrNotAnImage)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "notes.txt")
	req.NoError(err)
	_, _ = part.Write([]byte("plain text"))
	req.NoError(writer.Close())

	r := httptest.NewRequest(http.MethodPost, "/api/uploads", &body)
	r.Header.Set("Content-Type", writer.FormDataContentType())
	r.Header.Set("Authorization", "Bearer "+f.token(t, "alice"))
	w := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, r)

	req.Equal(http.StatusUnsupportedMediaType, w.Code)
}

func TestServer_CheckOrigin(t *testing.T) {
	req := require.New(t)
	f := newServerFixture(t)
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.True(f.server.checkOrigin(r))

	r.Header.Set("Origin", "http://localhost:3000")
	req.True(f.server.checkOrigin(r))

	r.Header.Set("Origin", "http://evil.example.com")
	req.False(f.server.checkOrigin(r))
}

func TestServer_Websocket_Event_Frame_Encoding(t *testing.T) {
	req := require.New(t)
	m := domain.Message{ID: uuid.New(), SenderID: "bob", ReceiverID: "alice", Content: "hi", Type: domain.TextMessage}
	data, err := json.Marshal(event.NewMessagePayload{Message: m})
	req.NoError(err)

	decoded, err := event.DecodeData(event.NewMessage, data)
	req.NoError(err)
	req.Equal(m.ID, decoded.(event.NewMessagePayload).Message.ID)
}
