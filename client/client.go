// Package client talks to a chat server over HTTP and websocket.
package client

import (
	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/services"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

// APIError is the error body returned by the server.
type APIError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"message"`
	Type       string `json:"type"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Type, e.StatusCode, e.Message)
}

type errorBody struct {
	Error APIError `json:"error"`
}

type usersBody struct {
	Users []domain.User `json:"users"`
}

type messagesBody struct {
	Messages []domain.Message `json:"messages"`
}

type uploadBody struct {
	URL string `json:"url"`
}

// SignRequest is the body of the upload signing endpoint.
type SignRequest struct {
	ParamsToSign map[string]string `json:"paramsToSign"`
}

// Client is a REST client for one signed-in user.
type Client struct {
	log     *slog.Logger
	baseURL string
	http    *resty.Client

	mu    sync.RWMutex
	token string
}

func New(log *slog.Logger, baseURL string, timeout time.Duration) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	return &Client{
		log:     log,
		baseURL: baseURL,
		http: resty.New().
			SetBaseURL(baseURL).
			SetHeader("User-Agent", "duochat-client/1.0").
			SetTimeout(timeout),
	}
}

// Token returns the bearer token of the current session.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) Register(ctx context.Context, req auth.RegisterRequest) (services.AuthSession, error) {
	var session services.AuthSession
	if err := c.do(c.request(ctx).SetBody(req).SetResult(&session), resty.MethodPost, "/api/auth/register"); err != nil {
		return services.AuthSession{}, err
	}
	c.SetToken(session.Token.String())
	return session, nil
}

func (c *Client) Login(ctx context.Context, req auth.LoginRequest) (services.AuthSession, error) {
	var session services.AuthSession
	if err := c.do(c.request(ctx).SetBody(req).SetResult(&session), resty.MethodPost, "/api/auth/login"); err != nil {
		return services.AuthSession{}, err
	}
	c.SetToken(session.Token.String())
	return session, nil
}

// Me returns the signed-in user.
func (c *Client) Me(ctx context.Context) (domain.User, error) {
	var user domain.User
	if err := c.do(c.request(ctx).SetResult(&user), resty.MethodGet, "/api/auth/me"); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// Contacts lists every other user.
func (c *Client) Contacts(ctx context.Context) ([]domain.User, error) {
	var body usersBody
	if err := c.do(c.request(ctx).SetResult(&body), resty.MethodGet, "/api/users"); err != nil {
		return nil, err
	}
	return body.Users, nil
}

func (c *Client) GetMessages(ctx context.Context, partnerID string, cursor *string) (services.MessagePage, error) {
	var page services.MessagePage
	r := c.request(ctx).SetPathParam("partnerId", partnerID).SetResult(&page)
	if cursor != nil {
		r.SetQueryParam("cursor", *cursor)
	}
	if err := c.do(r, resty.MethodGet, "/api/messages/{partnerId}"); err != nil {
		return services.MessagePage{}, err
	}
	return page, nil
}

func (c *Client) SendMessage(ctx context.Context, req services.SendMessageRequest) (domain.Message, error) {
	var message domain.Message
	if err := c.do(c.request(ctx).SetBody(req).SetResult(&message), resty.MethodPost, "/api/messages"); err != nil {
		return domain.Message{}, err
	}
	return message, nil
}

// Search runs a full-text search in the conversation with partnerID.
func (c *Client) Search(ctx context.Context, partnerID, terms string, limit int) ([]domain.Message, error) {
	var body messagesBody
	r := c.request(ctx).
		SetPathParam("partnerId", partnerID).
		SetQueryParam("q", terms).
		SetResult(&body)
	if limit > 0 {
		r.SetQueryParam("limit", strconv.Itoa(limit))
	}
	if err := c.do(r, resty.MethodGet, "/api/messages/{partnerId}/search"); err != nil {
		return nil, err
	}
	return body.Messages, nil
}

// SignUploadParams asks the server to sign hosted upload parameters.
func (c *Client) SignUploadParams(ctx context.Context, params map[string]string) (services.SignedParams, error) {
	var signed services.SignedParams
	r := c.request(ctx).SetBody(SignRequest{ParamsToSign: params}).SetResult(&signed)
	if err := c.do(r, resty.MethodPost, "/api/sign-upload-params"); err != nil {
		return services.SignedParams{}, err
	}
	return signed, nil
}

// Upload stores an image on the server and returns its public URL.
func (c *Client) Upload(ctx context.Context, filename string, content io.Reader) (string, error) {
	var body uploadBody
	r := c.request(ctx).SetFileReader("file", filename, content).SetResult(&body)
	if err := c.do(r, resty.MethodPost, "/api/uploads"); err != nil {
		return "", err
	}
	return body.URL, nil
}

func (c *Client) request(ctx context.Context) *resty.Request {
	r := c.http.R().SetContext(ctx).SetError(&errorBody{})
	if token := c.Token(); token != "" {
		r.SetAuthToken(token)
	}
	return r
}

func (c *Client) do(r *resty.Request, method, path string) error {
	resp, err := r.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if !resp.IsError() {
		return nil
	}
	apiErr := &APIError{StatusCode: resp.StatusCode(), Message: resp.String()}
	if body, ok := resp.Error().(*errorBody); ok && body.Error.Message != "" {
		apiErr.Message = body.Error.Message
		apiErr.Type = body.Error.Type
	}
	c.log.Debug("Request failed", "method", method, "path", path, "status", apiErr.StatusCode, "type", apiErr.Type)
	return apiErr
}
