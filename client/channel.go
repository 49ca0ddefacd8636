package client

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var _ contract.Subscriber = (*ChannelConn)(nil)

// ChannelConn is one websocket carrying every channel subscription of a
// client. Events are dropped when a subscription buffer is full.
type ChannelConn struct {
	log        *slog.Logger
	conn       *websocket.Conn
	bufferSize int

	writeMu sync.Mutex

	mu        sync.Mutex
	subs      map[domain.Channel]*remoteSubscription
	acks      map[domain.Channel]chan error
	done      chan struct{}
	closeOnce sync.Once
}

// Dial opens the channel websocket of the signed-in user.
func (c *Client) Dial(ctx context.Context, bufferSize int) (*ChannelConn, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"

	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.Token())
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %s: %w", u.Redacted(), resp.Status, err)
		}
		return nil, fmt.Errorf("dial %s: %w", u.Redacted(), err)
	}
	return NewChannelConn(c.log, conn, bufferSize), nil
}

// NewChannelConn starts reading pushed frames from conn.
func NewChannelConn(log *slog.Logger, conn *websocket.Conn, bufferSize int) *ChannelConn {
	c := &ChannelConn{
		log:        log,
		conn:       conn,
		bufferSize: bufferSize,
		subs:       make(map[domain.Channel]*remoteSubscription),
		acks:       make(map[domain.Channel]chan error),
		done:       make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// Subscribe asks the server for channel and waits for its acknowledgement.
func (c *ChannelConn) Subscribe(ctx context.Context, channel domain.Channel) (contract.Subscription, error) {
	ack := make(chan error, 1)
	c.mu.Lock()
	if _, ok := c.subs[channel]; ok {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: already subscribed to %s", errors.ErrInvalidChannel, channel)
	}
	sub := &remoteSubscription{
		id:      uuid.New(),
		conn:    c,
		channel: channel,
		events:  make(chan event.Event, c.bufferSize),
	}
	c.subs[channel] = sub
	c.acks[channel] = ack
	c.mu.Unlock()

	if err := c.send(event.ClientFrame{Type: event.SubscribeFrame, Channel: channel}); err != nil {
		c.forget(sub)
		return nil, err
	}

	select {
	case err := <-ack:
		if err != nil {
			c.forget(sub)
			return nil, err
		}
		return sub, nil
	case <-ctx.Done():
		_ = sub.Close()
		return nil, ctx.Err()
	case <-c.done:
		c.forget(sub)
		return nil, errors.ErrSubscriptionClosed
	}
}

// Close ends every subscription and the websocket.
func (c *ChannelConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	<-c.done
	return err
}

// Done is closed once the connection stopped reading.
func (c *ChannelConn) Done() <-chan struct{} {
	return c.done
}

func (c *ChannelConn) send(frame event.ClientFrame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteJSON(frame); err != nil {
		return fmt.Errorf("write %s frame: %w", frame.Type, err)
	}
	return nil
}

func (c *ChannelConn) readLoop() {
	defer c.shutdown()
	for {
		var frame event.ServerFrame
		if err := c.conn.ReadJSON(&frame); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Debug("Channel connection closed", "error", err)
			}
			return
		}
		switch frame.Type {
		case event.SubscribedFrame:
			c.acknowledge(frame.Channel, nil)
		case event.ErrorFrame:
			c.acknowledge(frame.Channel, remoteError(frame.Error))
		default:
			c.dispatch(frame)
		}
	}
}

func (c *ChannelConn) acknowledge(channel domain.Channel, err error) {
	c.mu.Lock()
	ack, ok := c.acks[channel]
	delete(c.acks, channel)
	c.mu.Unlock()
	if !ok {
		if err != nil {
			c.log.Warn("Channel error", "channel", channel, "error", err)
		}
		return
	}
	ack <- err
}

func (c *ChannelConn) dispatch(frame event.ServerFrame) {
	c.mu.Lock()
	sub, ok := c.subs[frame.Channel]
	c.mu.Unlock()
	if !ok {
		return
	}
	data, err := event.DecodeData(frame.Event, frame.Data)
	if err != nil {
		c.log.Warn("Undecodable event", "channel", frame.Channel, "event", frame.Event, "error", err)
		return
	}
	evt := event.Event{
		ID:      uuid.New(),
		Channel: frame.Channel,
		Name:    frame.Event,
		Data:    data,
		At:      time.Now().UTC(),
	}
	if !sub.push(evt) {
		c.log.Warn("Channel event dropped", "channel", frame.Channel, "event", frame.Event)
	}
}

func (c *ChannelConn) forget(sub *remoteSubscription) {
	c.mu.Lock()
	if current, ok := c.subs[sub.channel]; ok && current == sub {
		delete(c.subs, sub.channel)
	}
	delete(c.acks, sub.channel)
	c.mu.Unlock()
	sub.end()
}

func (c *ChannelConn) shutdown() {
	c.mu.Lock()
	subs := c.subs
	c.subs = make(map[domain.Channel]*remoteSubscription)
	c.acks = make(map[domain.Channel]chan error)
	c.mu.Unlock()
	for _, sub := range subs {
		sub.end()
	}
	close(c.done)
}

// remoteError restores the sentinel of well-known server errors.
func remoteError(message string) error {
	switch {
	case strings.Contains(message, errors.ErrForbiddenChannel.Error()):
		return fmt.Errorf("%w: %s", errors.ErrForbiddenChannel, message)
	case strings.Contains(message, errors.ErrInvalidChannel.Error()):
		return fmt.Errorf("%w: %s", errors.ErrInvalidChannel, message)
	default:
		return fmt.Errorf("channel error: %s", message)
	}
}

type remoteSubscription struct {
	id      uuid.UUID
	conn    *ChannelConn
	channel domain.Channel

	mu     sync.RWMutex
	events chan event.Event
	closed bool
	once   sync.Once
}

func (s *remoteSubscription) Channel() domain.Channel { return s.channel }

func (s *remoteSubscription) Events() <-chan event.Event { return s.events }

func (s *remoteSubscription) Bind(name string) {
	if err := s.conn.send(event.ClientFrame{Type: event.BindFrame, Channel: s.channel, Event: name}); err != nil {
		s.conn.log.Warn("Unable to bind event", "channel", s.channel, "event", name, "error", err)
	}
}

func (s *remoteSubscription) Unbind(name string) {
	if err := s.conn.send(event.ClientFrame{Type: event.UnbindFrame, Channel: s.channel, Event: name}); err != nil {
		s.conn.log.Debug("Unable to unbind event", "channel", s.channel, "event", name, "error", err)
	}
}

// Close unsubscribes from the server and ends the stream exactly once.
func (s *remoteSubscription) Close() error {
	var err error
	s.once.Do(func() {
		s.mu.RLock()
		closed := s.closed
		s.mu.RUnlock()
		if !closed {
			err = s.conn.send(event.ClientFrame{Type: event.UnsubscribeFrame, Channel: s.channel})
		}
		s.conn.forget(s)
	})
	return err
}

func (s *remoteSubscription) push(evt event.Event) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false
	}
	select {
	case s.events <- evt:
		return true
	default:
		return false
	}
}

func (s *remoteSubscription) end() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.events)
}
