package server

import (
	"chat-relay/auth"
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait    = 10 * time.Second
	maxFrameSize = 64 * 1024
)

func (s *Server) serveChannels(c *gin.Context) {
	userID, ok := auth.UserID(c.Request.Context())
	if !ok {
		writeError(c, s.log, errors.ErrUnauthenticated)
		return
	}
	ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("Websocket upgrade failed", "user", userID, "error", err)
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	conn := &connection{
		log:        s.log.With("user", userID, "request_id", GetRequestID(c)),
		ws:         ws,
		userID:     userID,
		subscriber: s.deps.Subscriber,
		out:        make(chan event.ServerFrame, max(s.opts.ConnectionBufferSize, 1)),
		subs:       make(map[domain.Channel]contract.Subscription),
	}
	conn.serve(ctx, cancel)
}

// connection owns one websocket. The reader goroutine manages
// subscriptions, one forwarder per subscription feeds the writer.
type connection struct {
	log        *slog.Logger
	ws         *websocket.Conn
	userID     string
	subscriber contract.Subscriber
	out        chan event.ServerFrame

	subs       map[domain.Channel]contract.Subscription
	forwarders sync.WaitGroup
}

func (c *connection) serve(ctx context.Context, cancel context.CancelFunc) {
	writerDone := make(chan struct{})
	go c.writeLoop(ctx, cancel, writerDone)

	c.readLoop(ctx)

	cancel()
	for channel, sub := range c.subs {
		_ = sub.Close()
		delete(c.subs, channel)
	}
	c.forwarders.Wait()
	<-writerDone
	_ = c.ws.Close()
	c.log.Debug("Websocket closed")
}

func (c *connection) readLoop(ctx context.Context) {
	c.ws.SetReadLimit(maxFrameSize)
	for {
		var frame event.ClientFrame
		if err := c.ws.ReadJSON(&frame); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Debug("Websocket read stopped", "error", err)
			}
			return
		}
		if ctx.Err() != nil {
			return
		}
		c.handle(ctx, frame)
	}
}

func (c *connection) writeLoop(ctx context.Context, cancel context.CancelFunc, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		case frame := <-c.out:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(frame); err != nil {
				c.log.Debug("Websocket write failed", "error", err)
				cancel()
				_ = c.ws.Close()
				return
			}
		}
	}
}

func (c *connection) handle(ctx context.Context, frame event.ClientFrame) {
	switch frame.Type {
	case event.SubscribeFrame:
		if err := c.subscribe(ctx, frame.Channel); err != nil {
			c.push(ctx, event.ServerFrame{Type: event.ErrorFrame, Channel: frame.Channel, Error: err.Error()})
			return
		}
		c.push(ctx, event.ServerFrame{Type: event.SubscribedFrame, Channel: frame.Channel})
	case event.UnsubscribeFrame:
		if sub, ok := c.subs[frame.Channel]; ok {
			delete(c.subs, frame.Channel)
			_ = sub.Close()
		}
	case event.BindFrame, event.UnbindFrame:
		sub, ok := c.subs[frame.Channel]
		if !ok {
			c.push(ctx, event.ServerFrame{Type: event.ErrorFrame, Channel: frame.Channel,
				Error: errors.ErrSubscriptionClosed.Error()})
			return
		}
		if frame.Type == event.BindFrame {
			sub.Bind(frame.Event)
		} else {
			sub.Unbind(frame.Event)
		}
	default:
		c.push(ctx, event.ServerFrame{Type: event.ErrorFrame, Channel: frame.Channel,
			Error: fmt.Sprintf("%s: unknown frame %q", errors.ErrInvalidPayload, frame.Type)})
	}
}

// subscribe only opens channels the user takes part in. Subscribing twice
// to the same channel keeps the first subscription.
func (c *connection) subscribe(ctx context.Context, name domain.Channel) error {
	channel, err := domain.ParseChannel(string(name))
	if err != nil {
		return err
	}
	if !channel.Has(c.userID) {
		return fmt.Errorf("%w: %s", errors.ErrForbiddenChannel, channel)
	}
	if _, ok := c.subs[channel]; ok {
		return nil
	}
	sub, err := c.subscriber.Subscribe(ctx, channel)
	if err != nil {
		return err
	}
	c.subs[channel] = sub
	c.forwarders.Add(1)
	go c.forward(ctx, sub)
	return nil
}

func (c *connection) forward(ctx context.Context, sub contract.Subscription) {
	defer c.forwarders.Done()
	for evt := range sub.Events() {
		data, err := json.Marshal(evt.Data)
		if err != nil {
			c.log.Warn("Unable to encode event", "channel", evt.Channel, "event", evt.Name, "error", err)
			continue
		}
		if !c.push(ctx, event.ServerFrame{Type: event.EventFrame, Channel: evt.Channel, Event: evt.Name, Data: data}) {
			return
		}
	}
}

func (c *connection) push(ctx context.Context, frame event.ServerFrame) bool {
	select {
	case c.out <- frame:
		return true
	case <-ctx.Done():
		return false
	}
}
