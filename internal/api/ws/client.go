package ws

import (
	"sync"

	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"

	"github.com/spec-kit/market-service/internal/realtime"
)

const sendBuffer = 64

// Client is one websocket connection subscribed to listing rooms. Sends
// are buffered and never block the hub: when the buffer is full the
// envelope is dropped and the connection is left to catch up or die.
type Client struct {
	conn   *websocket.Conn
	logger *zap.Logger

	send chan realtime.Envelope

	mu     sync.Mutex
	closed bool
	rooms  map[string]struct{}
}

func newClient(conn *websocket.Conn, logger *zap.Logger) *Client {
	return &Client{
		conn:   conn,
		logger: logger,
		send:   make(chan realtime.Envelope, sendBuffer),
		rooms:  make(map[string]struct{}),
	}
}

// Send queues an envelope for delivery. Non-blocking. The mutex stays
// held across the channel send so close cannot slip in between the
// closed check and the send and close the channel under us.
func (c *Client) Send(env realtime.Envelope) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- env:
	default:
		c.logger.Warn("dropping envelope for slow websocket client", zap.String("event", env.Event))
	}
}

// writeLoop drains the send channel onto the wire until the channel is
// closed or a write fails.
func (c *Client) writeLoop() {
	for env := range c.send {
		if err := c.conn.WriteJSON(env); err != nil {
			c.logger.Debug("websocket write failed", zap.Error(err))
			return
		}
	}
}

// close marks the client closed and stops the write loop. Safe to call
// once; the read loop is the only caller.
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *Client) trackJoin(postID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rooms[postID] = struct{}{}
}

func (c *Client) trackLeave(postID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.rooms, postID)
}

func (c *Client) joinedRooms() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.rooms))
	for id := range c.rooms {
		out = append(out, id)
	}
	return out
}
