// WebSocket connection of a single client, one read and one write goroutine each.

package relay

import (
	"Mechat/internal/entity"
	"Mechat/internal/errors"
	"Mechat/pkg/log"
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a frame to the client.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong from the client.
	pongWait = 60 * time.Second
	// Must be less than pongWait.
	pingPeriod = 30 * time.Second
	// Largest inbound frame accepted.
	maxMessageSize = 64 * 1024
)

var (
	errConnClosed = errors.New("connection closed")
	errQueueFull  = errors.New("send queue full")
)

// conn is the Handle of a websocket client.
type conn struct {
	id     string
	user   entity.User
	ws     *websocket.Conn
	logger log.Logger

	mu     sync.Mutex
	closed bool
	send   chan entity.Envelope
}

func newConn(id string, user entity.User, ws *websocket.Conn, sendBuffer int, logger log.Logger) *conn {
	return &conn{
		id:     id,
		user:   user,
		ws:     ws,
		logger: logger.With("conn", id).With("user", user.IDHex()),
		send:   make(chan entity.Envelope, sendBuffer),
	}
}

func (c *conn) ID() string {
	return c.id
}

func (c *conn) UserID() string {
	return c.user.IDHex()
}

// Send never blocks, a full queue drops env.
func (c *conn) Send(env entity.Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errConnClosed
	}
	select {
	case c.send <- env:
		return nil
	default:
		return errQueueFull
	}
}

// Close stops the write pump, which sends a close frame and releases the socket.
func (c *conn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// readPump handles inbound events one at a time until the socket fails or is closed.
func (c *conn) readPump(ctx context.Context, service Service) {
	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.WithCtx(ctx).Warn().Err(err).Msg("WebSocket read error")
			}
			return
		}
		var in entity.InboundEvent
		if err := json.Unmarshal(frame, &in); err != nil || in.Event == "" {
			c.logger.WithCtx(ctx).Debug().Msg("Discarding malformed frame")
			continue
		}
		if err := service.HandleEvent(ctx, c.user, in); err != nil {
			c.logger.WithCtx(ctx).Debug().Err(err).Str("event", string(in.Event)).Msg("Event not applied")
		}
	}
}

// writePump is the only writer of the socket.
func (c *conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case env, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Queue closed by Close
				c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.ws.WriteJSON(env); err != nil {
				c.logger.Warn().Err(err).Msg("WebSocket write error")
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
