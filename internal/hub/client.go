package hub

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/orderdesk/orderdesk/internal/core/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

var errRateLimited = errors.New("too many invocations")

// client is a websocket connection registered with the hub. One goroutine
// reads, one writes; Send only queues.
type client struct {
	id        string
	hub       *Hub
	conn      *websocket.Conn
	principal *domain.Principal
	limiter   *rate.Limiter
	log       zerolog.Logger

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(h *Hub, conn *websocket.Conn, p *domain.Principal, limiter *rate.Limiter, log zerolog.Logger) *client {
	id := uuid.NewString()
	l := log.With().Str("connection_id", id).Logger()
	if p != nil {
		l = l.With().Str("user_id", p.UserID).Logger()
	}
	return &client{
		id:        id,
		hub:       h,
		conn:      conn,
		principal: p,
		limiter:   limiter,
		log:       l,
		send:      make(chan []byte, sendBuffer),
		done:      make(chan struct{}),
	}
}

func (c *client) ID() string { return c.id }

func (c *client) Send(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (c *client) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// readPump handles invocations until the peer goes away. It unregisters the
// client on exit.
func (c *client) readPump() {
	defer func() {
		c.hub.Unregister(c.id)
		c.Close()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn().Err(err).Msg("websocket closed unexpectedly")
			}
			return
		}

		var in inboundFrame
		if err := json.Unmarshal(raw, &in); err != nil {
			c.log.Debug().Err(err).Msg("ignoring malformed frame")
			continue
		}

		switch in.Type {
		case framePing:
			continue
		case frameInvocation:
			var invokeErr error
			if !c.limiter.Allow() {
				invokeErr = errRateLimited
			} else {
				invokeErr = c.hub.Invoke(c.id, in.Target, in.Arguments)
			}
			if invokeErr != nil {
				c.log.Debug().Err(invokeErr).Str("target", in.Target).Msg("invocation failed")
			}
			if in.InvocationID != "" {
				c.Send(encodeCompletion(in.InvocationID, invokeErr))
			}
		default:
			c.log.Debug().Str("type", in.Type).Msg("ignoring unknown frame type")
		}
	}
}

// writePump serialises all writes to the connection and keeps it alive with
// pings.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.log.Debug().Err(err).Msg("write failed")
				c.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
