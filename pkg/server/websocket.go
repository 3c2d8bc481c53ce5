package server

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// outbound is a queued write for a client's write pump.
// close requests a graceful shutdown: the pump sends a close frame after
// draining whatever was queued ahead of it, then tears the connection down.
type outbound struct {
	opcode int
	data   []byte
	close  bool
}

// client is one live WebSocket connection. The registry holds it for the
// lifetime of the connection; teardown removes it exactly once.
type client struct {
	server *Server
	conn   *websocket.Conn
	events *dispatcher
	logger *slog.Logger

	// id is assigned by the registry before the pumps start.
	id string

	// path is the upgrade request path, without the query string.
	path string

	send chan outbound
	done chan struct{}
	once sync.Once
}

// readLoop reads messages until the connection fails or closes.
// It refreshes the read deadline on every message and pong.
func (c *client) readLoop() {
	cfg := c.server.config

	c.conn.SetReadLimit(cfg.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
	})

	for {
		opcode, data, err := c.conn.ReadMessage()
		if err != nil {
			c.teardown(closeCause(err))
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))

		var msg Message
		switch opcode {
		case websocket.TextMessage:
			msg = NewTextMessage(string(data))
		case websocket.BinaryMessage:
			msg = NewDataMessage(data)
		default:
			continue
		}

		cfg.Metrics.recordMessageReceived(msg.Type)
		d := c.events
		d.dispatch(func() {
			d.observer.OnWebSocketMessage(c.id, msg)
		})
	}
}

// writePump serializes all writes to the connection: queued messages,
// keepalive pings, and the close frame for a graceful disconnect.
func (c *client) writePump() {
	cfg := c.server.config
	ticker := time.NewTicker(cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case out := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if out.close {
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				c.teardown(nil)
				return
			}
			if err := c.conn.WriteMessage(out.opcode, out.data); err != nil {
				c.teardown(err)
				return
			}
			cfg.Metrics.recordMessageSent(messageTypeOf(out.opcode))

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.teardown(err)
				return
			}

		case <-c.done:
			return
		}
	}
}

// trySend queues a message without blocking. Sends are fire-and-forget:
// when the buffer is full the message is dropped and counted, never
// awaited, so a slow client cannot stall the caller.
func (c *client) trySend(out outbound) {
	select {
	case <-c.done:
	case c.send <- out:
	default:
		c.server.config.Metrics.recordMessageDropped()
		c.logger.Debug("send buffer full, message dropped")
	}
}

// closeGraceful requests a close after in-flight writes have drained.
// If the send buffer is momentarily full the close request is parked on
// its own goroutine rather than blocking the caller.
func (c *client) closeGraceful() {
	select {
	case c.send <- outbound{close: true}:
	case <-c.done:
	default:
		go func() {
			select {
			case c.send <- outbound{close: true}:
			case <-c.done:
			}
		}()
	}
}

// teardown closes the connection, removes it from the registry, and emits
// the disconnect event. All exit paths funnel through here; the sync.Once
// guarantees one disconnect event per connection. err is nil for a clean or
// deliberate close.
func (c *client) teardown(err error) {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
		c.server.registry.remove(c)
		c.server.config.Metrics.recordDisconnect()

		d := c.events
		d.mustDispatch(func() {
			d.observer.OnWebSocketDisconnect(c.id, err)
		})
	})
}

// closeCause maps a read error to the disconnect event payload.
// A clean close from the peer is not an error.
func closeCause(err error) error {
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway) {
		return nil
	}
	return err
}

// messageTypeOf maps a wire opcode to the Message variant tag.
func messageTypeOf(opcode int) MessageType {
	if opcode == websocket.TextMessage {
		return TextMessage
	}
	return DataMessage
}
