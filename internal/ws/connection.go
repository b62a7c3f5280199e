// Package ws serves the persistent bidirectional session over which clients
// drive their broadcast-channel membership and receive pushed change events.
package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tabletop/backend/internal/presence"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Connection wraps a websocket with a single writer goroutine and a bounded
// outbound buffer. Deliver never blocks: a consumer that cannot keep up has
// events dropped instead of stalling the broadcaster or sibling connections.
type Connection struct {
	ws   *websocket.Conn
	send chan presence.Event
	done chan struct{}
	once sync.Once
}

func newConnection(ws *websocket.Conn, sendBuffer int) *Connection {
	return &Connection{
		ws:   ws,
		send: make(chan presence.Event, sendBuffer),
		done: make(chan struct{}),
	}
}

// Deliver queues an event for the writer goroutine. It reports false when the
// connection is closed or its buffer is full.
func (c *Connection) Deliver(evt presence.Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- evt:
		return true
	default:
		return false
	}
}

// writePump is the single writer for the socket. It drains the send buffer
// and keeps the connection alive with periodic pings.
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case evt := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(evt); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			c.ws.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// Close shuts the connection down. Safe to call more than once; pending
// deliveries are abandoned.
func (c *Connection) Close() {
	c.once.Do(func() {
		close(c.done)
		c.ws.Close()
	})
}
