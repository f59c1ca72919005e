package server

import (
	"log/slog"
	"sync"
	"time"

	"livecode/config"
)

// wsConn is the part of a websocket connection the hub writes to.
type wsConn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

type wsMessage struct {
	kind int
	data []byte
}

// WSReloadClient is one preview page listening for saves.
type WSReloadClient struct {
	conn wsConn
	send chan wsMessage
	hub  *ReloadHub

	mu     sync.Mutex
	closed bool
}

func NewWSReloadClient(conn wsConn, hub *ReloadHub) *WSReloadClient {
	c := &WSReloadClient{
		conn: conn,
		send: make(chan wsMessage, 16),
		hub:  hub,
	}
	go c.writePump()
	return c
}

func (c *WSReloadClient) writePump() {
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(config.WSWriteTimeout))
		if err := c.conn.WriteMessage(msg.kind, msg.data); err != nil {
			slog.Error("client write error", "err", err)
			break
		}
	}
}

// enqueue reports false when the client is closed or its queue is full.
func (c *WSReloadClient) enqueue(msg wsMessage) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *WSReloadClient) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	c.mu.Unlock()

	c.conn.Close()
	c.hub.RemoveClientConn(c)
}
