package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"walkabout/server/internal/hub"
	"walkabout/server/internal/protocol"
)

const (
	writeWait     = 10 * time.Second
	readLimit     = 1 << 20 // 1MB
	sendQueueSize = 64
)

// conn adapts a websocket connection to the hub.Sink contract. Outbound
// frames go through a buffered queue drained by a dedicated write goroutine,
// so a stalled client backs up its own queue and nothing else; when the
// queue fills, frames are dropped in favor of fresher state.
type conn struct {
	ws        *websocket.Conn
	frameType int

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func newConn(ws *websocket.Conn, encoding protocol.Encoding) *conn {
	frameType := websocket.TextMessage
	if encoding == protocol.EncodingBinary {
		frameType = websocket.BinaryMessage
	}
	return &conn{
		ws:        ws,
		frameType: frameType,
		send:      make(chan []byte, sendQueueSize),
	}
}

// Send queues a frame without blocking. It reports ErrSinkClosed once the
// connection is torn down; a full queue drops the frame silently.
func (c *conn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return hub.ErrSinkClosed
	}
	select {
	case c.send <- data:
	default:
		// Queue full: the next state broadcast supersedes this frame.
	}
	return nil
}

// Close stops the write pump and closes the socket. Safe to call more than
// once.
func (c *conn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	c.mu.Unlock()
	_ = c.ws.Close()
}

// writePump drains the send queue onto the socket until Close or a write
// error ends it.
func (c *conn) writePump() {
	defer c.ws.Close()
	for data := range c.send {
		c.ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.ws.WriteMessage(c.frameType, data); err != nil {
			return
		}
	}
}
