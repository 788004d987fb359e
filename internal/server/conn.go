package server

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 16384
	sendBuffer     = 256
)

// Conn is one client's websocket with its outbound queue.
type Conn struct {
	ID string
	ws *websocket.Conn

	mu     sync.Mutex
	sendCh chan []byte
	closed bool

	log *zap.Logger
}

func newConn(id string, ws *websocket.Conn, logger *zap.Logger) *Conn {
	return &Conn{
		ID:     id,
		ws:     ws,
		sendCh: make(chan []byte, sendBuffer),
		log:    logger.With(zap.String("conn", id)),
	}
}

// send queues a frame. Frames are dropped when the queue is full or the
// connection has been closed.
func (c *Conn) send(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	select {
	case c.sendCh <- data:
	default:
		c.log.Warn("send channel full, dropping message")
	}
}

// close stops the write pump after it drains the queue.
func (c *Conn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.sendCh)
}

// writePump sends messages from sendCh to the websocket.
func (c *Conn) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case msg, ok := <-c.sendCh:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.log.Debug("write error", zap.Error(err))
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

// readPump reads frames until the connection fails, handing each to fn.
func (c *Conn) readPump(fn func(data []byte)) {
	defer c.ws.Close()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Info("read error", zap.Error(err))
			}
			return
		}
		fn(message)
	}
}
