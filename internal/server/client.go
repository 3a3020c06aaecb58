package server

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// client is one websocket connection. Reads happen on readPump, writes are
// funneled through the send channel to writePump.
type client struct {
	server *Server
	conn   *websocket.Conn
	send   chan []byte

	mu        sync.RWMutex
	sessionID string
	game      string
}

func (c *client) gameID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.game
}

func (c *client) bind(sessionID, gameID string) {
	c.mu.Lock()
	if sessionID != "" {
		c.sessionID = sessionID
	}
	if gameID != "" {
		c.game = gameID
	}
	c.mu.Unlock()
}

func (c *client) session() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID
}

func (c *client) readPump() {
	defer func() {
		c.server.hub.unregister(c)
		c.conn.Close()
	}()

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.server.logger.Debug("websocket read error", zap.Error(err))
			}
			return
		}

		var req Request
		if err := json.Unmarshal(message, &req); err != nil {
			c.reply(Response{Op: "error", OK: false, Error: "malformed request"})
			continue
		}
		c.server.handle(c, req)
	}
}

func (c *client) writePump(writeTimeout, pingInterval time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// reply queues a response frame; the connection is dropped by the hub if the
// client cannot keep up.
func (c *client) reply(resp Response) {
	payload, err := json.Marshal(resp)
	if err != nil {
		c.server.logger.Error("marshal response", zap.Error(err))
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}
