package server

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// hub tracks connected clients and routes push frames to the clients
// watching a given game.
type hub struct {
	logger *zap.Logger

	mu      sync.RWMutex
	clients map[*client]bool
}

func newHub(logger *zap.Logger) *hub {
	return &hub{
		logger:  logger,
		clients: make(map[*client]bool),
	}
}

func (h *hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
}

func (h *hub) unregister(c *client) {
	h.mu.Lock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// pushToGame sends a frame to every client bound to the game. Slow clients
// are dropped rather than allowed to stall the rest.
func (h *hub) pushToGame(gameID string, push Push) {
	payload, err := json.Marshal(push)
	if err != nil {
		if h.logger != nil {
			h.logger.Error("marshal push frame", zap.Error(err))
		}
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if c.gameID() != gameID {
			continue
		}
		select {
		case c.send <- payload:
		default:
			delete(h.clients, c)
			close(c.send)
			if h.logger != nil {
				h.logger.Warn("dropped slow client", zap.String("game_id", gameID))
			}
		}
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

func (h *hub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
