package server

import (
	"sync"

	"go.uber.org/zap"
)

// Hub tracks live connections and delivers frames to them.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]*Conn
	log   *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		conns: make(map[string]*Conn),
		log:   logger,
	}
}

func (h *Hub) register(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c.ID] = c
}

func (h *Hub) unregister(id string) {
	h.mu.Lock()
	c, ok := h.conns[id]
	delete(h.conns, id)
	h.mu.Unlock()

	if ok {
		c.close()
	}
}

// Deliver queues data on every listed connection that is still open.
func (h *Hub) Deliver(connIDs []string, data []byte) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, id := range connIDs {
		c, ok := h.conns[id]
		if !ok {
			h.log.Debug("dropping message for closed connection", zap.String("conn", id))
			continue
		}
		c.send(data)
	}
	return nil
}

// Count returns the number of open connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// CloseAll closes every connection's outbound queue.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	conns := h.conns
	h.conns = make(map[string]*Conn)
	h.mu.Unlock()

	for _, c := range conns {
		c.close()
	}
}
