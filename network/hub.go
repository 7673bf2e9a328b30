package network

import (
	"log/slog"
	"sync"

	"battlerooms/protocol"
)

const sendBuffer = 64

// client is one connected actor as seen by the hub.
type client struct {
	id   string
	name string
	send chan []byte
}

// Hub tracks connected clients and fans notices out to them. It implements
// room.Notifier: every method returns without blocking, dropping messages for
// clients whose buffer is full.
type Hub struct {
	log *slog.Logger

	mu      sync.RWMutex
	clients map[string]*client
}

func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{log: log, clients: make(map[string]*client)}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.id] = c
}

// unregister removes c and closes its send channel, which stops its writer.
func (h *Hub) unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[id]; ok {
		delete(h.clients, id)
		close(c.send)
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) Broadcast(msg string) {
	b, err := protocol.Encode(protocol.MsgNotice, protocol.Notice{Text: msg})
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		h.deliver(c, b)
	}
}

func (h *Hub) Send(actor, msg string) {
	h.sendEnvelope(actor, protocol.MsgNotice, protocol.Notice{Text: msg})
}

// DisplayName returns the name actor gave in its hello, or its id.
func (h *Hub) DisplayName(actor string) string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if c, ok := h.clients[actor]; ok && c.name != "" {
		return c.name
	}
	return actor
}

func (h *Hub) sendEnvelope(actor, t string, payload any) {
	b, err := protocol.Encode(t, payload)
	if err != nil {
		h.log.Error("encode message", slog.String("type", t), slog.Any("error", err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if c, ok := h.clients[actor]; ok {
		h.deliver(c, b)
	}
}

// deliver must be called with h.mu held.
func (h *Hub) deliver(c *client, b []byte) {
	select {
	case c.send <- b:
	default:
		h.log.Warn("client send buffer full, message dropped", slog.String("actor", c.id))
	}
}
