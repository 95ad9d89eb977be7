package server

import (
	"sync"

	"github.com/feltengine/felt/internal/broadcast"
)

// Hub tracks live connections and implements broadcast.Sink. Delivery is
// fire-and-forget: each connection's buffered channel absorbs bursts,
// and an unresponsive client is dropped by its own Send.
type Hub struct {
	mu      sync.RWMutex
	bots    map[string]*Connection // by player id, latest connection wins
	viewers map[*Connection]struct{}
	admins  map[*Connection]struct{}
}

func newHub() *Hub {
	return &Hub{
		bots:    make(map[string]*Connection),
		viewers: make(map[*Connection]struct{}),
		admins:  make(map[*Connection]struct{}),
	}
}

// register adds a connection. A bot reconnecting displaces its previous
// connection.
func (h *Hub) register(c *Connection) {
	var displaced *Connection

	h.mu.Lock()
	switch c.role {
	case RoleBot:
		displaced = h.bots[c.playerID]
		h.bots[c.playerID] = c
	case RoleViewer:
		h.viewers[c] = struct{}{}
	case RoleAdmin:
		h.admins[c] = struct{}{}
	}
	h.mu.Unlock()

	if displaced != nil && displaced != c {
		_ = displaced.Close()
	}
}

func (h *Hub) unregister(c *Connection) {
	h.mu.Lock()
	switch c.role {
	case RoleBot:
		if h.bots[c.playerID] == c {
			delete(h.bots, c.playerID)
		}
	case RoleViewer:
		delete(h.viewers, c)
	case RoleAdmin:
		delete(h.admins, c)
	}
	h.mu.Unlock()
}

// SendToPlayer delivers to a bot's live connection, if any.
func (h *Hub) SendToPlayer(playerID string, env broadcast.Envelope) {
	h.mu.RLock()
	c := h.bots[playerID]
	h.mu.RUnlock()
	if c != nil {
		c.Send(env)
	}
}

// BroadcastToViewers delivers to every viewer connection.
func (h *Hub) BroadcastToViewers(env broadcast.Envelope) {
	h.mu.RLock()
	conns := make([]*Connection, 0, len(h.viewers))
	for c := range h.viewers {
		conns = append(conns, c)
	}
	h.mu.RUnlock()
	for _, c := range conns {
		c.Send(env)
	}
}

// BroadcastToAdmins delivers to every admin connection.
func (h *Hub) BroadcastToAdmins(env broadcast.Envelope) {
	h.mu.RLock()
	conns := make([]*Connection, 0, len(h.admins))
	for c := range h.admins {
		conns = append(conns, c)
	}
	h.mu.RUnlock()
	for _, c := range conns {
		c.Send(env)
	}
}

// closeAll drops every connection, for shutdown.
func (h *Hub) closeAll() {
	h.mu.Lock()
	conns := make([]*Connection, 0, len(h.bots)+len(h.viewers)+len(h.admins))
	for _, c := range h.bots {
		conns = append(conns, c)
	}
	for c := range h.viewers {
		conns = append(conns, c)
	}
	for c := range h.admins {
		conns = append(conns, c)
	}
	h.bots = make(map[string]*Connection)
	h.viewers = make(map[*Connection]struct{})
	h.admins = make(map[*Connection]struct{})
	h.mu.Unlock()

	for _, c := range conns {
		_ = c.Close()
	}
}
