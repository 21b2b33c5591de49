package ws

import (
	"sync"

	"chess-relay/internal/logging"
	"chess-relay/internal/metrics"
	"chess-relay/internal/shared"
)

// Hub tracks live connections and which session room each one belongs to. It implements
// room.Broadcaster.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
	rooms   map[string]map[string]struct{}
	metrics *metrics.RelayMetrics
}

func NewHub(m *metrics.RelayMetrics) *Hub {
	return &Hub{
		clients: make(map[string]*client),
		rooms:   make(map[string]map[string]struct{}),
		metrics: m,
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	h.metrics.ConnectionOpened()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; !ok {
		h.mu.Unlock()
		return
	}
	// room membership is cleared by CloseRoom when the session closes
	delete(h.clients, c.id)
	h.mu.Unlock()
	h.metrics.ConnectionClosed()
}

// SendTo delivers msg to a single connection.
func (h *Hub) SendTo(connID string, msg shared.Message) {
	data, err := shared.Encode(msg)
	if err != nil {
		logging.WithError(err).Error("Failed to encode message", "action", msg.Action)
		return
	}

	h.mu.RLock()
	c, ok := h.clients[connID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	if !c.enqueue(data) {
		h.evict(c)
	}
}

// Broadcast delivers the same encoded frame to every member of the session room.
func (h *Hub) Broadcast(sessionID string, msg shared.Message) {
	data, err := shared.Encode(msg)
	if err != nil {
		logging.WithError(err).Error("Failed to encode message", "action", msg.Action)
		return
	}

	var slow []*client
	h.mu.RLock()
	for id := range h.rooms[sessionID] {
		if c, ok := h.clients[id]; ok && !c.enqueue(data) {
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.evict(c)
	}
}

func (h *Hub) Subscribe(sessionID, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[connID]; !ok {
		return
	}
	members, ok := h.rooms[sessionID]
	if !ok {
		members = make(map[string]struct{})
		h.rooms[sessionID] = members
	}
	members[connID] = struct{}{}
}

func (h *Hub) CloseRoom(sessionID string) {
	h.mu.Lock()
	delete(h.rooms, sessionID)
	h.mu.Unlock()
}

// evict drops a connection that cannot keep up. Its read loop notices the closed socket
// and runs the normal disconnect path.
func (h *Hub) evict(c *client) {
	select {
	case <-c.done:
		return
	default:
	}
	logging.WithConn(c.id).Warn("Disconnecting slow client")
	h.metrics.SlowClientEvicted()
	c.stop()
}

func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Members returns the live connection ids subscribed to a session room.
func (h *Hub) Members(sessionID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.rooms[sessionID]))
	for id := range h.rooms[sessionID] {
		if _, ok := h.clients[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// Close tears down every connection.
func (h *Hub) Close() {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.stop()
	}
}
