package main

import (
	"context"
	"sync"
)

const (
	maxConnsPerIP = 5
	maxTotalConns = 1000
)

// Hub tracks connected clients and hands them to the game. Clients are
// added before their pumps start and removed by their read pump, so the game
// always knows a session before its first command.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	stopped bool
	game    *Game
	metrics *Metrics
	// Connection limiting (mutex-protected, accessed from HTTP handlers)
	connMu     sync.Mutex
	ipConns    map[string]int
	totalConns int
	perIP      int
	total      int
}

// NewHub creates a new Hub feeding the given game
func NewHub(game *Game) *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
		game:    game,
		metrics: game.Metrics(),
		ipConns: make(map[string]int),
		perIP:   maxConnsPerIP,
		total:   maxTotalConns,
	}
}

// SetLimits overrides the per-IP and total connection caps
func (h *Hub) SetLimits(perIP, total int) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.perIP = perIP
	h.total = total
}

func (h *Hub) CanAccept(ip string) bool {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	if h.totalConns >= h.total {
		return false
	}
	if h.ipConns[ip] >= h.perIP {
		return false
	}
	return true
}

func (h *Hub) TrackConnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]++
	h.totalConns++
}

func (h *Hub) TrackDisconnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]--
	if h.ipConns[ip] <= 0 {
		delete(h.ipConns, ip)
	}
	h.totalConns--
}

// Add registers the client and connects its session to the game. It returns
// false once the hub has shut down.
func (h *Hub) Add(client *Client) bool {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return false
	}
	h.clients[client] = true
	h.mu.Unlock()

	h.game.Connect(client.id, client)
	Log.Debugw("session connected", "session", client.id, "addr", client.remoteAddr, "encoding", client.enc.String())
	return true
}

// Remove closes the client and removes its session and player. Safe to call
// more than once and after shutdown.
func (h *Hub) Remove(client *Client) {
	h.mu.Lock()
	delete(h.clients, client)
	h.mu.Unlock()
	client.close()

	h.game.Disconnect(client.id)
	Log.Debugw("session disconnected", "session", client.id)
}

// Run waits for ctx and then closes every client
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopped = true
	for client := range h.clients {
		delete(h.clients, client)
		client.close()
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// TotalConns returns the tracked connection count
func (h *Hub) TotalConns() int {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	return h.totalConns
}
