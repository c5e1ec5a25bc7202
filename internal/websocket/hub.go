// Package websocket implements a Hub for broadcasting live score updates.
// WebSockets are persistent two-way connections: the server can push data the moment a
// point is recorded, so spectators following a match see the score change without polling.
package websocket

import (
	"context"
	"sync" // sync provides the RWMutex guarding the client map
)

// Client represents one connected spectator.
type Client struct {
	MatchID string      // Which match this client is following; used to route messages
	Send    chan []byte // Outgoing messages; the Hub writes here, the socket writer drains it
}

// NewClient returns a client for matchID with a buffered Send channel.
func NewClient(matchID string) *Client {
	return &Client{MatchID: matchID, Send: make(chan []byte, 16)}
}

// Message is a unit of data to broadcast to everyone following a match.
type Message struct {
	MatchID string
	Data    []byte // Typically a JSON-encoded score snapshot
}

// Hub manages all active connections, grouped by match ID.
// All changes to the client map happen on the Run goroutine; the mutex only exists so
// ClientCount can read the map from other goroutines.
type Hub struct {
	// clients is a nested map: matchID -> set of clients. map[*Client]bool is the usual Go set.
	clients map[string]map[*Client]bool

	broadcast  chan *Message
	register   chan *Client
	unregister chan *Client
	done       chan struct{} // Closed when Run returns

	mu sync.RWMutex
}

// NewHub creates a Hub. The broadcast channel is buffered so handlers rarely block
// while the Hub goroutine is busy; register and unregister are unbuffered.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		broadcast:  make(chan *Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run is the Hub's event loop. Start it in its own goroutine ("go hub.Run(ctx)").
// It returns when ctx is cancelled, closing every remaining client's Send channel.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for matchID, clients := range h.clients {
				for client := range clients {
					close(client.Send)
				}
				delete(h.clients, matchID)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.MatchID] == nil {
				h.clients[client.MatchID] = make(map[*Client]bool)
			}
			h.clients[client.MatchID][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients[msg.MatchID] {
				select {
				case client.Send <- msg.Data:
				// A full buffer means the client can't keep up. Drop it here rather than
				// sending on h.unregister, which only this goroutine reads.
				default:
					h.remove(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove deletes client and closes its Send channel. Callers hold h.mu.
func (h *Hub) remove(client *Client) {
	clients, ok := h.clients[client.MatchID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.Send) // Tells the socket writer to stop
	if len(clients) == 0 {
		delete(h.clients, client.MatchID)
	}
}

// BroadcastToMatch sends data to every client following matchID.
// After Run has returned the message is discarded.
func (h *Hub) BroadcastToMatch(matchID string, data []byte) {
	select {
	case h.broadcast <- &Message{MatchID: matchID, Data: data}:
	case <-h.done:
	}
}

// Register adds a client so it starts receiving broadcasts for its match.
// It reports false when the Hub has stopped; the client's Send channel is then closed.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		close(client.Send)
		return false
	}
}

// Unregister removes a client when its connection closes. Unregistering a client the
// Hub already dropped is a no-op.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// ClientCount reports how many clients are following matchID.
func (h *Hub) ClientCount(matchID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[matchID])
}
