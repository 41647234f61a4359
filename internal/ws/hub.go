package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/payout-ledger/internal/goroutine"
	"github.com/ignatzorin/payout-ledger/internal/logger"
)

// Hub fans server events out to connected admin consoles.
type Hub struct {
	mu         sync.RWMutex
	clients    map[uuid.UUID]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan message
	stopped    chan struct{}
}

// message with a nil userID goes to every connected client.
type message struct {
	userID  uuid.UUID
	payload []byte
}

// Envelope is the wire format of every event: "type" carries the event
// name, "data" the payload.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan message, 32),
		stopped:    make(chan struct{}),
	}
}

// Run is the hub loop. It returns when ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.stopped)
	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case msg := <-h.broadcast:
			h.send(msg)
		}
	}
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.stopped:
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.stopped:
	}
}

// BroadcastToUser queues event for every connection of userID.
func (h *Hub) BroadcastToUser(userID uuid.UUID, event string, data any) error {
	return h.enqueue(userID, event, data)
}

// BroadcastAll queues event for every connected client.
func (h *Hub) BroadcastAll(event string, data any) error {
	return h.enqueue(uuid.Nil, event, data)
}

// ConnectedClients returns the number of open connections.
func (h *Hub) ConnectedClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}

func (h *Hub) enqueue(userID uuid.UUID, event string, data any) error {
	raw, err := json.Marshal(Envelope{Type: event, Data: data})
	if err != nil {
		return fmt.Errorf("ws: marshal %s: %w", event, err)
	}

	select {
	case h.broadcast <- message{userID: userID, payload: raw}:
		return nil
	default:
		logger.Log.WithFields(logrus.Fields{"event": event}).Warn("ws: broadcast queue full, event dropped")
		return fmt.Errorf("ws: broadcast queue full")
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.userID]; !ok {
		h.clients[client.userID] = make(map[*Client]struct{})
	}
	h.clients[client.userID][client] = struct{}{}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.clients[client.userID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.clients, client.userID)
		}
	}
}

func (h *Hub) send(msg message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	deliver := func(set map[*Client]struct{}) {
		for client := range set {
			select {
			case client.send <- msg.payload:
			default:
				// slow consumer
				c := client
				goroutine.SafeGo(c.Close)
			}
		}
	}

	if msg.userID != uuid.Nil {
		deliver(h.clients[msg.userID])
		return
	}
	for _, set := range h.clients {
		deliver(set)
	}
}
