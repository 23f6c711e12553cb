package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"latidos/metrics"
	"latidos/models"

	"github.com/apex/log"
)

type envelope struct {
	sessionID string
	data      []byte
}

// Hub manages WebSocket connections and pushes events to the clients of one session
type Hub struct {
	// Registered clients by session
	clients map[string]map[*Client]bool

	// Outbound messages addressed to a session
	outbound chan envelope

	// Register requests from clients
	Register chan *Client

	// Unregister requests from clients
	Unregister chan *Client

	stop chan struct{}
	done chan struct{}

	// Mutex for thread-safe operations
	mutex sync.RWMutex

	connectedClients int
	sentMessages     int
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		outbound:   make(chan envelope, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop. It returns after Stop.
func (h *Hub) Run() {
	defer close(h.done)
	for {
		select {
		case <-h.stop:
			h.mutex.Lock()
			for _, session := range h.clients {
				for client := range session {
					close(client.send)
				}
			}
			h.clients = make(map[string]map[*Client]bool)
			h.connectedClients = 0
			h.mutex.Unlock()
			metrics.WebsocketClients.Set(0)
			return

		case client := <-h.Register:
			h.mutex.Lock()
			if h.clients[client.sessionID] == nil {
				h.clients[client.sessionID] = make(map[*Client]bool)
			}
			h.clients[client.sessionID][client] = true
			h.connectedClients++
			h.mutex.Unlock()
			metrics.WebsocketClients.Inc()
			log.WithField("session", client.sessionID).Infof("Client connected. Total clients: %d", h.connectedClients)

		case client := <-h.Unregister:
			h.mutex.Lock()
			h.removeLocked(client)
			h.mutex.Unlock()
			log.WithField("session", client.sessionID).Infof("Client disconnected. Total clients: %d", h.connectedClients)

		case msg := <-h.outbound:
			h.mutex.Lock()
			for client := range h.clients[msg.sessionID] {
				select {
				case client.send <- msg.data:
					h.sentMessages++
				default:
					h.removeLocked(client)
				}
			}
			h.mutex.Unlock()
		}
	}
}

func (h *Hub) removeLocked(client *Client) {
	session, ok := h.clients[client.sessionID]
	if !ok || !session[client] {
		return
	}
	delete(session, client)
	if len(session) == 0 {
		delete(h.clients, client.sessionID)
	}
	close(client.send)
	h.connectedClients--
	metrics.WebsocketClients.Dec()
}

// Stop ends Run and closes every client's send channel.
func (h *Hub) Stop() {
	close(h.stop)
	<-h.done
}

// Notify pushes an event to every client of the session. Sessions without listeners drop it.
func (h *Hub) Notify(sessionID, eventType string, data interface{}) {
	message := models.BroadcastMessage{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now(),
	}

	payload, err := json.Marshal(message)
	if err != nil {
		log.WithError(err).Error("Failed to marshal event")
		return
	}

	select {
	case h.outbound <- envelope{sessionID: sessionID, data: payload}:
	case <-h.stop:
	}
}

// GetStats returns the number of connected clients and messages delivered so far
func (h *Hub) GetStats() (int, int) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.connectedClients, h.sentMessages
}
