package main

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// EventKind classifies a game event for dashboard clients.
type EventKind string

const (
	EventGameStarted EventKind = "game_started"
	EventPhase       EventKind = "phase"
	EventMessage     EventKind = "message"
	EventOutcome     EventKind = "outcome"
	EventGameOver    EventKind = "game_over"
)

// GameEvent is one observable moment of a running game.
type GameEvent struct {
	GameID string    `json:"game_id"`
	Round  int       `json:"round"`
	Phase  string    `json:"phase"`
	Kind   EventKind `json:"kind"`
	Text   string    `json:"text"`
}

// EventSink receives game events as they happen. Publish must never block
// the game loop.
type EventSink interface {
	Publish(event GameEvent)
}

// Client represents a websocket connection
type Client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex // Serialize writes to WebSocket (required by gorilla/websocket)
}

// Hub broadcasts game events to all connected dashboard clients. Spectators
// are read-only; nothing a client sends can influence a game.
type Hub struct {
	clients    map[*websocket.Conn]*Client
	broadcast  chan []byte
	register   chan *Client
	unregister chan *websocket.Conn
	mu         sync.RWMutex
	done       chan struct{}
	wg         sync.WaitGroup
}

func newHub() *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]*Client),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *websocket.Conn, 64),
		done:       make(chan struct{}),
	}
}

// stop signals the hub goroutine to exit and waits for it to finish
func (h *Hub) stop() {
	close(h.done)
	h.wg.Wait()
}

// Publish implements EventSink. Events are dropped rather than ever blocking
// a game goroutine behind a slow client.
func (h *Hub) Publish(event GameEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("Hub: marshal event: %v", err)
		return
	}
	select {
	case h.broadcast <- data:
	default:
		DebugLog("hub: dropped event for game %s (broadcast buffer full)", event.GameID)
	}
}

func (h *Hub) run() {
	h.wg.Add(1)
	defer h.wg.Done()
	for {
		select {
		case <-h.done:
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.conn] = client
			total := len(h.clients)
			h.mu.Unlock()
			log.Printf("WebSocket client connected. Total: %d", total)

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			total := len(h.clients)
			h.mu.Unlock()
			log.Printf("WebSocket client disconnected. Total: %d", total)

		case message := <-h.broadcast:
			h.mu.RLock()
			for conn, client := range h.clients {
				// Serialize writes to each connection
				client.writeMu.Lock()
				err := conn.WriteMessage(websocket.TextMessage, message)
				client.writeMu.Unlock()

				if err != nil {
					log.Printf("WebSocket write error: %v", err)
					conn.Close()
					delete(h.clients, conn)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// handleWebSocket upgrades a dashboard spectator connection. Inbound messages
// are read only to detect disconnects and are otherwise discarded.
func (h *Hub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	var upgrader = websocket.Upgrader{}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := &Client{conn: conn}
	h.register <- client

	go func() {
		defer func() {
			h.unregister <- conn
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}
