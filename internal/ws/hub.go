package ws

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
)

// Event is the wire shape of every message pushed to clients.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// roomEvent routes one event to a single room.
type roomEvent struct {
	Room  string
	Event Event
}

// Hub maintains the set of active clients grouped into rooms and broadcasts
// events to them. A client belongs to several rooms at once (its own staff
// room plus its branch and hotel rooms), so one event can reach every
// interested connection with a single publish.
type Hub struct {
	// Registered clients by room name.
	rooms map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *roomEvent

	mu  sync.RWMutex
	log zerolog.Logger
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *roomEvent, 256),
		log:        log,
	}
}

// Run starts the hub's main loop.
// This should be called as a goroutine: go hub.Run()
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			for _, room := range client.rooms {
				if h.rooms[room] == nil {
					h.rooms[room] = make(map[*Client]bool)
				}
				h.rooms[room][client] = true
			}
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.dropClient(client)
			h.mu.Unlock()

		case event := <-h.broadcast:
			h.mu.Lock()
			message, err := json.Marshal(event.Event)
			if err != nil {
				h.mu.Unlock()
				continue
			}

			for client := range h.rooms[event.Room] {
				select {
				case client.send <- message:
				default:
					// Send buffer full: the client is too slow, drop it.
					h.dropClient(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// dropClient removes the client from every room it joined and closes its send
// channel. Caller must hold h.mu.
func (h *Hub) dropClient(client *Client) {
	dropped := false
	for _, room := range client.rooms {
		clients, ok := h.rooms[room]
		if !ok {
			continue
		}
		if _, exists := clients[client]; exists {
			delete(clients, client)
			dropped = true
			if len(clients) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	if dropped {
		close(client.send)
	}
}

// Publish marshals the payload and broadcasts it to one room. It satisfies
// the assignment engine's publisher contract, so the engine stays unaware of
// WebSocket details.
func (h *Hub) Publish(room, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Error().Err(err).Str("event", event).Msg("marshal event payload")
		return
	}
	select {
	case h.broadcast <- &roomEvent{
		Room:  room,
		Event: Event{Type: event, Payload: data},
	}:
	default:
		// Callers must never block on a stalled hub; losing a push beats
		// stalling an assignment.
		h.log.Warn().Str("room", room).Str("event", event).Msg("broadcast buffer full, event dropped")
	}
}
