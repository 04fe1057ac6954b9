package live

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/jonboulle/clockwork"
)

// WebSocketMessage is the envelope every room broadcast uses. Payloads are
// always full snapshots, never diffs, so a reconnecting client needs no
// patch application.
type WebSocketMessage struct {
	Type    string      `json:"type"`              // "TIMER_UPDATED", "ELIMINATION_RECORDED", "GAME_DATE_UPDATED", "time_sync"
	Payload interface{} `json:"payload,omitempty"` // Полезная нагрузка (данные сообщения)
	RoomID  string      `json:"room_id,omitempty"` // ID комнаты (игрового дня), к которой относится сообщение
}

// Hub keeps one broadcast room per game date. Register/Unregister/Broadcast
// all funnel through Run's single goroutine-owned select, matching the
// state the per-client pumps expect.
type Hub struct {
	Register   chan *Client
	Unregister chan *Client
	rooms      map[string]map[*Client]bool
	mu         sync.RWMutex
	clock      clockwork.Clock
}

func NewHub(clock clockwork.Clock) *Hub {
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		rooms:      make(map[string]map[*Client]bool),
		clock:      clock,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			if _, ok := h.rooms[client.Room]; !ok {
				h.rooms[client.Room] = make(map[*Client]bool)
			}
			h.rooms[client.Room][client] = true
			log.Printf("Client %s registered to room %s. Total clients in room: %d",
				client.ID, client.Room, len(h.rooms[client.Room]))
			h.mu.Unlock()

		case client := <-h.Unregister:
			h.mu.Lock()
			if _, ok := h.rooms[client.Room]; ok {
				if _, okClient := h.rooms[client.Room][client]; okClient {
					client.Mu.Lock()
					if !client.IsClosed {
						close(client.Send)
						client.IsClosed = true
					}
					client.Mu.Unlock()
					delete(h.rooms[client.Room], client)
					if len(h.rooms[client.Room]) == 0 {
						delete(h.rooms, client.Room)
						log.Printf("Room %s closed as it's empty.", client.Room)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastToRoom отправляет сообщение всем клиентам в указанной комнате.
// Slow or closed clients are skipped; state lives on the server, so a missed
// frame is recovered by the snapshot sent on the client's next (re)join.
func (h *Hub) BroadcastToRoom(roomID string, message interface{}) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	roomClients, ok := h.rooms[roomID]
	if !ok {
		return
	}

	messageBytes, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshalling message for room %s: %v", roomID, err)
		return
	}

	for client := range roomClients {
		client.Mu.Lock()
		if client.IsClosed {
			client.Mu.Unlock()
			continue
		}
		select {
		case client.Send <- messageBytes:
		default:
			log.Printf("Client %s send channel full in room %s. Skipping.", client.ID, roomID)
		}
		client.Mu.Unlock()
	}
}

// RoomSize reports the number of connected clients in a room.
func (h *Hub) RoomSize(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}
