package live

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

type Client struct {
	ID       string // uuid, for log correlation only
	Hub      *Hub
	Conn     *websocket.Conn
	Send     chan []byte
	Room     string
	IsClosed bool
	Mu       sync.Mutex
}

// timeSyncRequest is the clock handshake a client runs on every connect,
// reconnect and return-to-foreground. The server echoes the client timestamp
// with its own so the client can estimate
// offset = serverTime + roundTrip/2 − clientNow. The server keeps no state
// about it; repeating the handshake is how drift gets corrected.
type timeSyncRequest struct {
	Type       string `json:"type"`
	ClientTime int64  `json:"client_time"` // epoch milliseconds
}

type timeSyncResponse struct {
	Type       string `json:"type"`
	ClientTime int64  `json:"client_time"` // echoed verbatim
	ServerTime int64  `json:"server_time"` // epoch milliseconds, server clock
}

func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
		c.Mu.Lock()
		c.IsClosed = true
		c.Mu.Unlock()
		log.Printf("Client %s readPump closed for room %s", c.ID, c.Room)
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("Client %s in room %s closed unexpectedly: %v", c.ID, c.Room, err)
			}
			break
		}
		c.handleMessage(message)
	}
}

// handleMessage processes inbound client frames. The only client-driven
// protocol is the time-sync handshake; everything else is ignored — clients
// never mutate state over the socket, commands go through the HTTP API.
func (c *Client) handleMessage(message []byte) {
	var req timeSyncRequest
	if err := json.Unmarshal(message, &req); err != nil || req.Type != "time_sync" {
		log.Printf("Client %s in room %s sent unhandled message: %s", c.ID, c.Room, message)
		return
	}

	resp := timeSyncResponse{
		Type:       "time_sync",
		ClientTime: req.ClientTime,
		ServerTime: c.Hub.clock.Now().UnixMilli(),
	}
	respBytes, err := json.Marshal(resp)
	if err != nil {
		log.Printf("Error marshalling time_sync response for client %s: %v", c.ID, err)
		return
	}

	// Answered on this connection only; the handshake is per-connection,
	// not per-room.
	c.Mu.Lock()
	defer c.Mu.Unlock()
	if c.IsClosed {
		return
	}
	select {
	case c.Send <- respBytes:
	default:
		log.Printf("Client %s send channel full, dropping time_sync response", c.ID)
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Mu.Lock()
		c.IsClosed = true
		c.Mu.Unlock()
		log.Printf("Client %s writePump closed for room %s", c.ID, c.Room)
	}()
	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			n := len(c.Send)
			for i := 0; i < n; i++ {
				w.Write(<-c.Send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
