package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Dosada05/poker-league/live"
	"github.com/Dosada05/poker-league/services"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Разрешаем все источники; на проде закрывается reverse proxy.
		return true
	},
}

type WebSocketHandler struct {
	hub                *live.Hub
	timerService       services.TimerService
	eliminationService services.EliminationService
	logger             *slog.Logger
}

func NewWebSocketHandler(hub *live.Hub, timerService services.TimerService, eliminationService services.EliminationService, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:                hub,
		timerService:       timerService,
		eliminationService: eliminationService,
		logger:             logger,
	}
}

// ServeGameDateWS upgrades the connection and joins the game date's room.
// Directly after the join the client is seeded with the current timer
// snapshot and the elimination log, so it renders correct state without
// waiting for the next broadcast.
func (h *WebSocketHandler) ServeGameDateWS(w http.ResponseWriter, r *http.Request) {
	gameDateID, err := getIDFromURL(r, "gameDateID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "game_date_id", gameDateID, "error", err)
		return
	}

	client := &live.Client{
		ID:   uuid.New().String(),
		Hub:  h.hub,
		Conn: conn,
		Send: make(chan []byte, 256),
		Room: services.GameDateRoom(gameDateID),
	}
	h.hub.Register <- client

	go client.WritePump()
	go client.ReadPump()

	h.seedClient(r.Context(), client, gameDateID)
}

// seedClient pushes the initial snapshots onto the client's send channel.
// Missing timer state is normal for a date that has not started yet and is
// simply skipped.
func (h *WebSocketHandler) seedClient(ctx context.Context, client *live.Client, gameDateID int) {
	room := services.GameDateRoom(gameDateID)

	state, err := h.timerService.Snapshot(ctx, gameDateID)
	switch {
	case err == nil:
		h.sendToClient(client, live.WebSocketMessage{
			Type:    "TIMER_UPDATED",
			Payload: state,
			RoomID:  room,
		})
	case errors.Is(err, services.ErrTimerNotFound):
		// таймер ещё не запускался
	default:
		h.logger.Error("seeding timer snapshot failed", "game_date_id", gameDateID, "error", err)
	}

	eliminations, err := h.eliminationService.ListEliminations(ctx, gameDateID)
	if err != nil {
		h.logger.Error("seeding eliminations failed", "game_date_id", gameDateID, "error", err)
		return
	}
	h.sendToClient(client, live.WebSocketMessage{
		Type:    "ELIMINATIONS_SNAPSHOT",
		Payload: eliminations,
		RoomID:  room,
	})
}

func (h *WebSocketHandler) sendToClient(client *live.Client, msg live.WebSocketMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshalling seed message failed", "type", msg.Type, "error", err)
		return
	}

	client.Mu.Lock()
	defer client.Mu.Unlock()
	if client.IsClosed {
		return
	}
	select {
	case client.Send <- data:
	default:
		h.logger.Warn("client send channel full on seed", "client_id", client.ID, "room", client.Room)
	}
}
