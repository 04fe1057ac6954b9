package handlers

import (
	"net/http"

	"github.com/Dosada05/poker-league/models"
	"github.com/Dosada05/poker-league/services"
)

type PlayerHandler struct {
	playerService services.PlayerService
}

func NewPlayerHandler(playerService services.PlayerService) *PlayerHandler {
	return &PlayerHandler{playerService: playerService}
}

type createPlayerRequest struct {
	DisplayName string `json:"display_name"`
	Role        string `json:"role,omitempty"`
	IsGuest     bool   `json:"is_guest,omitempty"`
}

func (h *PlayerHandler) CreatePlayerHandler(w http.ResponseWriter, r *http.Request) {
	var input createPlayerRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	player := &models.Player{
		DisplayName: input.DisplayName,
		Role:        models.PlayerRole(input.Role),
		IsGuest:     input.IsGuest,
	}
	if err := h.playerService.CreatePlayer(r.Context(), player); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"player": player}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *PlayerHandler) GetPlayerHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "playerID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	player, err := h.playerService.LookupPlayer(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"player": player}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *PlayerHandler) ListPlayersHandler(w http.ResponseWriter, r *http.Request) {
	players, err := h.playerService.ListPlayers(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"players": players}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
