package handlers

import (
	"net/http"

	"github.com/Dosada05/poker-league/services"
)

type GameDateHandler struct {
	gameDateService services.GameDateService
}

func NewGameDateHandler(gameDateService services.GameDateService) *GameDateHandler {
	return &GameDateHandler{gameDateService: gameDateService}
}

func (h *GameDateHandler) GetGameDateHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "gameDateID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	date, err := h.gameDateService.GetGameDate(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"game_date": date}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *GameDateHandler) MarkCreatedHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "gameDateID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	date, err := h.gameDateService.MarkCreated(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"game_date": date}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type assignPlayerRequest struct {
	PlayerID int `json:"player_id"`
}

func (h *GameDateHandler) AssignPlayerHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "gameDateID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input assignPlayerRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.gameDateService.AssignPlayer(r.Context(), id, input.PlayerID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *GameDateHandler) RemovePlayerHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "gameDateID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	playerID, err := getIDFromURL(r, "playerID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.gameDateService.RemovePlayer(r.Context(), id, playerID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *GameDateHandler) CancelGameDateHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "gameDateID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	date, err := h.gameDateService.Cancel(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"game_date": date}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *GameDateHandler) ResetGameDateHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "gameDateID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	date, err := h.gameDateService.Reset(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"game_date": date}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
