package handlers

import (
	"net/http"

	"github.com/Dosada05/poker-league/services"
)

type EliminationHandler struct {
	eliminationService services.EliminationService
}

func NewEliminationHandler(eliminationService services.EliminationService) *EliminationHandler {
	return &EliminationHandler{eliminationService: eliminationService}
}

type recordEliminationRequest struct {
	Position           int  `json:"position"`
	EliminatedPlayerID int  `json:"eliminated_player_id"`
	EliminatorPlayerID *int `json:"eliminator_player_id,omitempty"`
}

func (h *EliminationHandler) RecordEliminationHandler(w http.ResponseWriter, r *http.Request) {
	gameDateID, err := getIDFromURL(r, "gameDateID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input recordEliminationRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	elimination, err := h.eliminationService.RecordElimination(r.Context(), services.RecordEliminationInput{
		GameDateID:         gameDateID,
		Position:           input.Position,
		EliminatedPlayerID: input.EliminatedPlayerID,
		EliminatorPlayerID: input.EliminatorPlayerID,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"elimination": elimination}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListEliminationsHandler returns the date's log ordered by position
// descending: the most recent bust-out first, the winner last.
func (h *EliminationHandler) ListEliminationsHandler(w http.ResponseWriter, r *http.Request) {
	gameDateID, err := getIDFromURL(r, "gameDateID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	eliminations, err := h.eliminationService.ListEliminations(r.Context(), gameDateID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"eliminations": eliminations}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *EliminationHandler) NextPositionHandler(w http.ResponseWriter, r *http.Request) {
	gameDateID, err := getIDFromURL(r, "gameDateID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	next, err := h.eliminationService.NextPosition(r.Context(), gameDateID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"next_position": next}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
