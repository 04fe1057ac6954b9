package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Dosada05/poker-league/middleware"
	"github.com/Dosada05/poker-league/models"
	"github.com/Dosada05/poker-league/services"
)

var errInvalidPlayersParam = errors.New("players query parameter must be a positive integer")

type RankingHandler struct {
	rankingService services.RankingService
	pointsService  services.PointsService
}

func NewRankingHandler(rankingService services.RankingService, pointsService services.PointsService) *RankingHandler {
	return &RankingHandler{rankingService: rankingService, pointsService: pointsService}
}

func (h *RankingHandler) GetRankingHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	rows, err := h.rankingService.GetRanking(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"ranking": rows}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// PointsTableHandler previews the generated table for a player count, with
// any tournament overrides applied.
func (h *RankingHandler) PointsTableHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	n, err := strconv.Atoi(r.URL.Query().Get("players"))
	if err != nil || n < 1 {
		badRequestResponse(w, r, errInvalidPlayersParam)
		return
	}

	table, err := h.pointsService.EffectiveTable(r.Context(), tournamentID, n)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"points_table": table}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type createOverrideRequest struct {
	PlayerCount int    `json:"player_count"`
	Position    int    `json:"position"`
	Points      int    `json:"points"`
	Reason      string `json:"reason"`
}

func (h *RankingHandler) CreatePointsOverrideHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input createOverrideRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	override := &models.PointsOverride{
		TournamentID: tournamentID,
		PlayerCount:  input.PlayerCount,
		Position:     input.Position,
		Points:       input.Points,
		Reason:       input.Reason,
		CreatedBy:    middleware.PlayerIDFromContext(r.Context()),
	}
	if err := h.pointsService.CreateOverride(r.Context(), override); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	// A new override changes historical point values, so the memoized
	// ranking must go.
	h.rankingService.InvalidateCache(r.Context(), tournamentID)

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"override": override}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
