package handlers

import (
	"fmt"
	"net/http"

	"github.com/Dosada05/poker-league/middleware"
	"github.com/Dosada05/poker-league/services"
)

type TimerHandler struct {
	timerService services.TimerService
}

func NewTimerHandler(timerService services.TimerService) *TimerHandler {
	return &TimerHandler{timerService: timerService}
}

func (h *TimerHandler) StartTimerHandler(w http.ResponseWriter, r *http.Request) {
	gameDateID, err := getIDFromURL(r, "gameDateID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	state, err := h.timerService.Start(r.Context(), gameDateID, middleware.PlayerIDFromContext(r.Context()))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"timer": state}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TimerHandler) PauseTimerHandler(w http.ResponseWriter, r *http.Request) {
	gameDateID, err := getIDFromURL(r, "gameDateID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	state, err := h.timerService.Pause(r.Context(), gameDateID, middleware.PlayerIDFromContext(r.Context()))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"timer": state}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TimerHandler) ResumeTimerHandler(w http.ResponseWriter, r *http.Request) {
	gameDateID, err := getIDFromURL(r, "gameDateID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	state, err := h.timerService.Resume(r.Context(), gameDateID, middleware.PlayerIDFromContext(r.Context()))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"timer": state}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// staleClockTolerance bounds how far the operator's rendered countdown may
// drift from the server's before an adjustment is refused. A drifted client
// re-runs the time-sync handshake and retries.
const staleClockTolerance = 30 // seconds

type adjustTimerRequest struct {
	DeltaSeconds int `json:"delta_seconds"`
	// The countdown the operator was looking at when they issued the
	// correction. Optional; when present it is sanity-checked so an
	// adjustment computed from a stale clock never lands.
	ObservedRemainingSeconds *int `json:"observed_remaining_seconds,omitempty"`
}

func (h *TimerHandler) AdjustTimerHandler(w http.ResponseWriter, r *http.Request) {
	gameDateID, err := getIDFromURL(r, "gameDateID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input adjustTimerRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if input.ObservedRemainingSeconds != nil {
		snapshot, err := h.timerService.Snapshot(r.Context(), gameDateID)
		if err != nil {
			mapServiceErrorToHTTP(w, r, err)
			return
		}
		drift := *input.ObservedRemainingSeconds - snapshot.TimeRemainingSeconds
		if drift < -staleClockTolerance || drift > staleClockTolerance {
			mapServiceErrorToHTTP(w, r, fmt.Errorf("%w: observed %ds, server has %ds",
				services.ErrStaleClock, *input.ObservedRemainingSeconds, snapshot.TimeRemainingSeconds))
			return
		}
	}

	state, err := h.timerService.AdjustTime(r.Context(), gameDateID,
		middleware.PlayerIDFromContext(r.Context()), input.DeltaSeconds)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"timer": state}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TimerHandler) GetTimerSnapshotHandler(w http.ResponseWriter, r *http.Request) {
	gameDateID, err := getIDFromURL(r, "gameDateID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	state, err := h.timerService.Snapshot(r.Context(), gameDateID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"timer": state}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
