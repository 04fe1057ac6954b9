package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Dosada05/poker-league/models"
	"github.com/Dosada05/poker-league/services"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTimerService struct {
	state *models.TimerState
	err   error
}

func (s *stubTimerService) Start(ctx context.Context, gameDateID, performedBy int) (*models.TimerState, error) {
	return s.state, s.err
}
func (s *stubTimerService) Pause(ctx context.Context, gameDateID, performedBy int) (*models.TimerState, error) {
	return s.state, s.err
}
func (s *stubTimerService) Resume(ctx context.Context, gameDateID, performedBy int) (*models.TimerState, error) {
	return s.state, s.err
}
func (s *stubTimerService) AdjustTime(ctx context.Context, gameDateID, performedBy, deltaSeconds int) (*models.TimerState, error) {
	return s.state, s.err
}
func (s *stubTimerService) Snapshot(ctx context.Context, gameDateID int) (*models.TimerState, error) {
	return s.state, s.err
}
func (s *stubTimerService) Teardown(gameDateID int) {}
func (s *stubTimerService) TeardownAll()            {}

func timerRouter(svc services.TimerService) *chi.Mux {
	h := NewTimerHandler(svc)
	r := chi.NewRouter()
	r.Post("/game-dates/{gameDateID}/timer/pause", h.PauseTimerHandler)
	r.Post("/game-dates/{gameDateID}/timer/adjust", h.AdjustTimerHandler)
	r.Get("/game-dates/{gameDateID}/timer", h.GetTimerSnapshotHandler)
	return r
}

func TestTimerHandlers_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"invalid sequence", fmt.Errorf("%w: expected position 9", services.ErrInvalidSequence), http.StatusConflict},
		{"invalid transition", fmt.Errorf("%w: pause while stopped", services.ErrInvalidTransition), http.StatusConflict},
		{"stale clock", services.ErrStaleClock, http.StatusPreconditionFailed},
		{"replay inconsistency", services.ErrReplayInconsistency, http.StatusInternalServerError},
		{"timer missing", services.ErrTimerNotFound, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := timerRouter(&stubTimerService{err: tt.err})

			req := httptest.NewRequest(http.MethodPost, "/game-dates/5/timer/pause", nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestPauseTimerHandler_OK(t *testing.T) {
	router := timerRouter(&stubTimerService{state: &models.TimerState{
		ID: 1, GameDateID: 5, Status: models.TimerStatusPaused, CurrentLevel: 2, TimeRemainingSeconds: 300,
	}})

	req := httptest.NewRequest(http.MethodPost, "/game-dates/5/timer/pause", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"status":"paused"`)
	assert.Contains(t, rec.Body.String(), `"time_remaining_seconds":300`)
}

func TestTimerHandlers_BadGameDateID(t *testing.T) {
	router := timerRouter(&stubTimerService{})

	for _, path := range []string{"/game-dates/abc/timer", "/game-dates/-1/timer"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
}

func TestAdjustTimerHandler_StaleClockGuard(t *testing.T) {
	svc := &stubTimerService{state: &models.TimerState{
		ID: 1, GameDateID: 5, Status: models.TimerStatusRunning, CurrentLevel: 1, TimeRemainingSeconds: 300,
	}}
	router := timerRouter(svc)

	// The operator's rendered countdown is minutes off: refuse the
	// adjustment and tell the client to resync.
	body := strings.NewReader(`{"delta_seconds": 60, "observed_remaining_seconds": 500}`)
	req := httptest.NewRequest(http.MethodPost, "/game-dates/5/timer/adjust", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)

	// Drift within tolerance goes through.
	body = strings.NewReader(`{"delta_seconds": 60, "observed_remaining_seconds": 290}`)
	req = httptest.NewRequest(http.MethodPost, "/game-dates/5/timer/adjust", body)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdjustTimerHandler_RejectsUnknownFields(t *testing.T) {
	router := timerRouter(&stubTimerService{state: &models.TimerState{}})

	body := strings.NewReader(`{"delta_seconds": 60, "level": 3}`)
	req := httptest.NewRequest(http.MethodPost, "/game-dates/5/timer/adjust", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown key")
}
