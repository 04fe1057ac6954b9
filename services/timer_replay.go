package services

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Dosada05/poker-league/models"
)

// ReplayActions rebuilds a TimerState from its append-only action log. The
// result at time now must match the state the live engine would have held,
// which is the recovery guarantee after a restart mid-round: the log, not any
// cached value, is trusted.
//
// Any action that could not legally occur in the replayed state (a pause
// while paused, a corrupt payload, a missing start) aborts with
// ErrReplayInconsistency — the caller freezes the timer at the last
// known-good snapshot instead of guessing.
func ReplayActions(actions []models.TimerAction, levels []models.BlindLevel, now time.Time) (*models.TimerState, error) {
	if len(levels) == 0 {
		return nil, fmt.Errorf("%w: no blind levels", ErrReplayInconsistency)
	}

	// Replay begins at the most recent start; earlier actions belong to a
	// previous run of the same date (after an administrative reset they are
	// deleted, but be tolerant of the log shape).
	startIdx := -1
	for i := len(actions) - 1; i >= 0; i-- {
		if actions[i].Type == models.TimerActionStart {
			startIdx = i
			break
		}
	}
	if startIdx == -1 {
		return nil, fmt.Errorf("%w: no start action in log", ErrReplayInconsistency)
	}

	startAt := actions[startIdx].At
	state := &models.TimerState{
		ID:                   actions[startIdx].TimerStateID,
		Status:               models.TimerStatusRunning,
		CurrentLevel:         1,
		LevelStartTime:       &startAt,
		TimeRemainingSeconds: levels[0].DurationMinutes * 60,
	}

	for _, a := range actions[startIdx+1:] {
		switch a.Type {
		case models.TimerActionStart:
			return nil, fmt.Errorf("%w: duplicate start action %d", ErrReplayInconsistency, a.ID)

		case models.TimerActionPause:
			if state.Status != models.TimerStatusRunning || state.LevelStartTime == nil {
				return nil, fmt.Errorf("%w: pause action %d while %s", ErrReplayInconsistency, a.ID, state.Status)
			}
			state.TimeRemainingSeconds = remainingAt(state, a.At)
			state.Status = models.TimerStatusPaused
			state.LevelStartTime = nil

		case models.TimerActionResume:
			if state.Status != models.TimerStatusPaused {
				return nil, fmt.Errorf("%w: resume action %d while %s", ErrReplayInconsistency, a.ID, state.Status)
			}
			at := a.At
			state.Status = models.TimerStatusRunning
			state.LevelStartTime = &at

		case models.TimerActionAdvanceLevel:
			if state.Status != models.TimerStatusRunning {
				return nil, fmt.Errorf("%w: advance action %d while %s", ErrReplayInconsistency, a.ID, state.Status)
			}
			if state.CurrentLevel >= len(levels) {
				return nil, fmt.Errorf("%w: advance past final level", ErrReplayInconsistency)
			}
			at := a.At
			state.CurrentLevel++
			state.TimeRemainingSeconds = levels[state.CurrentLevel-1].DurationMinutes * 60
			state.LevelStartTime = &at

		case models.TimerActionAdjustTime:
			var payload models.AdjustPayload
			if err := json.Unmarshal(a.Payload, &payload); err != nil {
				return nil, fmt.Errorf("%w: adjust action %d payload: %v", ErrReplayInconsistency, a.ID, err)
			}
			remaining := state.TimeRemainingSeconds
			if state.Status == models.TimerStatusRunning {
				remaining = remainingAt(state, a.At)
				at := a.At
				state.LevelStartTime = &at
			}
			remaining += payload.DeltaSeconds
			if remaining < 0 {
				remaining = 0
			}
			state.TimeRemainingSeconds = remaining

		default:
			return nil, fmt.Errorf("%w: unknown action type %q", ErrReplayInconsistency, a.Type)
		}
	}

	// Project the replayed state forward to now, firing any automatic level
	// advances the live engine would have fired.
	if state.Status == models.TimerStatusRunning {
		projectToNow(state, levels, now)
	}
	return state, nil
}

// remainingAt computes the seconds left at instant t for a running state.
// Never negative.
func remainingAt(state *models.TimerState, t time.Time) int {
	if state.LevelStartTime == nil {
		return state.TimeRemainingSeconds
	}
	elapsed := int(t.Sub(*state.LevelStartTime).Seconds())
	if elapsed < 0 {
		elapsed = 0
	}
	remaining := state.TimeRemainingSeconds - elapsed
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// projectToNow advances a running state through any levels whose deadlines
// passed before now. The final level's duration-0 sentinel stops the
// countdown without erroring.
func projectToNow(state *models.TimerState, levels []models.BlindLevel, now time.Time) {
	for {
		level := levels[state.CurrentLevel-1]
		if level.IsInfinite() {
			state.TimeRemainingSeconds = 0
			return
		}
		deadline := state.LevelStartTime.Add(time.Duration(state.TimeRemainingSeconds) * time.Second)
		if now.Before(deadline) {
			state.TimeRemainingSeconds = remainingAt(state, now)
			start := now
			state.LevelStartTime = &start
			return
		}
		if state.CurrentLevel >= len(levels) {
			// Final level with a finite duration: hold at zero.
			state.TimeRemainingSeconds = 0
			start := deadline
			state.LevelStartTime = &start
			return
		}
		state.CurrentLevel++
		state.TimeRemainingSeconds = levels[state.CurrentLevel-1].DurationMinutes * 60
		start := deadline
		state.LevelStartTime = &start
	}
}
