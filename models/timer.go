package models

import (
	"encoding/json"
	"time"
)

type TimerStatus string

const (
	TimerStatusStopped TimerStatus = "stopped"
	TimerStatusRunning TimerStatus = "running"
	TimerStatusPaused  TimerStatus = "paused"
)

// TimerState is the authoritative clock of one game date. LevelStartTime is
// always a server-clock value and is nil while the timer is paused or
// stopped. Clients never compute the countdown from their own clock; they
// render this state corrected by their measured clock offset.
type TimerState struct {
	ID                   int         `json:"id" db:"id"`
	GameDateID           int         `json:"game_date_id" db:"game_date_id"`
	Status               TimerStatus `json:"status" db:"status"`
	CurrentLevel         int         `json:"current_level" db:"current_level"`
	LevelStartTime       *time.Time  `json:"level_start_time,omitempty" db:"level_start_time"`
	TimeRemainingSeconds int         `json:"time_remaining_seconds" db:"time_remaining_seconds"`

	// Set when action-log replay could not reach a consistent state and the
	// timer was frozen at the last known-good snapshot.
	NeedsReview bool `json:"needs_review" db:"needs_review"`
}

type TimerActionType string

const (
	TimerActionStart        TimerActionType = "start"
	TimerActionPause        TimerActionType = "pause"
	TimerActionResume       TimerActionType = "resume"
	TimerActionAdvanceLevel TimerActionType = "advance_level"
	TimerActionAdjustTime   TimerActionType = "adjust_time"
)

// TimerAction is one append-only audit record. The TimerState row is a
// materialized view that can be rebuilt by replaying a date's actions in
// order; that replay is the recovery path after a restart mid-round.
type TimerAction struct {
	ID           int             `json:"id" db:"id"`
	TimerStateID int             `json:"timer_state_id" db:"timer_state_id"`
	Type         TimerActionType `json:"type" db:"type"`
	PerformedBy  int             `json:"performed_by" db:"performed_by"`
	At           time.Time       `json:"at" db:"at"`
	Payload      json.RawMessage `json:"payload,omitempty" db:"payload"`
}

// AdjustPayload is the payload of an adjust_time action.
type AdjustPayload struct {
	DeltaSeconds int `json:"delta_seconds"`
}
