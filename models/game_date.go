package models

import "time"

type GameDateStatus string

const (
	GameDateStatusPending    GameDateStatus = "pending"
	GameDateStatusCreated    GameDateStatus = "created"
	GameDateStatusInProgress GameDateStatus = "in_progress"
	GameDateStatusCompleted  GameDateStatus = "completed"
	GameDateStatusCancelled  GameDateStatus = "cancelled"
)

// GameDate is one scheduled round of a tournament (a single evening's play).
// Status moves strictly forward: pending → created → in_progress → completed,
// with cancelled reachable from any non-completed state. The only backward
// path is an administrative reset, which also destroys the date's timer and
// elimination rows.
type GameDate struct {
	ID            int            `json:"id" db:"id"`
	TournamentID  int            `json:"tournament_id" db:"tournament_id"`
	DateNumber    int            `json:"date_number" db:"date_number"`
	ScheduledDate time.Time      `json:"scheduled_date" db:"scheduled_date"`
	Status        GameDateStatus `json:"status" db:"status"`
	StartTime     *time.Time     `json:"start_time,omitempty" db:"start_time"`

	// Registered for this particular date; loaded separately.
	PlayerIDs []int `json:"player_ids,omitempty" db:"-"`
}

// CanTransitionTo validates the forward state machine. Reset is handled
// separately because it is destructive.
func (g GameDate) CanTransitionTo(next GameDateStatus) bool {
	switch g.Status {
	case GameDateStatusPending:
		return next == GameDateStatusCreated || next == GameDateStatusCancelled
	case GameDateStatusCreated:
		return next == GameDateStatusInProgress || next == GameDateStatusCancelled
	case GameDateStatusInProgress:
		return next == GameDateStatusCompleted || next == GameDateStatusCancelled
	default:
		return false
	}
}
