package models

import "time"

// PointsOverride is an audited manual exception to the generated points
// table, keyed by (tournament, player count, position). The generated table
// itself is never mutated; overrides are applied on top of it at lookup time.
type PointsOverride struct {
	ID           int       `json:"id" db:"id"`
	TournamentID int       `json:"tournament_id" db:"tournament_id"`
	PlayerCount  int       `json:"player_count" db:"player_count"`
	Position     int       `json:"position" db:"position"`
	Points       int       `json:"points" db:"points"`
	Reason       string    `json:"reason" db:"reason"`
	CreatedBy    int       `json:"created_by" db:"created_by"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
