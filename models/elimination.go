package models

import "time"

// Elimination is one finishing-position record inside a game date. Positions
// within one date form the contiguous set {1..totalPlayers}; recording the
// position-1 row is the explicit winner declaration (никогда не выводим
// победителя по отсутствию записи). EliminatorPlayerID is nil for the winner
// and, by convention, may be nil for position 2 (the winner is implied).
type Elimination struct {
	ID                 int       `json:"id" db:"id"`
	GameDateID         int       `json:"game_date_id" db:"game_date_id"`
	Position           int       `json:"position" db:"position"`
	EliminatedPlayerID int       `json:"eliminated_player_id" db:"eliminated_player_id"`
	EliminatorPlayerID *int      `json:"eliminator_player_id,omitempty" db:"eliminator_player_id"`
	Points             int       `json:"points" db:"points"`
	EliminationTime    time.Time `json:"elimination_time" db:"elimination_time"`
}
