package models

import "time"

// TournamentStatus представляет статусы турнира, соответствующие ENUM в БД.
type TournamentStatus string

const (
	TournamentStatusUpcoming  TournamentStatus = "upcoming"
	TournamentStatusActive    TournamentStatus = "active"
	TournamentStatusCompleted TournamentStatus = "completed"
	TournamentStatusCanceled  TournamentStatus = "canceled"
)

// Tournament is one season of the league: an ordered set of game dates played
// with a fixed blind structure and a fixed roster of registered players.
type Tournament struct {
	ID        int              `json:"id" db:"id"`
	Name      string           `json:"name" db:"name"`
	Status    TournamentStatus `json:"status" db:"status"`
	StartDate time.Time        `json:"start_date" db:"start_date"`
	EndDate   *time.Time       `json:"end_date,omitempty" db:"end_date"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`

	// Опциональные связанные сущности (не мапятся напрямую)
	BlindLevels []BlindLevel `json:"blind_levels,omitempty" db:"-"`
	GameDates   []GameDate   `json:"game_dates,omitempty" db:"-"`
	PlayerIDs   []int        `json:"player_ids,omitempty" db:"-"`
}
