package models

// BlindLevel is one stage of the blind structure. Levels are ordered 1..N per
// tournament and immutable once the tournament starts. A DurationMinutes of 0
// is only legal on the last level and means "no expiry": the final level runs
// until the date ends.
type BlindLevel struct {
	ID              int `json:"id" db:"id"`
	TournamentID    int `json:"tournament_id" db:"tournament_id"`
	Level           int `json:"level" db:"level"`
	SmallBlind      int `json:"small_blind" db:"small_blind"`
	BigBlind        int `json:"big_blind" db:"big_blind"`
	DurationMinutes int `json:"duration_minutes" db:"duration_minutes"`
}

// IsInfinite reports whether the level never expires on its own.
func (b BlindLevel) IsInfinite() bool {
	return b.DurationMinutes == 0
}
