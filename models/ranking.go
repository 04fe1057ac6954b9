package models

// RankingRow is one line of the tournament table. It is derived from the
// Elimination rows of the tournament's completed dates and is never edited by
// hand; any persisted copy is a cache. Final is the drop-worst-2 total
// ("ELIMINA 2" in league parlance).
type RankingRow struct {
	PlayerID        int         `json:"player_id"`
	PlayerName      string      `json:"player_name"`
	PointsByDate    map[int]int `json:"points_by_date"` // keyed by date number; absence recorded as explicit 0
	Total           int         `json:"total"`
	DropWorst1Total int         `json:"drop_worst_1_total"`
	DropWorst2Total int         `json:"drop_worst_2_total"`
	Final           int         `json:"final"`
	Position        int         `json:"position"`
}
