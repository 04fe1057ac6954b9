package models

import "time"

type PlayerRole string

const (
	RoleAdmin    PlayerRole = "admin"
	RoleOperator PlayerRole = "operator"
	RolePlayer   PlayerRole = "player"
)

// Player is the directory entry the league keeps per person. Guests can be
// eliminated on a date but never enter the tournament ranking.
type Player struct {
	ID          int        `json:"id" db:"id"`
	DisplayName string     `json:"display_name" db:"display_name"`
	Role        PlayerRole `json:"role" db:"role"`
	IsGuest     bool       `json:"is_guest" db:"is_guest"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}
