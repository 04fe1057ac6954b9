package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ресурс не найден (универсальная)
	ErrNotFound = errors.New("requested resource not found")

	// Core taxonomy. These are wrapped with the actionable detail at the
	// point of rejection, e.g. "position 7 already recorded".
	ErrInvalidSequence      = errors.New("invalid elimination sequence")
	ErrInvalidTransition    = errors.New("invalid state transition")
	ErrStaleClock           = errors.New("client clock offset out of range, resync required")
	ErrReplayInconsistency  = errors.New("timer action log could not be replayed to a consistent state")

	// Ошибки валидации и бизнес-правил
	ErrValidationFailed          = errors.New("validation failed")
	ErrTournamentNameRequired    = errors.New("tournament name is required")
	ErrBlindStructureRequired    = errors.New("at least one blind level is required")
	ErrBlindStructureInvalid     = errors.New("blind levels must be a contiguous 1..N sequence")
	ErrBlindDurationInvalid      = errors.New("only the final blind level may have duration 0")
	ErrBlindStructureImmutable   = errors.New("blind structure cannot change once the tournament has started")
	ErrNotEnoughPlayers          = errors.New("game date needs at least two assigned players")
	ErrEliminatorRequired        = errors.New("eliminator is required for this position")
	ErrEliminatorSelfElimination = errors.New("player cannot eliminate themselves")
	ErrOverridePositionInvalid   = errors.New("override position is outside the points table")

	// Ошибки, специфичные для сущностей
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrGameDateNotFound   = errors.New("game date not found")
	ErrPlayerNotFound     = errors.New("player not found")
	ErrTimerNotFound      = errors.New("no timer exists for this game date")

	// Конфликты
	ErrTournamentNameConflict = errors.New("tournament name already exists")
	ErrPlayerNameConflict     = errors.New("player display name already exists")
	ErrOverrideConflict       = errors.New("points override already recorded for this position")
)
