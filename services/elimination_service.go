package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/poker-league/models"
	"github.com/Dosada05/poker-league/repositories"
)

// Broadcaster is the fan-out seam to the websocket hub. Services push full
// snapshots; the hub never reads domain state on its own.
type Broadcaster interface {
	BroadcastToRoom(roomID string, message interface{})
}

type RecordEliminationInput struct {
	GameDateID         int  `json:"game_date_id"`
	Position           int  `json:"position"`
	EliminatedPlayerID int  `json:"eliminated_player_id"`
	EliminatorPlayerID *int `json:"eliminator_player_id,omitempty"`
}

type EliminationService interface {
	// RecordElimination appends one finishing-position record. Positions
	// must arrive in strict reverse-finish order (playersRemaining down to
	// 1); anything else is rejected as an invalid sequence, never silently
	// corrected. Recording position 1 completes the game date.
	RecordElimination(ctx context.Context, input RecordEliminationInput) (*models.Elimination, error)
	// NextPosition returns totalPlayers − eliminationsRecorded; 0 means the
	// date is complete.
	NextPosition(ctx context.Context, gameDateID int) (int, error)
	// ListEliminations returns the date's log ordered by position
	// descending (last player out first).
	ListEliminations(ctx context.Context, gameDateID int) ([]models.Elimination, error)
}

// TimerStopper is the slice of the timer engine the elimination log needs:
// completing a date must stop its clock and tear down the owner goroutine.
type TimerStopper interface {
	Finish(ctx context.Context, gameDateID int) error
}

type eliminationService struct {
	db              *sql.DB
	eliminationRepo repositories.EliminationRepository
	gameDateRepo    repositories.GameDateRepository
	pointsService   PointsService
	rankingService  RankingService
	timer           TimerStopper
	hub             Broadcaster
	logger          *slog.Logger
}

func NewEliminationService(
	db *sql.DB,
	eliminationRepo repositories.EliminationRepository,
	gameDateRepo repositories.GameDateRepository,
	pointsService PointsService,
	rankingService RankingService,
	timer TimerStopper,
	hub Broadcaster,
	logger *slog.Logger,
) EliminationService {
	return &eliminationService{
		db:              db,
		eliminationRepo: eliminationRepo,
		gameDateRepo:    gameDateRepo,
		pointsService:   pointsService,
		rankingService:  rankingService,
		timer:           timer,
		hub:             hub,
		logger:          logger,
	}
}

func (s *eliminationService) RecordElimination(ctx context.Context, input RecordEliminationInput) (*models.Elimination, error) {
	date, err := s.gameDateRepo.GetByID(ctx, input.GameDateID)
	if err != nil {
		if errors.Is(err, repositories.ErrGameDateNotFound) {
			return nil, ErrGameDateNotFound
		}
		return nil, err
	}
	if date.Status != models.GameDateStatusInProgress {
		return nil, fmt.Errorf("%w: game date %d is %s, eliminations require in_progress",
			ErrInvalidTransition, date.ID, date.Status)
	}

	playerIDs, err := s.gameDateRepo.ListPlayerIDs(ctx, date.ID)
	if err != nil {
		return nil, err
	}
	totalPlayers := len(playerIDs)

	existing, err := s.eliminationRepo.ListByGameDate(ctx, date.ID)
	if err != nil {
		return nil, err
	}

	expected := totalPlayers - len(existing)
	if expected <= 0 {
		return nil, fmt.Errorf("%w: all %d positions already recorded", ErrInvalidSequence, totalPlayers)
	}
	if input.Position != expected {
		return nil, fmt.Errorf("%w: expected position %d, got %d", ErrInvalidSequence, expected, input.Position)
	}

	if !containsInt(playerIDs, input.EliminatedPlayerID) {
		return nil, fmt.Errorf("%w: player %d is not assigned to game date %d",
			ErrInvalidSequence, input.EliminatedPlayerID, date.ID)
	}
	for _, e := range existing {
		if e.EliminatedPlayerID == input.EliminatedPlayerID {
			return nil, fmt.Errorf("%w: player %d already eliminated at position %d",
				ErrInvalidSequence, input.EliminatedPlayerID, e.Position)
		}
	}

	// Winner (1) needs no eliminator; position 2 may omit it because the
	// winner is implied. Everyone else must name who busted them.
	if input.Position > 2 && input.EliminatorPlayerID == nil {
		return nil, fmt.Errorf("%w: position %d", ErrEliminatorRequired, input.Position)
	}
	if input.EliminatorPlayerID != nil {
		if *input.EliminatorPlayerID == input.EliminatedPlayerID {
			return nil, ErrEliminatorSelfElimination
		}
		if !containsInt(playerIDs, *input.EliminatorPlayerID) {
			return nil, fmt.Errorf("%w: eliminator %d is not assigned to game date %d",
				ErrInvalidSequence, *input.EliminatorPlayerID, date.ID)
		}
	}

	table, err := s.pointsService.EffectiveTable(ctx, date.TournamentID, totalPlayers)
	if err != nil {
		return nil, err
	}
	points, err := PointsForPosition(table, input.Position)
	if err != nil {
		return nil, err
	}

	elimination := &models.Elimination{
		GameDateID:         date.ID,
		Position:           input.Position,
		EliminatedPlayerID: input.EliminatedPlayerID,
		EliminatorPlayerID: input.EliminatorPlayerID,
		Points:             points,
		EliminationTime:    time.Now().UTC(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	var txErr error
	defer func() {
		if txErr != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Error("rollback failed", slog.Any("error", rbErr))
			}
		}
	}()

	if txErr = s.eliminationRepo.Create(ctx, tx, elimination); txErr != nil {
		switch {
		case errors.Is(txErr, repositories.ErrEliminationPositionConflict):
			return nil, fmt.Errorf("%w: position %d already recorded", ErrInvalidSequence, input.Position)
		case errors.Is(txErr, repositories.ErrEliminationPlayerConflict):
			return nil, fmt.Errorf("%w: player %d already eliminated", ErrInvalidSequence, input.EliminatedPlayerID)
		}
		return nil, txErr
	}

	completed := input.Position == 1
	if completed {
		// The winner declaration flips the date to completed; it is a side
		// effect of the log, not a separate operator action.
		if txErr = s.gameDateRepo.UpdateStatus(ctx, tx, date.ID, models.GameDateStatusCompleted); txErr != nil {
			return nil, txErr
		}
	}

	if txErr = tx.Commit(); txErr != nil {
		return nil, fmt.Errorf("failed to commit elimination: %w", txErr)
	}

	s.logger.Info("elimination recorded",
		slog.Int("game_date_id", date.ID),
		slog.Int("position", input.Position),
		slog.Int("player_id", input.EliminatedPlayerID),
		slog.Int("points", points))

	if completed && s.timer != nil {
		// Без этого owner-горутина продолжала бы auto-advance после
		// завершения даты.
		if err := s.timer.Finish(ctx, date.ID); err != nil {
			s.logger.Error("failed to stop timer for completed game date",
				slog.Int("game_date_id", date.ID), slog.Any("error", err))
		}
	}

	// Single writer path owns cache invalidation: readers see either the
	// pre-change or the fully recomputed ranking.
	s.rankingService.InvalidateCache(ctx, date.TournamentID)

	if s.hub != nil {
		s.hub.BroadcastToRoom(GameDateRoom(date.ID), map[string]interface{}{
			"type":    "ELIMINATION_RECORDED",
			"room_id": GameDateRoom(date.ID),
			"payload": map[string]interface{}{
				"elimination":   elimination,
				"next_position": expected - 1,
			},
		})
		if completed {
			date.Status = models.GameDateStatusCompleted
			s.hub.BroadcastToRoom(GameDateRoom(date.ID), map[string]interface{}{
				"type":    "GAME_DATE_UPDATED",
				"room_id": GameDateRoom(date.ID),
				"payload": date,
			})
		}
	}

	return elimination, nil
}

func (s *eliminationService) NextPosition(ctx context.Context, gameDateID int) (int, error) {
	playerIDs, err := s.gameDateRepo.ListPlayerIDs(ctx, gameDateID)
	if err != nil {
		return 0, err
	}
	recorded, err := s.eliminationRepo.CountByGameDate(ctx, gameDateID)
	if err != nil {
		return 0, err
	}
	next := len(playerIDs) - recorded
	if next < 0 {
		return 0, fmt.Errorf("%w: %d eliminations recorded for %d players",
			ErrInvalidSequence, recorded, len(playerIDs))
	}
	return next, nil
}

func (s *eliminationService) ListEliminations(ctx context.Context, gameDateID int) ([]models.Elimination, error) {
	if _, err := s.gameDateRepo.GetByID(ctx, gameDateID); err != nil {
		if errors.Is(err, repositories.ErrGameDateNotFound) {
			return nil, ErrGameDateNotFound
		}
		return nil, err
	}
	return s.eliminationRepo.ListByGameDate(ctx, gameDateID)
}

// GameDateRoom is the hub room key for one game date.
func GameDateRoom(gameDateID int) string {
	return fmt.Sprintf("game_date_%d", gameDateID)
}

func containsInt(ids []int, id int) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
