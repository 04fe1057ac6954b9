package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Dosada05/poker-league/models"
	"github.com/Dosada05/poker-league/repositories"
)

type GameDateService interface {
	GetGameDate(ctx context.Context, id int) (*models.GameDate, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]models.GameDate, error)
	// MarkCreated moves a pending date to created, the state a timer can be
	// started from.
	MarkCreated(ctx context.Context, id int) (*models.GameDate, error)
	AssignPlayer(ctx context.Context, gameDateID, playerID int) error
	RemovePlayer(ctx context.Context, gameDateID, playerID int) error
	// Cancel is reachable from any non-completed state. The owning timer
	// goroutine is torn down synchronously before any row is touched.
	Cancel(ctx context.Context, id int) (*models.GameDate, error)
	// Reset is the explicit administrative backward transition. It destroys
	// the date's timer state, action log and eliminations so the derived
	// ranking stays consistent — the audit trail of the old run is gone,
	// which is exactly why forward transitions never need this.
	Reset(ctx context.Context, id int) (*models.GameDate, error)
}

type gameDateService struct {
	db              *sql.DB
	gameDateRepo    repositories.GameDateRepository
	eliminationRepo repositories.EliminationRepository
	timerRepo       repositories.TimerRepository
	playerRepo      repositories.PlayerRepository
	timerService    TimerService
	rankingService  RankingService
	hub             Broadcaster
	logger          *slog.Logger
}

func NewGameDateService(
	db *sql.DB,
	gameDateRepo repositories.GameDateRepository,
	eliminationRepo repositories.EliminationRepository,
	timerRepo repositories.TimerRepository,
	playerRepo repositories.PlayerRepository,
	timerService TimerService,
	rankingService RankingService,
	hub Broadcaster,
	logger *slog.Logger,
) GameDateService {
	return &gameDateService{
		db:              db,
		gameDateRepo:    gameDateRepo,
		eliminationRepo: eliminationRepo,
		timerRepo:       timerRepo,
		playerRepo:      playerRepo,
		timerService:    timerService,
		rankingService:  rankingService,
		hub:             hub,
		logger:          logger,
	}
}

func (s *gameDateService) GetGameDate(ctx context.Context, id int) (*models.GameDate, error) {
	date, err := s.gameDateRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrGameDateNotFound) {
			return nil, ErrGameDateNotFound
		}
		return nil, err
	}
	playerIDs, err := s.gameDateRepo.ListPlayerIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	date.PlayerIDs = playerIDs
	return date, nil
}

func (s *gameDateService) ListByTournament(ctx context.Context, tournamentID int) ([]models.GameDate, error) {
	return s.gameDateRepo.ListByTournament(ctx, tournamentID)
}

func (s *gameDateService) MarkCreated(ctx context.Context, id int) (*models.GameDate, error) {
	date, err := s.GetGameDate(ctx, id)
	if err != nil {
		return nil, err
	}
	if date.Status == models.GameDateStatusCreated {
		return date, nil // idempotent
	}
	if !date.CanTransitionTo(models.GameDateStatusCreated) {
		return nil, fmt.Errorf("%w: %s game date cannot become created", ErrInvalidTransition, date.Status)
	}
	if err := s.gameDateRepo.UpdateStatus(ctx, nil, id, models.GameDateStatusCreated); err != nil {
		return nil, err
	}
	date.Status = models.GameDateStatusCreated
	s.broadcastDate(date)
	return date, nil
}

func (s *gameDateService) AssignPlayer(ctx context.Context, gameDateID, playerID int) error {
	date, err := s.GetGameDate(ctx, gameDateID)
	if err != nil {
		return err
	}
	if date.Status != models.GameDateStatusPending && date.Status != models.GameDateStatusCreated {
		return fmt.Errorf("%w: cannot change players of a %s game date", ErrInvalidTransition, date.Status)
	}
	if _, err := s.playerRepo.FindByID(ctx, playerID); err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return ErrPlayerNotFound
		}
		return err
	}
	if err := s.gameDateRepo.AssignPlayer(ctx, nil, gameDateID, playerID); err != nil {
		if errors.Is(err, repositories.ErrGameDatePlayerConflict) {
			return nil // already assigned, idempotent
		}
		return err
	}
	return nil
}

func (s *gameDateService) RemovePlayer(ctx context.Context, gameDateID, playerID int) error {
	date, err := s.GetGameDate(ctx, gameDateID)
	if err != nil {
		return err
	}
	if date.Status != models.GameDateStatusPending && date.Status != models.GameDateStatusCreated {
		return fmt.Errorf("%w: cannot change players of a %s game date", ErrInvalidTransition, date.Status)
	}
	return s.gameDateRepo.RemovePlayer(ctx, nil, gameDateID, playerID)
}

func (s *gameDateService) Cancel(ctx context.Context, id int) (*models.GameDate, error) {
	date, err := s.GetGameDate(ctx, id)
	if err != nil {
		return nil, err
	}
	if date.Status == models.GameDateStatusCompleted {
		return nil, fmt.Errorf("%w: completed game date cannot be cancelled", ErrInvalidTransition)
	}
	if date.Status == models.GameDateStatusCancelled {
		return date, nil // idempotent
	}

	// Stop the owner before touching rows: a live owner would otherwise keep
	// auto-advancing a cancelled round.
	s.timerService.Teardown(id)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	var txErr error
	defer func() {
		if txErr != nil {
			_ = tx.Rollback()
		}
	}()

	if txErr = s.timerRepo.DeleteStateByGameDate(ctx, tx, id); txErr != nil {
		return nil, txErr
	}
	if txErr = s.gameDateRepo.UpdateStatus(ctx, tx, id, models.GameDateStatusCancelled); txErr != nil {
		return nil, txErr
	}
	if txErr = tx.Commit(); txErr != nil {
		return nil, fmt.Errorf("failed to commit cancellation: %w", txErr)
	}

	s.logger.Info("game date cancelled", slog.Int("game_date_id", id))
	s.rankingService.InvalidateCache(ctx, date.TournamentID)

	date.Status = models.GameDateStatusCancelled
	s.broadcastDate(date)
	return date, nil
}

func (s *gameDateService) Reset(ctx context.Context, id int) (*models.GameDate, error) {
	date, err := s.GetGameDate(ctx, id)
	if err != nil {
		return nil, err
	}

	s.timerService.Teardown(id)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	var txErr error
	defer func() {
		if txErr != nil {
			_ = tx.Rollback()
		}
	}()

	if txErr = s.eliminationRepo.DeleteByGameDate(ctx, tx, id); txErr != nil {
		return nil, txErr
	}
	if txErr = s.timerRepo.DeleteStateByGameDate(ctx, tx, id); txErr != nil {
		return nil, txErr
	}
	if txErr = s.gameDateRepo.UpdateStatus(ctx, tx, id, models.GameDateStatusCreated); txErr != nil {
		return nil, txErr
	}
	if txErr = s.gameDateRepo.ClearStartTime(ctx, tx, id); txErr != nil {
		return nil, txErr
	}
	if txErr = tx.Commit(); txErr != nil {
		return nil, fmt.Errorf("failed to commit reset: %w", txErr)
	}

	s.logger.Warn("game date administratively reset", slog.Int("game_date_id", id))
	s.rankingService.InvalidateCache(ctx, date.TournamentID)

	date.Status = models.GameDateStatusCreated
	date.StartTime = nil
	s.broadcastDate(date)
	return date, nil
}

func (s *gameDateService) broadcastDate(date *models.GameDate) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastToRoom(GameDateRoom(date.ID), map[string]interface{}{
		"type":    "GAME_DATE_UPDATED",
		"room_id": GameDateRoom(date.ID),
		"payload": date,
	})
}
