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

type CreateTournamentInput struct {
	Name        string             `json:"name"`
	StartDate   time.Time          `json:"start_date"`
	BlindLevels []BlindLevelInput  `json:"blind_levels"`
	GameDates   []GameDateInput    `json:"game_dates"`
	PlayerIDs   []int              `json:"player_ids"`
}

type BlindLevelInput struct {
	SmallBlind      int `json:"small_blind"`
	BigBlind        int `json:"big_blind"`
	DurationMinutes int `json:"duration_minutes"`
}

type GameDateInput struct {
	ScheduledDate time.Time `json:"scheduled_date"`
}

type TournamentService interface {
	// CreateTournament creates the tournament together with its blind
	// structure and its game dates in one transaction; dates start pending.
	CreateTournament(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error)
	GetTournament(ctx context.Context, id int) (*models.Tournament, error)
	ListTournaments(ctx context.Context) ([]models.Tournament, error)
	RegisterPlayer(ctx context.Context, tournamentID, playerID int) error
	GetBlindLevels(ctx context.Context, tournamentID int) ([]models.BlindLevel, error)
}

type tournamentService struct {
	db             *sql.DB
	tournamentRepo repositories.TournamentRepository
	blindRepo      repositories.BlindLevelRepository
	gameDateRepo   repositories.GameDateRepository
	playerRepo     repositories.PlayerRepository
	logger         *slog.Logger
}

func NewTournamentService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	blindRepo repositories.BlindLevelRepository,
	gameDateRepo repositories.GameDateRepository,
	playerRepo repositories.PlayerRepository,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		db:             db,
		tournamentRepo: tournamentRepo,
		blindRepo:      blindRepo,
		gameDateRepo:   gameDateRepo,
		playerRepo:     playerRepo,
		logger:         logger,
	}
}

func (s *tournamentService) CreateTournament(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error) {
	if input.Name == "" {
		return nil, ErrTournamentNameRequired
	}
	if err := validateBlindLevels(input.BlindLevels); err != nil {
		return nil, err
	}

	tournament := &models.Tournament{
		Name:      input.Name,
		Status:    models.TournamentStatusUpcoming,
		StartDate: input.StartDate,
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

	if txErr = s.tournamentRepo.Create(ctx, tx, tournament); txErr != nil {
		if errors.Is(txErr, repositories.ErrTournamentNameConflict) {
			return nil, ErrTournamentNameConflict
		}
		return nil, txErr
	}

	levels := make([]models.BlindLevel, len(input.BlindLevels))
	for i, in := range input.BlindLevels {
		levels[i] = models.BlindLevel{
			TournamentID:    tournament.ID,
			Level:           i + 1,
			SmallBlind:      in.SmallBlind,
			BigBlind:        in.BigBlind,
			DurationMinutes: in.DurationMinutes,
		}
	}
	if txErr = s.blindRepo.CreateBatch(ctx, tx, levels); txErr != nil {
		return nil, txErr
	}

	for i, in := range input.GameDates {
		date := &models.GameDate{
			TournamentID:  tournament.ID,
			DateNumber:    i + 1,
			ScheduledDate: in.ScheduledDate,
			Status:        models.GameDateStatusPending,
		}
		if txErr = s.gameDateRepo.Create(ctx, tx, date); txErr != nil {
			return nil, txErr
		}
		tournament.GameDates = append(tournament.GameDates, *date)
	}

	for _, playerID := range input.PlayerIDs {
		if txErr = s.tournamentRepo.RegisterPlayer(ctx, tx, tournament.ID, playerID); txErr != nil {
			return nil, txErr
		}
	}

	if txErr = tx.Commit(); txErr != nil {
		return nil, fmt.Errorf("failed to commit tournament creation: %w", txErr)
	}

	tournament.BlindLevels = levels
	tournament.PlayerIDs = input.PlayerIDs
	s.logger.Info("tournament created",
		slog.Int("tournament_id", tournament.ID),
		slog.Int("game_dates", len(input.GameDates)),
		slog.Int("players", len(input.PlayerIDs)))
	return tournament, nil
}

func (s *tournamentService) GetTournament(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}

	if tournament.BlindLevels, err = s.blindRepo.ListByTournament(ctx, id); err != nil {
		if !errors.Is(err, repositories.ErrBlindLevelsNotFound) {
			return nil, err
		}
	}
	if tournament.GameDates, err = s.gameDateRepo.ListByTournament(ctx, id); err != nil {
		return nil, err
	}
	if tournament.PlayerIDs, err = s.tournamentRepo.ListPlayerIDs(ctx, id); err != nil {
		return nil, err
	}
	return tournament, nil
}

func (s *tournamentService) ListTournaments(ctx context.Context) ([]models.Tournament, error) {
	return s.tournamentRepo.List(ctx)
}

func (s *tournamentService) RegisterPlayer(ctx context.Context, tournamentID, playerID int) error {
	if _, err := s.tournamentRepo.GetByID(ctx, tournamentID); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return ErrTournamentNotFound
		}
		return err
	}
	if _, err := s.playerRepo.FindByID(ctx, playerID); err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return ErrPlayerNotFound
		}
		return err
	}
	return s.tournamentRepo.RegisterPlayer(ctx, nil, tournamentID, playerID)
}

func (s *tournamentService) GetBlindLevels(ctx context.Context, tournamentID int) ([]models.BlindLevel, error) {
	levels, err := s.blindRepo.ListByTournament(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrBlindLevelsNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return levels, nil
}

// validateBlindLevels enforces the structure invariants: at least one level,
// positive blinds, and the duration-0 sentinel legal only on the last level.
func validateBlindLevels(levels []BlindLevelInput) error {
	if len(levels) == 0 {
		return ErrBlindStructureRequired
	}
	for i, l := range levels {
		if l.SmallBlind <= 0 || l.BigBlind <= 0 || l.BigBlind < l.SmallBlind {
			return fmt.Errorf("%w: level %d blinds %d/%d", ErrValidationFailed, i+1, l.SmallBlind, l.BigBlind)
		}
		if l.DurationMinutes < 0 {
			return fmt.Errorf("%w: level %d has negative duration", ErrValidationFailed, i+1)
		}
		if l.DurationMinutes == 0 && i != len(levels)-1 {
			return ErrBlindDurationInvalid
		}
	}
	return nil
}
