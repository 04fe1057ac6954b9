package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/poker-league/models"
)

var ErrBlindLevelsNotFound = errors.New("blind levels not found for tournament")

type BlindLevelRepository interface {
	CreateBatch(ctx context.Context, exec SQLExecutor, levels []models.BlindLevel) error
	ListByTournament(ctx context.Context, tournamentID int) ([]models.BlindLevel, error)
}

type postgresBlindLevelRepository struct {
	db *sql.DB
}

func NewPostgresBlindLevelRepository(db *sql.DB) BlindLevelRepository {
	return &postgresBlindLevelRepository{db: db}
}

func (r *postgresBlindLevelRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresBlindLevelRepository) CreateBatch(ctx context.Context, exec SQLExecutor, levels []models.BlindLevel) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO blind_levels (tournament_id, level, small_blind, big_blind, duration_minutes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	for i := range levels {
		l := &levels[i]
		err := executor.QueryRowContext(ctx, query,
			l.TournamentID, l.Level, l.SmallBlind, l.BigBlind, l.DurationMinutes,
		).Scan(&l.ID)
		if err != nil {
			return fmt.Errorf("failed to create blind level %d: %w", l.Level, err)
		}
	}
	return nil
}

// ListByTournament returns the structure ordered by level ascending.
func (r *postgresBlindLevelRepository) ListByTournament(ctx context.Context, tournamentID int) ([]models.BlindLevel, error) {
	query := `
		SELECT id, tournament_id, level, small_blind, big_blind, duration_minutes
		FROM blind_levels
		WHERE tournament_id = $1
		ORDER BY level`

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list blind levels for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	levels := []models.BlindLevel{}
	for rows.Next() {
		var l models.BlindLevel
		if err := rows.Scan(&l.ID, &l.TournamentID, &l.Level, &l.SmallBlind, &l.BigBlind, &l.DurationMinutes); err != nil {
			return nil, fmt.Errorf("failed to scan blind level row: %w", err)
		}
		levels = append(levels, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(levels) == 0 {
		return nil, ErrBlindLevelsNotFound
	}
	return levels, nil
}
