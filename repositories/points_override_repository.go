package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/poker-league/models"
)

var ErrPointsOverrideConflict = errors.New("points override already exists for this position")

type PointsOverrideRepository interface {
	Create(ctx context.Context, override *models.PointsOverride) error
	ListByTournamentAndCount(ctx context.Context, tournamentID, playerCount int) ([]models.PointsOverride, error)
}

type postgresPointsOverrideRepository struct {
	db *sql.DB
}

func NewPostgresPointsOverrideRepository(db *sql.DB) PointsOverrideRepository {
	return &postgresPointsOverrideRepository{db: db}
}

func (r *postgresPointsOverrideRepository) Create(ctx context.Context, o *models.PointsOverride) error {
	query := `
		INSERT INTO points_overrides (tournament_id, player_count, position, points, reason, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		o.TournamentID, o.PlayerCount, o.Position, o.Points, o.Reason, o.CreatedBy,
	).Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrPointsOverrideConflict
		}
		return fmt.Errorf("failed to create points override: %w", err)
	}
	return nil
}

func (r *postgresPointsOverrideRepository) ListByTournamentAndCount(ctx context.Context, tournamentID, playerCount int) ([]models.PointsOverride, error) {
	query := `
		SELECT id, tournament_id, player_count, position, points, reason, created_by, created_at
		FROM points_overrides
		WHERE tournament_id = $1 AND player_count = $2
		ORDER BY position`

	rows, err := r.db.QueryContext(ctx, query, tournamentID, playerCount)
	if err != nil {
		return nil, fmt.Errorf("failed to list points overrides: %w", err)
	}
	defer rows.Close()

	overrides := []models.PointsOverride{}
	for rows.Next() {
		var o models.PointsOverride
		if err := rows.Scan(&o.ID, &o.TournamentID, &o.PlayerCount, &o.Position,
			&o.Points, &o.Reason, &o.CreatedBy, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan points override row: %w", err)
		}
		overrides = append(overrides, o)
	}
	return overrides, rows.Err()
}
