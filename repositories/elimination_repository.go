package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/poker-league/models"
	"github.com/lib/pq"
)

var (
	ErrEliminationNotFound          = errors.New("elimination not found")
	ErrEliminationPositionConflict  = errors.New("position already recorded for this game date")
	ErrEliminationPlayerConflict    = errors.New("player already eliminated in this game date")
	ErrEliminationGameDateInvalid   = errors.New("elimination game date invalid")
	ErrEliminationPlayerInvalid     = errors.New("elimination player invalid")
	ErrEliminationEliminatorInvalid = errors.New("elimination eliminator invalid")
)

type EliminationRepository interface {
	Create(ctx context.Context, exec SQLExecutor, elim *models.Elimination) error
	ListByGameDate(ctx context.Context, gameDateID int) ([]models.Elimination, error)
	ListByGameDates(ctx context.Context, gameDateIDs []int) ([]models.Elimination, error)
	CountByGameDate(ctx context.Context, gameDateID int) (int, error)
	DeleteByGameDate(ctx context.Context, exec SQLExecutor, gameDateID int) error
}

type postgresEliminationRepository struct {
	db *sql.DB
}

func NewPostgresEliminationRepository(db *sql.DB) EliminationRepository {
	return &postgresEliminationRepository{db: db}
}

func (r *postgresEliminationRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresEliminationRepository) Create(ctx context.Context, exec SQLExecutor, e *models.Elimination) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO eliminations (game_date_id, position, eliminated_player_id, eliminator_player_id, points, elimination_time)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	err := executor.QueryRowContext(ctx, query,
		e.GameDateID, e.Position, e.EliminatedPlayerID, e.EliminatorPlayerID, e.Points, e.EliminationTime,
	).Scan(&e.ID)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505": // unique_violation
				switch pqErr.Constraint {
				case "eliminations_game_date_id_position_key":
					return ErrEliminationPositionConflict
				case "eliminations_game_date_id_eliminated_player_id_key":
					return ErrEliminationPlayerConflict
				}
			case "23503": // foreign_key_violation
				switch pqErr.Constraint {
				case "eliminations_game_date_id_fkey":
					return ErrEliminationGameDateInvalid
				case "eliminations_eliminated_player_id_fkey":
					return ErrEliminationPlayerInvalid
				case "eliminations_eliminator_player_id_fkey":
					return ErrEliminationEliminatorInvalid
				}
			}
		}
		return fmt.Errorf("failed to create elimination: %w", err)
	}
	return nil
}

// ListByGameDate returns eliminations ordered by position descending: the
// last player out of the tournament first, the winner last.
func (r *postgresEliminationRepository) ListByGameDate(ctx context.Context, gameDateID int) ([]models.Elimination, error) {
	query := `
		SELECT id, game_date_id, position, eliminated_player_id, eliminator_player_id, points, elimination_time
		FROM eliminations
		WHERE game_date_id = $1
		ORDER BY position DESC`

	rows, err := r.db.QueryContext(ctx, query, gameDateID)
	if err != nil {
		return nil, fmt.Errorf("failed to list eliminations for game date %d: %w", gameDateID, err)
	}
	defer rows.Close()

	return scanEliminations(rows)
}

func (r *postgresEliminationRepository) ListByGameDates(ctx context.Context, gameDateIDs []int) ([]models.Elimination, error) {
	if len(gameDateIDs) == 0 {
		return []models.Elimination{}, nil
	}
	query := `
		SELECT id, game_date_id, position, eliminated_player_id, eliminator_player_id, points, elimination_time
		FROM eliminations
		WHERE game_date_id = ANY($1)
		ORDER BY game_date_id, position DESC`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(gameDateIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to list eliminations for game dates: %w", err)
	}
	defer rows.Close()

	return scanEliminations(rows)
}

func (r *postgresEliminationRepository) CountByGameDate(ctx context.Context, gameDateID int) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM eliminations WHERE game_date_id = $1`, gameDateID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count eliminations for game date %d: %w", gameDateID, err)
	}
	return count, nil
}

// DeleteByGameDate is used only by the administrative reset path.
func (r *postgresEliminationRepository) DeleteByGameDate(ctx context.Context, exec SQLExecutor, gameDateID int) error {
	executor := r.getExecutor(exec)
	if _, err := executor.ExecContext(ctx, `DELETE FROM eliminations WHERE game_date_id = $1`, gameDateID); err != nil {
		return fmt.Errorf("failed to delete eliminations for game date %d: %w", gameDateID, err)
	}
	return nil
}

func scanEliminations(rows *sql.Rows) ([]models.Elimination, error) {
	eliminations := []models.Elimination{}
	for rows.Next() {
		var e models.Elimination
		if err := rows.Scan(&e.ID, &e.GameDateID, &e.Position, &e.EliminatedPlayerID,
			&e.EliminatorPlayerID, &e.Points, &e.EliminationTime); err != nil {
			return nil, fmt.Errorf("failed to scan elimination row: %w", err)
		}
		eliminations = append(eliminations, e)
	}
	return eliminations, rows.Err()
}
