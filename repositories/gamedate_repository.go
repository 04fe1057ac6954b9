package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/poker-league/models"
	"github.com/lib/pq"
)

var (
	ErrGameDateNotFound       = errors.New("game date not found")
	ErrGameDatePlayerConflict = errors.New("player is already assigned to this game date")
)

type GameDateRepository interface {
	Create(ctx context.Context, exec SQLExecutor, date *models.GameDate) error
	GetByID(ctx context.Context, id int) (*models.GameDate, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]models.GameDate, error)
	ListCompletedByTournament(ctx context.Context, tournamentID int) ([]models.GameDate, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.GameDateStatus) error
	SetStartTime(ctx context.Context, exec SQLExecutor, id int, startTime time.Time) error
	ClearStartTime(ctx context.Context, exec SQLExecutor, id int) error
	AssignPlayer(ctx context.Context, exec SQLExecutor, gameDateID, playerID int) error
	RemovePlayer(ctx context.Context, exec SQLExecutor, gameDateID, playerID int) error
	ListPlayerIDs(ctx context.Context, gameDateID int) ([]int, error)
}

type postgresGameDateRepository struct {
	db *sql.DB
}

func NewPostgresGameDateRepository(db *sql.DB) GameDateRepository {
	return &postgresGameDateRepository{db: db}
}

func (r *postgresGameDateRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresGameDateRepository) Create(ctx context.Context, exec SQLExecutor, d *models.GameDate) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO game_dates (tournament_id, date_number, scheduled_date, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	err := executor.QueryRowContext(ctx, query,
		d.TournamentID, d.DateNumber, d.ScheduledDate, d.Status,
	).Scan(&d.ID)
	if err != nil {
		return fmt.Errorf("failed to create game date %d: %w", d.DateNumber, err)
	}
	return nil
}

func (r *postgresGameDateRepository) GetByID(ctx context.Context, id int) (*models.GameDate, error) {
	query := `
		SELECT id, tournament_id, date_number, scheduled_date, status, start_time
		FROM game_dates
		WHERE id = $1`

	d := &models.GameDate{}
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&d.ID, &d.TournamentID, &d.DateNumber, &d.ScheduledDate, &d.Status, &d.StartTime)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGameDateNotFound
		}
		return nil, fmt.Errorf("failed to find game date %d: %w", id, err)
	}
	return d, nil
}

func (r *postgresGameDateRepository) ListByTournament(ctx context.Context, tournamentID int) ([]models.GameDate, error) {
	return r.list(ctx, tournamentID, nil)
}

func (r *postgresGameDateRepository) ListCompletedByTournament(ctx context.Context, tournamentID int) ([]models.GameDate, error) {
	status := models.GameDateStatusCompleted
	return r.list(ctx, tournamentID, &status)
}

func (r *postgresGameDateRepository) list(ctx context.Context, tournamentID int, status *models.GameDateStatus) ([]models.GameDate, error) {
	query := `
		SELECT id, tournament_id, date_number, scheduled_date, status, start_time
		FROM game_dates
		WHERE tournament_id = $1`
	args := []interface{}{tournamentID}

	if status != nil {
		query += ` AND status = $2`
		args = append(args, *status)
	}
	query += ` ORDER BY date_number`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list game dates for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	dates := []models.GameDate{}
	for rows.Next() {
		var d models.GameDate
		if err := rows.Scan(&d.ID, &d.TournamentID, &d.DateNumber, &d.ScheduledDate, &d.Status, &d.StartTime); err != nil {
			return nil, fmt.Errorf("failed to scan game date row: %w", err)
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

func (r *postgresGameDateRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.GameDateStatus) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `UPDATE game_dates SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update game date %d status: %w", id, err)
	}
	return checkAffectedRows(result, ErrGameDateNotFound)
}

func (r *postgresGameDateRepository) SetStartTime(ctx context.Context, exec SQLExecutor, id int, startTime time.Time) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `UPDATE game_dates SET start_time = $1 WHERE id = $2`, startTime, id)
	if err != nil {
		return fmt.Errorf("failed to set game date %d start time: %w", id, err)
	}
	return checkAffectedRows(result, ErrGameDateNotFound)
}

func (r *postgresGameDateRepository) ClearStartTime(ctx context.Context, exec SQLExecutor, id int) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `UPDATE game_dates SET start_time = NULL WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to clear game date %d start time: %w", id, err)
	}
	return checkAffectedRows(result, ErrGameDateNotFound)
}

func (r *postgresGameDateRepository) AssignPlayer(ctx context.Context, exec SQLExecutor, gameDateID, playerID int) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO game_date_players (game_date_id, player_id)
		VALUES ($1, $2)`

	if _, err := executor.ExecContext(ctx, query, gameDateID, playerID); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrGameDatePlayerConflict
		}
		return fmt.Errorf("failed to assign player %d to game date %d: %w", playerID, gameDateID, err)
	}
	return nil
}

func (r *postgresGameDateRepository) RemovePlayer(ctx context.Context, exec SQLExecutor, gameDateID, playerID int) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx,
		`DELETE FROM game_date_players WHERE game_date_id = $1 AND player_id = $2`,
		gameDateID, playerID)
	if err != nil {
		return fmt.Errorf("failed to remove player %d from game date %d: %w", playerID, gameDateID, err)
	}
	return checkAffectedRows(result, ErrGameDateNotFound)
}

func (r *postgresGameDateRepository) ListPlayerIDs(ctx context.Context, gameDateID int) ([]int, error) {
	query := `
		SELECT player_id FROM game_date_players
		WHERE game_date_id = $1
		ORDER BY player_id`

	rows, err := r.db.QueryContext(ctx, query, gameDateID)
	if err != nil {
		return nil, fmt.Errorf("failed to list game date %d players: %w", gameDateID, err)
	}
	defer rows.Close()

	ids := []int{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan player id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
