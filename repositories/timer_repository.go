package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/poker-league/models"
)

var (
	ErrTimerStateNotFound = errors.New("timer state not found")
	ErrTimerStateConflict = errors.New("timer state already exists for this game date")
)

type TimerRepository interface {
	CreateState(ctx context.Context, exec SQLExecutor, state *models.TimerState) error
	GetStateByGameDate(ctx context.Context, gameDateID int) (*models.TimerState, error)
	UpdateState(ctx context.Context, exec SQLExecutor, state *models.TimerState) error
	DeleteStateByGameDate(ctx context.Context, exec SQLExecutor, gameDateID int) error

	AppendAction(ctx context.Context, exec SQLExecutor, action *models.TimerAction) error
	ListActionsByState(ctx context.Context, timerStateID int) ([]models.TimerAction, error)
}

type postgresTimerRepository struct {
	db *sql.DB
}

func NewPostgresTimerRepository(db *sql.DB) TimerRepository {
	return &postgresTimerRepository{db: db}
}

func (r *postgresTimerRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresTimerRepository) CreateState(ctx context.Context, exec SQLExecutor, s *models.TimerState) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO timer_states (game_date_id, status, current_level, level_start_time, time_remaining_seconds, needs_review)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	err := executor.QueryRowContext(ctx, query,
		s.GameDateID, s.Status, s.CurrentLevel, s.LevelStartTime, s.TimeRemainingSeconds, s.NeedsReview,
	).Scan(&s.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrTimerStateConflict
		}
		return fmt.Errorf("failed to create timer state for game date %d: %w", s.GameDateID, err)
	}
	return nil
}

func (r *postgresTimerRepository) GetStateByGameDate(ctx context.Context, gameDateID int) (*models.TimerState, error) {
	query := `
		SELECT id, game_date_id, status, current_level, level_start_time, time_remaining_seconds, needs_review
		FROM timer_states
		WHERE game_date_id = $1`

	s := &models.TimerState{}
	err := r.db.QueryRowContext(ctx, query, gameDateID).
		Scan(&s.ID, &s.GameDateID, &s.Status, &s.CurrentLevel, &s.LevelStartTime,
			&s.TimeRemainingSeconds, &s.NeedsReview)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTimerStateNotFound
		}
		return nil, fmt.Errorf("failed to find timer state for game date %d: %w", gameDateID, err)
	}
	return s, nil
}

func (r *postgresTimerRepository) UpdateState(ctx context.Context, exec SQLExecutor, s *models.TimerState) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE timer_states
		SET status = $1, current_level = $2, level_start_time = $3, time_remaining_seconds = $4, needs_review = $5
		WHERE id = $6`

	result, err := executor.ExecContext(ctx, query,
		s.Status, s.CurrentLevel, s.LevelStartTime, s.TimeRemainingSeconds, s.NeedsReview, s.ID)
	if err != nil {
		return fmt.Errorf("failed to update timer state %d: %w", s.ID, err)
	}
	return checkAffectedRows(result, ErrTimerStateNotFound)
}

// DeleteStateByGameDate removes the state and, via FK cascade, its action
// log. Used only by administrative reset/cancel.
func (r *postgresTimerRepository) DeleteStateByGameDate(ctx context.Context, exec SQLExecutor, gameDateID int) error {
	executor := r.getExecutor(exec)
	if _, err := executor.ExecContext(ctx, `DELETE FROM timer_states WHERE game_date_id = $1`, gameDateID); err != nil {
		return fmt.Errorf("failed to delete timer state for game date %d: %w", gameDateID, err)
	}
	return nil
}

func (r *postgresTimerRepository) AppendAction(ctx context.Context, exec SQLExecutor, a *models.TimerAction) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO timer_actions (timer_state_id, type, performed_by, at, payload)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	err := executor.QueryRowContext(ctx, query,
		a.TimerStateID, a.Type, a.PerformedBy, a.At, a.Payload,
	).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("failed to append timer action: %w", err)
	}
	return nil
}

// ListActionsByState returns the audit log in append order.
func (r *postgresTimerRepository) ListActionsByState(ctx context.Context, timerStateID int) ([]models.TimerAction, error) {
	query := `
		SELECT id, timer_state_id, type, performed_by, at, payload
		FROM timer_actions
		WHERE timer_state_id = $1
		ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, timerStateID)
	if err != nil {
		return nil, fmt.Errorf("failed to list timer actions for state %d: %w", timerStateID, err)
	}
	defer rows.Close()

	actions := []models.TimerAction{}
	for rows.Next() {
		var a models.TimerAction
		if err := rows.Scan(&a.ID, &a.TimerStateID, &a.Type, &a.PerformedBy, &a.At, &a.Payload); err != nil {
			return nil, fmt.Errorf("failed to scan timer action row: %w", err)
		}
		actions = append(actions, a)
	}
	return actions, rows.Err()
}
