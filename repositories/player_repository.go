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
	ErrPlayerNotFound     = errors.New("player not found")
	ErrPlayerNameConflict = errors.New("player display name is already in use")
)

type PlayerRepository interface {
	Create(ctx context.Context, player *models.Player) error
	FindByID(ctx context.Context, id int) (*models.Player, error)
	FindByIDs(ctx context.Context, ids []int) ([]*models.Player, error)
	List(ctx context.Context) ([]*models.Player, error)
	ListRegisteredByTournament(ctx context.Context, tournamentID int) ([]*models.Player, error)
}

type postgresPlayerRepository struct {
	db *sql.DB
}

func NewPostgresPlayerRepository(db *sql.DB) PlayerRepository {
	return &postgresPlayerRepository{db: db}
}

func (r *postgresPlayerRepository) Create(ctx context.Context, p *models.Player) error {
	query := `
		INSERT INTO players (display_name, role, is_guest)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query, p.DisplayName, p.Role, p.IsGuest).
		Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrPlayerNameConflict
		}
		return fmt.Errorf("failed to create player: %w", err)
	}
	return nil
}

func (r *postgresPlayerRepository) FindByID(ctx context.Context, id int) (*models.Player, error) {
	query := `
		SELECT id, display_name, role, is_guest, created_at
		FROM players
		WHERE id = $1`

	p := &models.Player{}
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&p.ID, &p.DisplayName, &p.Role, &p.IsGuest, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to find player %d: %w", id, err)
	}
	return p, nil
}

func (r *postgresPlayerRepository) FindByIDs(ctx context.Context, ids []int) ([]*models.Player, error) {
	if len(ids) == 0 {
		return []*models.Player{}, nil
	}
	query := `
		SELECT id, display_name, role, is_guest, created_at
		FROM players
		WHERE id = ANY($1)
		ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to list players by ids: %w", err)
	}
	defer rows.Close()

	return scanPlayers(rows)
}

func (r *postgresPlayerRepository) List(ctx context.Context) ([]*models.Player, error) {
	query := `
		SELECT id, display_name, role, is_guest, created_at
		FROM players
		ORDER BY display_name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	defer rows.Close()

	return scanPlayers(rows)
}

// ListRegisteredByTournament returns the non-guest players registered for the
// tournament; this is the population the ranking engine operates on.
func (r *postgresPlayerRepository) ListRegisteredByTournament(ctx context.Context, tournamentID int) ([]*models.Player, error) {
	query := `
		SELECT p.id, p.display_name, p.role, p.is_guest, p.created_at
		FROM players p
		JOIN tournament_players tp ON tp.player_id = p.id
		WHERE tp.tournament_id = $1 AND p.is_guest = FALSE
		ORDER BY p.id`

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list registered players for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	return scanPlayers(rows)
}

func scanPlayers(rows *sql.Rows) ([]*models.Player, error) {
	players := []*models.Player{}
	for rows.Next() {
		p := &models.Player{}
		if err := rows.Scan(&p.ID, &p.DisplayName, &p.Role, &p.IsGuest, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan player row: %w", err)
		}
		players = append(players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("player rows iteration error: %w", err)
	}
	return players, nil
}
