package services

import (
	"context"
	"errors"

	"github.com/Dosada05/poker-league/models"
	"github.com/Dosada05/poker-league/repositories"
)

// PlayerService is the player directory the core consumes: a lookup by id and
// the registered-vs-guest distinction the ranking engine relies on.
type PlayerService interface {
	CreatePlayer(ctx context.Context, player *models.Player) error
	LookupPlayer(ctx context.Context, id int) (*models.Player, error)
	ListPlayers(ctx context.Context) ([]*models.Player, error)
}

type playerService struct {
	playerRepo repositories.PlayerRepository
}

func NewPlayerService(playerRepo repositories.PlayerRepository) PlayerService {
	return &playerService{playerRepo: playerRepo}
}

func (s *playerService) CreatePlayer(ctx context.Context, p *models.Player) error {
	if p.DisplayName == "" {
		return ErrValidationFailed
	}
	if p.Role == "" {
		p.Role = models.RolePlayer
	}
	if err := s.playerRepo.Create(ctx, p); err != nil {
		if errors.Is(err, repositories.ErrPlayerNameConflict) {
			return ErrPlayerNameConflict
		}
		return err
	}
	return nil
}

func (s *playerService) LookupPlayer(ctx context.Context, id int) (*models.Player, error) {
	p, err := s.playerRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *playerService) ListPlayers(ctx context.Context) ([]*models.Player, error) {
	return s.playerRepo.List(ctx)
}
