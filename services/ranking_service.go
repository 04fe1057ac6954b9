package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/Dosada05/poker-league/models"
	"github.com/Dosada05/poker-league/repositories"
	"golang.org/x/sync/singleflight"
)

// RankingCache memoizes ComputeRanking output per tournament. Implementations
// must treat Invalidate as the only write issued by the elimination path:
// entries are dropped whole, never patched.
type RankingCache interface {
	Get(ctx context.Context, tournamentID int) ([]models.RankingRow, bool)
	Set(ctx context.Context, tournamentID int, rows []models.RankingRow)
	Invalidate(ctx context.Context, tournamentID int)
}

type RankingService interface {
	// GetRanking serves the cached table when present and recomputes
	// otherwise. Concurrent misses for one tournament collapse into a
	// single computation.
	GetRanking(ctx context.Context, tournamentID int) ([]models.RankingRow, error)
	// ComputeRanking is the pure recomputation: identical elimination rows
	// always produce identical output.
	ComputeRanking(ctx context.Context, tournamentID int) ([]models.RankingRow, error)
	InvalidateCache(ctx context.Context, tournamentID int)
}

type rankingService struct {
	gameDateRepo    repositories.GameDateRepository
	eliminationRepo repositories.EliminationRepository
	playerRepo      repositories.PlayerRepository
	cache           RankingCache
	group           singleflight.Group
}

func NewRankingService(
	gameDateRepo repositories.GameDateRepository,
	eliminationRepo repositories.EliminationRepository,
	playerRepo repositories.PlayerRepository,
	cache RankingCache,
) RankingService {
	return &rankingService{
		gameDateRepo:    gameDateRepo,
		eliminationRepo: eliminationRepo,
		playerRepo:      playerRepo,
		cache:           cache,
	}
}

func (s *rankingService) GetRanking(ctx context.Context, tournamentID int) ([]models.RankingRow, error) {
	if s.cache != nil {
		if rows, ok := s.cache.Get(ctx, tournamentID); ok {
			return rows, nil
		}
	}

	v, err, _ := s.group.Do(fmt.Sprintf("ranking:%d", tournamentID), func() (interface{}, error) {
		rows, err := s.ComputeRanking(ctx, tournamentID)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			s.cache.Set(ctx, tournamentID, rows)
		}
		return rows, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.RankingRow), nil
}

func (s *rankingService) InvalidateCache(ctx context.Context, tournamentID int) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, tournamentID)
	}
}

func (s *rankingService) ComputeRanking(ctx context.Context, tournamentID int) ([]models.RankingRow, error) {
	dates, err := s.gameDateRepo.ListCompletedByTournament(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load completed dates: %w", err)
	}

	players, err := s.playerRepo.ListRegisteredByTournament(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load registered players: %w", err)
	}

	dateIDs := make([]int, 0, len(dates))
	dateNumberByID := make(map[int]int, len(dates))
	for _, d := range dates {
		dateIDs = append(dateIDs, d.ID)
		dateNumberByID[d.ID] = d.DateNumber
	}

	eliminations, err := s.eliminationRepo.ListByGameDates(ctx, dateIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load eliminations: %w", err)
	}

	// points[playerID][dateNumber]
	points := make(map[int]map[int]int, len(players))
	for _, e := range eliminations {
		dateNumber, ok := dateNumberByID[e.GameDateID]
		if !ok {
			continue
		}
		if points[e.EliminatedPlayerID] == nil {
			points[e.EliminatedPlayerID] = make(map[int]int)
		}
		points[e.EliminatedPlayerID][dateNumber] = e.Points
	}

	rows := make([]models.RankingRow, 0, len(players))
	for _, p := range players {
		row := models.RankingRow{
			PlayerID:     p.ID,
			PlayerName:   p.DisplayName,
			PointsByDate: make(map[int]int, len(dates)),
		}

		scores := make([]int, 0, len(dates))
		for _, d := range dates {
			// A registered player with no elimination row on a played date
			// scored an explicit 0 (a "falta"), which still counts toward
			// the drop-worst calculation.
			score := 0
			if byDate, ok := points[p.ID]; ok {
				score = byDate[d.DateNumber]
			}
			row.PointsByDate[d.DateNumber] = score
			row.Total += score
			scores = append(scores, score)
		}

		sort.Ints(scores)
		row.DropWorst1Total = row.Total - sumLowest(scores, 1)
		row.DropWorst2Total = row.Total - sumLowest(scores, 2)
		row.Final = row.DropWorst2Total
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Final != b.Final {
			return a.Final > b.Final
		}
		if a.Total != b.Total {
			return a.Total > b.Total
		}
		if a.DropWorst1Total != b.DropWorst1Total {
			return a.DropWorst1Total > b.DropWorst1Total
		}
		return a.PlayerID < b.PlayerID
	})

	assignPositions(rows)
	return rows, nil
}

// sumLowest sums the k smallest values of an ascending-sorted slice. With
// fewer than k values it degrades to summing what is there.
func sumLowest(sorted []int, k int) int {
	if k > len(sorted) {
		k = len(sorted)
	}
	sum := 0
	for i := 0; i < k; i++ {
		sum += sorted[i]
	}
	return sum
}

// assignPositions uses "next distinct rank" semantics: ties share a displayed
// position but the index keeps advancing past them (1, 2, 2, 4).
func assignPositions(rows []models.RankingRow) {
	for i := range rows {
		if i > 0 && sameStanding(rows[i], rows[i-1]) {
			rows[i].Position = rows[i-1].Position
			continue
		}
		rows[i].Position = i + 1
	}
}

func sameStanding(a, b models.RankingRow) bool {
	return a.Final == b.Final && a.Total == b.Total && a.DropWorst1Total == b.DropWorst1Total
}
