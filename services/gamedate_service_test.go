package services

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/Dosada05/poker-league/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Cancel and Reset run their destructive half inside a database transaction
// and are exercised against a real database; the tests here pin the state
// machine guards, which all resolve before any teardown or write.

func newGameDateFixture(t *testing.T) (*fakeGameDateRepo, GameDateService) {
	t.Helper()
	dates := &fakeGameDateRepo{
		dates: []models.GameDate{
			{ID: 1, TournamentID: 1, DateNumber: 1, Status: models.GameDateStatusPending},
			{ID: 2, TournamentID: 1, DateNumber: 2, Status: models.GameDateStatusInProgress},
			{ID: 3, TournamentID: 1, DateNumber: 3, Status: models.GameDateStatusCompleted},
			{ID: 4, TournamentID: 1, DateNumber: 4, Status: models.GameDateStatusCancelled},
		},
		playersByDate: map[int][]int{1: {1, 2}},
	}
	players := &fakePlayerRepo{players: []*models.Player{
		{ID: 1, DisplayName: "Ana"}, {ID: 2, DisplayName: "Bruno"}, {ID: 3, DisplayName: "Carla"},
	}}
	elims := &fakeEliminationRepo{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewGameDateService(
		nil, // guard paths resolve before any transaction
		dates,
		elims,
		nil,
		players,
		nil, // the timer teardown only runs past the guards
		NewRankingService(dates, elims, players, nil),
		nil,
		logger,
	)
	return dates, svc
}

func TestMarkCreated(t *testing.T) {
	dates, svc := newGameDateFixture(t)
	ctx := context.Background()

	date, err := svc.MarkCreated(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.GameDateStatusCreated, date.Status)
	assert.Equal(t, models.GameDateStatusCreated, dates.dates[0].Status)

	// Repeating the call is a no-op, not an error.
	date, err = svc.MarkCreated(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.GameDateStatusCreated, date.Status)
}

func TestMarkCreated_RejectsForwardStates(t *testing.T) {
	_, svc := newGameDateFixture(t)
	ctx := context.Background()

	for _, id := range []int{2, 3, 4} {
		_, err := svc.MarkCreated(ctx, id)
		assert.ErrorIs(t, err, ErrInvalidTransition, "game date %d", id)
	}
}

func TestAssignPlayer(t *testing.T) {
	dates, svc := newGameDateFixture(t)
	ctx := context.Background()

	require.NoError(t, svc.AssignPlayer(ctx, 1, 3))
	assert.Equal(t, []int{1, 2, 3}, dates.playersByDate[1])

	// Re-assigning swallows the conflict.
	require.NoError(t, svc.AssignPlayer(ctx, 1, 3))
	assert.Equal(t, []int{1, 2, 3}, dates.playersByDate[1])

	err := svc.AssignPlayer(ctx, 1, 99)
	assert.ErrorIs(t, err, ErrPlayerNotFound)

	err = svc.AssignPlayer(ctx, 2, 3)
	assert.ErrorIs(t, err, ErrInvalidTransition, "rosters freeze once play starts")
}

func TestRemovePlayer(t *testing.T) {
	dates, svc := newGameDateFixture(t)
	ctx := context.Background()

	require.NoError(t, svc.RemovePlayer(ctx, 1, 2))
	assert.Equal(t, []int{1}, dates.playersByDate[1])

	err := svc.RemovePlayer(ctx, 2, 1)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCancel_Guards(t *testing.T) {
	_, svc := newGameDateFixture(t)
	ctx := context.Background()

	_, err := svc.Cancel(ctx, 3)
	assert.ErrorIs(t, err, ErrInvalidTransition, "completed results are immutable")

	date, err := svc.Cancel(ctx, 4)
	require.NoError(t, err, "cancelling twice is idempotent")
	assert.Equal(t, models.GameDateStatusCancelled, date.Status)
}

func TestGetGameDate_LoadsRoster(t *testing.T) {
	_, svc := newGameDateFixture(t)

	date, err := svc.GetGameDate(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, date.PlayerIDs)

	_, err = svc.GetGameDate(context.Background(), 999)
	assert.ErrorIs(t, err, ErrGameDateNotFound)
}
