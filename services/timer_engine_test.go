package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Dosada05/poker-league/models"
	"github.com/Dosada05/poker-league/repositories"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTimerRepo is written to by owner goroutines while tests read it, so
// every method holds the mutex.
type fakeTimerRepo struct {
	mu      sync.Mutex
	states  map[int]*models.TimerState // keyed by game date
	actions []models.TimerAction
}

func newFakeTimerRepo() *fakeTimerRepo {
	return &fakeTimerRepo{states: make(map[int]*models.TimerState)}
}

func (f *fakeTimerRepo) CreateState(ctx context.Context, exec repositories.SQLExecutor, state *models.TimerState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.states[state.GameDateID]; ok {
		return repositories.ErrTimerStateConflict
	}
	state.ID = len(f.states) + 1
	copied := *state
	f.states[state.GameDateID] = &copied
	return nil
}
func (f *fakeTimerRepo) GetStateByGameDate(ctx context.Context, gameDateID int) (*models.TimerState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	state, ok := f.states[gameDateID]
	if !ok {
		return nil, repositories.ErrTimerStateNotFound
	}
	copied := *state
	return &copied, nil
}
func (f *fakeTimerRepo) UpdateState(ctx context.Context, exec repositories.SQLExecutor, state *models.TimerState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *state
	f.states[state.GameDateID] = &copied
	return nil
}
func (f *fakeTimerRepo) DeleteStateByGameDate(ctx context.Context, exec repositories.SQLExecutor, gameDateID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.states, gameDateID)
	return nil
}
func (f *fakeTimerRepo) AppendAction(ctx context.Context, exec repositories.SQLExecutor, action *models.TimerAction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	action.ID = len(f.actions) + 1
	f.actions = append(f.actions, *action)
	return nil
}
func (f *fakeTimerRepo) ListActionsByState(ctx context.Context, timerStateID int) ([]models.TimerAction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.TimerAction
	for _, a := range f.actions {
		if a.TimerStateID == timerStateID {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakeBlindRepo struct {
	levels []models.BlindLevel
}

func (f *fakeBlindRepo) CreateBatch(ctx context.Context, exec repositories.SQLExecutor, levels []models.BlindLevel) error {
	panic("not implemented")
}
func (f *fakeBlindRepo) ListByTournament(ctx context.Context, tournamentID int) ([]models.BlindLevel, error) {
	return f.levels, nil
}

func newEngineFixture(t *testing.T, clock clockwork.Clock) (*fakeTimerRepo, *fakeGameDateRepo, *TimerEngine) {
	t.Helper()
	timers := newFakeTimerRepo()
	dates := &fakeGameDateRepo{
		dates: []models.GameDate{
			{ID: 1, TournamentID: 1, DateNumber: 1, Status: models.GameDateStatusCreated},
			{ID: 2, TournamentID: 1, DateNumber: 2, Status: models.GameDateStatusPending},
			{ID: 3, TournamentID: 1, DateNumber: 3, Status: models.GameDateStatusInProgress},
		},
		playersByDate: map[int][]int{
			1: {1, 2, 3},
			3: {1, 2, 3},
		},
	}
	blinds := &fakeBlindRepo{levels: []models.BlindLevel{
		{Level: 1, SmallBlind: 25, BigBlind: 50, DurationMinutes: 12},
		{Level: 2, SmallBlind: 50, BigBlind: 100, DurationMinutes: 12},
		{Level: 3, SmallBlind: 100, BigBlind: 200, DurationMinutes: 0},
	}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := NewTimerEngine(nil, timers, dates, blinds, nil, clock, logger)
	return timers, dates, engine
}

func TestTimerStart_Guards(t *testing.T) {
	_, dates, engine := newEngineFixture(t, clockwork.NewFakeClock())
	ctx := context.Background()

	_, err := engine.Start(ctx, 999, 1)
	assert.ErrorIs(t, err, ErrGameDateNotFound)

	_, err = engine.Start(ctx, 2, 1)
	assert.ErrorIs(t, err, ErrInvalidTransition, "pending dates have no confirmed roster yet")

	_, err = engine.Start(ctx, 3, 1)
	assert.ErrorIs(t, err, ErrInvalidTransition, "a second start for a live date is rejected")

	dates.playersByDate[1] = []int{1}
	_, err = engine.Start(ctx, 1, 1)
	assert.ErrorIs(t, err, ErrNotEnoughPlayers)
}

func TestTimerSnapshot_NotFound(t *testing.T) {
	_, _, engine := newEngineFixture(t, clockwork.NewFakeClock())

	_, err := engine.Snapshot(context.Background(), 1)
	assert.ErrorIs(t, err, ErrTimerNotFound)
}

func TestTimerSnapshot_PausedStaysFrozen(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC))
	timers, _, engine := newEngineFixture(t, clock)

	timers.states[3] = &models.TimerState{
		ID: 1, GameDateID: 3,
		Status:               models.TimerStatusPaused,
		CurrentLevel:         1,
		TimeRemainingSeconds: 7 * 60,
	}
	clock.Advance(3 * time.Hour)

	state, err := engine.Snapshot(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, models.TimerStatusPaused, state.Status)
	assert.Equal(t, 7*60, state.TimeRemainingSeconds)
}

func TestTimerSnapshot_RunningCountsDownOnServerClock(t *testing.T) {
	start := time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(start)
	timers, _, engine := newEngineFixture(t, clock)

	timers.states[3] = &models.TimerState{
		ID: 1, GameDateID: 3,
		Status:               models.TimerStatusRunning,
		CurrentLevel:         1,
		LevelStartTime:       &start,
		TimeRemainingSeconds: 12 * 60,
	}

	clock.Advance(5 * time.Minute)
	state, err := engine.Snapshot(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 1, state.CurrentLevel)
	assert.Equal(t, 7*60, state.TimeRemainingSeconds)

	// Past the level deadline the snapshot lands inside the next level; the
	// persisted row is stale but the wire state never is.
	clock.Advance(10 * time.Minute)
	state, err = engine.Snapshot(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 2, state.CurrentLevel)
	assert.Equal(t, 9*60, state.TimeRemainingSeconds)
}

func TestTimerRecovery_UnreplayableLogFreezes(t *testing.T) {
	start := time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(start.Add(10 * time.Minute))
	timers, _, engine := newEngineFixture(t, clock)
	defer engine.TeardownAll()

	// A running snapshot whose log lost its start action cannot be
	// replayed. Recovery must freeze it rather than invent a countdown.
	timers.states[3] = &models.TimerState{
		ID: 1, GameDateID: 3,
		Status:               models.TimerStatusRunning,
		CurrentLevel:         2,
		LevelStartTime:       &start,
		TimeRemainingSeconds: 12 * 60,
	}
	timers.actions = []models.TimerAction{
		{ID: 1, TimerStateID: 1, Type: models.TimerActionPause, PerformedBy: 1, At: start},
	}

	// Pause of an already-frozen timer is an idempotent read, so the reply
	// carries the recovered state.
	state, err := engine.Pause(context.Background(), 3, 1)
	require.NoError(t, err)
	assert.Equal(t, models.TimerStatusPaused, state.Status)
	assert.True(t, state.NeedsReview)
	assert.Nil(t, state.LevelStartTime)
	assert.Equal(t, 12*60, state.TimeRemainingSeconds, "frozen at the last known-good snapshot")

	// The freeze was persisted, not just held in memory.
	persisted, err := timers.GetStateByGameDate(context.Background(), 3)
	require.NoError(t, err)
	assert.True(t, persisted.NeedsReview)
	assert.Equal(t, models.TimerStatusPaused, persisted.Status)
}

func TestTeardown_WithoutOwnerIsSafe(t *testing.T) {
	_, _, engine := newEngineFixture(t, clockwork.NewFakeClock())
	engine.Teardown(1)
	engine.TeardownAll()
}

// newLiveEngineFixture wires the engine with a committing transaction stub so
// owner goroutines can persist mutations, unlike the guard-only fixture above.
func newLiveEngineFixture(t *testing.T, clock clockwork.Clock, levels []models.BlindLevel) (*fakeTimerRepo, *fakeGameDateRepo, *recordingHub, *TimerEngine) {
	t.Helper()
	timers := newFakeTimerRepo()
	dates := &fakeGameDateRepo{
		dates: []models.GameDate{
			{ID: 1, TournamentID: 1, DateNumber: 1, Status: models.GameDateStatusCreated},
		},
		playersByDate: map[int][]int{1: {1, 2, 3}},
	}
	hub := &recordingHub{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := NewTimerEngine(txStubDB(t), timers, dates, &fakeBlindRepo{levels: levels}, hub, clock, logger)
	t.Cleanup(engine.TeardownAll)
	return timers, dates, hub, engine
}

func TestTimerEngine_LiveEveningFlow(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC))
	timers, dates, _, engine := newLiveEngineFixture(t, clock, []models.BlindLevel{
		{Level: 1, SmallBlind: 25, BigBlind: 50, DurationMinutes: 12},
		{Level: 2, SmallBlind: 50, BigBlind: 100, DurationMinutes: 12},
		{Level: 3, SmallBlind: 100, BigBlind: 200, DurationMinutes: 0},
	})
	ctx := context.Background()

	state, err := engine.Start(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, models.TimerStatusRunning, state.Status)
	assert.Equal(t, 12*60, state.TimeRemainingSeconds)

	date, err := dates.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.GameDateStatusInProgress, date.Status)
	require.NotNil(t, date.StartTime)

	// Five minutes in, the pause freezes roughly seven minutes.
	clock.Advance(5 * time.Minute)
	state, err = engine.Pause(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, models.TimerStatusPaused, state.Status)
	assert.Equal(t, 7*60, state.TimeRemainingSeconds)
	assert.Nil(t, state.LevelStartTime)

	// Paused wall time never counts against the level.
	clock.Advance(30 * time.Minute)
	state, err = engine.Resume(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, models.TimerStatusRunning, state.Status)
	assert.Equal(t, 7*60, state.TimeRemainingSeconds)

	// The remaining seven minutes elapse and the owner advances the level
	// on its own.
	clock.Advance(7*time.Minute + time.Second)
	require.Eventually(t, func() bool {
		persisted, err := timers.GetStateByGameDate(ctx, 1)
		return err == nil && persisted.CurrentLevel == 2
	}, time.Second, 5*time.Millisecond)

	snap, err := engine.Snapshot(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.CurrentLevel)
	assert.Equal(t, models.TimerStatusRunning, snap.Status)
	assert.Equal(t, 12*60, snap.TimeRemainingSeconds)

	var advances int
	timers.mu.Lock()
	for _, a := range timers.actions {
		if a.Type == models.TimerActionAdvanceLevel {
			advances++
		}
	}
	timers.mu.Unlock()
	assert.Equal(t, 1, advances, "the advance is audited exactly once")
}

func TestTimerEngine_FinalLevelExpiryStaysQuiet(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC))
	_, _, hub, engine := newLiveEngineFixture(t, clock, []models.BlindLevel{
		{Level: 1, SmallBlind: 100, BigBlind: 200, DurationMinutes: 1},
	})
	ctx := context.Background()

	_, err := engine.Start(ctx, 1, 1)
	require.NoError(t, err)
	started := hub.eventCount()

	// The finite final level runs out: one hold broadcast, then silence.
	// The owner must not re-arm a zero deadline and spin.
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(61 * time.Second)
	require.Eventually(t, func() bool {
		return hub.eventCount() >= started+1
	}, time.Second, 5*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, started+1, hub.eventCount(), "no broadcast storm after the final level expires")

	snap, err := engine.Snapshot(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.CurrentLevel)
	assert.Equal(t, models.TimerStatusRunning, snap.Status)
	assert.Equal(t, 0, snap.TimeRemainingSeconds, "held at zero, never negative")
}

func TestTimerCommands_RejectFinishedDate(t *testing.T) {
	timers, dates, engine := newEngineFixture(t, clockwork.NewFakeClock())
	dates.dates = append(dates.dates, models.GameDate{
		ID: 4, TournamentID: 1, DateNumber: 4, Status: models.GameDateStatusCompleted,
	})
	dates.playersByDate[4] = []int{1, 2, 3}
	timers.states[4] = &models.TimerState{
		ID: 9, GameDateID: 4,
		Status:               models.TimerStatusPaused,
		CurrentLevel:         2,
		TimeRemainingSeconds: 4 * 60,
	}
	ctx := context.Background()

	_, err := engine.Pause(ctx, 4, 1)
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Contains(t, err.Error(), "completed")

	_, err = engine.Resume(ctx, 4, 1)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = engine.AdjustTime(ctx, 4, 1, 60)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = engine.Pause(ctx, 999, 1)
	assert.ErrorIs(t, err, ErrGameDateNotFound)
}

func TestTimerFinish_StopsOwnerAndFreezesRow(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC))
	timers, _, _, engine := newLiveEngineFixture(t, clock, []models.BlindLevel{
		{Level: 1, SmallBlind: 25, BigBlind: 50, DurationMinutes: 12},
		{Level: 2, SmallBlind: 50, BigBlind: 100, DurationMinutes: 0},
	})
	ctx := context.Background()

	_, err := engine.Start(ctx, 1, 1)
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	require.NoError(t, engine.Finish(ctx, 1))

	persisted, err := timers.GetStateByGameDate(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.TimerStatusStopped, persisted.Status)
	assert.Nil(t, persisted.LevelStartTime)
	assert.Equal(t, 10*60, persisted.TimeRemainingSeconds, "frozen at the moment of completion")

	// Further commands find a stopped clock.
	_, err = engine.Pause(ctx, 1, 1)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	// Finishing again, or finishing a date that never had a timer, is a
	// no-op.
	require.NoError(t, engine.Finish(ctx, 1))
	require.NoError(t, engine.Finish(ctx, 999))
}
