package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Dosada05/poker-league/models"
	"github.com/Dosada05/poker-league/repositories"
	"github.com/jonboulle/clockwork"
)

type TimerService interface {
	// Start creates the authoritative clock for a created game date, flips
	// it to in_progress and begins counting level 1.
	Start(ctx context.Context, gameDateID, performedBy int) (*models.TimerState, error)
	// Pause freezes the remaining time. Pausing an already-paused timer is
	// an idempotent no-op so client retries stay simple.
	Pause(ctx context.Context, gameDateID, performedBy int) (*models.TimerState, error)
	// Resume restarts the countdown with the frozen remaining time.
	Resume(ctx context.Context, gameDateID, performedBy int) (*models.TimerState, error)
	// AdjustTime applies an operator correction, clamped to zero. Always
	// audited.
	AdjustTime(ctx context.Context, gameDateID, performedBy, deltaSeconds int) (*models.TimerState, error)
	// Snapshot returns the wire state with the countdown recomputed from
	// the server clock. Read-only; never fails because of a bad write
	// elsewhere.
	Snapshot(ctx context.Context, gameDateID int) (*models.TimerState, error)
	// Teardown synchronously stops the date's owner goroutine, if any. Must
	// be called before cancelling or resetting a date so a zombie owner
	// cannot keep auto-advancing.
	Teardown(gameDateID int)
	TeardownAll()
}

// TimerEngine owns one goroutine per in-progress game date. Every mutating
// command for a date is serialized through that owner, so a manual pause and
// an automatic level advance can never race. Dates are fully independent.
type TimerEngine struct {
	db           *sql.DB
	timerRepo    repositories.TimerRepository
	gameDateRepo repositories.GameDateRepository
	blindRepo    repositories.BlindLevelRepository
	hub          Broadcaster
	clock        clockwork.Clock
	logger       *slog.Logger

	mu     sync.Mutex
	owners map[int]*timerOwner
}

type timerOwner struct {
	gameDateID int
	cmds       chan timerCommand
	stop       chan struct{}
	done       chan struct{}
}

type timerCommand struct {
	ctx         context.Context
	kind        models.TimerActionType
	delta       int
	performedBy int
	reply       chan timerResult
}

type timerResult struct {
	state *models.TimerState
	err   error
}

func NewTimerEngine(
	db *sql.DB,
	timerRepo repositories.TimerRepository,
	gameDateRepo repositories.GameDateRepository,
	blindRepo repositories.BlindLevelRepository,
	hub Broadcaster,
	clock clockwork.Clock,
	logger *slog.Logger,
) *TimerEngine {
	return &TimerEngine{
		db:           db,
		timerRepo:    timerRepo,
		gameDateRepo: gameDateRepo,
		blindRepo:    blindRepo,
		hub:          hub,
		clock:        clock,
		logger:       logger,
		owners:       make(map[int]*timerOwner),
	}
}

func (e *TimerEngine) Start(ctx context.Context, gameDateID, performedBy int) (*models.TimerState, error) {
	date, err := e.gameDateRepo.GetByID(ctx, gameDateID)
	if err != nil {
		if errors.Is(err, repositories.ErrGameDateNotFound) {
			return nil, ErrGameDateNotFound
		}
		return nil, err
	}
	if date.Status != models.GameDateStatusCreated {
		return nil, fmt.Errorf("%w: cannot start timer for %s game date", ErrInvalidTransition, date.Status)
	}

	playerIDs, err := e.gameDateRepo.ListPlayerIDs(ctx, gameDateID)
	if err != nil {
		return nil, err
	}
	if len(playerIDs) < 2 {
		return nil, ErrNotEnoughPlayers
	}

	levels, err := e.blindRepo.ListByTournament(ctx, date.TournamentID)
	if err != nil {
		return nil, err
	}

	now := e.clock.Now().UTC()
	state := &models.TimerState{
		GameDateID:           gameDateID,
		Status:               models.TimerStatusRunning,
		CurrentLevel:         1,
		LevelStartTime:       &now,
		TimeRemainingSeconds: levels[0].DurationMinutes * 60,
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	var txErr error
	defer func() {
		if txErr != nil {
			_ = tx.Rollback()
		}
	}()

	if txErr = e.timerRepo.CreateState(ctx, tx, state); txErr != nil {
		if errors.Is(txErr, repositories.ErrTimerStateConflict) {
			return nil, fmt.Errorf("%w: timer already exists for game date %d", ErrInvalidTransition, gameDateID)
		}
		return nil, txErr
	}
	action := &models.TimerAction{
		TimerStateID: state.ID,
		Type:         models.TimerActionStart,
		PerformedBy:  performedBy,
		At:           now,
	}
	if txErr = e.timerRepo.AppendAction(ctx, tx, action); txErr != nil {
		return nil, txErr
	}
	if txErr = e.gameDateRepo.UpdateStatus(ctx, tx, gameDateID, models.GameDateStatusInProgress); txErr != nil {
		return nil, txErr
	}
	if txErr = e.gameDateRepo.SetStartTime(ctx, tx, gameDateID, now); txErr != nil {
		return nil, txErr
	}
	if txErr = tx.Commit(); txErr != nil {
		return nil, fmt.Errorf("failed to commit timer start: %w", txErr)
	}

	snapshot := *state

	e.mu.Lock()
	e.spawnOwnerLocked(gameDateID, state, levels)
	e.mu.Unlock()

	e.logger.Info("timer started",
		slog.Int("game_date_id", gameDateID),
		slog.Int("level_duration_min", levels[0].DurationMinutes))

	e.broadcastState(&snapshot)
	date.Status = models.GameDateStatusInProgress
	date.StartTime = &now
	if e.hub != nil {
		e.hub.BroadcastToRoom(GameDateRoom(gameDateID), map[string]interface{}{
			"type":    "GAME_DATE_UPDATED",
			"room_id": GameDateRoom(gameDateID),
			"payload": date,
		})
	}

	return &snapshot, nil
}

func (e *TimerEngine) Pause(ctx context.Context, gameDateID, performedBy int) (*models.TimerState, error) {
	return e.sendCommand(ctx, gameDateID, timerCommand{kind: models.TimerActionPause, performedBy: performedBy})
}

func (e *TimerEngine) Resume(ctx context.Context, gameDateID, performedBy int) (*models.TimerState, error) {
	return e.sendCommand(ctx, gameDateID, timerCommand{kind: models.TimerActionResume, performedBy: performedBy})
}

func (e *TimerEngine) AdjustTime(ctx context.Context, gameDateID, performedBy, deltaSeconds int) (*models.TimerState, error) {
	return e.sendCommand(ctx, gameDateID, timerCommand{
		kind:        models.TimerActionAdjustTime,
		delta:       deltaSeconds,
		performedBy: performedBy,
	})
}

func (e *TimerEngine) Snapshot(ctx context.Context, gameDateID int) (*models.TimerState, error) {
	state, err := e.timerRepo.GetStateByGameDate(ctx, gameDateID)
	if err != nil {
		if errors.Is(err, repositories.ErrTimerStateNotFound) {
			return nil, ErrTimerNotFound
		}
		return nil, err
	}
	if state.Status == models.TimerStatusRunning {
		date, err := e.gameDateRepo.GetByID(ctx, gameDateID)
		if err != nil {
			return state, nil // serve the last persisted snapshot
		}
		levels, err := e.blindRepo.ListByTournament(ctx, date.TournamentID)
		if err != nil {
			return state, nil
		}
		projectToNow(state, levels, e.clock.Now().UTC())
	}
	return state, nil
}

// sendCommand routes a mutation to the date's owner goroutine, recovering the
// owner from the persisted log first if the process restarted mid-round.
func (e *TimerEngine) sendCommand(ctx context.Context, gameDateID int, cmd timerCommand) (*models.TimerState, error) {
	date, err := e.gameDateRepo.GetByID(ctx, gameDateID)
	if err != nil {
		if errors.Is(err, repositories.ErrGameDateNotFound) {
			return nil, ErrGameDateNotFound
		}
		return nil, err
	}
	if date.Status != models.GameDateStatusInProgress {
		return nil, fmt.Errorf("%w: timer commands require an in_progress game date, got %s",
			ErrInvalidTransition, date.Status)
	}

	owner, err := e.ensureOwner(ctx, gameDateID)
	if err != nil {
		return nil, err
	}

	cmd.ctx = ctx
	cmd.reply = make(chan timerResult, 1)

	select {
	case owner.cmds <- cmd:
	case <-owner.done:
		return nil, fmt.Errorf("%w: timer owner stopped", ErrInvalidTransition)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-cmd.reply:
		return res.state, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ensureOwner returns the running owner for a date, spawning one from
// persisted state when the engine has none (process restart). Recovery
// prefers the snapshot row; a running snapshot is verified against the action
// log, and an unreplayable log freezes the timer for operator review.
func (e *TimerEngine) ensureOwner(ctx context.Context, gameDateID int) (*timerOwner, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if owner, ok := e.owners[gameDateID]; ok {
		return owner, nil
	}

	state, err := e.timerRepo.GetStateByGameDate(ctx, gameDateID)
	if err != nil {
		if errors.Is(err, repositories.ErrTimerStateNotFound) {
			return nil, ErrTimerNotFound
		}
		return nil, err
	}

	date, err := e.gameDateRepo.GetByID(ctx, gameDateID)
	if err != nil {
		return nil, err
	}
	levels, err := e.blindRepo.ListByTournament(ctx, date.TournamentID)
	if err != nil {
		return nil, err
	}

	if state.Status == models.TimerStatusRunning {
		actions, err := e.timerRepo.ListActionsByState(ctx, state.ID)
		if err != nil {
			return nil, err
		}
		replayed, replayErr := ReplayActions(actions, levels, e.clock.Now().UTC())
		if replayErr != nil {
			// Never guess: freeze at the last known-good snapshot and flag
			// the date for operator review.
			e.logger.Error("timer replay failed, freezing state",
				slog.Int("game_date_id", gameDateID), slog.Any("error", replayErr))
			state.Status = models.TimerStatusPaused
			state.LevelStartTime = nil
			state.NeedsReview = true
		} else {
			replayed.ID = state.ID
			replayed.GameDateID = gameDateID
			state = replayed
		}
		if err := e.timerRepo.UpdateState(ctx, nil, state); err != nil {
			return nil, err
		}
	}

	owner := e.spawnOwnerLocked(gameDateID, state, levels)
	return owner, nil
}

func (e *TimerEngine) spawnOwnerLocked(gameDateID int, state *models.TimerState, levels []models.BlindLevel) *timerOwner {
	owner := &timerOwner{
		gameDateID: gameDateID,
		cmds:       make(chan timerCommand),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	e.owners[gameDateID] = owner
	go e.runOwner(owner, state, levels)
	return owner
}

// Teardown synchronously stops a date's owner. Safe to call when none exists.
func (e *TimerEngine) Teardown(gameDateID int) {
	e.mu.Lock()
	owner, ok := e.owners[gameDateID]
	if ok {
		delete(e.owners, gameDateID)
	}
	e.mu.Unlock()

	if ok {
		close(owner.stop)
		<-owner.done
	}
}

func (e *TimerEngine) TeardownAll() {
	e.mu.Lock()
	owners := make([]*timerOwner, 0, len(e.owners))
	for id, owner := range e.owners {
		owners = append(owners, owner)
		delete(e.owners, id)
	}
	e.mu.Unlock()

	for _, owner := range owners {
		close(owner.stop)
		<-owner.done
	}
}

// Finish stops the countdown when its game date completes. The owner is torn
// down first so no auto-advance can fire after the round is over, then the
// persisted row is frozen as stopped. Safe when the date never had a timer.
func (e *TimerEngine) Finish(ctx context.Context, gameDateID int) error {
	e.Teardown(gameDateID)

	state, err := e.timerRepo.GetStateByGameDate(ctx, gameDateID)
	if err != nil {
		if errors.Is(err, repositories.ErrTimerStateNotFound) {
			return nil
		}
		return err
	}
	if state.Status == models.TimerStatusStopped {
		return nil
	}
	if state.Status == models.TimerStatusRunning {
		state.TimeRemainingSeconds = remainingAt(state, e.clock.Now().UTC())
	}
	state.Status = models.TimerStatusStopped
	state.LevelStartTime = nil
	if err := e.timerRepo.UpdateState(ctx, nil, state); err != nil {
		return err
	}

	e.logger.Info("timer stopped on completion", slog.Int("game_date_id", gameDateID))
	e.broadcastState(state)
	return nil
}

// runOwner is the single writer for one date's TimerState. It sleeps until
// either a command arrives or the armed level deadline fires.
func (e *TimerEngine) runOwner(owner *timerOwner, state *models.TimerState, levels []models.BlindLevel) {
	defer close(owner.done)

	var deadline clockwork.Timer
	var deadlineCh <-chan time.Time

	disarm := func() {
		if deadline != nil {
			if !deadline.Stop() {
				select {
				case <-deadline.Chan():
				default:
				}
			}
			deadline = nil
			deadlineCh = nil
		}
	}
	arm := func() {
		disarm()
		if state.Status != models.TimerStatusRunning {
			return
		}
		if levels[state.CurrentLevel-1].IsInfinite() {
			return
		}
		remaining := time.Duration(state.TimeRemainingSeconds) * time.Second
		if state.LevelStartTime != nil {
			elapsed := e.clock.Now().UTC().Sub(*state.LevelStartTime)
			remaining -= elapsed
		}
		if remaining <= 0 {
			if state.CurrentLevel >= len(levels) {
				// Expired finite final level holds at zero; there is
				// nothing left to schedule.
				return
			}
			remaining = 0
		}
		deadline = e.clock.NewTimer(remaining)
		deadlineCh = deadline.Chan()
	}

	arm()
	defer disarm()

	for {
		select {
		case <-owner.stop:
			return

		case cmd := <-owner.cmds:
			res := e.applyCommand(cmd, state, levels)
			arm()
			cmd.reply <- res

		case <-deadlineCh:
			deadline = nil
			deadlineCh = nil
			e.autoAdvance(state, levels)
			arm()
		}
	}
}

// applyCommand validates and applies one operator command. Same-state retries
// are no-ops; wrong-state commands are rejected with the current state named.
func (e *TimerEngine) applyCommand(cmd timerCommand, state *models.TimerState, levels []models.BlindLevel) timerResult {
	now := e.clock.Now().UTC()

	switch cmd.kind {
	case models.TimerActionPause:
		if state.Status == models.TimerStatusPaused {
			snapshot := *state
			return timerResult{state: &snapshot}
		}
		if state.Status != models.TimerStatusRunning {
			return timerResult{err: fmt.Errorf("%w: pause while %s", ErrInvalidTransition, state.Status)}
		}
		state.TimeRemainingSeconds = remainingAt(state, now)
		state.Status = models.TimerStatusPaused
		state.LevelStartTime = nil

	case models.TimerActionResume:
		if state.Status == models.TimerStatusRunning {
			snapshot := *state
			return timerResult{state: &snapshot}
		}
		if state.Status != models.TimerStatusPaused {
			return timerResult{err: fmt.Errorf("%w: resume while %s", ErrInvalidTransition, state.Status)}
		}
		state.Status = models.TimerStatusRunning
		state.LevelStartTime = &now

	case models.TimerActionAdjustTime:
		if state.Status == models.TimerStatusStopped {
			return timerResult{err: fmt.Errorf("%w: adjust while stopped", ErrInvalidTransition)}
		}
		remaining := state.TimeRemainingSeconds
		if state.Status == models.TimerStatusRunning {
			remaining = remainingAt(state, now)
			state.LevelStartTime = &now
		}
		remaining += cmd.delta
		if remaining < 0 {
			remaining = 0
		}
		state.TimeRemainingSeconds = remaining

	default:
		return timerResult{err: fmt.Errorf("%w: unknown timer command %q", ErrInvalidTransition, cmd.kind)}
	}

	var payload json.RawMessage
	if cmd.kind == models.TimerActionAdjustTime {
		payload, _ = json.Marshal(models.AdjustPayload{DeltaSeconds: cmd.delta})
	}
	if err := e.persistMutation(cmd.ctx, state, cmd.kind, cmd.performedBy, now, payload); err != nil {
		return timerResult{err: err}
	}

	e.broadcastState(state)
	snapshot := *state
	return timerResult{state: &snapshot}
}

// autoAdvance fires when a running level's deadline elapses. Server-side
// only; clients never drive level changes.
func (e *TimerEngine) autoAdvance(state *models.TimerState, levels []models.BlindLevel) {
	if state.Status != models.TimerStatusRunning {
		return
	}
	now := e.clock.Now().UTC()

	if state.CurrentLevel >= len(levels) {
		// Finite final level ran out: hold at zero, nothing to advance to.
		state.TimeRemainingSeconds = 0
		state.LevelStartTime = &now
		e.broadcastState(state)
		return
	}

	state.CurrentLevel++
	state.TimeRemainingSeconds = levels[state.CurrentLevel-1].DurationMinutes * 60
	state.LevelStartTime = &now

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.persistMutation(ctx, state, models.TimerActionAdvanceLevel, systemActor, now, nil); err != nil {
		e.logger.Error("failed to persist level advance",
			slog.Int("game_date_id", state.GameDateID), slog.Any("error", err))
		return
	}

	e.logger.Info("blind level advanced",
		slog.Int("game_date_id", state.GameDateID),
		slog.Int("level", state.CurrentLevel))
	e.broadcastState(state)
}

// systemActor marks actions fired by the engine itself rather than an operator.
const systemActor = 0

// persistMutation appends the audit action and updates the materialized state
// in one transaction. The action is written first: the log is the source of
// truth the state row can always be rebuilt from.
func (e *TimerEngine) persistMutation(ctx context.Context, state *models.TimerState, kind models.TimerActionType, performedBy int, at time.Time, payload json.RawMessage) error {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	var txErr error
	defer func() {
		if txErr != nil {
			_ = tx.Rollback()
		}
	}()

	action := &models.TimerAction{
		TimerStateID: state.ID,
		Type:         kind,
		PerformedBy:  performedBy,
		At:           at,
		Payload:      payload,
	}
	if txErr = e.timerRepo.AppendAction(ctx, tx, action); txErr != nil {
		return txErr
	}
	if txErr = e.timerRepo.UpdateState(ctx, tx, state); txErr != nil {
		return txErr
	}
	if txErr = tx.Commit(); txErr != nil {
		return fmt.Errorf("failed to commit timer mutation: %w", txErr)
	}
	return nil
}

func (e *TimerEngine) broadcastState(state *models.TimerState) {
	if e.hub == nil {
		return
	}
	snapshot := *state
	e.hub.BroadcastToRoom(GameDateRoom(state.GameDateID), map[string]interface{}{
		"type":    "TIMER_UPDATED",
		"room_id": GameDateRoom(state.GameDateID),
		"payload": snapshot,
	})
}

var _ TimerService = (*TimerEngine)(nil)
