package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/ritz541/iamwheel/internal/config"
	"github.com/ritz541/iamwheel/internal/logger"
	"github.com/ritz541/iamwheel/internal/models"
)

// payoutPercent is the winner's share of the pool. The remainder stays
// with the platform and is never credited to any account.
const payoutPercent = 80

// RoundStore is the engine's view of round persistence.
type RoundStore interface {
	Get(ctx context.Context) (*models.Round, error)
	Update(ctx context.Context, patch RoundPatch) (*models.Round, error)
	Reset(ctx context.Context) (*models.Round, error)
	Join(ctx context.Context, userID string) (*models.Round, models.Participant, error)
	SaveOutcome(ctx context.Context, game *models.CompletedGame) (int64, error)
	EntryFee() int64
}

// Engine drives the round state machine: Joining countdown, a lock
// window before expiry, winner selection and payout, then a break before
// the next round. One Tick advances the machine by one second.
type Engine struct {
	store       RoundStore
	limiter     RateLimiter
	broadcaster Broadcaster

	lockWindow int
	running    atomic.Bool
}

func NewEngine(store RoundStore, limiter RateLimiter, broadcaster Broadcaster, cfg *config.Config) *Engine {
	return &Engine{
		store:       store,
		limiter:     limiter,
		broadcaster: broadcaster,
		lockWindow:  cfg.LockWindow,
	}
}

// Start launches the periodic driver. At most one driver is active per
// engine: a duplicate Start while one is running is a no-op and reports
// false.
func (e *Engine) Start(ctx context.Context) bool {
	if !e.running.CompareAndSwap(false, true) {
		logger.Warnf("round driver already running, ignoring duplicate start")
		return false
	}

	round, err := e.store.Get(ctx)
	if errors.Is(err, ErrNoCurrentRound) {
		round, err = e.store.Reset(ctx)
	}
	if err != nil {
		e.running.Store(false)
		logger.Errorf("failed to start round driver: %v", err)
		return false
	}
	e.broadcaster.RoundState(round)

	go e.run(ctx)
	return true
}

func (e *Engine) Running() bool {
	return e.running.Load()
}

func (e *Engine) run(ctx context.Context) {
	defer e.running.Store(false)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Infof("round driver stopped")
			return
		case <-ticker.C:
			// The countdown stays alive even when one tick's side
			// effect fails; the failed write retries next tick.
			if err := e.Tick(ctx); err != nil {
				logger.Errorf("round tick failed: %v", err)
			}
		}
	}
}

// Tick advances the state machine by one second of wall clock.
func (e *Engine) Tick(ctx context.Context) error {
	round, err := e.store.Get(ctx)
	if err != nil {
		if errors.Is(err, ErrNoCurrentRound) {
			round, err = e.store.Reset(ctx)
			if err != nil {
				return err
			}
			e.broadcaster.RoundState(round)
			return nil
		}
		return err
	}

	switch round.Phase {
	case models.PhaseJoining, models.PhaseLocked:
		return e.tickCountdown(ctx, round)
	case models.PhaseResolving:
		// Only reachable when a previous resolution attempt failed
		// after the phase flip; finish the job.
		return e.resolve(ctx, round)
	case models.PhaseBreak:
		return e.tickBreak(ctx, round)
	default:
		return fmt.Errorf("round %s in unknown phase %q", round.ID, round.Phase)
	}
}

func (e *Engine) tickCountdown(ctx context.Context, round *models.Round) error {
	remaining := round.JoinTimer - 1
	if remaining < 0 {
		remaining = 0
	}

	if remaining == 0 {
		phase := models.PhaseResolving
		updated, err := e.store.Update(ctx, RoundPatch{Phase: &phase, JoinTimer: &remaining})
		if err != nil {
			return err
		}
		return e.resolve(ctx, updated)
	}

	patch := RoundPatch{JoinTimer: &remaining}
	locking := round.Phase == models.PhaseJoining && remaining <= e.lockWindow
	if locking {
		phase := models.PhaseLocked
		patch.Phase = &phase
	}
	updated, err := e.store.Update(ctx, patch)
	if err != nil {
		return err
	}

	if locking {
		logger.Infof("round %s locked with %d players", updated.ID, len(updated.Participants))
		e.broadcaster.RoundState(updated)
	}
	e.broadcaster.Tick(remaining, false)
	return nil
}

func (e *Engine) tickBreak(ctx context.Context, round *models.Round) error {
	remaining := round.BreakTimer - 1
	if remaining <= 0 {
		fresh, err := e.store.Reset(ctx)
		if err != nil {
			return err
		}
		logger.Infof("round %s starting", fresh.ID)
		e.broadcaster.RoundState(fresh)
		return nil
	}

	if _, err := e.store.Update(ctx, RoundPatch{BreakTimer: &remaining}); err != nil {
		return err
	}
	e.broadcaster.Tick(remaining, true)
	return nil
}

func (e *Engine) resolve(ctx context.Context, round *models.Round) error {
	if len(round.Participants) == 0 {
		fresh, err := e.store.Reset(ctx)
		if err != nil {
			return err
		}
		logger.Infof("round %s expired with no players", round.ID)
		e.broadcaster.RoundCancelled("Game cancelled - not enough players")
		e.broadcaster.RoundState(fresh)
		return nil
	}

	winner := round.Participants[rand.Intn(len(round.Participants))]
	pool := int64(len(round.Participants)) * e.store.EntryFee()
	prize := pool * payoutPercent / 100

	game := &models.CompletedGame{
		ID:           round.ID,
		Participants: round.Participants,
		WinnerID:     winner.UserID,
		WinnerName:   winner.Username,
		WinnerEmoji:  winner.Emoji,
		Pool:         pool,
		Prize:        prize,
		PlatformFee:  pool - prize,
		CreatedAt:    time.Now(),
	}

	winnerBalance, err := e.store.SaveOutcome(ctx, game)
	if err != nil {
		if !errors.Is(err, ErrAlreadyResolved) {
			return err
		}
		logger.Warnf("round %s already resolved, skipping payout", round.ID)
	} else {
		logger.Infof("round %s won by %s: pool=%d prize=%d fee=%d",
			round.ID, winner.Username, pool, prize, pool-prize)
		e.broadcaster.ShowWheel()
		e.broadcaster.WinnerSelected(winner, prize, winnerBalance)
		e.broadcaster.GameEnd(winner.Username, prize)
	}

	phase := models.PhaseBreak
	updated, err := e.store.Update(ctx, RoundPatch{Phase: &phase})
	if err != nil {
		return err
	}
	e.broadcaster.BreakStarted(updated.BreakTimer)
	e.broadcaster.RoundState(updated)
	return nil
}

// Join admits a participant to the current round. The rate limiter gates
// the attempt; the store re-validates phase, duplicate, and balance
// against the freshest durable state at mutation time.
func (e *Engine) Join(ctx context.Context, userID string) (*models.Round, models.Participant, error) {
	if e.limiter != nil && !e.limiter.Allow(ctx, userID, ActionJoin) {
		return nil, models.Participant{}, ErrRateLimited
	}

	round, participant, err := e.store.Join(ctx, userID)
	if err != nil {
		return nil, models.Participant{}, err
	}

	logger.Infof("user %s joined round %s (%d players)",
		participant.Username, round.ID, len(round.Participants))
	e.broadcaster.PlayerJoined(round, participant)
	return round, participant, nil
}

// CurrentRound returns the live round for snapshot pushes.
func (e *Engine) CurrentRound(ctx context.Context) (*models.Round, error) {
	return e.store.Get(ctx)
}
