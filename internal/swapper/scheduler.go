// Package swapper rotates foreground focus between configured games on a randomized timer.
package swapper

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/bryanchriswhite/DonaldSwap/internal/config"
	"github.com/bryanchriswhite/DonaldSwap/internal/logger"
	"github.com/bryanchriswhite/DonaldSwap/internal/state"
	"github.com/bryanchriswhite/DonaldSwap/internal/window"
)

const (
	// DefaultSettleDelay gives the OS time to finish restore/animate transitions.
	DefaultSettleDelay = 100 * time.Millisecond

	// idlePoll is how often the loop re-checks while paused or with auto-swap disabled.
	idlePoll = time.Second
)

// ErrNoGamesConfigured is returned by PerformSwap when no game is enabled.
var ErrNoGamesConfigured = errors.New("no enabled games configured")

// ConfigSource provides the rotation settings. It is read once per cycle.
type ConfigSource interface {
	Snapshot() config.Snapshot
}

// WindowFinder resolves a game's executable to a live window.
type WindowFinder interface {
	Enumerate() ([]window.Handle, error)
	FindByExe(exe string) (window.Handle, bool)
}

// Focuser moves foreground focus onto a window, retrying as needed.
type Focuser interface {
	Acquire(ctx context.Context, h window.Handle) error
}

// SceneSwitcher changes the broadcast scene after a swap.
type SceneSwitcher interface {
	SwitchTo(ctx context.Context, scene string) error
}

// Recorder persists committed swaps.
type Recorder interface {
	Record(ctx context.Context, ev state.SwapEvent) error
}

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Scheduler drives the rotation. Run owns the timer loop; ForceSwap may be called from any
// goroutine at the same time.
type Scheduler struct {
	config  ConfigSource
	store   *state.Store
	windows WindowFinder
	focus   Focuser
	keys    window.KeySender

	scenes   SceneSwitcher
	recorder Recorder

	now    func() time.Time
	sleep  SleepFunc
	settle time.Duration

	rngMu sync.Mutex
	rng   *rand.Rand

	// swapMu serializes whole swaps, from selection to commit.
	swapMu sync.Mutex
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithSceneSwitcher enables per-game scene changes.
func WithSceneSwitcher(sw SceneSwitcher) Option {
	return func(s *Scheduler) {
		s.scenes = sw
	}
}

// WithRecorder enables the swap journal.
func WithRecorder(r Recorder) Option {
	return func(s *Scheduler) {
		s.recorder = r
	}
}

// WithRand sets the random source used for delays and game selection.
func WithRand(rng *rand.Rand) Option {
	return func(s *Scheduler) {
		s.rng = rng
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

// WithSleep overrides the sleep used for the swap interval, idle polling and settle delays.
func WithSleep(sleep SleepFunc) Option {
	return func(s *Scheduler) {
		s.sleep = sleep
	}
}

// WithSettleDelay overrides DefaultSettleDelay.
func WithSettleDelay(d time.Duration) Option {
	return func(s *Scheduler) {
		s.settle = d
	}
}

// New creates a Scheduler.
func New(cfg ConfigSource, store *state.Store, windows WindowFinder, focus Focuser, keys window.KeySender, opts ...Option) *Scheduler {
	s := &Scheduler{
		config:  cfg,
		store:   store,
		windows: windows,
		focus:   focus,
		keys:    keys,
		now:     time.Now,
		sleep:   sleepContext,
		settle:  DefaultSettleDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return s
}

// Run loops until ctx is cancelled: wait a random interval, then swap. A failed swap is
// logged and the loop carries on.
func (s *Scheduler) Run(ctx context.Context) {
	log := logger.WithComponent("swapper")
	log.Info().Msg("Scheduler started")
	defer log.Info().Msg("Scheduler stopped")

	for {
		if ctx.Err() != nil {
			return
		}

		if s.store.IsPaused() {
			s.clearNextSwap()
			if s.sleep(ctx, idlePoll) != nil {
				return
			}
			continue
		}

		rotation := s.config.Snapshot().Rotation
		if !rotation.AutoSwapEnabled {
			s.clearNextSwap()
			if s.sleep(ctx, idlePoll) != nil {
				return
			}
			continue
		}

		delay := s.pickDelay(rotation.MinSwapInterval, rotation.MaxSwapInterval)
		next := s.now().Add(delay)
		s.store.Update(func(st *state.SwapState) {
			st.NextSwapAt = &next
		})
		log.Debug().Dur("delay", delay).Time("next_swap_at", next).Msg("Next swap scheduled")

		if s.sleep(ctx, delay) != nil {
			return
		}

		if s.store.IsPaused() {
			log.Debug().Msg("Paused during wait, skipping swap")
			continue
		}

		if _, err := s.PerformSwap(ctx); err != nil {
			if errors.Is(err, ErrNoGamesConfigured) {
				log.Warn().Err(err).Msg("Nothing to swap to")
			} else if ctx.Err() == nil {
				log.Error().Err(err).Msg("Swap failed")
			}
		}
	}
}

// ForceSwap swaps immediately, independent of the timer.
func (s *Scheduler) ForceSwap(ctx context.Context) (state.SwapState, error) {
	logger.WithComponent("swapper").Info().Msg("Forced swap requested")
	return s.PerformSwap(ctx)
}

// PerformSwap picks the next game, focuses it and commits the rotation state. It returns
// the resulting state. Only ErrNoGamesConfigured and focus failures are reported as errors;
// side effects (ESC keys, journal, scene change) are best-effort. If the chosen window is
// gone by the time it is located, the swap is abandoned without error.
func (s *Scheduler) PerformSwap(ctx context.Context) (state.SwapState, error) {
	st, ev, scene, err := s.swap(ctx)
	if err != nil || ev == nil {
		return st, err
	}

	// Side effects run outside swapMu.
	log := logger.WithComponent("swapper")
	if s.recorder != nil {
		if err := s.recorder.Record(ctx, *ev); err != nil {
			log.Warn().Err(err).Msg("Failed to record swap")
		}
	}
	if scene != "" && s.scenes != nil {
		if err := s.scenes.SwitchTo(ctx, scene); err != nil {
			log.Warn().Err(err).Str("scene", scene).Msg("Failed to switch OBS scene")
		}
	}
	return st, nil
}

// swap runs selection through commit under swapMu. A nil event means nothing was committed.
func (s *Scheduler) swap(ctx context.Context) (state.SwapState, *state.SwapEvent, string, error) {
	s.swapMu.Lock()
	defer s.swapMu.Unlock()

	log := logger.WithComponent("swapper")

	snap := s.config.Snapshot()
	enabled := snap.EnabledGames()
	if len(enabled) == 0 {
		return s.store.Read(), nil, "", ErrNoGamesConfigured
	}

	current := s.store.Read()
	target := s.selectNext(enabled, current.CurrentExe)
	log.Info().Str("game", target.Name()).Str("exe", target.ExeName).Msg("Swapping")

	if current.CurrentExe != "" {
		if prev, ok := snap.FindGame(current.CurrentExe); ok && prev.SendEscOnLeave {
			s.sendEscape("leave", prev)
		}
	}

	if err := s.sleep(ctx, s.settle); err != nil {
		return current, nil, "", err
	}

	h, ok := s.windows.FindByExe(target.ExeName)
	if !ok {
		log.Warn().Str("exe", target.ExeName).Msg("Game window not found, skipping swap")
		return s.store.Read(), nil, "", nil
	}

	if err := s.focus.Acquire(ctx, h); err != nil {
		return s.store.Read(), nil, "", fmt.Errorf("swap to %s: %w", target.Name(), err)
	}

	if err := s.sleep(ctx, s.settle); err != nil {
		// Focus already moved; commit anyway so the state matches the screen.
		log.Debug().Err(err).Msg("Settle interrupted")
	} else if target.SendEscOnEnter {
		s.sendEscape("enter", target)
	}

	at := s.now()
	var ev state.SwapEvent
	committed := s.store.Update(func(st *state.SwapState) {
		item, _ := st.ApplySwap(target.Name(), target.ExeName, at)
		ev = state.SwapEvent{
			At:              at,
			FromGame:        item.GameName,
			ToGame:          target.Name(),
			ToExe:           target.ExeName,
			DurationSeconds: item.DurationSeconds,
		}
	})
	log.Info().
		Str("game", target.Name()).
		Uint64("swap_count", committed.SwapCount).
		Msg("Swap complete")

	return committed, &ev, target.OBSScene, nil
}

// selectNext picks uniformly among enabled games other than currentExe that have a live
// window. With no such candidate it falls back to the first enabled game. Liveness comes
// from a single enumeration.
func (s *Scheduler) selectNext(enabled []config.GameEntry, currentExe string) config.GameEntry {
	log := logger.WithComponent("swapper")

	live, err := s.windows.Enumerate()
	if err != nil {
		log.Warn().Err(err).Msg("Window enumeration failed")
	}

	candidates := make([]config.GameEntry, 0, len(enabled))
	for _, g := range enabled {
		if currentExe != "" && g.Matches(currentExe) {
			continue
		}
		if !hasWindow(live, g) {
			continue
		}
		candidates = append(candidates, g)
	}

	if len(candidates) == 0 {
		log.Debug().
			Str("fallback", enabled[0].ExeName).
			Msg("No live candidates, falling back to first enabled game")
		return enabled[0]
	}

	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return candidates[s.rng.IntN(len(candidates))]
}

func hasWindow(live []window.Handle, g config.GameEntry) bool {
	for _, h := range live {
		if g.Matches(h.ExeName) {
			return true
		}
	}
	return false
}

func (s *Scheduler) pickDelay(min, max time.Duration) time.Duration {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return PickDelay(min, max, s.rng)
}

func (s *Scheduler) sendEscape(phase string, game config.GameEntry) {
	log := logger.WithComponent("swapper")
	log.Debug().Str("phase", phase).Str("game", game.Name()).Msg("Sending ESC")
	if err := s.keys.SendEscape(); err != nil {
		log.Warn().Err(err).Str("phase", phase).Str("game", game.Name()).Msg("Failed to send ESC")
	}
}

func (s *Scheduler) clearNextSwap() {
	if s.store.Read().NextSwapAt == nil {
		return
	}
	s.store.Update(func(st *state.SwapState) {
		st.NextSwapAt = nil
	})
}

// PickDelay returns a uniformly random whole number of seconds in [min, max]. If min is not
// below max, it returns max.
func PickDelay(min, max time.Duration, rng *rand.Rand) time.Duration {
	lo := int64(min / time.Second)
	hi := int64(max / time.Second)
	if lo >= hi {
		return time.Duration(hi) * time.Second
	}
	return time.Duration(lo+rng.Int64N(hi-lo+1)) * time.Second
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
