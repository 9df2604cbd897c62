package window

import (
	"context"
	"fmt"
	"time"

	"github.com/bryanchriswhite/DonaldSwap/internal/logger"
)

const (
	DefaultFocusAttempts = 5
	DefaultFocusBackoff  = 50 * time.Millisecond
)

// FocusAcquirer retries Focuser.TryFocus until the target holds foreground focus.
// Background processes lose focus races routinely, so a single attempt is not enough.
type FocusAcquirer struct {
	focuser  Focuser
	attempts int
	backoff  time.Duration
}

// NewFocusAcquirer uses DefaultFocusAttempts and DefaultFocusBackoff.
func NewFocusAcquirer(f Focuser) *FocusAcquirer {
	return &FocusAcquirer{
		focuser:  f,
		attempts: DefaultFocusAttempts,
		backoff:  DefaultFocusBackoff,
	}
}

// WithBackoff returns a copy using backoff between attempts.
func (a *FocusAcquirer) WithBackoff(backoff time.Duration) *FocusAcquirer {
	cp := *a
	cp.backoff = backoff
	return &cp
}

// Acquire makes up to the configured number of attempts, stopping at the first success.
// An attempt that errors counts as a failed attempt. Cancelling ctx abandons the retries.
func (a *FocusAcquirer) Acquire(ctx context.Context, h Handle) error {
	log := logger.WithComponent("focus")

	var lastErr error
	for attempt := 1; attempt <= a.attempts; attempt++ {
		ok, err := a.focuser.TryFocus(h)
		if err != nil {
			lastErr = err
			log.Debug().Err(err).Int("attempt", attempt).Str("exe", h.ExeName).Msg("Focus attempt errored")
		}
		if ok {
			log.Debug().Int("attempt", attempt).Str("exe", h.ExeName).Msg("Focus acquired")
			return nil
		}

		if attempt < a.attempts {
			if err := sleep(ctx, a.backoff); err != nil {
				return fmt.Errorf("focus %s: %w", h.ExeName, err)
			}
		}
	}

	if lastErr != nil {
		return fmt.Errorf("%w after %d attempts on %s: %v", ErrFocusUnobtainable, a.attempts, h.ExeName, lastErr)
	}
	return fmt.Errorf("%w after %d attempts on %s", ErrFocusUnobtainable, a.attempts, h.ExeName)
}

func sleep(ctx context.Context, d time.Duration) error {
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
