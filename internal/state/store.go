package state

import (
	"context"
	"sync"
	"time"
)

const defaultSubscriberBuffer = 16

// Store owns the single SwapState. All mutation goes through Update, which applies the
// change and publishes the result while holding the lock, so subscribers observe updates
// in commit order and never see a partial write. The lock is only ever held for in-memory
// work; publishing never blocks on a slow subscriber.
type Store struct {
	mu          sync.Mutex
	state       SwapState
	now         func() time.Time
	bufferSize  int
	subscribers map[<-chan SwapState]chan SwapState
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithSubscriberBuffer sets the per-subscriber queue length.
func WithSubscriberBuffer(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.bufferSize = n
		}
	}
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		now:         time.Now,
		bufferSize:  defaultSubscriberBuffer,
		subscribers: make(map[<-chan SwapState]chan SwapState),
		state: SwapState{
			History:    []HistoryItem{},
			TotalTimes: map[string]int64{},
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Read returns a snapshot with derived fields computed against the current clock.
func (s *Store) Read() SwapState {
	s.mu.Lock()
	snap := s.state.Clone()
	s.mu.Unlock()

	snap.derive(s.now())
	return snap
}

// Update applies fn under exclusive access, recomputes derived fields and publishes the
// result to every subscriber. fn must not block.
func (s *Store) Update(fn func(*SwapState)) SwapState {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn(&s.state)
	s.state.derive(s.now())

	snap := s.state.Clone()
	s.publishLocked(snap)
	return snap
}

// Pause stops the scheduler from swapping and clears the pending swap time.
func (s *Store) Pause() SwapState {
	return s.Update(func(st *SwapState) {
		st.IsPaused = true
		st.NextSwapAt = nil
	})
}

// Resume re-enables swapping.
func (s *Store) Resume() SwapState {
	return s.Update(func(st *SwapState) {
		st.IsPaused = false
	})
}

// IsPaused reports the pause flag without building a full snapshot.
func (s *Store) IsPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.IsPaused
}

// Subscribe returns a channel receiving every published snapshot. When the subscriber
// falls behind, the oldest queued snapshot is dropped.
func (s *Store) Subscribe() <-chan SwapState {
	ch := make(chan SwapState, s.bufferSize)

	s.mu.Lock()
	s.subscribers[ch] = ch
	s.mu.Unlock()

	return ch
}

// Unsubscribe removes and closes a channel returned by Subscribe.
func (s *Store) Unsubscribe(ch <-chan SwapState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sub, ok := s.subscribers[ch]; ok {
		delete(s.subscribers, ch)
		close(sub)
	}
}

// Publish re-broadcasts the current state with freshly derived fields.
func (s *Store) Publish() {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.state.Clone()
	snap.derive(s.now())
	s.publishLocked(snap)
}

// RunTicker publishes every interval until ctx is done, keeping countdowns on
// dashboards live between swaps.
func (s *Store) RunTicker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Publish()
		}
	}
}

func (s *Store) publishLocked(snap SwapState) {
	for _, sub := range s.subscribers {
		select {
		case sub <- snap.Clone():
			continue
		default:
		}

		// Full: drop the oldest queued snapshot and retry once.
		select {
		case <-sub:
		default:
		}
		select {
		case sub <- snap.Clone():
		default:
		}
	}
}
