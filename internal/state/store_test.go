package state

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)}
}

func TestApplySwap_FirstSwapHasNoHistory(t *testing.T) {
	var st SwapState
	now := time.Now()

	if _, added := st.ApplySwap("A", "a.exe", now); added {
		t.Error("first swap should not produce a history entry")
	}
	if st.SwapCount != 1 || st.CurrentGame != "A" || st.CurrentExe != "a.exe" {
		t.Errorf("unexpected state: %+v", st)
	}
	if st.LastSwapAt == nil || !st.LastSwapAt.Equal(now) {
		t.Errorf("LastSwapAt = %v, want %v", st.LastSwapAt, now)
	}
}

func TestApplySwap_HistoryBoundedNewestFirst(t *testing.T) {
	var st SwapState
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 15; i++ {
		st.ApplySwap(fmt.Sprintf("G%d", i), fmt.Sprintf("g%d.exe", i), start.Add(time.Duration(i)*time.Minute))
	}

	if len(st.History) != MaxHistory {
		t.Fatalf("len(History) = %d, want %d", len(st.History), MaxHistory)
	}
	// The newest entry is the game that was left by the last swap.
	if st.History[0].GameName != "G13" {
		t.Errorf("History[0] = %s, want G13", st.History[0].GameName)
	}
	if st.History[MaxHistory-1].GameName != "G4" {
		t.Errorf("History[last] = %s, want G4", st.History[MaxHistory-1].GameName)
	}
	for _, h := range st.History {
		if h.DurationSeconds != 60 {
			t.Errorf("%s duration = %d, want 60", h.GameName, h.DurationSeconds)
		}
	}
	if st.SwapCount != 15 {
		t.Errorf("SwapCount = %d, want 15", st.SwapCount)
	}
}

func TestApplySwap_ClampsNegativeDurationAndTotals(t *testing.T) {
	var st SwapState
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	st.ApplySwap("A", "a.exe", now)
	item, added := st.ApplySwap("B", "b.exe", now.Add(-time.Hour))
	if !added || item.DurationSeconds != 0 {
		t.Errorf("item = %+v, want clamped 0", item)
	}

	st.ApplySwap("A", "a.exe", now.Add(30*time.Second))
	st.ApplySwap("B", "b.exe", now.Add(90*time.Second))
	if st.TotalTimes["A"] != 60 {
		t.Errorf("TotalTimes[A] = %d, want 60", st.TotalTimes["A"])
	}
}

func TestStore_ReadDerivesFromClock(t *testing.T) {
	clock := newClock()
	s := NewStore(WithClock(clock.Now))

	s.Update(func(st *SwapState) {
		st.ApplySwap("A", "a.exe", clock.Now())
		next := clock.Now().Add(2 * time.Minute)
		st.NextSwapAt = &next
	})

	clock.Advance(30 * time.Second)
	snap := s.Read()
	if snap.SecondsSinceLastSwap == nil || *snap.SecondsSinceLastSwap != 30 {
		t.Errorf("SecondsSinceLastSwap = %v, want 30", snap.SecondsSinceLastSwap)
	}
	if snap.SecondsUntilNextSwap == nil || *snap.SecondsUntilNextSwap != 90 {
		t.Errorf("SecondsUntilNextSwap = %v, want 90", snap.SecondsUntilNextSwap)
	}

	clock.Advance(30 * time.Second)
	if again := s.Read(); *again.SecondsSinceLastSwap != 60 {
		t.Errorf("derived field went stale: %d", *again.SecondsSinceLastSwap)
	}
}

func TestStore_ReadIsACopy(t *testing.T) {
	s := NewStore()
	s.Update(func(st *SwapState) {
		st.ApplySwap("A", "a.exe", time.Now())
		st.ApplySwap("B", "b.exe", time.Now())
	})

	snap := s.Read()
	snap.History[0].GameName = "mutated"
	snap.TotalTimes["A"] = 999

	again := s.Read()
	if again.History[0].GameName != "A" || again.TotalTimes["A"] == 999 {
		t.Errorf("Read() leaked internal state: %+v", again)
	}
}

func TestStore_PauseClearsNextSwap(t *testing.T) {
	s := NewStore()
	s.Update(func(st *SwapState) {
		next := time.Now().Add(time.Minute)
		st.NextSwapAt = &next
	})

	snap := s.Pause()
	if !snap.IsPaused || snap.NextSwapAt != nil || snap.SecondsUntilNextSwap != nil {
		t.Errorf("Pause() = %+v", snap)
	}
	if !s.IsPaused() {
		t.Error("IsPaused() = false after Pause")
	}
	if s.Resume().IsPaused {
		t.Error("Resume() left state paused")
	}
}

func TestStore_SubscribeReceivesUpdates(t *testing.T) {
	s := NewStore()
	ch := s.Subscribe()
	defer s.Unsubscribe(ch)

	s.Update(func(st *SwapState) { st.ApplySwap("A", "a.exe", time.Now()) })

	select {
	case snap := <-ch:
		if snap.CurrentGame != "A" || snap.SwapCount != 1 {
			t.Errorf("published snapshot = %+v", snap)
		}
	case <-time.After(time.Second):
		t.Fatal("no snapshot published")
	}
}

func TestStore_SlowSubscriberDropsOldest(t *testing.T) {
	s := NewStore(WithSubscriberBuffer(2))
	slow := s.Subscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			s.Update(func(st *SwapState) { st.SwapCount++ })
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publisher blocked on a slow subscriber")
	}

	first := <-slow
	second := <-slow
	if first.SwapCount != 4 || second.SwapCount != 5 {
		t.Errorf("queued counts = %d, %d, want 4, 5", first.SwapCount, second.SwapCount)
	}
}

func TestStore_UnsubscribeClosesChannel(t *testing.T) {
	s := NewStore()
	ch := s.Subscribe()
	s.Unsubscribe(ch)
	s.Unsubscribe(ch)

	if _, ok := <-ch; ok {
		t.Error("channel still open after Unsubscribe")
	}
	s.Update(func(st *SwapState) { st.SwapCount++ })
}

func TestStore_ConcurrentUpdatesNoLostIncrements(t *testing.T) {
	s := NewStore()
	ch := s.Subscribe()
	defer s.Unsubscribe(ch)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			s.Update(func(st *SwapState) {
				st.ApplySwap(fmt.Sprintf("G%d", n), "g.exe", time.Now())
			})
		}(i)
		go func() {
			defer wg.Done()
			snap := s.Read()
			if len(snap.History) > MaxHistory {
				t.Errorf("len(History) = %d", len(snap.History))
			}
		}()
	}
	wg.Wait()

	if got := s.Read().SwapCount; got != 50 {
		t.Errorf("SwapCount = %d, want 50", got)
	}
}

func TestStore_RunTickerPublishes(t *testing.T) {
	s := NewStore()
	ch := s.Subscribe()
	defer s.Unsubscribe(ch)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.RunTicker(ctx, 5*time.Millisecond)
		close(done)
	}()

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("ticker never published")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunTicker did not stop on cancel")
	}
}
