package state

import (
	"time"
)

// MaxHistory bounds SwapState.History.
const MaxHistory = 10

// HistoryItem records how long a game held focus before it was swapped away.
type HistoryItem struct {
	GameName        string `json:"game_name"`
	DurationSeconds int64  `json:"duration_seconds"`
}

// SwapState describes the rotation's progress. Time-derived fields are recomputed on every
// read and publish; they are never authoritative.
type SwapState struct {
	CurrentGame string     `json:"current_game,omitempty"`
	CurrentExe  string     `json:"current_exe,omitempty"`
	LastSwapAt  *time.Time `json:"last_swap_at"`
	NextSwapAt  *time.Time `json:"next_swap_at"`
	IsPaused    bool       `json:"is_paused"`
	SwapCount   uint64     `json:"swap_count"`

	SecondsSinceLastSwap *int64 `json:"time_since_swap_seconds"`
	SecondsUntilNextSwap *int64 `json:"time_until_swap_seconds"`

	// History is newest first.
	History    []HistoryItem    `json:"history"`
	TotalTimes map[string]int64 `json:"total_times"`
}

// Clone returns a deep copy.
func (s SwapState) Clone() SwapState {
	cp := s
	if s.LastSwapAt != nil {
		t := *s.LastSwapAt
		cp.LastSwapAt = &t
	}
	if s.NextSwapAt != nil {
		t := *s.NextSwapAt
		cp.NextSwapAt = &t
	}
	if s.SecondsSinceLastSwap != nil {
		v := *s.SecondsSinceLastSwap
		cp.SecondsSinceLastSwap = &v
	}
	if s.SecondsUntilNextSwap != nil {
		v := *s.SecondsUntilNextSwap
		cp.SecondsUntilNextSwap = &v
	}
	cp.History = make([]HistoryItem, len(s.History))
	copy(cp.History, s.History)
	cp.TotalTimes = make(map[string]int64, len(s.TotalTimes))
	for k, v := range s.TotalTimes {
		cp.TotalTimes[k] = v
	}
	return cp
}

func (s *SwapState) derive(now time.Time) {
	s.SecondsSinceLastSwap = nil
	s.SecondsUntilNextSwap = nil
	if s.LastSwapAt != nil {
		v := int64(now.Sub(*s.LastSwapAt) / time.Second)
		s.SecondsSinceLastSwap = &v
	}
	if s.NextSwapAt != nil {
		v := int64(s.NextSwapAt.Sub(now) / time.Second)
		s.SecondsUntilNextSwap = &v
	}
}

// ApplySwap moves focus bookkeeping to game/exe at time at. The outgoing game (if any) is
// prepended to History with its clamped duration and added to TotalTimes. SwapCount is
// incremented. It returns the history entry and whether one was produced.
func (s *SwapState) ApplySwap(game, exe string, at time.Time) (HistoryItem, bool) {
	var (
		item  HistoryItem
		added bool
	)

	if s.CurrentGame != "" {
		var duration int64
		if s.LastSwapAt != nil {
			duration = int64(at.Sub(*s.LastSwapAt) / time.Second)
		}
		if duration < 0 {
			duration = 0
		}
		item = HistoryItem{GameName: s.CurrentGame, DurationSeconds: duration}
		added = true

		history := make([]HistoryItem, 0, MaxHistory)
		history = append(history, item)
		history = append(history, s.History...)
		if len(history) > MaxHistory {
			history = history[:MaxHistory]
		}
		s.History = history

		if s.TotalTimes == nil {
			s.TotalTimes = make(map[string]int64)
		}
		s.TotalTimes[s.CurrentGame] += duration
	}

	s.CurrentGame = game
	s.CurrentExe = exe
	t := at
	s.LastSwapAt = &t
	s.SwapCount++

	return item, added
}

// SwapEvent describes one committed swap. FromGame is empty for the first swap.
type SwapEvent struct {
	At              time.Time
	FromGame        string
	ToGame          string
	ToExe           string
	DurationSeconds int64
}
