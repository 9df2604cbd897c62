package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/bryanchriswhite/DonaldSwap/internal/state"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewRepository(db)
}

func TestRecordAndRecent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	events := []state.SwapEvent{
		{At: base, ToGame: "Celeste", ToExe: "Celeste.exe"},
		{At: base.Add(5 * time.Minute), FromGame: "Celeste", ToGame: "Hades", ToExe: "Hades.exe", DurationSeconds: 300},
		{At: base.Add(12 * time.Minute), FromGame: "Hades", ToGame: "Celeste", ToExe: "Celeste.exe", DurationSeconds: 420},
	}
	for _, ev := range events {
		if err := repo.Record(ctx, ev); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	recent, err := repo.Recent(2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("len(recent) = %d, want 2", len(recent))
	}
	if recent[0].FromGame != "Hades" || recent[1].FromGame != "Celeste" {
		t.Errorf("recent not newest first: %+v", recent)
	}
}

func TestTotals(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	events := []state.SwapEvent{
		{At: base.Add(-48 * time.Hour), FromGame: "Hades", ToGame: "Celeste", DurationSeconds: 9999},
		{At: base, ToGame: "Celeste"},
		{At: base.Add(time.Minute), FromGame: "Celeste", ToGame: "Hades", DurationSeconds: 60},
		{At: base.Add(3 * time.Minute), FromGame: "Hades", ToGame: "Celeste", DurationSeconds: 120},
		{At: base.Add(8 * time.Minute), FromGame: "Celeste", ToGame: "Hades", DurationSeconds: 300},
	}
	for _, ev := range events {
		if err := repo.Record(ctx, ev); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	totals, err := repo.Totals(base.Add(-time.Hour))
	if err != nil {
		t.Fatalf("Totals: %v", err)
	}

	want := []GameTotal{
		{GameName: "Celeste", TotalSeconds: 360, Sessions: 2},
		{GameName: "Hades", TotalSeconds: 120, Sessions: 1},
	}
	if len(totals) != len(want) {
		t.Fatalf("totals = %+v, want %+v", totals, want)
	}
	for i := range want {
		if totals[i] != want[i] {
			t.Errorf("totals[%d] = %+v, want %+v", i, totals[i], want[i])
		}
	}
}

func TestPrune(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		ev := state.SwapEvent{At: base.Add(time.Duration(i) * 24 * time.Hour), FromGame: "A", ToGame: "B"}
		if err := repo.Record(ctx, ev); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	n, err := repo.Prune(base.Add(36 * time.Hour))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n != 2 {
		t.Errorf("pruned %d, want 2", n)
	}
	recent, _ := repo.Recent(10)
	if len(recent) != 2 {
		t.Errorf("remaining = %d, want 2", len(recent))
	}
}
