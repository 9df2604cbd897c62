package journal

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/bryanchriswhite/DonaldSwap/internal/state"
)

// Repository reads and writes swap records.
type Repository struct {
	db *DB
}

// NewRepository creates a new repository instance
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// Record stores a committed swap.
func (r *Repository) Record(ctx context.Context, ev state.SwapEvent) error {
	rec := &SwapRecord{
		At:              ev.At.UTC(),
		FromGame:        ev.FromGame,
		ToGame:          ev.ToGame,
		ToExe:           ev.ToExe,
		DurationSeconds: ev.DurationSeconds,
	}
	if result := r.db.WithContext(ctx).Create(rec); result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert swap record")
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (r *Repository) Recent(limit int) ([]SwapRecord, error) {
	var records []SwapRecord
	result := r.db.Order("at DESC, id DESC").Limit(limit).Find(&records)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query swap records")
	}
	return records, nil
}

// Totals sums how long each game held focus in swaps since the given time, longest first.
func (r *Repository) Totals(since time.Time) ([]GameTotal, error) {
	var totals []GameTotal

	result := r.db.Model(&SwapRecord{}).
		Select("from_game as game_name, SUM(duration_seconds) as total_seconds, COUNT(*) as sessions").
		Where("at >= ? AND from_game <> ''", since.UTC()).
		Group("from_game").
		Order("total_seconds DESC").
		Scan(&totals)

	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query game totals")
	}
	return totals, nil
}

// Prune deletes records older than before and reports how many were removed.
func (r *Repository) Prune(before time.Time) (int64, error) {
	result := r.db.Where("at < ?", before.UTC()).Delete(&SwapRecord{})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to prune swap records")
	}
	return result.RowsAffected, nil
}
