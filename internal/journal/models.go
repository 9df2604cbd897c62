package journal

import (
	"time"
)

// SwapRecord is one committed swap. FromGame is empty for the first swap of a session.
type SwapRecord struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	At              time.Time `gorm:"not null;index" json:"at"`
	FromGame        string    `gorm:"not null;index" json:"from_game"`
	ToGame          string    `gorm:"not null" json:"to_game"`
	ToExe           string    `gorm:"not null" json:"to_exe"`
	DurationSeconds int64     `gorm:"not null;default:0" json:"duration_seconds"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// GameTotal is the time a game held focus, summed over the journal.
type GameTotal struct {
	GameName     string `json:"game_name"`
	TotalSeconds int64  `json:"total_seconds"`
	Sessions     int64  `json:"sessions"`
}
