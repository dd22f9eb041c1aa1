package models

import (
	"time"
)

// ChallengeProgress is the per-enrollment, per-date unit of aggregation. One
// row per (enrollment, date); reprocessing a date overwrites the same row,
// which is what makes sample redelivery idempotent.
type ChallengeProgress struct {
	ID              string    `json:"id" gorm:"primaryKey;type:uuid"`
	UserChallengeID string    `json:"user_challenge_id" gorm:"not null;uniqueIndex:idx_enrollment_date;index"`
	Date            time.Time `json:"date" gorm:"not null;uniqueIndex:idx_enrollment_date"`

	// DailyValue is the day's baseline-adjusted contribution. For cumulative
	// challenges it is the running total since baseline as of Date; for
	// periodic challenges it is the day's own delta.
	DailyValue int64   `json:"daily_value" gorm:"default:0"`
	Percentage float64 `json:"percentage" gorm:"default:0"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
