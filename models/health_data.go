package models

import (
	"time"
)

// HealthData is one synced day of device metrics for one user (unique on the
// pair). The progress pipeline reads it but never writes it back.
type HealthData struct {
	ID     string    `json:"id" gorm:"primaryKey;type:uuid"`
	UserID string    `json:"user_id" gorm:"not null;uniqueIndex:idx_user_date;index"`
	Date   time.Time `json:"date" gorm:"not null;uniqueIndex:idx_user_date"`

	Steps         int64 `json:"steps" gorm:"default:0"`
	Distance      int64 `json:"distance" gorm:"default:0"` // meters
	ActiveMinutes int   `json:"active_minutes" gorm:"default:0"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
