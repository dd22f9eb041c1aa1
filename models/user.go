package models

// User is the local participant record the progress pipeline reads and
// maintains: running lifetime counters (fed by health ingestion) and the
// points/experience balances the rewards ledger credits into.
type User struct {
	ID          string `json:"id" gorm:"primaryKey;type:uuid"`
	DisplayName string `json:"display_name" gorm:"index;not null"`
	Email       string `json:"email,omitempty"`

	// Lifetime counters, advanced on every health sync. These are the
	// fallback baseline source when no per-day history exists.
	TotalSteps    int64 `json:"total_steps" gorm:"default:0"`
	TotalDistance int64 `json:"total_distance" gorm:"default:0"` // meters

	Points     int   `json:"points" gorm:"default:0"`
	Experience int64 `json:"experience" gorm:"default:0"`
	Level      int   `json:"level" gorm:"default:1"`

	Timestamps
}
