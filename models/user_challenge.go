package models

import (
	"time"
)

// UserChallenge is one user's enrollment in one challenge (unique on the
// pair). Baseline fields are frozen right after join; aggregate fields are
// recomputed by the progress service; Rank is owned by the ranking engine and
// stays nil until it has run at least once.
type UserChallenge struct {
	ID          string `json:"id" gorm:"primaryKey;type:uuid"`
	UserID      string `json:"user_id" gorm:"not null;uniqueIndex:idx_user_challenge;index"`
	ChallengeID string `json:"challenge_id" gorm:"not null;uniqueIndex:idx_user_challenge;index"`

	CurrentProgress      int64      `json:"current_progress" gorm:"default:0"`
	CompletionPercentage float64    `json:"completion_percentage" gorm:"default:0"`
	IsCompleted          bool       `json:"is_completed" gorm:"default:false"`
	CompletedAt          *time.Time `json:"completed_at,omitempty"`
	Rank                 *int       `json:"rank,omitempty"`
	PointsEarned         int        `json:"points_earned" gorm:"default:0"`
	JoinedAt             time.Time  `json:"joined_at" gorm:"autoCreateTime"`

	// Baseline tracking. BaselineDate nil means capture failed or has not run;
	// such an enrollment is not progressable until a recapture.
	BaselineDate          *time.Time `json:"baseline_date,omitempty"`
	BaselineSteps         int64      `json:"baseline_steps" gorm:"default:0"`
	BaselineDistance      int64      `json:"baseline_distance" gorm:"default:0"`
	BaselineActiveMinutes int        `json:"baseline_active_minutes" gorm:"default:0"`
	BaselineTotalSteps    int64      `json:"baseline_total_steps" gorm:"default:0"`
	BaselineTotalDistance int64      `json:"baseline_total_distance" gorm:"default:0"`

	// Relationships
	Challenge Challenge           `json:"challenge,omitempty" gorm:"foreignKey:ChallengeID"`
	Progress  []ChallengeProgress `json:"progress,omitempty" gorm:"foreignKey:UserChallengeID"`

	Timestamps
}

// HasBaseline reports whether baseline capture succeeded for this enrollment.
func (uc *UserChallenge) HasBaseline() bool {
	return uc.BaselineDate != nil
}
