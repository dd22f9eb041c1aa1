package models

import (
	"time"
)

type ChallengeCategory string

const (
	CategorySteps    ChallengeCategory = "Steps"
	CategoryDistance ChallengeCategory = "Distance"
	CategoryTime     ChallengeCategory = "Time"
)

type ChallengeType string

const (
	TypeIndividual ChallengeType = "Individual"
	TypeGroup      ChallengeType = "Group"
	TypeFriends    ChallengeType = "Friends"
)

type ChallengeDifficulty string

const (
	DifficultyEasy   ChallengeDifficulty = "Easy"
	DifficultyMedium ChallengeDifficulty = "Medium"
	DifficultyHard   ChallengeDifficulty = "Hard"
)

// Challenge is a time-boxed goal definition. Structural fields (category,
// goal, dates, type) are immutable once someone has enrolled; challenges with
// participants are deactivated, never deleted.
type Challenge struct {
	ID           string              `json:"id" gorm:"primaryKey;type:uuid"`
	Title        string              `json:"title" gorm:"not null"`
	Slug         string              `json:"slug" gorm:"uniqueIndex;not null"`
	Description  string              `json:"description" gorm:"type:text"`
	Category     ChallengeCategory   `json:"category" gorm:"not null"`
	Type         ChallengeType       `json:"type" gorm:"not null"`
	Difficulty   ChallengeDifficulty `json:"difficulty" gorm:"default:'Easy'"`
	Goal         int64               `json:"goal" gorm:"not null"`
	DurationDays int                 `json:"duration_days" gorm:"not null"`
	StartDate    time.Time           `json:"start_date" gorm:"not null;index"`
	EndDate      time.Time           `json:"end_date" gorm:"not null;index"`

	MaxParticipants int    `json:"max_participants" gorm:"default:0"` // 0 = unlimited
	IsActive        bool   `json:"is_active" gorm:"default:true"`
	IsFeatured      bool   `json:"is_featured" gorm:"default:false"`
	CreatedBy       string `json:"created_by,omitempty"`

	// Calculated fields (not stored in DB)
	ParticipantCount int64 `json:"participant_count,omitempty" gorm:"-"`

	Timestamps
}

// IsCumulative reports whether progress is measured as a running total since
// baseline rather than as discrete daily contributions. Long-running and group
// challenges are cumulative; short sprints reset daily.
func (c *Challenge) IsCumulative() bool {
	return c.DurationDays > 7 || c.Type == TypeGroup
}

// CoversDate reports whether date falls inside the challenge window.
func (c *Challenge) CoversDate(date time.Time) bool {
	d := DateOnly(date)
	return !d.Before(DateOnly(c.StartDate)) && !d.After(DateOnly(c.EndDate))
}

// HasEnded reports whether the challenge window has closed.
func (c *Challenge) HasEnded(now time.Time) bool {
	return c.EndDate.Before(now)
}
