package models

import (
	"time"
)

type NotificationKind string

const (
	NotificationChallengeCompleted NotificationKind = "challenge_completed"
	NotificationChallengeJoined    NotificationKind = "challenge_joined"
)

// Notification is a recorded user notification. Delivery (push, email) is the
// job of an external gateway; this service only writes the rows.
type Notification struct {
	ID      string           `json:"id" gorm:"primaryKey;type:uuid"`
	UserID  string           `json:"user_id" gorm:"not null;index"`
	Kind    NotificationKind `json:"kind" gorm:"not null"`
	Title   string           `json:"title" gorm:"not null"`
	Message string           `json:"message" gorm:"type:text"`
	IsRead  bool             `json:"is_read" gorm:"default:false"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}
