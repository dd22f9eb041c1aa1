package models

import (
	"time"
)

type TransactionSource string

const (
	SourceChallenge TransactionSource = "challenge"
	SourceManual    TransactionSource = "manual"
)

// PointsTransaction is one ledger credit. IdempotencyKey carries the unique
// constraint that makes retried credits no-ops: a second insert with the same
// key conflicts and is dropped.
type PointsTransaction struct {
	ID             string            `json:"id" gorm:"primaryKey;type:uuid"`
	UserID         string            `json:"user_id" gorm:"not null;index"`
	Points         int               `json:"points" gorm:"not null"`
	Source         TransactionSource `json:"source" gorm:"not null"`
	SourceID       string            `json:"source_id,omitempty" gorm:"index"`
	IdempotencyKey string            `json:"idempotency_key" gorm:"uniqueIndex;not null"`
	Description    string            `json:"description,omitempty"`
	BalanceAfter   int               `json:"balance_after" gorm:"default:0"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}
