package services

import (
	"errors"
	"fmt"
	"log"

	"fitness-challenge-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RewardsLedger credits points for a completed enrollment. Credit must be safe
// to call more than once with the same idempotency key.
type RewardsLedger interface {
	Credit(userID string, points int, source models.TransactionSource, sourceID, idempotencyKey string) error
}

// Notifier records a user-facing notification. Delivery is external.
type Notifier interface {
	Notify(userID string, kind models.NotificationKind, title, message string) error
}

// PointsLedger is the GORM-backed RewardsLedger. Deduplication rides on the
// unique index over points_transactions.idempotency_key: the insert uses
// ON CONFLICT DO NOTHING, and a dropped insert means the balance is untouched.
type PointsLedger struct {
	DB *gorm.DB
}

func NewPointsLedger(db *gorm.DB) *PointsLedger {
	return &PointsLedger{DB: db}
}

func (l *PointsLedger) Credit(userID string, points int, source models.TransactionSource, sourceID, idempotencyKey string) error {
	if points <= 0 {
		return fmt.Errorf("credit of %d points rejected for user %s", points, userID)
	}

	return l.DB.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Where("id = ?", userID).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		txn := models.PointsTransaction{
			ID:             uuid.NewString(),
			UserID:         userID,
			Points:         points,
			Source:         source,
			SourceID:       sourceID,
			IdempotencyKey: idempotencyKey,
			Description:    fmt.Sprintf("%s:%s", source, sourceID),
			BalanceAfter:   user.Points + points,
		}

		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "idempotency_key"}},
			DoNothing: true,
		}).Create(&txn)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Same key seen before: the earlier credit stands.
			log.Printf("[Ledger] Duplicate credit ignored (user=%s key=%s)", userID, idempotencyKey)
			return nil
		}

		return tx.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
			"points":     gorm.Expr("points + ?", points),
			"experience": gorm.Expr("experience + ?", points),
		}).Error
	})
}

// NotificationRecorder is the GORM-backed Notifier.
type NotificationRecorder struct {
	DB *gorm.DB
}

func NewNotificationRecorder(db *gorm.DB) *NotificationRecorder {
	return &NotificationRecorder{DB: db}
}

func (n *NotificationRecorder) Notify(userID string, kind models.NotificationKind, title, message string) error {
	return n.DB.Create(&models.Notification{
		ID:      uuid.NewString(),
		UserID:  userID,
		Kind:    kind,
		Title:   title,
		Message: message,
	}).Error
}
