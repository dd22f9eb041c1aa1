package services

import (
	"errors"
	"fmt"
	"time"

	"fitness-challenge-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// HealthService ingests daily device samples: one row per (user, date),
// overwritten on resync, with the user's lifetime counters adjusted by the
// delta so corrected backfills keep the totals honest.
type HealthService struct {
	DB *gorm.DB
}

func NewHealthService(db *gorm.DB) *HealthService {
	return &HealthService{DB: db}
}

// RecordSample upserts the day's sample and returns the stored row. The
// progress fan-out happens outside, via the event worker, so ingestion stays
// fast and per-user ordering is preserved.
func (s *HealthService) RecordSample(userID string, date time.Time, steps, distance int64, activeMinutes int) (*models.HealthData, error) {
	date = models.DateOnly(date)

	var stored models.HealthData
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Where("id = ?", userID).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		var prevSteps, prevDistance int64
		var existing models.HealthData
		err := tx.Where("user_id = ? AND date = ?", userID, date).First(&existing).Error
		switch {
		case err == nil:
			prevSteps, prevDistance = existing.Steps, existing.Distance
			existing.Steps = steps
			existing.Distance = distance
			existing.ActiveMinutes = activeMinutes
			if err := tx.Save(&existing).Error; err != nil {
				return err
			}
			stored = existing
		case errors.Is(err, gorm.ErrRecordNotFound):
			stored = models.HealthData{
				ID:            uuid.NewString(),
				UserID:        userID,
				Date:          date,
				Steps:         steps,
				Distance:      distance,
				ActiveMinutes: activeMinutes,
			}
			if err := tx.Create(&stored).Error; err != nil {
				return err
			}
		default:
			return err
		}

		// Lifetime counters move by the day's delta, so a corrected resync
		// replaces rather than double-counts.
		return tx.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
			"total_steps":    gorm.Expr("total_steps + ?", steps-prevSteps),
			"total_distance": gorm.Expr("total_distance + ?", distance-prevDistance),
		}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("recording sample for user %s on %s: %w", userID, date.Format("2006-01-02"), err)
	}
	return &stored, nil
}

// SamplesInRange returns the user's stored samples over [startDate, endDate],
// oldest first.
func (s *HealthService) SamplesInRange(userID string, startDate, endDate time.Time) ([]models.HealthData, error) {
	var samples []models.HealthData
	err := s.DB.Where("user_id = ? AND date >= ? AND date <= ?",
		userID, models.DateOnly(startDate), models.DateOnly(endDate)).
		Order("date ASC").
		Find(&samples).Error
	return samples, err
}
