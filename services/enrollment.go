package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"fitness-challenge-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EnrollmentService owns the join/leave workflow and the read side of
// enrollments (leaderboard, stats).
type EnrollmentService struct {
	DB       *gorm.DB
	Catalog  *CatalogService
	Baseline *BaselineService
	Notifier Notifier
	now      func() time.Time
}

func NewEnrollmentService(db *gorm.DB, catalog *CatalogService, baseline *BaselineService, notifier Notifier) *EnrollmentService {
	return &EnrollmentService{
		DB:       db,
		Catalog:  catalog,
		Baseline: baseline,
		Notifier: notifier,
		now:      time.Now,
	}
}

// Join validates preconditions, creates the enrollment and captures its
// baseline. A baseline failure does not undo the join: the enrollment stays
// with a nil baseline, the updater skips it, and a recapture can repair it.
func (s *EnrollmentService) Join(userID, challengeID string) (*models.UserChallenge, error) {
	challenge, err := s.Catalog.Get(challengeID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if !challenge.IsActive {
		return nil, ErrChallengeInactive
	}
	if challenge.HasEnded(now) {
		return nil, ErrChallengeEnded
	}

	var existing int64
	if err := s.DB.Model(&models.UserChallenge{}).
		Where("user_id = ? AND challenge_id = ?", userID, challengeID).
		Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, ErrAlreadyEnrolled
	}

	if challenge.MaxParticipants > 0 {
		var participants int64
		if err := s.DB.Model(&models.UserChallenge{}).
			Where("challenge_id = ?", challengeID).
			Count(&participants).Error; err != nil {
			return nil, err
		}
		if participants >= int64(challenge.MaxParticipants) {
			return nil, ErrChallengeFull
		}
	}

	uc := models.UserChallenge{
		ID:          uuid.NewString(),
		UserID:      userID,
		ChallengeID: challengeID,
		JoinedAt:    now,
	}
	if err := s.DB.Create(&uc).Error; err != nil {
		return nil, fmt.Errorf("creating enrollment: %w", err)
	}

	// Baseline capture is not retried automatically; a failed capture leaves
	// the enrollment non-progressable until RecaptureBaseline runs.
	if _, err := s.Baseline.Capture(userID, challengeID); err != nil {
		log.Printf("[Enrollment] Baseline capture failed for user=%s challenge=%s: %v", userID, challengeID, err)
	}

	if s.Notifier != nil {
		if err := s.Notifier.Notify(userID, models.NotificationChallengeJoined,
			challenge.Title, "You've joined the challenge. Start tracking your progress!"); err != nil {
			log.Printf("[Enrollment] Join notification failed for user=%s: %v", userID, err)
		}
	}

	if err := s.DB.Where("id = ?", uc.ID).First(&uc).Error; err != nil {
		return nil, err
	}
	return &uc, nil
}

// RecaptureBaseline repairs an enrollment whose original capture failed.
func (s *EnrollmentService) RecaptureBaseline(userID, challengeID string) error {
	var uc models.UserChallenge
	if err := s.DB.Where("user_id = ? AND challenge_id = ?", userID, challengeID).First(&uc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrEnrollmentNotFound
		}
		return err
	}
	_, err := s.Baseline.Capture(userID, challengeID)
	return err
}

// Leave removes the enrollment and its progress entries.
func (s *EnrollmentService) Leave(userID, challengeID string) error {
	var uc models.UserChallenge
	if err := s.DB.Where("user_id = ? AND challenge_id = ?", userID, challengeID).First(&uc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrEnrollmentNotFound
		}
		return err
	}

	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_challenge_id = ?", uc.ID).Delete(&models.ChallengeProgress{}).Error; err != nil {
			return err
		}
		return tx.Delete(&uc).Error
	})
}

// UserChallenges returns the user's enrollments, challenge preloaded, newest
// join first.
func (s *EnrollmentService) UserChallenges(userID string) ([]models.UserChallenge, error) {
	var enrollments []models.UserChallenge
	err := s.DB.Preload("Challenge").
		Where("user_id = ?", userID).
		Order("joined_at DESC").
		Find(&enrollments).Error
	return enrollments, err
}

// Leaderboard returns the challenge's enrollments in rank order. Enrollments
// the ranking engine has not seen yet sort last.
func (s *EnrollmentService) Leaderboard(challengeID string, limit int) ([]models.UserChallenge, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	var enrollments []models.UserChallenge
	err := s.DB.Where("challenge_id = ?", challengeID).
		Order("rank IS NULL, rank ASC, current_progress DESC").
		Limit(limit).
		Find(&enrollments).Error
	return enrollments, err
}

// ChallengeStats is the aggregate view of one challenge's participation.
type ChallengeStats struct {
	TotalParticipants int64   `json:"total_participants"`
	CompletedCount    int64   `json:"completed_count"`
	CompletionRate    float64 `json:"completion_rate"`
	AverageProgress   float64 `json:"average_progress"`
	HighestProgress   int64   `json:"highest_progress"`
}

func (s *EnrollmentService) Stats(challengeID string) (*ChallengeStats, error) {
	var stats ChallengeStats

	base := s.DB.Model(&models.UserChallenge{}).Where("challenge_id = ?", challengeID)
	if err := base.Session(&gorm.Session{}).Count(&stats.TotalParticipants).Error; err != nil {
		return nil, err
	}
	if err := base.Session(&gorm.Session{}).Where("is_completed = ?", true).Count(&stats.CompletedCount).Error; err != nil {
		return nil, err
	}

	var agg struct {
		Avg float64
		Max int64
	}
	if err := base.Session(&gorm.Session{}).
		Select("COALESCE(AVG(completion_percentage), 0) AS avg, COALESCE(MAX(current_progress), 0) AS max").
		Scan(&agg).Error; err != nil {
		return nil, err
	}
	stats.AverageProgress = agg.Avg
	stats.HighestProgress = agg.Max

	if stats.TotalParticipants > 0 {
		stats.CompletionRate = float64(stats.CompletedCount) / float64(stats.TotalParticipants) * 100
	}
	return &stats, nil
}
