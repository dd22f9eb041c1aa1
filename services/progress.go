package services

import (
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"fitness-challenge-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProgressService is the progress updater: it turns one (user, date) health
// sample into per-date progress entries and recomputed enrollment aggregates.
// The aggregate is always re-derived from the full entry set, never
// incrementally accumulated, so redelivered and out-of-order samples converge
// to the same state.
type ProgressService struct {
	DB    *gorm.DB
	locks *keyedMutex
	now   func() time.Time
}

func NewProgressService(db *gorm.DB) *ProgressService {
	return &ProgressService{DB: db, locks: newKeyedMutex(), now: time.Now}
}

// OnHealthSample runs the updater for every open enrollment of the user whose
// challenge window covers date. Per-enrollment failures are logged and do not
// abort the remaining enrollments.
func (s *ProgressService) OnHealthSample(userID string, date time.Time, sample *models.HealthData) error {
	date = models.DateOnly(date)

	enrollments, err := s.openEnrollments(userID, date)
	if err != nil {
		return fmt.Errorf("loading enrollments for user %s: %w", userID, err)
	}

	for i := range enrollments {
		if err := s.updateEnrollment(&enrollments[i], date, sample); err != nil {
			log.Printf("[Progress] user=%s challenge=%s date=%s: %v",
				userID, enrollments[i].ChallengeID, date.Format("2006-01-02"), err)
		}
	}
	return nil
}

// openEnrollments returns the user's not-yet-completed enrollments in active
// challenges whose window covers date, challenge preloaded.
func (s *ProgressService) openEnrollments(userID string, date time.Time) ([]models.UserChallenge, error) {
	var enrollments []models.UserChallenge
	err := s.DB.Preload("Challenge").
		Where("user_id = ? AND is_completed = ?", userID, false).
		Find(&enrollments).Error
	if err != nil {
		return nil, err
	}

	open := enrollments[:0]
	for _, uc := range enrollments {
		if uc.Challenge.IsActive && uc.Challenge.CoversDate(date) {
			open = append(open, uc)
		}
	}
	return open, nil
}

func (s *ProgressService) updateEnrollment(uc *models.UserChallenge, date time.Time, sample *models.HealthData) error {
	challenge := &uc.Challenge

	// Guard clauses: all skips, never errors up the stack.
	if !uc.HasBaseline() {
		log.Printf("[Progress] Skipping enrollment %s: no baseline captured", uc.ID)
		return nil
	}
	if date.Before(models.DateOnly(challenge.StartDate)) || date.Before(models.DateOnly(*uc.BaselineDate)) {
		return nil
	}

	rule := ruleFor(challenge.Category, challenge.IsCumulative())

	var totals rangeTotals
	if rule.cumulative {
		var err error
		totals, err = s.totalsSinceBaseline(uc.UserID, models.DateOnly(*uc.BaselineDate), date)
		if err != nil {
			return fmt.Errorf("summing since baseline: %w", err)
		}
	}

	contribution := rule.contribution(uc, sample, totals)
	dayPercentage := math.Min(float64(contribution)/float64(challenge.Goal)*100, 100)

	unlock := s.locks.Lock(uc.ID)
	defer unlock()

	return s.DB.Transaction(func(tx *gorm.DB) error {
		entry := models.ChallengeProgress{
			ID:              uuid.NewString(),
			UserChallengeID: uc.ID,
			Date:            date,
			DailyValue:      contribution,
			Percentage:      dayPercentage,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_challenge_id"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{"daily_value", "percentage", "updated_at"}),
		}).Create(&entry).Error; err != nil {
			return err
		}

		return s.recomputeAggregate(tx, uc.ID)
	})
}

// recomputeAggregate re-derives currentProgress, completionPercentage and the
// completion flag from the stored entry set. completedAt is set exactly once,
// on the false→true transition, and never cleared.
func (s *ProgressService) recomputeAggregate(tx *gorm.DB, userChallengeID string) error {
	var uc models.UserChallenge
	if err := tx.Preload("Challenge").Preload("Progress").
		Where("id = ?", userChallengeID).First(&uc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrEnrollmentNotFound
		}
		return err
	}

	rule := ruleFor(uc.Challenge.Category, uc.Challenge.IsCumulative())
	currentProgress := rule.aggregate(uc.Progress)

	completionPercentage := math.Min(float64(currentProgress)/float64(uc.Challenge.Goal)*100, 100)
	completionPercentage = math.Round(completionPercentage*100) / 100
	isCompleted := completionPercentage >= 100

	updates := map[string]interface{}{
		"current_progress":      currentProgress,
		"completion_percentage": completionPercentage,
		"is_completed":          isCompleted,
	}
	if isCompleted && uc.CompletedAt == nil {
		now := s.now()
		updates["completed_at"] = &now
		log.Printf("[Progress] Enrollment %s completed challenge %s (%d/%d)",
			uc.ID, uc.ChallengeID, currentProgress, uc.Challenge.Goal)
	}

	return tx.Model(&models.UserChallenge{}).Where("id = ?", userChallengeID).Updates(updates).Error
}

func (s *ProgressService) totalsSinceBaseline(userID string, baselineDate, endDate time.Time) (rangeTotals, error) {
	var totals rangeTotals
	err := s.DB.Model(&models.HealthData{}).
		Select("COALESCE(SUM(steps), 0) AS steps, COALESCE(SUM(distance), 0) AS distance").
		Where("user_id = ? AND date >= ? AND date <= ?", userID, baselineDate, endDate).
		Scan(&totals).Error
	return totals, err
}

// Reconcile replays the user's stored samples over [startDate, endDate] in
// date order through the updater. Because aggregation is a full re-derivation,
// replaying any number of times is safe and convergent.
func (s *ProgressService) Reconcile(userID string, startDate, endDate time.Time) error {
	var samples []models.HealthData
	err := s.DB.Where("user_id = ? AND date >= ? AND date <= ?",
		userID, models.DateOnly(startDate), models.DateOnly(endDate)).
		Order("date ASC").
		Find(&samples).Error
	if err != nil {
		return fmt.Errorf("loading samples for reconcile: %w", err)
	}

	log.Printf("[Progress] Reconciling %d sample(s) for user=%s [%s..%s]",
		len(samples), userID, startDate.Format("2006-01-02"), endDate.Format("2006-01-02"))

	for i := range samples {
		if err := s.OnHealthSample(userID, samples[i].Date, &samples[i]); err != nil {
			log.Printf("[Progress] Reconcile error user=%s date=%s: %v",
				userID, samples[i].Date.Format("2006-01-02"), err)
		}
	}
	return nil
}

// Recalculate re-syncs one enrollment's full challenge window. Used for
// manual corrections and joins that arrive after days of data.
func (s *ProgressService) Recalculate(userChallengeID string) error {
	var uc models.UserChallenge
	if err := s.DB.Preload("Challenge").Where("id = ?", userChallengeID).First(&uc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrEnrollmentNotFound
		}
		return err
	}
	if !uc.HasBaseline() {
		log.Printf("[Progress] Recalculate skipped for enrollment %s: no baseline", uc.ID)
		return nil
	}

	start := models.DateOnly(uc.Challenge.StartDate)
	if b := models.DateOnly(*uc.BaselineDate); b.After(start) {
		start = b
	}
	end := models.DateOnly(uc.Challenge.EndDate)
	if today := models.DateOnly(s.now()); today.Before(end) {
		end = today
	}

	return s.Reconcile(uc.UserID, start, end)
}
