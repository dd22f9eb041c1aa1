package services

import (
	"errors"
	"log"
	"time"

	"fitness-challenge-system/models"

	"gorm.io/gorm"
)

// BaselineService freezes the reference point an enrollment is measured from.
type BaselineService struct {
	DB  *gorm.DB
	now func() time.Time
}

func NewBaselineService(db *gorm.DB) *BaselineService {
	return &BaselineService{DB: db, now: time.Now}
}

// BaselineData is the captured reference point.
type BaselineData struct {
	Steps         int64
	Distance      int64
	ActiveMinutes int
	TotalSteps    int64
	TotalDistance int64
	BaselineDate  time.Time
}

// Capture computes and persists the baseline for (userID, challengeID).
// A challenge that has already started anchors at its start date; a future
// challenge anchors at now, so early joiners are not penalized for days
// before the window opens.
func (s *BaselineService) Capture(userID, challengeID string) (*BaselineData, error) {
	var challenge models.Challenge
	if err := s.DB.Where("id = ?", challengeID).First(&challenge).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChallengeNotFound
		}
		return nil, err
	}

	var user models.User
	if err := s.DB.Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	now := s.now()
	baselineDate := models.DateOnly(challenge.StartDate)
	if challenge.StartDate.After(now) {
		baselineDate = models.DateOnly(now)
	}

	baseline, err := s.calculateBaselineData(&user, baselineDate, &challenge)
	if err != nil {
		return nil, err
	}

	err = s.DB.Model(&models.UserChallenge{}).
		Where("user_id = ? AND challenge_id = ?", userID, challengeID).
		Updates(map[string]interface{}{
			"baseline_date":           baseline.BaselineDate,
			"baseline_steps":          baseline.Steps,
			"baseline_distance":       baseline.Distance,
			"baseline_active_minutes": baseline.ActiveMinutes,
			"baseline_total_steps":    baseline.TotalSteps,
			"baseline_total_distance": baseline.TotalDistance,
		}).Error
	if err != nil {
		return nil, err
	}

	log.Printf("[Baseline] Set for user=%s challenge=%s date=%s totalSteps=%d totalDistance=%d",
		userID, challengeID, baseline.BaselineDate.Format("2006-01-02"), baseline.TotalSteps, baseline.TotalDistance)
	return baseline, nil
}

// calculateBaselineData picks the capture mode by challenge kind. When no
// per-day history exists at all, the user's current lifetime counters stand in
// for the cumulative totals; if those counters include pre-challenge activity
// from days with no retained daily record, the baseline can overstate. That
// matches the upstream behavior and is deliberately left as-is.
func (s *BaselineService) calculateBaselineData(user *models.User, baselineDate time.Time, challenge *models.Challenge) (*BaselineData, error) {
	sample, err := s.closestHealthData(user.ID, baselineDate)
	if err != nil {
		return nil, err
	}

	if sample == nil {
		return &BaselineData{
			TotalSteps:    user.TotalSteps,
			TotalDistance: user.TotalDistance,
			BaselineDate:  baselineDate,
		}, nil
	}

	if challenge.IsCumulative() {
		// Cumulative challenges measure delta-of-total: daily fields stay zero
		// and the totals snapshot everything accumulated up to the baseline.
		totalSteps, totalDistance, err := s.cumulativeUpTo(user.ID, baselineDate)
		if err != nil {
			return nil, err
		}
		return &BaselineData{
			TotalSteps:    totalSteps,
			TotalDistance: totalDistance,
			BaselineDate:  baselineDate,
		}, nil
	}

	// Periodic challenges subtract the baseline day's own values; lifetime
	// totals are kept for reference only.
	return &BaselineData{
		Steps:         sample.Steps,
		Distance:      sample.Distance,
		ActiveMinutes: sample.ActiveMinutes,
		TotalSteps:    user.TotalSteps,
		TotalDistance: user.TotalDistance,
		BaselineDate:  baselineDate,
	}, nil
}

// closestHealthData returns the sample on targetDate, or the most recent one
// within the preceding 7 days, or nil.
func (s *BaselineService) closestHealthData(userID string, targetDate time.Time) (*models.HealthData, error) {
	var sample models.HealthData
	err := s.DB.Where("user_id = ? AND date = ?", userID, targetDate).First(&sample).Error
	if err == nil {
		return &sample, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	weekBefore := targetDate.AddDate(0, 0, -7)
	err = s.DB.Where("user_id = ? AND date >= ? AND date <= ?", userID, weekBefore, targetDate).
		Order("date DESC").
		First(&sample).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sample, nil
}

func (s *BaselineService) cumulativeUpTo(userID string, date time.Time) (int64, int64, error) {
	var totals struct {
		Steps    int64
		Distance int64
	}
	err := s.DB.Model(&models.HealthData{}).
		Select("COALESCE(SUM(steps), 0) AS steps, COALESCE(SUM(distance), 0) AS distance").
		Where("user_id = ? AND date <= ?", userID, date).
		Scan(&totals).Error
	if err != nil {
		return 0, 0, err
	}
	return totals.Steps, totals.Distance, nil
}
