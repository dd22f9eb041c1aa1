package services

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"fitness-challenge-system/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDBSeq int64

// newTestDB opens a fresh in-memory SQLite database with the full schema.
// Each call gets its own named memory DB so parallel tests never share state;
// cache=shared keeps the DB alive across the connection pool.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:servicetest%d?mode=memory&cache=shared", atomic.AddInt64(&testDBSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Challenge{},
		&models.UserChallenge{},
		&models.ChallengeProgress{},
		&models.HealthData{},
		&models.PointsTransaction{},
		&models.Notification{},
	))
	return db
}

// day returns UTC midnight of March <n>, 2026. Fixture dates all live in this
// month so tests stay independent of the wall clock.
func day(n int) time.Time {
	return time.Date(2026, time.March, n, 0, 0, 0, 0, time.UTC)
}

func seedUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	u := models.User{
		ID:          uuid.NewString(),
		DisplayName: "Test Walker",
		Email:       "walker@example.com",
	}
	require.NoError(t, db.Create(&u).Error)
	return &u
}

// seedChallenge creates an active 7-day Steps challenge (periodic kind) over
// March 1-8; mutate adjusts it before insert.
func seedChallenge(t *testing.T, db *gorm.DB, mutate func(*models.Challenge)) *models.Challenge {
	t.Helper()
	ch := models.Challenge{
		ID:           uuid.NewString(),
		Title:        "Spring Sprint",
		Slug:         "spring-sprint-" + uuid.NewString()[:8],
		Category:     models.CategorySteps,
		Type:         models.TypeIndividual,
		Difficulty:   models.DifficultyEasy,
		Goal:         50000,
		DurationDays: 7,
		StartDate:    day(1),
		EndDate:      day(8),
		IsActive:     true,
	}
	if mutate != nil {
		mutate(&ch)
	}
	require.NoError(t, db.Create(&ch).Error)
	return &ch
}

// seedEnrollment enrolls user in challenge with a baseline already captured at
// the challenge start; mutate adjusts it before insert.
func seedEnrollment(t *testing.T, db *gorm.DB, userID, challengeID string, mutate func(*models.UserChallenge)) *models.UserChallenge {
	t.Helper()
	baseline := day(1)
	uc := models.UserChallenge{
		ID:           uuid.NewString(),
		UserID:       userID,
		ChallengeID:  challengeID,
		JoinedAt:     day(1),
		BaselineDate: &baseline,
	}
	if mutate != nil {
		mutate(&uc)
	}
	require.NoError(t, db.Create(&uc).Error)
	return &uc
}

func seedHealthData(t *testing.T, db *gorm.DB, userID string, date time.Time, steps, distance int64, activeMinutes int) *models.HealthData {
	t.Helper()
	hd := models.HealthData{
		ID:            uuid.NewString(),
		UserID:        userID,
		Date:          models.DateOnly(date),
		Steps:         steps,
		Distance:      distance,
		ActiveMinutes: activeMinutes,
	}
	require.NoError(t, db.Create(&hd).Error)
	return &hd
}

func reloadEnrollment(t *testing.T, db *gorm.DB, id string) *models.UserChallenge {
	t.Helper()
	var uc models.UserChallenge
	require.NoError(t, db.Preload("Progress").Where("id = ?", id).First(&uc).Error)
	return &uc
}
