package services

import (
	"testing"
	"time"

	"fitness-challenge-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBaselineService(t *testing.T) *BaselineService {
	t.Helper()
	svc := NewBaselineService(newTestDB(t))
	svc.now = func() time.Time { return day(5) }
	return svc
}

func TestCaptureAnchorsAtStartForRunningChallenge(t *testing.T) {
	svc := newTestBaselineService(t)
	user := seedUser(t, svc.DB)
	ch := seedChallenge(t, svc.DB, nil) // starts day 1, now is day 5
	seedEnrollment(t, svc.DB, user.ID, ch.ID, func(uc *models.UserChallenge) { uc.BaselineDate = nil })
	seedHealthData(t, svc.DB, user.ID, day(1), 4000, 2500, 30)

	baseline, err := svc.Capture(user.ID, ch.ID)
	require.NoError(t, err)
	assert.True(t, baseline.BaselineDate.Equal(day(1)))
}

func TestCaptureAnchorsAtNowForFutureChallenge(t *testing.T) {
	svc := newTestBaselineService(t)
	user := seedUser(t, svc.DB)
	ch := seedChallenge(t, svc.DB, func(ch *models.Challenge) {
		ch.StartDate = day(10)
		ch.EndDate = day(17)
	})
	seedEnrollment(t, svc.DB, user.ID, ch.ID, func(uc *models.UserChallenge) { uc.BaselineDate = nil })

	baseline, err := svc.Capture(user.ID, ch.ID)
	require.NoError(t, err)
	assert.True(t, baseline.BaselineDate.Equal(day(5)))
}

func TestCapturePeriodicUsesBaselineDaySample(t *testing.T) {
	svc := newTestBaselineService(t)
	user := seedUser(t, svc.DB)
	user.TotalSteps = 90000
	user.TotalDistance = 60000
	require.NoError(t, svc.DB.Save(user).Error)

	ch := seedChallenge(t, svc.DB, nil) // periodic
	uc := seedEnrollment(t, svc.DB, user.ID, ch.ID, func(uc *models.UserChallenge) { uc.BaselineDate = nil })
	seedHealthData(t, svc.DB, user.ID, day(1), 4000, 2500, 30)

	baseline, err := svc.Capture(user.ID, ch.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4000), baseline.Steps)
	assert.Equal(t, int64(2500), baseline.Distance)
	assert.Equal(t, 30, baseline.ActiveMinutes)
	// Lifetime counters are kept for reference only.
	assert.Equal(t, int64(90000), baseline.TotalSteps)

	// The enrollment row is updated in place.
	stored := reloadEnrollment(t, svc.DB, uc.ID)
	require.NotNil(t, stored.BaselineDate)
	assert.Equal(t, int64(4000), stored.BaselineSteps)
	assert.Equal(t, int64(2500), stored.BaselineDistance)
	assert.Equal(t, 30, stored.BaselineActiveMinutes)
}

func TestCaptureCumulativeSumsHistoryUpToBaseline(t *testing.T) {
	svc := newTestBaselineService(t)
	user := seedUser(t, svc.DB)
	ch := seedChallenge(t, svc.DB, func(ch *models.Challenge) {
		ch.DurationDays = 14
		ch.EndDate = day(15)
	})
	uc := seedEnrollment(t, svc.DB, user.ID, ch.ID, func(uc *models.UserChallenge) { uc.BaselineDate = nil })

	// Pre-challenge history plus the baseline day itself.
	seedHealthData(t, svc.DB, user.ID, day(1).AddDate(0, 0, -3), 5000, 4000, 0)
	seedHealthData(t, svc.DB, user.ID, day(1), 2000, 1500, 0)
	// A later sample must not leak into the baseline.
	seedHealthData(t, svc.DB, user.ID, day(3), 9000, 9000, 0)

	baseline, err := svc.Capture(user.ID, ch.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(7000), baseline.TotalSteps)
	assert.Equal(t, int64(5500), baseline.TotalDistance)
	// Daily fields stay zero for cumulative captures.
	assert.Equal(t, int64(0), baseline.Steps)
	assert.Equal(t, int64(0), baseline.Distance)

	stored := reloadEnrollment(t, svc.DB, uc.ID)
	assert.Equal(t, int64(7000), stored.BaselineTotalSteps)
	assert.Equal(t, int64(5500), stored.BaselineTotalDistance)
}

func TestCaptureFallsBackToNearbySample(t *testing.T) {
	svc := newTestBaselineService(t)
	user := seedUser(t, svc.DB)
	ch := seedChallenge(t, svc.DB, nil)
	seedEnrollment(t, svc.DB, user.ID, ch.ID, func(uc *models.UserChallenge) { uc.BaselineDate = nil })

	// Nothing on the baseline day, but a sample 3 days earlier.
	seedHealthData(t, svc.DB, user.ID, day(1).AddDate(0, 0, -3), 3500, 2000, 20)

	baseline, err := svc.Capture(user.ID, ch.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3500), baseline.Steps)
	assert.Equal(t, 20, baseline.ActiveMinutes)
}

func TestCaptureFallsBackToLifetimeCounters(t *testing.T) {
	svc := newTestBaselineService(t)
	user := seedUser(t, svc.DB)
	user.TotalSteps = 123456
	user.TotalDistance = 654321
	require.NoError(t, svc.DB.Save(user).Error)

	ch := seedChallenge(t, svc.DB, func(ch *models.Challenge) {
		ch.DurationDays = 14
		ch.EndDate = day(15)
	})
	seedEnrollment(t, svc.DB, user.ID, ch.ID, func(uc *models.UserChallenge) { uc.BaselineDate = nil })

	// No per-day history at all: lifetime counters stand in.
	baseline, err := svc.Capture(user.ID, ch.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(123456), baseline.TotalSteps)
	assert.Equal(t, int64(654321), baseline.TotalDistance)
	assert.Equal(t, int64(0), baseline.Steps)
}

func TestCaptureUnknownChallengeOrUser(t *testing.T) {
	svc := newTestBaselineService(t)
	user := seedUser(t, svc.DB)
	ch := seedChallenge(t, svc.DB, nil)

	_, err := svc.Capture(user.ID, "missing")
	assert.ErrorIs(t, err, ErrChallengeNotFound)

	_, err = svc.Capture("missing", ch.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
