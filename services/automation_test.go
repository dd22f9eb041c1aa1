package services

import (
	"errors"
	"sync"
	"testing"
	"time"

	"fitness-challenge-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type creditCall struct {
	UserID string
	Points int
	Key    string
}

type recordingLedger struct {
	mu      sync.Mutex
	credits []creditCall
	err     error
}

func (l *recordingLedger) Credit(userID string, points int, _ models.TransactionSource, _, idempotencyKey string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	l.credits = append(l.credits, creditCall{UserID: userID, Points: points, Key: idempotencyKey})
	return nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Notify(_ string, _ models.NotificationKind, _, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
	return nil
}

func newTestAutomationService(t *testing.T, ledger RewardsLedger, notifier Notifier) *AutomationService {
	t.Helper()
	db := newTestDB(t)
	svc := NewAutomationService(db, NewCatalogService(db, 0), NewRankingService(db), NewProgressService(db), ledger, notifier)
	svc.now = func() time.Time { return day(20) }
	return svc
}

func TestCompletionPoints(t *testing.T) {
	tests := []struct {
		difficulty models.ChallengeDifficulty
		rank       int
		want       int
	}{
		{models.DifficultyEasy, 1, 200},
		{models.DifficultyEasy, 2, 150},
		{models.DifficultyEasy, 3, 125},
		{models.DifficultyEasy, 4, 100},
		{models.DifficultyEasy, 999, 100},
		{models.DifficultyMedium, 1, 500},
		{models.DifficultyMedium, 2, 375},
		{models.DifficultyMedium, 10, 250},
		{models.DifficultyHard, 1, 1000},
		{models.DifficultyHard, 3, 625},
		{models.DifficultyHard, 50, 500},
		{models.ChallengeDifficulty("Extreme"), 1, 200}, // unknown difficulty falls back to base 100
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CompletionPoints(tt.difficulty, tt.rank), "difficulty=%s rank=%d", tt.difficulty, tt.rank)
	}
}

func TestSweepCompletionsCreditsExactlyOnce(t *testing.T) {
	ledger := &recordingLedger{}
	notifier := &recordingNotifier{}
	svc := newTestAutomationService(t, ledger, notifier)

	user := seedUser(t, svc.DB)
	ch := seedChallenge(t, svc.DB, nil) // Easy
	rank := 1
	uc := seedEnrollment(t, svc.DB, user.ID, ch.ID, func(uc *models.UserChallenge) {
		uc.IsCompleted = true
		uc.Rank = &rank
	})

	require.NoError(t, svc.SweepCompletions(ch.ID))

	got := reloadEnrollment(t, svc.DB, uc.ID)
	assert.Equal(t, 200, got.PointsEarned) // Easy base 100, rank 1 doubles
	require.Len(t, ledger.credits, 1)
	assert.Equal(t, creditCall{UserID: user.ID, Points: 200, Key: uc.ID}, ledger.credits[0])
	assert.Len(t, notifier.messages, 1)

	// A second sweep finds nothing pending.
	require.NoError(t, svc.SweepCompletions(ch.ID))
	assert.Len(t, ledger.credits, 1)
}

func TestSweepCompletionsSkipsUncompletedAndAlreadyCredited(t *testing.T) {
	ledger := &recordingLedger{}
	svc := newTestAutomationService(t, ledger, &recordingNotifier{})

	ch := seedChallenge(t, svc.DB, nil)
	inProgress := seedUser(t, svc.DB)
	seedEnrollment(t, svc.DB, inProgress.ID, ch.ID, nil)
	credited := seedUser(t, svc.DB)
	seedEnrollment(t, svc.DB, credited.ID, ch.ID, func(uc *models.UserChallenge) {
		uc.IsCompleted = true
		uc.PointsEarned = 100
	})

	require.NoError(t, svc.SweepCompletions(ch.ID))
	assert.Empty(t, ledger.credits)
}

func TestSweepCompletionsUnrankedGetsBasePoints(t *testing.T) {
	ledger := &recordingLedger{}
	svc := newTestAutomationService(t, ledger, &recordingNotifier{})

	user := seedUser(t, svc.DB)
	ch := seedChallenge(t, svc.DB, func(ch *models.Challenge) { ch.Difficulty = models.DifficultyMedium })
	uc := seedEnrollment(t, svc.DB, user.ID, ch.ID, func(uc *models.UserChallenge) {
		uc.IsCompleted = true // rank never assigned
	})

	require.NoError(t, svc.SweepCompletions(ch.ID))
	assert.Equal(t, 250, reloadEnrollment(t, svc.DB, uc.ID).PointsEarned)
}

func TestSweepCompletionsPersistsPointsBeforeLedger(t *testing.T) {
	ledger := &recordingLedger{err: errors.New("ledger unavailable")}
	svc := newTestAutomationService(t, ledger, &recordingNotifier{})

	user := seedUser(t, svc.DB)
	ch := seedChallenge(t, svc.DB, nil)
	uc := seedEnrollment(t, svc.DB, user.ID, ch.ID, func(uc *models.UserChallenge) {
		uc.IsCompleted = true
	})

	// Ledger failure does not roll back the local write: pointsEarned is set,
	// so the enrollment is not swept again. Recovery reuses the same key.
	require.NoError(t, svc.SweepCompletions(ch.ID))
	assert.Equal(t, 100, reloadEnrollment(t, svc.DB, uc.ID).PointsEarned)

	ledger.err = nil
	require.NoError(t, svc.SweepCompletions(ch.ID))
	assert.Empty(t, ledger.credits)
}

func TestSweepCompletionsNotificationFormatsPoints(t *testing.T) {
	notifier := &recordingNotifier{}
	svc := newTestAutomationService(t, &recordingLedger{}, notifier)

	user := seedUser(t, svc.DB)
	ch := seedChallenge(t, svc.DB, func(ch *models.Challenge) { ch.Difficulty = models.DifficultyHard })
	rank := 1
	seedEnrollment(t, svc.DB, user.ID, ch.ID, func(uc *models.UserChallenge) {
		uc.IsCompleted = true
		uc.Rank = &rank
	})

	require.NoError(t, svc.SweepCompletions(ch.ID))
	require.Len(t, notifier.messages, 1)
	assert.Contains(t, notifier.messages[0], "1,000 points")
}

func TestFinalizeExpiredClosesOutChallenge(t *testing.T) {
	ledger := &recordingLedger{}
	svc := newTestAutomationService(t, ledger, &recordingNotifier{}) // now is day 20

	ch := seedChallenge(t, svc.DB, nil) // ends day 8, still active
	winner := seedUser(t, svc.DB)
	ucWin := seedEnrollment(t, svc.DB, winner.ID, ch.ID, func(uc *models.UserChallenge) {
		uc.CurrentProgress = 60000
		uc.IsCompleted = true
	})
	runnerUp := seedUser(t, svc.DB)
	ucRunner := seedEnrollment(t, svc.DB, runnerUp.ID, ch.ID, func(uc *models.UserChallenge) {
		uc.CurrentProgress = 20000
	})

	require.NoError(t, svc.FinalizeExpired())

	gotWin := reloadEnrollment(t, svc.DB, ucWin.ID)
	require.NotNil(t, gotWin.Rank)
	assert.Equal(t, 1, *gotWin.Rank)
	assert.Equal(t, 200, gotWin.PointsEarned) // final ranking ran before the sweep

	gotRunner := reloadEnrollment(t, svc.DB, ucRunner.ID)
	require.NotNil(t, gotRunner.Rank)
	assert.Equal(t, 2, *gotRunner.Rank)
	assert.Equal(t, 0, gotRunner.PointsEarned)

	var stored models.Challenge
	require.NoError(t, svc.DB.Where("id = ?", ch.ID).First(&stored).Error)
	assert.False(t, stored.IsActive)

	// A second pass sees no expired challenges and credits nothing new.
	require.NoError(t, svc.FinalizeExpired())
	assert.Len(t, ledger.credits, 1)
}

func TestRunScheduledMaintenanceCoversActiveChallenges(t *testing.T) {
	ledger := &recordingLedger{}
	svc := newTestAutomationService(t, ledger, &recordingNotifier{})
	svc.now = func() time.Time { return day(5) } // inside the default window

	ch := seedChallenge(t, svc.DB, nil)
	user := seedUser(t, svc.DB)
	uc := seedEnrollment(t, svc.DB, user.ID, ch.ID, func(uc *models.UserChallenge) {
		uc.CurrentProgress = 55000
		uc.IsCompleted = true
	})

	require.NoError(t, svc.RunScheduledMaintenance())

	got := reloadEnrollment(t, svc.DB, uc.ID)
	require.NotNil(t, got.Rank)
	assert.Equal(t, 1, *got.Rank)
	assert.Equal(t, 200, got.PointsEarned) // ranked first before the sweep credited
	require.Len(t, ledger.credits, 1)
}
