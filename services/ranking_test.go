package services

import (
	"testing"

	"fitness-challenge-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankEnrollmentsOrdersByProgressThenJoin(t *testing.T) {
	input := []models.UserChallenge{
		{ID: "a", CurrentProgress: 500, JoinedAt: day(3)},
		{ID: "b", CurrentProgress: 900, JoinedAt: day(2)},
		{ID: "c", CurrentProgress: 500, JoinedAt: day(1)}, // ties with a, joined earlier
		{ID: "d", CurrentProgress: 100, JoinedAt: day(1)},
	}

	ranked := rankEnrollments(input)

	require.Len(t, ranked, 4)
	assert.Equal(t, []string{"b", "c", "a", "d"}, []string{ranked[0].ID, ranked[1].ID, ranked[2].ID, ranked[3].ID})
	for i, uc := range ranked {
		require.NotNil(t, uc.Rank)
		assert.Equal(t, i+1, *uc.Rank)
	}

	// Input order is left untouched.
	assert.Equal(t, "a", input[0].ID)
	assert.Nil(t, input[0].Rank)
}

func TestRankEnrollmentsIsDeterministic(t *testing.T) {
	input := []models.UserChallenge{
		{ID: "a", CurrentProgress: 500, JoinedAt: day(2)},
		{ID: "b", CurrentProgress: 500, JoinedAt: day(2)},
		{ID: "c", CurrentProgress: 500, JoinedAt: day(1)},
	}

	first := rankEnrollments(input)
	second := rankEnrollments(input)
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}
}

func TestUpdateChallengeRankingsPersistsRanks(t *testing.T) {
	db := newTestDB(t)
	svc := NewRankingService(db)

	ch := seedChallenge(t, db, nil)
	var ids []string
	for i, progress := range []int64{300, 900, 600} {
		u := seedUser(t, db)
		uc := seedEnrollment(t, db, u.ID, ch.ID, func(uc *models.UserChallenge) {
			uc.CurrentProgress = progress
			uc.JoinedAt = day(i + 1)
		})
		ids = append(ids, uc.ID)
	}

	require.NoError(t, svc.UpdateChallengeRankings(ch.ID))

	wantRanks := map[string]int{ids[0]: 3, ids[1]: 1, ids[2]: 2}
	for id, want := range wantRanks {
		got := reloadEnrollment(t, db, id)
		require.NotNil(t, got.Rank)
		assert.Equal(t, want, *got.Rank)
	}
}

func TestUpdateChallengeRankingsEmptyChallenge(t *testing.T) {
	db := newTestDB(t)
	svc := NewRankingService(db)
	ch := seedChallenge(t, db, nil)
	assert.NoError(t, svc.UpdateChallengeRankings(ch.ID))
}
