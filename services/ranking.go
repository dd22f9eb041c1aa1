package services

import (
	"fmt"
	"sort"

	"fitness-challenge-system/models"

	"gorm.io/gorm"
)

// RankingService assigns dense ranks to every enrollment of a challenge.
// Ranks are recomputed wholesale from a snapshot; concurrent runs for the
// same challenge serialize on a per-challenge lock.
type RankingService struct {
	DB    *gorm.DB
	locks *keyedMutex
}

func NewRankingService(db *gorm.DB) *RankingService {
	return &RankingService{DB: db, locks: newKeyedMutex()}
}

// rankEnrollments orders a snapshot by progress descending, ties broken by
// earlier join, and assigns rank 1..N. Pure: returns a new ordering, mutates
// only the Rank fields of the returned slice.
func rankEnrollments(enrollments []models.UserChallenge) []models.UserChallenge {
	ranked := make([]models.UserChallenge, len(enrollments))
	copy(ranked, enrollments)

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].CurrentProgress != ranked[j].CurrentProgress {
			return ranked[i].CurrentProgress > ranked[j].CurrentProgress
		}
		return ranked[i].JoinedAt.Before(ranked[j].JoinedAt)
	})

	for i := range ranked {
		rank := i + 1
		ranked[i].Rank = &rank
	}
	return ranked
}

// UpdateChallengeRankings snapshots the challenge's enrollments, ranks them
// and writes the ranks back in one transaction.
func (s *RankingService) UpdateChallengeRankings(challengeID string) error {
	unlock := s.locks.Lock(challengeID)
	defer unlock()

	return s.DB.Transaction(func(tx *gorm.DB) error {
		var enrollments []models.UserChallenge
		if err := tx.Where("challenge_id = ?", challengeID).Find(&enrollments).Error; err != nil {
			return fmt.Errorf("loading enrollments for ranking: %w", err)
		}
		if len(enrollments) == 0 {
			return nil
		}

		for _, uc := range rankEnrollments(enrollments) {
			if err := tx.Model(&models.UserChallenge{}).
				Where("id = ?", uc.ID).
				Update("rank", *uc.Rank).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
