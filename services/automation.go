package services

import (
	"encoding/json"
	"log"
	"time"

	"fitness-challenge-system/models"
	"fitness-challenge-system/utils"

	"github.com/go-co-op/gocron/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gorm.io/gorm"
)

// AutomationService runs the scheduled side of the pipeline: rankings,
// completion sweeps, the daily resync of yesterday's samples and expiry
// finalization.
type AutomationService struct {
	DB       *gorm.DB
	Catalog  *CatalogService
	Ranking  *RankingService
	Progress *ProgressService
	Ledger   RewardsLedger
	Notifier Notifier
	now      func() time.Time
}

func NewAutomationService(db *gorm.DB, catalog *CatalogService, ranking *RankingService, progress *ProgressService, ledger RewardsLedger, notifier Notifier) *AutomationService {
	return &AutomationService{
		DB:       db,
		Catalog:  catalog,
		Ranking:  ranking,
		Progress: progress,
		Ledger:   ledger,
		Notifier: notifier,
		now:      time.Now,
	}
}

// StartScheduler wires the recurring jobs. Job bodies are exported methods so
// operators (and tests) can invoke the same passes directly.
func (s *AutomationService) StartScheduler(maintenanceInterval time.Duration) {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	if maintenanceInterval <= 0 {
		maintenanceInterval = time.Hour
	}

	// Rankings + completion sweep across active challenges
	_, _ = sched.NewJob(
		gocron.DurationJob(maintenanceInterval),
		gocron.NewTask(func() {
			if err := s.RunScheduledMaintenance(); err != nil {
				log.Printf("[Automation] Maintenance pass failed: %v", err)
			}
		}),
	)

	// Re-feed yesterday's stored samples shortly after midnight, catching
	// devices that synced after the live event was processed
	_, _ = sched.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(0, 15, 0))),
		gocron.NewTask(func() {
			if err := s.ResyncYesterday(); err != nil {
				log.Printf("[Automation] Daily resync failed: %v", err)
			}
		}),
	)

	// Expiry finalization
	_, _ = sched.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(1, 0, 0))),
		gocron.NewTask(func() {
			if err := s.FinalizeExpired(); err != nil {
				log.Printf("[Automation] Expiry finalization failed: %v", err)
			}
		}),
	)
}

// RunScheduledMaintenance updates rankings and sweeps completions for every
// active challenge. Per-challenge failures are logged and do not stop the
// pass.
func (s *AutomationService) RunScheduledMaintenance() error {
	challenges, err := s.Catalog.ActiveChallenges(s.now())
	if err != nil {
		return err
	}

	for _, ch := range challenges {
		if err := s.Ranking.UpdateChallengeRankings(ch.ID); err != nil {
			log.Printf("[Automation] Ranking update failed for challenge %s: %v", ch.ID, err)
		}
		if err := s.SweepCompletions(ch.ID); err != nil {
			log.Printf("[Automation] Completion sweep failed for challenge %s: %v", ch.ID, err)
		}
	}
	return nil
}

// SweepCompletions credits every completed-but-uncredited enrollment of the
// challenge. pointsEarned is persisted before the external calls; the ledger
// dedupes on the enrollment id, so a crash between persist and credit is
// recovered by simply re-attempting with the same key.
func (s *AutomationService) SweepCompletions(challengeID string) error {
	var pending []models.UserChallenge
	err := s.DB.Preload("Challenge").
		Where("challenge_id = ? AND is_completed = ? AND points_earned = ?", challengeID, true, 0).
		Find(&pending).Error
	if err != nil {
		return err
	}

	for i := range pending {
		s.creditCompletion(&pending[i])
	}
	return nil
}

func (s *AutomationService) creditCompletion(uc *models.UserChallenge) {
	rank := 999
	if uc.Rank != nil {
		rank = *uc.Rank
	}
	points := CompletionPoints(uc.Challenge.Difficulty, rank)

	if err := s.DB.Model(&models.UserChallenge{}).
		Where("id = ? AND points_earned = ?", uc.ID, 0).
		Update("points_earned", points).Error; err != nil {
		log.Printf("[Automation] Failed to persist points for enrollment %s: %v", uc.ID, err)
		return
	}

	// External effects happen after the local write commits and are never
	// rolled back on failure; the idempotency key is the enrollment id.
	if err := s.Ledger.Credit(uc.UserID, points, models.SourceChallenge, uc.ID, uc.ID); err != nil {
		log.Printf("[Automation] Ledger credit failed for enrollment %s: %v", uc.ID, err)
	}

	p := message.NewPrinter(language.English)
	msg := p.Sprintf("You completed %s and earned %d points!", uc.Challenge.Title, points)
	if err := s.Notifier.Notify(uc.UserID, models.NotificationChallengeCompleted, uc.Challenge.Title, msg); err != nil {
		log.Printf("[Automation] Completion notification failed for enrollment %s: %v", uc.ID, err)
	}

	log.Printf("[Automation] Awarded %d points to user %s for challenge %s (rank %d)",
		points, uc.UserID, uc.ChallengeID, rank)
}

// CompletionPoints scales base points by difficulty and podium rank.
func CompletionPoints(difficulty models.ChallengeDifficulty, rank int) int {
	var base float64
	switch difficulty {
	case models.DifficultyEasy:
		base = 100
	case models.DifficultyMedium:
		base = 250
	case models.DifficultyHard:
		base = 500
	default:
		base = 100
	}

	switch rank {
	case 1:
		base *= 2
	case 2:
		base *= 1.5
	case 3:
		base *= 1.25
	}

	return int(base + 0.5)
}

// ResyncYesterday replays yesterday's stored samples for every user enrolled
// in an active challenge.
func (s *AutomationService) ResyncYesterday() error {
	yesterday := models.DateOnly(s.now().AddDate(0, 0, -1))

	challenges, err := s.Catalog.ActiveChallenges(s.now())
	if err != nil {
		return err
	}

	seen := make(map[string]bool)
	for _, ch := range challenges {
		var enrollments []models.UserChallenge
		if err := s.DB.Where("challenge_id = ? AND is_completed = ?", ch.ID, false).
			Find(&enrollments).Error; err != nil {
			log.Printf("[Automation] Resync: loading enrollments for challenge %s: %v", ch.ID, err)
			continue
		}

		for _, uc := range enrollments {
			if seen[uc.UserID] {
				continue
			}
			seen[uc.UserID] = true

			var sample models.HealthData
			err := s.DB.Where("user_id = ? AND date = ?", uc.UserID, yesterday).First(&sample).Error
			if err != nil {
				continue // no sample synced for yesterday
			}
			if err := s.Progress.OnHealthSample(uc.UserID, yesterday, &sample); err != nil {
				log.Printf("[Automation] Resync failed for user %s: %v", uc.UserID, err)
			}
		}
	}

	log.Printf("[Automation] Daily resync done for %d user(s)", len(seen))
	return nil
}

// FinalizeExpired closes out every still-active challenge whose end date has
// passed: one last ranking, one last completion sweep, a summary report, then
// the terminal is_active=false flip.
func (s *AutomationService) FinalizeExpired() error {
	expired, err := s.Catalog.ExpiredChallenges(s.now())
	if err != nil {
		return err
	}

	for i := range expired {
		ch := &expired[i]
		if err := s.Ranking.UpdateChallengeRankings(ch.ID); err != nil {
			log.Printf("[Automation] Final ranking failed for challenge %s: %v", ch.ID, err)
		}
		if err := s.SweepCompletions(ch.ID); err != nil {
			log.Printf("[Automation] Final completion sweep failed for challenge %s: %v", ch.ID, err)
		}
		s.archiveSummary(ch)

		if err := s.Catalog.Deactivate(ch.ID); err != nil {
			log.Printf("[Automation] Failed to deactivate challenge %s: %v", ch.ID, err)
			continue
		}
		log.Printf("[Automation] Finalized challenge %s (%s)", ch.ID, ch.Title)
	}
	return nil
}

type challengeSummary struct {
	ChallengeID string                   `json:"challenge_id"`
	Title       string                   `json:"title"`
	Category    models.ChallengeCategory `json:"category"`
	Goal        int64                    `json:"goal"`
	StartDate   time.Time                `json:"start_date"`
	EndDate     time.Time                `json:"end_date"`
	FinalizedAt time.Time                `json:"finalized_at"`
	Leaderboard []models.UserChallenge   `json:"leaderboard"`
}

// archiveSummary uploads the final leaderboard to R2. Best-effort: failure is
// logged and never blocks finalization.
func (s *AutomationService) archiveSummary(ch *models.Challenge) {
	var leaderboard []models.UserChallenge
	if err := s.DB.Where("challenge_id = ?", ch.ID).
		Order("rank IS NULL, rank ASC").
		Find(&leaderboard).Error; err != nil {
		log.Printf("[Automation] Summary: loading leaderboard for challenge %s: %v", ch.ID, err)
		return
	}

	summary := challengeSummary{
		ChallengeID: ch.ID,
		Title:       ch.Title,
		Category:    ch.Category,
		Goal:        ch.Goal,
		StartDate:   ch.StartDate,
		EndDate:     ch.EndDate,
		FinalizedAt: s.now(),
		Leaderboard: leaderboard,
	}

	payload, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		log.Printf("[Automation] Summary: marshal failed for challenge %s: %v", ch.ID, err)
		return
	}

	key := "reports/" + ch.Slug + ".json"
	url, err := utils.UploadReportToR2(key, "application/json", payload)
	if err != nil {
		log.Printf("[Automation] Summary upload failed for challenge %s: %v", ch.ID, err)
		return
	}
	log.Printf("[Automation] Archived summary for challenge %s at %s", ch.ID, url)
}
