package services

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"fitness-challenge-system/models"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// CatalogService owns the challenge catalog. Reads used on the hot path go
// through a short-TTL cache; every mutation invalidates the cached entry.
type CatalogService struct {
	DB  *gorm.DB
	ttl time.Duration

	mu    sync.Mutex
	cache map[string]catalogEntry
}

type catalogEntry struct {
	challenge models.Challenge
	expires   time.Time
}

func NewCatalogService(db *gorm.DB, ttl time.Duration) *CatalogService {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &CatalogService{
		DB:    db,
		ttl:   ttl,
		cache: make(map[string]catalogEntry),
	}
}

type CreateChallengeInput struct {
	Title           string
	Description     string
	Category        models.ChallengeCategory
	Type            models.ChallengeType
	Difficulty      models.ChallengeDifficulty
	Goal            int64
	StartDate       time.Time
	EndDate         time.Time
	MaxParticipants int
	IsFeatured      bool
	CreatedBy       string
}

func (s *CatalogService) CreateChallenge(in CreateChallengeInput) (*models.Challenge, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidChallenge)
	}
	if in.Goal <= 0 {
		return nil, fmt.Errorf("%w: goal must be positive", ErrInvalidChallenge)
	}
	if !in.EndDate.After(in.StartDate) {
		return nil, fmt.Errorf("%w: end date must be after start date", ErrInvalidChallenge)
	}
	switch in.Category {
	case models.CategorySteps, models.CategoryDistance, models.CategoryTime:
	default:
		return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidChallenge, in.Category)
	}
	switch in.Type {
	case models.TypeIndividual, models.TypeGroup, models.TypeFriends:
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidChallenge, in.Type)
	}
	if in.Difficulty == "" {
		in.Difficulty = models.DifficultyEasy
	}

	durationDays := int(math.Ceil(in.EndDate.Sub(in.StartDate).Hours() / 24))

	ch := models.Challenge{
		ID:              uuid.NewString(),
		Title:           in.Title,
		Slug:            s.uniqueSlug(in.Title),
		Description:     in.Description,
		Category:        in.Category,
		Type:            in.Type,
		Difficulty:      in.Difficulty,
		Goal:            in.Goal,
		DurationDays:    durationDays,
		StartDate:       in.StartDate,
		EndDate:         in.EndDate,
		MaxParticipants: in.MaxParticipants,
		IsActive:        true,
		IsFeatured:      in.IsFeatured,
		CreatedBy:       in.CreatedBy,
	}
	if err := s.DB.Create(&ch).Error; err != nil {
		return nil, err
	}
	return &ch, nil
}

// uniqueSlug derives a URL slug from the title, suffixing on collision.
func (s *CatalogService) uniqueSlug(title string) string {
	base := slug.Make(title)
	var count int64
	s.DB.Model(&models.Challenge{}).Where("slug = ? OR slug LIKE ?", base, base+"-%").Count(&count)
	if count == 0 {
		return base
	}
	return fmt.Sprintf("%s-%d", base, count+1)
}

// Get returns the challenge, serving from cache inside the TTL window.
func (s *CatalogService) Get(challengeID string) (*models.Challenge, error) {
	s.mu.Lock()
	if entry, ok := s.cache[challengeID]; ok && time.Now().Before(entry.expires) {
		ch := entry.challenge
		s.mu.Unlock()
		return &ch, nil
	}
	s.mu.Unlock()

	var ch models.Challenge
	if err := s.DB.Where("id = ?", challengeID).First(&ch).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChallengeNotFound
		}
		return nil, err
	}

	s.mu.Lock()
	s.cache[challengeID] = catalogEntry{challenge: ch, expires: time.Now().Add(s.ttl)}
	s.mu.Unlock()
	return &ch, nil
}

// Invalidate drops a cached entry after a mutation.
func (s *CatalogService) Invalidate(challengeID string) {
	s.mu.Lock()
	delete(s.cache, challengeID)
	s.mu.Unlock()
}

// ActiveChallenges returns active challenges whose window covers now.
func (s *CatalogService) ActiveChallenges(now time.Time) ([]models.Challenge, error) {
	var challenges []models.Challenge
	err := s.DB.Where("is_active = ? AND start_date <= ? AND end_date >= ?", true, now, now).
		Find(&challenges).Error
	return challenges, err
}

// ExpiredChallenges returns still-active challenges whose end date has passed.
func (s *CatalogService) ExpiredChallenges(now time.Time) ([]models.Challenge, error) {
	var challenges []models.Challenge
	err := s.DB.Where("is_active = ? AND end_date < ?", true, now).
		Find(&challenges).Error
	return challenges, err
}

// ListChallenges returns active challenges with participant counts, newest
// first. Featured challenges sort ahead.
func (s *CatalogService) ListChallenges(limit int) ([]models.Challenge, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var challenges []models.Challenge
	if err := s.DB.Where("is_active = ?", true).
		Order("is_featured DESC, start_date DESC").
		Limit(limit).
		Find(&challenges).Error; err != nil {
		return nil, err
	}
	for i := range challenges {
		s.DB.Model(&models.UserChallenge{}).
			Where("challenge_id = ?", challenges[i].ID).
			Count(&challenges[i].ParticipantCount)
	}
	return challenges, nil
}

// Deactivate marks a challenge inactive. Terminal: an expired or deactivated
// challenge never reactivates.
func (s *CatalogService) Deactivate(challengeID string) error {
	res := s.DB.Model(&models.Challenge{}).Where("id = ?", challengeID).Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrChallengeNotFound
	}
	s.Invalidate(challengeID)
	return nil
}

// UpdateDescription touches only non-structural fields; structural fields are
// immutable once the challenge has a participant.
func (s *CatalogService) UpdateDescription(challengeID, description string, featured *bool) error {
	updates := map[string]interface{}{"description": description}
	if featured != nil {
		updates["is_featured"] = *featured
	}
	res := s.DB.Model(&models.Challenge{}).Where("id = ?", challengeID).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrChallengeNotFound
	}
	s.Invalidate(challengeID)
	return nil
}
