package services

import (
	"fitness-challenge-system/models"
)

// rangeTotals holds metric sums over [baselineDate, date], queried by the
// caller only when the rule is cumulative.
type rangeTotals struct {
	Steps    int64
	Distance int64
}

// progressRule is the tagged-variant strategy keyed by (category, kind). It
// isolates the only two axes of variation: how a day's contribution is
// computed, and how entries fold into the enrollment aggregate.
type progressRule struct {
	cumulative   bool
	contribution func(uc *models.UserChallenge, sample *models.HealthData, totals rangeTotals) int64
	aggregate    func(entries []models.ChallengeProgress) int64
}

// aggregateMax: each cumulative entry already carries the running total since
// baseline, so the largest entry is authoritative and a stale late-arriving
// entry can never shrink the aggregate.
func aggregateMax(entries []models.ChallengeProgress) int64 {
	var max int64
	for _, e := range entries {
		if e.DailyValue > max {
			max = e.DailyValue
		}
	}
	return max
}

// aggregateSum: periodic entries are discrete daily contributions.
func aggregateSum(entries []models.ChallengeProgress) int64 {
	var sum int64
	for _, e := range entries {
		sum += e.DailyValue
	}
	return sum
}

func clampNonNegative(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

// ruleFor returns the progress rule for a challenge. Active-minutes goals
// compute their contribution periodic-style regardless of kind; aggregation
// still follows the challenge kind.
func ruleFor(category models.ChallengeCategory, cumulative bool) progressRule {
	rule := progressRule{cumulative: cumulative, aggregate: aggregateSum}
	if cumulative {
		rule.aggregate = aggregateMax
	}

	switch category {
	case models.CategorySteps:
		if cumulative {
			rule.contribution = func(uc *models.UserChallenge, _ *models.HealthData, totals rangeTotals) int64 {
				return clampNonNegative(totals.Steps - uc.BaselineTotalSteps)
			}
		} else {
			rule.contribution = func(uc *models.UserChallenge, sample *models.HealthData, _ rangeTotals) int64 {
				return clampNonNegative(sample.Steps - uc.BaselineSteps)
			}
		}
	case models.CategoryDistance:
		if cumulative {
			rule.contribution = func(uc *models.UserChallenge, _ *models.HealthData, totals rangeTotals) int64 {
				return clampNonNegative(totals.Distance - uc.BaselineTotalDistance)
			}
		} else {
			rule.contribution = func(uc *models.UserChallenge, sample *models.HealthData, _ rangeTotals) int64 {
				return clampNonNegative(sample.Distance - uc.BaselineDistance)
			}
		}
	case models.CategoryTime:
		rule.contribution = func(uc *models.UserChallenge, sample *models.HealthData, _ rangeTotals) int64 {
			return clampNonNegative(int64(sample.ActiveMinutes - uc.BaselineActiveMinutes))
		}
	default:
		rule.contribution = func(*models.UserChallenge, *models.HealthData, rangeTotals) int64 { return 0 }
	}
	return rule
}
