package prioritizer

import (
	"math"
	"time"

	"github.com/vidra-project/vidra/internal/core/domain"
)

const (
	// responseTimeThreshold is the scale of the response-time score: a
	// platform averaging exactly this long scores 0.5.
	responseTimeThreshold = 5 * time.Second

	// minSamplesForSuccessRate guards the success-rate score against tiny
	// denominators; below it the score is neutral.
	minSamplesForSuccessRate = 5
	neutralSuccessScore      = 0.5

	// failurePenaltyDuration is the decay window of the recent-failure
	// penalty; failurePenaltyMax is its ceiling.
	failurePenaltyDuration = 300 * time.Second
	failurePenaltyMax      = 0.3

	consecutiveFailureStep = 0.2
	consecutiveFailureCap  = 0.8
)

// strategy weight triples: (responseTime, reliability, successRate).
type weights struct {
	responseTime float64
	reliability  float64
	successRate  float64
}

var strategyWeights = map[string]weights{
	StrategyBalanced:         {0.30, 0.40, 0.30},
	StrategySpeedFirst:       {0.70, 0.15, 0.15},
	StrategyReliabilityFirst: {0.15, 0.70, 0.15},
	StrategySuccessRateFirst: {0.15, 0.15, 0.70},
}

func healthMultiplier(status domain.HealthStatus) float64 {
	switch status {
	case domain.StatusHealthy:
		return 1.0
	case domain.StatusDegraded:
		return 0.7
	case domain.StatusUnhealthy:
		return 0.3
	default:
		return 0.9
	}
}

// responseTimeScore is 1 / (1 + avg/threshold): 1.0 for instant, 0.5 at the
// threshold, asymptotically 0.
func responseTimeScore(avg time.Duration) float64 {
	if avg <= 0 {
		return 1.0
	}
	return 1.0 / (1.0 + float64(avg)/float64(responseTimeThreshold))
}

// successRateScore is sqrt(success/total), softened so a platform at 81%
// still scores 0.9; neutral before enough samples exist.
func successRateScore(successful, total int64) float64 {
	if total < minSamplesForSuccessRate {
		return neutralSuccessScore
	}
	return math.Sqrt(float64(successful) / float64(total))
}

// reliabilityScore starts at 1.0, drops with the consecutive-failure streak,
// is amplified by the health multiplier, and loses a time-decayed penalty
// for failures within the decay window.
func reliabilityScore(m *domain.PlatformMetrics, now time.Time) float64 {
	score := 1.0 - math.Min(consecutiveFailureCap, consecutiveFailureStep*float64(m.ConsecutiveFailures))
	score *= healthMultiplier(m.Health)

	if !m.LastFailureAt.IsZero() {
		elapsed := now.Sub(m.LastFailureAt)
		if elapsed < failurePenaltyDuration {
			decay := 1.0 - float64(elapsed)/float64(failurePenaltyDuration)
			score -= failurePenaltyMax * decay
		}
	}

	return clamp01(score)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// snapshotWithScores derives the immutable snapshot for one platform under
// the given weights.
func snapshotWithScores(m *domain.PlatformMetrics, w weights, now time.Time) domain.MetricsSnapshot {
	rt := responseTimeScore(m.AverageResponseTime())
	rel := reliabilityScore(m, now)
	sr := successRateScore(m.SuccessfulRequests, m.TotalRequests())

	return domain.MetricsSnapshot{
		Platform:            m.Platform,
		AverageResponseTime: m.AverageResponseTime(),
		SuccessfulRequests:  m.SuccessfulRequests,
		FailedRequests:      m.FailedRequests,
		TotalRequests:       m.TotalRequests(),
		ConsecutiveFailures: m.ConsecutiveFailures,
		LastFailureAt:       m.LastFailureAt,
		Health:              m.Health,
		ResponseTimeScore:   rt,
		ReliabilityScore:    rel,
		SuccessRateScore:    sr,
		OverallScore:        w.responseTime*rt + w.reliability*rel + w.successRate*sr,
	}
}
