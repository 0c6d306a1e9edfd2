package domain

import "time"

// MetricsWindowSize caps the rolling response-time window per platform.
const MetricsWindowSize = 100

// PlatformMetrics is the prioritizer's per-platform observation record.
// Mutation is serialized by the owning prioritizer; consumers only ever see
// Snapshot copies.
type PlatformMetrics struct {
	Platform            string
	ResponseTimes       []time.Duration
	SuccessfulRequests  int64
	FailedRequests      int64
	ConsecutiveFailures int
	LastFailureAt       time.Time
	LastErrorCategory   ErrorCategory
	Health              HealthStatus
}

// TotalRequests is always SuccessfulRequests + FailedRequests.
func (m *PlatformMetrics) TotalRequests() int64 {
	return m.SuccessfulRequests + m.FailedRequests
}

// AverageResponseTime computes the mean of the rolling window, zero when the
// window is empty.
func (m *PlatformMetrics) AverageResponseTime() time.Duration {
	if len(m.ResponseTimes) == 0 {
		return 0
	}
	var total time.Duration
	for _, rt := range m.ResponseTimes {
		total += rt
	}
	return total / time.Duration(len(m.ResponseTimes))
}

// Observe folds a single request outcome into the record.
func (m *PlatformMetrics) Observe(success bool, responseTime time.Duration, category ErrorCategory) {
	m.ResponseTimes = append(m.ResponseTimes, responseTime)
	if len(m.ResponseTimes) > MetricsWindowSize {
		m.ResponseTimes = m.ResponseTimes[len(m.ResponseTimes)-MetricsWindowSize:]
	}

	if success {
		m.SuccessfulRequests++
		m.ConsecutiveFailures = 0
		m.LastErrorCategory = CategoryNone
		return
	}

	m.FailedRequests++
	m.ConsecutiveFailures++
	m.LastFailureAt = time.Now()
	m.LastErrorCategory = category
}

// MetricsSnapshot is an immutable copy handed out by the prioritizer, with
// the derived scores filled in. All scores are in [0, 1].
type MetricsSnapshot struct {
	Platform            string        `json:"platform"`
	AverageResponseTime time.Duration `json:"average_response_time"`
	SuccessfulRequests  int64         `json:"successful_requests"`
	FailedRequests      int64         `json:"failed_requests"`
	TotalRequests       int64         `json:"total_requests"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
	LastFailureAt       time.Time     `json:"last_failure_at,omitempty"`
	Health              HealthStatus  `json:"health"`
	ResponseTimeScore   float64       `json:"response_time_score"`
	ReliabilityScore    float64       `json:"reliability_score"`
	SuccessRateScore    float64       `json:"success_rate_score"`
	OverallScore        float64       `json:"overall_score"`
}
