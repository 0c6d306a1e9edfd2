package domain

import "time"

const (
	StatusStringHealthy   = "healthy"
	StatusStringDegraded  = "degraded"
	StatusStringUnhealthy = "unhealthy"
	StatusStringUnknown   = "unknown"
)

// HealthStatus is shared between federated instances and whole platforms.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = StatusStringHealthy
	StatusDegraded  HealthStatus = StatusStringDegraded
	StatusUnhealthy HealthStatus = StatusStringUnhealthy
	StatusUnknown   HealthStatus = StatusStringUnknown
)

func (s HealthStatus) String() string { return string(s) }

// Routable reports whether traffic may be sent at all.
func (s HealthStatus) Routable() bool {
	return s == StatusHealthy || s == StatusDegraded || s == StatusUnknown
}

const (
	// InstanceFailureThreshold is the consecutive-failure count at which a
	// federated instance becomes unhealthy.
	InstanceFailureThreshold = 3
	// InstanceExclusionWindow is how long an unhealthy instance stays out of
	// fan-out before being re-admitted (a probe success re-admits earlier).
	InstanceExclusionWindow = 5 * time.Minute
)

// InstanceHealth is the per-endpoint state of the federated source.
// Invariant: Status == unhealthy iff ConsecutiveFailures >= InstanceFailureThreshold.
type InstanceHealth struct {
	LastSuccessAt       time.Time
	LastFailureAt       time.Time
	LastErrorCategory   ErrorCategory
	Status              HealthStatus
	ConsecutiveFailures int
}

// Eligible reports whether the instance may take part in fan-out at the
// given time.
func (h *InstanceHealth) Eligible(now time.Time) bool {
	if h.Status != StatusUnhealthy {
		return true
	}
	return !h.LastFailureAt.IsZero() && now.Sub(h.LastFailureAt) >= InstanceExclusionWindow
}
