package peertube

import (
	"sync"
	"time"

	"github.com/vidra-project/vidra/internal/core/domain"
)

// tracker keeps per-instance health for the federated adapter. One failure
// degrades an instance, the third consecutive failure removes it from
// fan-out for the exclusion window.
type tracker struct {
	mu        sync.Mutex
	instances map[string]*domain.InstanceHealth
}

func newTracker(instances []string) *tracker {
	t := &tracker{instances: make(map[string]*domain.InstanceHealth, len(instances))}
	for _, instance := range instances {
		t.instances[instance] = &domain.InstanceHealth{Status: domain.StatusUnknown}
	}
	return t
}

func (t *tracker) state(instance string) *domain.InstanceHealth {
	h, ok := t.instances[instance]
	if !ok {
		h = &domain.InstanceHealth{Status: domain.StatusUnknown}
		t.instances[instance] = h
	}
	return h
}

// RecordSuccess clears the failure streak and restores the instance.
func (t *tracker) RecordSuccess(instance string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	h := t.state(instance)
	h.ConsecutiveFailures = 0
	h.Status = domain.StatusHealthy
	h.LastSuccessAt = time.Now()
}

// RecordFailure bumps the streak; the instance is degraded until the streak
// reaches the threshold, unhealthy after.
func (t *tracker) RecordFailure(instance string, category domain.ErrorCategory) {
	t.mu.Lock()
	defer t.mu.Unlock()

	h := t.state(instance)
	h.ConsecutiveFailures++
	h.LastFailureAt = time.Now()
	h.LastErrorCategory = category
	if h.ConsecutiveFailures >= domain.InstanceFailureThreshold {
		h.Status = domain.StatusUnhealthy
	} else {
		h.Status = domain.StatusDegraded
	}
}

// Healthy reports whether the instance may take part in fan-out right now.
func (t *tracker) Healthy(instance string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state(instance).Eligible(time.Now())
}

// FilterHealthy keeps the endpoints eligible for fan-out. When every
// instance is excluded the full list is returned: a wholly-excluded
// federation would otherwise never get the chance to recover.
func (t *tracker) FilterHealthy(instances []string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	eligible := make([]string, 0, len(instances))
	for _, instance := range instances {
		if t.state(instance).Eligible(now) {
			eligible = append(eligible, instance)
		}
	}
	if len(eligible) == 0 {
		return instances
	}
	return eligible
}

// ByPriority orders instances last-known-healthy first for the sequential
// detail and stream paths.
func (t *tracker) ByPriority(instances []string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	rank := func(s domain.HealthStatus) int {
		switch s {
		case domain.StatusHealthy:
			return 0
		case domain.StatusUnknown:
			return 1
		case domain.StatusDegraded:
			return 2
		default:
			return 3
		}
	}

	ordered := make([]string, len(instances))
	copy(ordered, instances)
	// Stable by declaration order within each rank.
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && rank(t.state(ordered[j]).Status) < rank(t.state(ordered[j-1]).Status); j-- {
			ordered[j], ordered[j-1] = ordered[j-1], ordered[j]
		}
	}
	return ordered
}

// InstanceReport is the health snapshot for one endpoint.
type InstanceReport struct {
	Instance            string                `json:"instance"`
	Status              domain.HealthStatus   `json:"status"`
	ConsecutiveFailures int                   `json:"consecutive_failures"`
	LastErrorCategory   domain.ErrorCategory  `json:"last_error_category,omitempty"`
	LastSuccessAt       time.Time             `json:"last_success_at,omitempty"`
	LastFailureAt       time.Time             `json:"last_failure_at,omitempty"`
}

// Snapshot reports the state of every tracked instance.
func (t *tracker) Snapshot() []InstanceReport {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]InstanceReport, 0, len(t.instances))
	for instance, h := range t.instances {
		out = append(out, InstanceReport{
			Instance:            instance,
			Status:              h.Status,
			ConsecutiveFailures: h.ConsecutiveFailures,
			LastErrorCategory:   h.LastErrorCategory,
			LastSuccessAt:       h.LastSuccessAt,
			LastFailureAt:       h.LastFailureAt,
		})
	}
	return out
}
