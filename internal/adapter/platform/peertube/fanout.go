package peertube

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/vidra-project/vidra/internal/core/domain"
)

// fanOutSearch launches one search per eligible instance with a stagger
// between launches, merges whatever arrives before the global deadline, and
// sorts by views descending.
func (a *Adapter) fanOutSearch(ctx context.Context, query string, max int) ([]domain.VideoSummary, error) {
	eligible := a.tracker.FilterHealthy(a.instances)
	deadline := fanoutDeadline(len(eligible), a.cfg.PerInstanceTimeout)

	fanCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		merged  []domain.VideoSummary
		failed  int
		lastErr error
	)

	// Launch in declaration order with the configured gap; merge order stays
	// stable by insertion before the final sort.
	for i, instance := range eligible {
		if i > 0 {
			select {
			case <-time.After(a.cfg.FanoutStagger):
			case <-fanCtx.Done():
			}
		}
		wg.Add(1)
		go func(instance string) {
			defer wg.Done()
			results, err := a.searchInstance(fanCtx, instance, query, max)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				lastErr = err
				return
			}
			merged = append(merged, results...)
		}(instance)
	}
	wg.Wait()

	if failed == len(eligible) {
		return nil, &domain.PlatformError{
			Cause:           lastErr,
			Platform:        domain.PlatformPeerTube,
			Message:         allInstancesFailedMessage(len(eligible)),
			Category:        domain.Classify(lastErr),
			FailedInstances: failed,
			TotalInstances:  len(eligible),
		}
	}
	if failed > 0 {
		a.logger.Warn("partial federation failure",
			"failed", failed, "total", len(eligible))
	}

	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Views > merged[j].Views })
	if len(merged) > max {
		merged = merged[:max]
	}
	return merged, nil
}

// fanoutDeadline is min(45s, healthy_count * per_instance_timeout).
func fanoutDeadline(healthyCount int, perInstance time.Duration) time.Duration {
	if healthyCount < 1 {
		healthyCount = 1
	}
	deadline := time.Duration(healthyCount) * perInstance
	if deadline > maxFanoutDeadline {
		return maxFanoutDeadline
	}
	return deadline
}

func allInstancesFailedMessage(n int) string {
	return "search: all " + strconv.Itoa(n) + " instances failed"
}
