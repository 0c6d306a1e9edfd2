package peertube

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidra-project/vidra/internal/adapter/resilience"
	"github.com/vidra-project/vidra/internal/config"
	"github.com/vidra-project/vidra/internal/core/domain"
	"github.com/vidra-project/vidra/internal/core/ports"
	"github.com/vidra-project/vidra/internal/logger"
)

func searchPayload(instance string, views ...int64) string {
	payload := `{"data": [`
	for i, v := range views {
		if i > 0 {
			payload += ","
		}
		payload += fmt.Sprintf(`{"uuid": "%s-vid-%d", "name": "Video %d", "views": %d, "channel": {"displayName": "Ch"}}`,
			instance, i, i, v)
	}
	return payload + `]}`
}

func newTestAdapter(t *testing.T, instances []string) *Adapter {
	t.Helper()
	return New(config.PeerTubeConfig{
		Instances:          instances,
		FanoutStagger:      time.Millisecond,
		PerInstanceTimeout: 2 * time.Second,
	}, Options{
		Breakers: resilience.NewManager(resilience.DefaultBreakerConfig(), logger.NewTestLogger()),
		Logger:   logger.NewTestLogger(),
	})
}

func fastRetries(a *Adapter) {
	a.retry.MaxAttempts = 1
	a.retry.BaseDelay = time.Millisecond
}

func TestFanOutMergesAndSortsByViews(t *testing.T) {
	one := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(searchPayload("one", 10, 500, 50)))
	}))
	defer one.Close()
	two := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(searchPayload("two", 1000, 5, 100)))
	}))
	defer two.Close()

	a := newTestAdapter(t, []string{one.URL, two.URL})
	results, err := a.Search(context.Background(), "query", 10)
	require.NoError(t, err)
	require.Len(t, results, 6)

	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Views, results[i].Views, "views must be descending")
	}
	assert.Equal(t, int64(1000), results[0].Views)
	assert.Equal(t, domain.PlatformPeerTube, results[0].PlatformTag)
	assert.NotEmpty(t, results[0].Instance)
}

func TestFanOutPartialFailure(t *testing.T) {
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(searchPayload("good", 300, 200, 100)))
	}))
	defer good.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()

	a := newTestAdapter(t, []string{bad.URL, good.URL})
	fastRetries(a)

	results, err := a.Search(context.Background(), "query", 10)
	require.NoError(t, err, "one healthy instance is enough")
	assert.Len(t, results, 3)

	// The failing instance is degraded after a single round, not unhealthy.
	for _, report := range a.Snapshot() {
		if report.ConsecutiveFailures > 0 {
			assert.Equal(t, domain.StatusDegraded, report.Status)
		}
	}
}

func TestFanOutAllInstancesFailed(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()

	a := newTestAdapter(t, []string{bad.URL})
	fastRetries(a)

	_, err := a.Search(context.Background(), "query", 10)
	require.Error(t, err)
	var perr *domain.PlatformError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, domain.KindUnavailable, perr.Kind())
	assert.Contains(t, perr.Message, "all 1 instances failed")
	assert.Equal(t, 1, perr.FailedInstances)
	assert.Equal(t, 1, perr.TotalInstances)
}

func TestSearchForbiddenInstanceYieldsEmpty(t *testing.T) {
	forbidden := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer forbidden.Close()

	a := newTestAdapter(t, []string{forbidden.URL})
	results, err := a.Search(context.Background(), "query", 10)
	require.NoError(t, err, "a 403 search endpoint is empty, not failed")
	assert.Empty(t, results)

	// The instance stays healthy; nothing was actually wrong with it.
	for _, report := range a.Snapshot() {
		assert.Equal(t, domain.StatusHealthy, report.Status)
	}
}

func TestGetDetailsIteratesUntilHit(t *testing.T) {
	uuid := "9c9de5e8-0a1e-484a-b099-e80766180a6d"
	missing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer missing.Close()
	holding := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(fmt.Sprintf(
			`{"uuid": "%s", "name": "Found", "views": 42, "likes": 7, "channel": {"displayName": "Ch"}}`, uuid)))
	}))
	defer holding.Close()

	a := newTestAdapter(t, []string{missing.URL, holding.URL})
	details, err := a.GetDetails(context.Background(), uuid)
	require.NoError(t, err)
	require.NotNil(t, details)
	assert.Equal(t, uuid, details.ID)
	assert.Equal(t, int64(7), details.Likes)
}

func TestGetDetailsCountsOnlyRealFailures(t *testing.T) {
	missing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer missing.Close()
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer broken.Close()

	a := newTestAdapter(t, []string{missing.URL, broken.URL})
	fastRetries(a)

	_, err := a.GetDetails(context.Background(), "nope")
	require.Error(t, err)

	var perr *domain.PlatformError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 1, perr.FailedInstances, "the clean 404 is not a failure")
	assert.Equal(t, 2, perr.TotalInstances)
	assert.Contains(t, perr.Message, "1 of 2 instances failed")
}

func TestExtractStreamPicksByResolution(t *testing.T) {
	payload := `{"uuid": "x", "name": "V", "files": [
		{"fileDownloadUrl": "https://cdn.example/360", "resolution": {"id": 360}},
		{"fileDownloadUrl": "https://cdn.example/1080", "resolution": {"id": 1080}},
		{"fileDownloadUrl": "https://cdn.example/720", "resolution": {"id": 720}}
	]}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(payload))
	}))
	defer srv.Close()

	a := newTestAdapter(t, []string{srv.URL})
	ctx := context.Background()

	best, err := a.ExtractStreamURL(ctx, "x", domain.QualityBest)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/1080", best.DirectURL)

	low, err := a.ExtractStreamURL(ctx, "x", domain.QualityLow)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/360", low.DirectURL)
}

func TestFanoutDeadline(t *testing.T) {
	assert.Equal(t, 15*time.Second, fanoutDeadline(1, 15*time.Second))
	assert.Equal(t, 30*time.Second, fanoutDeadline(2, 15*time.Second))
	assert.Equal(t, 45*time.Second, fanoutDeadline(4, 15*time.Second))
}

func TestTrackerThresholdAndExclusion(t *testing.T) {
	tr := newTracker([]string{"a", "b"})

	tr.RecordFailure("a", domain.CategoryNetwork)
	tr.RecordFailure("a", domain.CategoryNetwork)
	assert.True(t, tr.Healthy("a"), "two failures keep the instance eligible")

	tr.RecordFailure("a", domain.CategoryNetwork)
	assert.False(t, tr.Healthy("a"), "third failure excludes the instance")
	assert.Equal(t, []string{"b"}, tr.FilterHealthy([]string{"a", "b"}))

	tr.RecordSuccess("a")
	assert.True(t, tr.Healthy("a"), "a success re-admits immediately")
}

func TestTrackerFilterNeverEmpty(t *testing.T) {
	tr := newTracker([]string{"a"})
	for i := 0; i < 3; i++ {
		tr.RecordFailure("a", domain.CategoryTimeout)
	}
	assert.Equal(t, []string{"a"}, tr.FilterHealthy([]string{"a"}),
		"a fully excluded federation is still probed")
}

func TestTrackerByPriority(t *testing.T) {
	tr := newTracker([]string{"a", "b", "c"})
	tr.RecordSuccess("b")
	tr.RecordFailure("a", domain.CategoryNetwork)

	ordered := tr.ByPriority([]string{"a", "b", "c"})
	assert.Equal(t, []string{"b", "c", "a"}, ordered)
}

var _ ports.Platform = (*Adapter)(nil)
