package rumble

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
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

func newTestAdapter(t *testing.T, baseURL string) *Adapter {
	t.Helper()
	return New(config.ActorConfig{
		APIToken:   "token",
		BaseURL:    baseURL,
		RunTimeout: 2 * time.Second,
	}, Options{
		Breakers: resilience.NewManager(resilience.DefaultBreakerConfig(), logger.NewTestLogger()),
		Logger:   logger.NewTestLogger(),
	})
}

func TestSearchMapsDatasetItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.Contains(r.URL.Path, "run-sync-get-dataset-items"))
		assert.Equal(t, "token", r.URL.Query().Get("token"))
		_, _ = w.Write([]byte(`[
			{"id": "v4aaa", "title": "First", "channel": "Ch", "url": "https://rumble.com/v4aaa-first.html", "views": 100, "duration": 60},
			{"id": "v4bbb", "title": "Second", "url": "https://rumble.com/v4bbb.html"}
		]`))
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	results, err := a.Search(context.Background(), "news", 5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "v4aaa", results[0].ID)
	assert.Equal(t, domain.PlatformRumble, results[0].PlatformTag)
	assert.Equal(t, int64(100), results[0].Views)
}

func TestSearchWithoutTokenIsAuthRequired(t *testing.T) {
	a := New(config.ActorConfig{}, Options{
		Breakers: resilience.NewManager(resilience.DefaultBreakerConfig(), logger.NewTestLogger()),
		Logger:   logger.NewTestLogger(),
	})

	_, err := a.Search(context.Background(), "news", 5)
	require.Error(t, err)
	var perr *domain.PlatformError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, domain.KindAuthRequired, perr.Kind())
}

func TestRunTimeoutIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	a := New(config.ActorConfig{
		APIToken:   "token",
		BaseURL:    srv.URL,
		RunTimeout: 50 * time.Millisecond,
	}, Options{
		Breakers: resilience.NewManager(resilience.DefaultBreakerConfig(), logger.NewTestLogger()),
		Logger:   logger.NewTestLogger(),
	})
	a.retry.MaxAttempts = 1
	a.retry.BaseDelay = time.Millisecond

	_, err := a.Search(context.Background(), "news", 5)
	require.Error(t, err)
	var perr *domain.PlatformError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, domain.KindUnavailable, perr.Kind())
}

func TestGetDetailsMissingVideoIsNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	details, err := a.GetDetails(context.Background(), "v4abcd")
	require.NoError(t, err)
	assert.Nil(t, details)
}

func TestExtractStreamQualityMapping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"streams": [
			{"url": "https://cdn.example/480", "height": 480},
			{"url": "https://cdn.example/1080", "height": 1080},
			{"url": "https://cdn.example/720", "height": 720},
			{"url": "https://cdn.example/240", "height": 240}
		]}]`))
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	ctx := context.Background()

	best, err := a.ExtractStreamURL(ctx, "v4abcd", domain.QualityBest)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/1080", best.DirectURL)

	medium, err := a.ExtractStreamURL(ctx, "v4abcd", domain.QualityMedium)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/480", medium.DirectURL)

	low, err := a.ExtractStreamURL(ctx, "v4abcd", domain.QualityLow)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/240", low.DirectURL)
}

func TestOwnsURL(t *testing.T) {
	a := newTestAdapter(t, "http://unused")
	assert.True(t, a.OwnsURL("https://rumble.com/v4abcd-title.html"))
	assert.False(t, a.OwnsURL("https://www.youtube.com/watch?v=dQw4w9WgXcQ"))
}

var _ ports.Platform = (*Adapter)(nil)
