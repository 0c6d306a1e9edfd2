package odysee

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/vidra-project/vidra/internal/adapter/resilience"
	"github.com/vidra-project/vidra/internal/config"
	"github.com/vidra-project/vidra/internal/core/domain"
	"github.com/vidra-project/vidra/internal/core/ports"
	"github.com/vidra-project/vidra/internal/logger"
)

func newTestAdapter(t *testing.T, baseURL string) *Adapter {
	t.Helper()
	a := New(config.OdyseeConfig{
		BaseURL:    baseURL,
		RunTimeout: 2 * time.Second,
	}, Options{
		Breakers: resilience.NewManager(resilience.DefaultBreakerConfig(), logger.NewTestLogger()),
		Logger:   logger.NewTestLogger(),
	})
	a.retry.MaxAttempts = 1
	a.retry.BaseDelay = time.Millisecond
	return a
}

func TestSearchMapsClaims(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "claim_search", gjson.GetBytes(body, "method").String())
		assert.Equal(t, "news", gjson.GetBytes(body, "params.text").String())
		_, _ = w.Write([]byte(`{"result": {"items": [
			{"name": "first-video", "signing_channel": {"name": "@ch", "value": {"title": "Channel"}},
			 "value": {"title": "First", "video": {"duration": 120}}, "meta": {"effective_amount": 9}},
			{"name": "second-video", "value": {"title": "Second"}}
		]}}`))
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	results, err := a.Search(context.Background(), "news", 5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "@ch/first-video", results[0].ID)
	assert.Equal(t, "Channel", results[0].Channel)
	assert.Equal(t, domain.PlatformOdysee, results[0].PlatformTag)
	assert.Equal(t, "second-video", results[1].ID)
}

func TestGetDetailsResolvesURI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "resolve", gjson.GetBytes(body, "method").String())
		_, _ = w.Write([]byte(`{"result": {"lbry://@ch/video": {
			"name": "video", "signing_channel": {"name": "@ch"},
			"value": {"title": "Resolved", "release_time": 1700000000}
		}}}`))
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	details, err := a.GetDetails(context.Background(), "@ch/video")
	require.NoError(t, err)
	require.NotNil(t, details)
	assert.Equal(t, "Resolved", details.Title)
	require.NotNil(t, details.PublishedAt)
	assert.Equal(t, int64(1700000000), details.PublishedAt.Unix())
}

func TestGetDetailsUnresolvedIsNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result": {"lbry://@ch/gone": {"error": {"name": "NOT_FOUND"}}}}`))
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	details, err := a.GetDetails(context.Background(), "@ch/gone")
	require.NoError(t, err)
	assert.Nil(t, details)
}

func TestExtractStreamURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "get", gjson.GetBytes(body, "method").String())
		_, _ = w.Write([]byte(`{"result": {"streaming_url": "https://player.example/stream.mp4"}}`))
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	handle, err := a.ExtractStreamURL(context.Background(), "@ch/video", domain.QualityBest)
	require.NoError(t, err)
	require.NotNil(t, handle)
	assert.Equal(t, "https://player.example/stream.mp4", handle.DirectURL)
	require.NotNil(t, handle.ExpiresAt)
}

func TestRPCErrorIsClassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	_, err := a.Search(context.Background(), "news", 5)
	require.Error(t, err)
	var perr *domain.PlatformError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, domain.KindUnavailable, perr.Kind())
}

func TestOwnsURL(t *testing.T) {
	a := newTestAdapter(t, "http://unused")
	assert.True(t, a.OwnsURL("https://odysee.com/@channel/video-slug"))
	assert.False(t, a.OwnsURL("https://rumble.com/v4abcd.html"))
}

var _ ports.Platform = (*Adapter)(nil)
