package app

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidra-project/vidra/internal/config"
	"github.com/vidra-project/vidra/internal/core/domain"
	"github.com/vidra-project/vidra/internal/logger"
)

type stubPlatform struct {
	name        string
	ownedPrefix string
	searchErr   error
	hits        []domain.VideoSummary
	searches    int
}

func (s *stubPlatform) Name() string                         { return s.name }
func (s *stubPlatform) Initialize(ctx context.Context) error { return nil }
func (s *stubPlatform) Shutdown(ctx context.Context) error   { return nil }
func (s *stubPlatform) OwnsURL(rawURL string) bool {
	return s.ownedPrefix != "" && strings.HasPrefix(rawURL, s.ownedPrefix)
}
func (s *stubPlatform) ClassifyURL(rawURL string) string {
	if s.OwnsURL(rawURL) {
		return "stub-id"
	}
	return ""
}
func (s *stubPlatform) Search(ctx context.Context, query string, max int) ([]domain.VideoSummary, error) {
	s.searches++
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	return s.hits, nil
}
func (s *stubPlatform) GetDetails(ctx context.Context, id string) (*domain.VideoDetails, error) {
	if len(s.hits) == 0 {
		return nil, nil
	}
	return &domain.VideoDetails{VideoSummary: s.hits[0]}, nil
}
func (s *stubPlatform) ExtractStreamURL(ctx context.Context, id, quality string) (*domain.StreamHandle, error) {
	return &domain.StreamHandle{DirectURL: "https://cdn.example/" + id, QualityTag: quality}, nil
}

func hit(platform, id string) domain.VideoSummary {
	return domain.VideoSummary{ID: id, Title: id, PlatformTag: platform}
}

// newTestApp builds an App with every real platform disabled; tests register
// stubs through the registry instead.
func newTestApp(t *testing.T) *App {
	t.Helper()
	t.Setenv("IS_VPS", "false")
	t.Setenv("DEPLOYMENT_TYPE", "")

	cfg := config.DefaultConfig()
	cfg.Platforms = config.PlatformsConfig{}
	cfg.Cache.Backend = "memory"
	cfg.Extractor.BinaryPath = "yt-dlp-not-installed"

	a, err := New(context.Background(), time.Now(), cfg, logger.NewTestLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Stop(context.Background()) })
	return a
}

func TestSearchRoutesURLToOwner(t *testing.T) {
	a := newTestApp(t)
	yt := &stubPlatform{name: "alpha", ownedPrefix: "https://alpha.example/", hits: []domain.VideoSummary{hit("alpha", "a1")}}
	rb := &stubPlatform{name: "beta", ownedPrefix: "https://beta.example/", hits: []domain.VideoSummary{hit("beta", "b1")}}
	a.Registry().Register(yt)
	a.Registry().Register(rb)

	results, err := a.Search(context.Background(), "https://beta.example/b1", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "beta", results[0].PlatformTag)
	assert.Zero(t, yt.searches, "non-owning platform must not be queried")
}

func TestSearchRejectsUnownedURL(t *testing.T) {
	a := newTestApp(t)
	a.Registry().Register(&stubPlatform{name: "alpha", ownedPrefix: "https://alpha.example/"})

	_, err := a.Search(context.Background(), "https://nobody.example/v1", 10)
	require.Error(t, err)
	var perr *domain.PlatformError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, domain.CategoryBadRequest, perr.Category)
}

func TestSearchFallsBackAcrossPlatforms(t *testing.T) {
	a := newTestApp(t)
	failing := &stubPlatform{name: "aaa",
		searchErr: domain.NewPlatformError("aaa", "down", domain.CategoryServer5xx, nil)}
	working := &stubPlatform{name: "bbb", hits: []domain.VideoSummary{hit("bbb", "ok")}}
	a.Registry().Register(failing)
	a.Registry().Register(working)

	results, err := a.Search(context.Background(), "cats", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "bbb", results[0].PlatformTag)
	assert.Equal(t, 1, failing.searches)
}

func TestSearchSurfacesErrorWhenAllFail(t *testing.T) {
	a := newTestApp(t)
	a.Registry().Register(&stubPlatform{name: "aaa",
		searchErr: domain.NewPlatformError("aaa", "down", domain.CategoryServer5xx, nil)})

	_, err := a.Search(context.Background(), "cats", 10)
	require.Error(t, err)
	var perr *domain.PlatformError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, domain.KindUnavailable, perr.Kind())
}

func TestSearchSkipsRestrictedPlatform(t *testing.T) {
	a := newTestApp(t)
	benched := &stubPlatform{name: "aaa", hits: []domain.VideoSummary{hit("aaa", "never")}}
	working := &stubPlatform{name: "bbb", hits: []domain.VideoSummary{hit("bbb", "ok")}}
	a.Registry().Register(benched)
	a.Registry().Register(working)

	a.Fallback().Register("aaa", []domain.FallbackStrategy{
		{Mode: domain.ModeDisabled, Priority: 1, Enabled: true},
	})
	_, err := a.Fallback().Activate("aaa", "benched for test")
	require.NoError(t, err)

	results, err := a.Search(context.Background(), "cats", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "bbb", results[0].PlatformTag)
	assert.Zero(t, benched.searches)
}

func TestSearchByURLHonoursRestriction(t *testing.T) {
	a := newTestApp(t)
	benched := &stubPlatform{name: "aaa", ownedPrefix: "https://aaa.example/",
		hits: []domain.VideoSummary{hit("aaa", "never")}}
	a.Registry().Register(benched)

	a.Fallback().Register("aaa", []domain.FallbackStrategy{
		{Mode: domain.ModeDisabled, Priority: 1, Enabled: true},
	})
	_, err := a.Fallback().Activate("aaa", "benched for test")
	require.NoError(t, err)

	_, err = a.Search(context.Background(), "https://aaa.example/never", 10)
	require.Error(t, err)
	var perr *domain.PlatformError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "aaa", perr.Platform)
	assert.Zero(t, benched.searches, "restricted platform must not serve URL queries")
}

func TestDetailsUnknownPlatform(t *testing.T) {
	a := newTestApp(t)

	_, err := a.Details(context.Background(), "nonesuch", "id")
	require.Error(t, err)
	var perr *domain.PlatformError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, domain.CategoryBadRequest, perr.Category)
}

func TestStreamRejectsUnknownQuality(t *testing.T) {
	a := newTestApp(t)
	a.Registry().Register(&stubPlatform{name: "aaa"})

	_, err := a.Stream(context.Background(), "aaa", "id", "4k")
	require.Error(t, err)
	var perr *domain.PlatformError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, domain.CategoryBadRequest, perr.Category)
}

func TestStreamDefaultsToBest(t *testing.T) {
	a := newTestApp(t)
	a.Registry().Register(&stubPlatform{name: "aaa"})

	handle, err := a.Stream(context.Background(), "aaa", "v1", "")
	require.NoError(t, err)
	assert.Equal(t, domain.QualityBest, handle.QualityTag)
}

func TestStatusReportAggregates(t *testing.T) {
	a := newTestApp(t)
	a.Registry().Register(&stubPlatform{name: "aaa"})

	report := a.Status()
	assert.Equal(t, []string{"aaa"}, report.Platforms)
	assert.NotNil(t, report.Fallback)
	assert.GreaterOrEqual(t, report.Uptime, time.Duration(0))
}
