// Package peertube implements the federated source adapter: one logical
// platform backed by many independently-operated instances, searched by
// staggered fan-out and read by healthy-first iteration.
package peertube

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"github.com/vidra-project/vidra/internal/adapter/platform/shared"
	"github.com/vidra-project/vidra/internal/adapter/resilience"
	"github.com/vidra-project/vidra/internal/config"
	"github.com/vidra-project/vidra/internal/core/domain"
	"github.com/vidra-project/vidra/internal/logger"
	"github.com/vidra-project/vidra/internal/util"
)

const (
	defaultFanoutStagger      = 50 * time.Millisecond
	defaultPerInstanceTimeout = 15 * time.Second
	maxFanoutDeadline         = 45 * time.Second

	streamHandleTTL = 30 * time.Minute
)

type Adapter struct {
	cfg       config.PeerTubeConfig
	instances []string
	tracker   *tracker
	breakers  *resilience.Manager
	retry     resilience.RetryPolicy
	client    *http.Client
	logger    logger.StyledLogger
}

type Options struct {
	Client   *http.Client
	Breakers *resilience.Manager
	Logger   logger.StyledLogger
}

func New(cfg config.PeerTubeConfig, opts Options) *Adapter {
	if cfg.FanoutStagger <= 0 {
		cfg.FanoutStagger = defaultFanoutStagger
	}
	if cfg.PerInstanceTimeout <= 0 {
		cfg.PerInstanceTimeout = defaultPerInstanceTimeout
	}

	instances := make([]string, 0, len(cfg.Instances))
	for _, raw := range cfg.Instances {
		instances = append(instances, util.NormaliseBaseURL(raw))
	}

	client := opts.Client
	if client == nil {
		client = http.DefaultClient
	}

	// Per-instance breakers ride on a dedicated manager so one flapping
	// instance cannot trip a platform-level breaker.
	retry := resilience.DefaultRetryPolicy()
	retry.MaxAttempts = 2
	retry.BaseDelay = 500 * time.Millisecond

	return &Adapter{
		cfg:       cfg,
		instances: instances,
		tracker:   newTracker(instances),
		breakers:  opts.Breakers,
		retry:     retry,
		client:    client,
		logger:    opts.Logger,
	}
}

func (a *Adapter) Name() string { return domain.PlatformPeerTube }

func (a *Adapter) Initialize(ctx context.Context) error {
	if len(a.instances) == 0 {
		return fmt.Errorf("federated adapter needs at least one instance")
	}
	a.logger.InfoWithCount("federated instances configured", len(a.instances))
	return nil
}

func (a *Adapter) Shutdown(ctx context.Context) error { return nil }

func (a *Adapter) ClassifyURL(rawURL string) string {
	id := shared.PeerTubeVideoID(rawURL)
	if id == "" {
		return ""
	}
	// Only URLs on a configured instance are owned.
	for _, instance := range a.instances {
		if matchesInstance(rawURL, instance) {
			return id
		}
	}
	return ""
}

func (a *Adapter) OwnsURL(rawURL string) bool { return a.ClassifyURL(rawURL) != "" }

func matchesInstance(rawURL, instance string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	i, err := url.Parse(instance)
	if err != nil {
		return false
	}
	return u.Hostname() != "" && u.Hostname() == i.Hostname()
}

// Snapshot exposes per-instance health for the operational surface.
func (a *Adapter) Snapshot() []InstanceReport { return a.tracker.Snapshot() }

// Search fans out to all eligible instances and merges their hits sorted by
// views descending. Partial success is success; only a full wipe-out is an
// error.
func (a *Adapter) Search(ctx context.Context, query string, max int) ([]domain.VideoSummary, error) {
	if max <= 0 {
		max = 10
	}

	if shared.IsURL(query) {
		id := a.ClassifyURL(query)
		if id == "" {
			return nil, domain.NewPlatformError(domain.PlatformPeerTube, "URL not on a configured instance",
				domain.CategoryNotFound, nil)
		}
		details, err := a.GetDetails(ctx, id)
		if err != nil {
			return nil, err
		}
		if details == nil {
			return nil, domain.NewPlatformError(domain.PlatformPeerTube, "video not found",
				domain.CategoryNotFound, nil)
		}
		return []domain.VideoSummary{details.VideoSummary}, nil
	}

	return a.fanOutSearch(ctx, query, max)
}

// searchInstance queries one instance under its breaker and retry policy.
// A 403 means the instance disabled its search endpoint; that is an empty
// result with a warning, not a failure.
func (a *Adapter) searchInstance(ctx context.Context, instance, query string, max int) ([]domain.VideoSummary, error) {
	params := url.Values{
		"search": {query},
		"count":  {strconv.Itoa(max)},
		"sort":   {"-views"},
	}

	var results []domain.VideoSummary
	call := func(ctx context.Context) error {
		return a.breakers.Breaker(instance).Call(ctx, func(ctx context.Context) error {
			raw, status, err := a.get(ctx, instance, "/api/v1/search/videos?"+params.Encode())
			if err != nil {
				return err
			}
			if status == http.StatusForbidden {
				a.logger.Warn("instance rejects search, returning no hits",
					"instance", instance)
				return nil
			}
			if status != http.StatusOK {
				return &domain.StatusError{StatusCode: status}
			}
			gjson.GetBytes(raw, "data").ForEach(func(_, item gjson.Result) bool {
				results = append(results, a.summaryFromVideo(instance, item))
				return true
			})
			return nil
		})
	}

	if err := resilience.Retry(ctx, a.retry, call); err != nil {
		a.tracker.RecordFailure(instance, domain.Classify(err))
		return nil, err
	}
	a.tracker.RecordSuccess(instance)
	return results, nil
}

// GetDetails iterates instances healthy-first until one yields the video.
func (a *Adapter) GetDetails(ctx context.Context, id string) (*domain.VideoDetails, error) {
	var lastErr error
	failed := 0
	for _, instance := range a.tracker.ByPriority(a.tracker.FilterHealthy(a.instances)) {
		details, err := a.detailsFromInstance(ctx, instance, id)
		if err != nil {
			lastErr = err
			failed++
			continue
		}
		if details != nil {
			return details, nil
		}
	}
	if lastErr != nil {
		return nil, a.allFailed("get_details", failed, lastErr)
	}
	return nil, nil
}

func (a *Adapter) detailsFromInstance(ctx context.Context, instance, id string) (*domain.VideoDetails, error) {
	var details *domain.VideoDetails
	call := func(ctx context.Context) error {
		return a.breakers.Breaker(instance).Call(ctx, func(ctx context.Context) error {
			raw, status, err := a.get(ctx, instance, "/api/v1/videos/"+url.PathEscape(id))
			if err != nil {
				return err
			}
			if status == http.StatusNotFound {
				return nil
			}
			if status != http.StatusOK {
				return &domain.StatusError{StatusCode: status}
			}

			doc := gjson.ParseBytes(raw)
			summary := a.summaryFromVideo(instance, doc)
			details = &domain.VideoDetails{
				VideoSummary:       summary,
				Likes:              doc.Get("likes").Int(),
				Dislikes:           doc.Get("dislikes").Int(),
				AvailableQualities: availableQualities(doc),
			}
			if published := doc.Get("publishedAt").String(); published != "" {
				if ts, parseErr := time.Parse(time.RFC3339, published); parseErr == nil {
					details.PublishedAt = &ts
				}
			}
			return nil
		})
	}

	if err := resilience.Retry(ctx, a.retry, call); err != nil {
		a.tracker.RecordFailure(instance, domain.Classify(err))
		return nil, err
	}
	a.tracker.RecordSuccess(instance)
	return details, nil
}

// ExtractStreamURL resolves the file list healthy-first and picks the best
// matching resolution.
func (a *Adapter) ExtractStreamURL(ctx context.Context, id, quality string) (*domain.StreamHandle, error) {
	var lastErr error
	failed := 0
	for _, instance := range a.tracker.ByPriority(a.tracker.FilterHealthy(a.instances)) {
		handle, err := a.streamFromInstance(ctx, instance, id, quality)
		if err != nil {
			lastErr = err
			failed++
			continue
		}
		if handle != nil {
			return handle, nil
		}
	}
	if lastErr != nil {
		return nil, a.allFailed("extract_stream_url", failed, lastErr)
	}
	return nil, nil
}

func (a *Adapter) streamFromInstance(ctx context.Context, instance, id, quality string) (*domain.StreamHandle, error) {
	var handle *domain.StreamHandle
	call := func(ctx context.Context) error {
		return a.breakers.Breaker(instance).Call(ctx, func(ctx context.Context) error {
			raw, status, err := a.get(ctx, instance, "/api/v1/videos/"+url.PathEscape(id))
			if err != nil {
				return err
			}
			if status == http.StatusNotFound {
				return nil
			}
			if status != http.StatusOK {
				return &domain.StatusError{StatusCode: status}
			}

			fileURL := pickFileURL(gjson.ParseBytes(raw), quality)
			if fileURL == "" {
				return nil
			}
			expires := time.Now().Add(streamHandleTTL)
			handle = &domain.StreamHandle{
				DirectURL:  fileURL,
				QualityTag: quality,
				ExpiresAt:  &expires,
			}
			return nil
		})
	}

	if err := resilience.Retry(ctx, a.retry, call); err != nil {
		a.tracker.RecordFailure(instance, domain.Classify(err))
		return nil, err
	}
	a.tracker.RecordSuccess(instance)
	return handle, nil
}

func (a *Adapter) get(ctx context.Context, instance, path string) ([]byte, int, error) {
	reqCtx, cancel := context.WithTimeout(ctx, a.cfg.PerInstanceTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, instance+path, nil)
	if err != nil {
		return nil, 0, err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, 0, err
	}
	return raw, resp.StatusCode, nil
}

// allFailed reports a failed iteration. Instances that answered cleanly
// (404, no stream) are not counted as failures.
func (a *Adapter) allFailed(operation string, failed int, cause error) error {
	total := len(a.instances)
	message := fmt.Sprintf("%s: all %d instances failed", operation, total)
	if failed < total {
		message = fmt.Sprintf("%s: %d of %d instances failed", operation, failed, total)
	}
	return &domain.PlatformError{
		Cause:           cause,
		Platform:        domain.PlatformPeerTube,
		Message:         message,
		Category:        domain.Classify(cause),
		FailedInstances: failed,
		TotalInstances:  total,
	}
}

func (a *Adapter) summaryFromVideo(instance string, item gjson.Result) domain.VideoSummary {
	id := item.Get("uuid").String()
	if id == "" {
		id = item.Get("id").String()
	}
	thumbnail := item.Get("thumbnailPath").String()
	if thumbnail != "" {
		thumbnail = instance + thumbnail
	}
	return domain.VideoSummary{
		ID:              id,
		Title:           item.Get("name").String(),
		Channel:         item.Get("channel.displayName").String(),
		ThumbnailURL:    thumbnail,
		CanonicalURL:    instance + "/videos/watch/" + id,
		PlatformTag:     domain.PlatformPeerTube,
		Description:     item.Get("description").String(),
		DurationSeconds: item.Get("duration").Int(),
		Views:           item.Get("views").Int(),
		Instance:        hostOf(instance),
	}
}

func hostOf(instance string) string {
	u, err := url.Parse(instance)
	if err != nil {
		return instance
	}
	return u.Hostname()
}

func availableQualities(doc gjson.Result) []string {
	if doc.Get("files.#").Int() > 0 || doc.Get("streamingPlaylists.0.files.#").Int() > 0 {
		return []string{domain.QualityBest, domain.QualityMedium, domain.QualityLow}
	}
	return []string{domain.QualityBest}
}

// pickFileURL chooses from the flat file list (or the HLS playlist's file
// list) by resolution: best is the highest, medium the middle, low the
// lowest.
func pickFileURL(doc gjson.Result, quality string) string {
	files := doc.Get("files")
	if files.Get("#").Int() == 0 {
		files = doc.Get("streamingPlaylists.0.files")
	}

	type file struct {
		url    string
		height int
	}
	var candidates []file
	files.ForEach(func(_, f gjson.Result) bool {
		u := f.Get("fileDownloadUrl").String()
		if u == "" {
			u = f.Get("fileUrl").String()
		}
		if u == "" {
			return true
		}
		candidates = append(candidates, file{url: u, height: int(f.Get("resolution.id").Int())})
		return true
	})
	if len(candidates) == 0 {
		return ""
	}

	for i := 1; i < len(candidates); i++ {
		for j := i; j > 0 && candidates[j].height > candidates[j-1].height; j-- {
			candidates[j], candidates[j-1] = candidates[j-1], candidates[j]
		}
	}
	switch quality {
	case domain.QualityMedium:
		return candidates[len(candidates)/2].url
	case domain.QualityLow:
		return candidates[len(candidates)-1].url
	default:
		return candidates[0].url
	}
}
