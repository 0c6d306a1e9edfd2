package youtube

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"github.com/vidra-project/vidra/internal/adapter/resilience"
	"github.com/vidra-project/vidra/internal/core/domain"
	"github.com/vidra-project/vidra/internal/core/ports"
)

// quotaLedger books Data API units against the daily budget. The counter
// resets lazily at the next UTC midnight, which is when the backend resets
// its own accounting.
type quotaLedger struct {
	mu        sync.Mutex
	used      int
	limit     int
	threshold float64
	resetAt   time.Time
}

func newQuotaLedger(limit int, threshold float64) *quotaLedger {
	return &quotaLedger{
		limit:     limit,
		threshold: threshold,
		resetAt:   nextUTCMidnight(time.Now()),
	}
}

func nextUTCMidnight(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
}

// consume books units and reports whether usage now exceeds the conservation
// threshold.
func (q *quotaLedger) consume(units int) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.maybeReset(time.Now())
	q.used += units
	return float64(q.used) >= float64(q.limit)*q.threshold
}

func (q *quotaLedger) usage() float64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.maybeReset(time.Now())
	return float64(q.used) / float64(q.limit)
}

func (q *quotaLedger) maybeReset(now time.Time) {
	if now.After(q.resetAt) {
		q.used = 0
		q.resetAt = nextUTCMidnight(now)
	}
}

// apiSearch calls search.list under the breaker and retry policy.
func (a *Adapter) apiSearch(ctx context.Context, query string, max int) ([]domain.VideoSummary, error) {
	if max > 50 {
		max = 50
	}
	params := url.Values{
		"part":       {"snippet"},
		"type":       {"video"},
		"q":          {query},
		"maxResults": {strconv.Itoa(max)},
		"key":        {a.cfg.APIKey},
	}

	raw, err := a.apiGet(ctx, "/search", params, searchQuotaCost)
	if err != nil {
		return nil, err
	}

	var results []domain.VideoSummary
	gjson.GetBytes(raw, "items").ForEach(func(_, item gjson.Result) bool {
		id := item.Get("id.videoId").String()
		if id == "" {
			return true
		}
		snippet := item.Get("snippet")
		results = append(results, domain.VideoSummary{
			ID:           id,
			Title:        snippet.Get("title").String(),
			Channel:      snippet.Get("channelTitle").String(),
			ThumbnailURL: snippet.Get("thumbnails.high.url").String(),
			CanonicalURL: "https://www.youtube.com/watch?v=" + id,
			PlatformTag:  domain.PlatformYouTube,
			Description:  snippet.Get("description").String(),
		})
		return true
	})
	return results, nil
}

// apiVideoDetails calls videos.list for one id. A missing item is a nil
// result, not an error.
func (a *Adapter) apiVideoDetails(ctx context.Context, id string) (*domain.VideoDetails, error) {
	params := url.Values{
		"part": {"snippet,statistics,contentDetails"},
		"id":   {id},
		"key":  {a.cfg.APIKey},
	}

	raw, err := a.apiGet(ctx, "/videos", params, videosQuotaCost)
	if err != nil {
		return nil, err
	}

	item := gjson.GetBytes(raw, "items.0")
	if !item.Exists() {
		return nil, nil
	}

	snippet := item.Get("snippet")
	stats := item.Get("statistics")
	details := &domain.VideoDetails{
		VideoSummary: domain.VideoSummary{
			ID:              id,
			Title:           snippet.Get("title").String(),
			Channel:         snippet.Get("channelTitle").String(),
			ThumbnailURL:    snippet.Get("thumbnails.high.url").String(),
			CanonicalURL:    "https://www.youtube.com/watch?v=" + id,
			PlatformTag:     domain.PlatformYouTube,
			Description:     snippet.Get("description").String(),
			DurationSeconds: parseISO8601Duration(item.Get("contentDetails.duration").String()),
			Views:           stats.Get("viewCount").Int(),
		},
		Likes:              stats.Get("likeCount").Int(),
		AvailableQualities: []string{domain.QualityBest, domain.QualityMedium, domain.QualityLow},
	}
	if published := snippet.Get("publishedAt").String(); published != "" {
		if ts, parseErr := time.Parse(time.RFC3339, published); parseErr == nil {
			details.PublishedAt = &ts
		}
	}
	return details, nil
}

// apiGet performs one paced, guarded API request and returns the body.
// Quota-exceeded rejections escalate the fallback engine before re-raising.
func (a *Adapter) apiGet(ctx context.Context, path string, params url.Values, quotaCost int) ([]byte, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, a.wrap("rate limiter interrupted", err)
	}

	var body []byte
	call := func(ctx context.Context) error {
		return a.breaker.Call(ctx, func(ctx context.Context) error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+path+"?"+params.Encode(), nil)
			if err != nil {
				return err
			}
			resp, err := a.client.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
			if err != nil {
				return err
			}
			if resp.StatusCode != http.StatusOK {
				return apiStatusError(resp.StatusCode, raw)
			}
			body = raw
			return nil
		})
	}

	if err := resilience.Retry(ctx, a.retry, call); err != nil {
		if domain.IsQuotaExceeded(err) {
			a.escalateQuotaExceeded()
			return nil, domain.NewPlatformError(domain.PlatformYouTube,
				"daily API quota exhausted", domain.CategoryRateLimit, err)
		}
		return nil, a.wrap("API request failed", err)
	}

	a.noteQuota(quotaCost)
	return body, nil
}

func (a *Adapter) escalateQuotaExceeded() {
	if a.fallback == nil {
		return
	}
	if _, err := a.fallback.Activate(domain.PlatformYouTube, "quotaExceeded"); err != nil {
		a.logger.Warn("fallback activation failed", "error", err)
	}
}

// apiStatusError folds the API's structured error reason into the message so
// quota rejections stay recognisable after wrapping.
func apiStatusError(status int, body []byte) error {
	reason := gjson.GetBytes(body, "error.errors.0.reason").String()
	if reason == "" {
		reason = gjson.GetBytes(body, "error.message").String()
	}
	if reason != "" {
		return domain.NewPlatformError(domain.PlatformYouTube,
			fmt.Sprintf("API rejected request: %s", reason),
			domain.ClassifyStatus(status), &domain.StatusError{StatusCode: status, Body: reason})
	}
	return &domain.StatusError{StatusCode: status, Body: strings.TrimSpace(string(body))}
}

// parseISO8601Duration handles the PT#H#M#S subset the API emits.
func parseISO8601Duration(s string) int64 {
	if !strings.HasPrefix(s, "PT") {
		return 0
	}
	var total, current int64
	for _, r := range s[2:] {
		switch {
		case r >= '0' && r <= '9':
			current = current*10 + int64(r-'0')
		case r == 'H':
			total += current * 3600
			current = 0
		case r == 'M':
			total += current * 60
			current = 0
		case r == 'S':
			total += current
			current = 0
		}
	}
	return total
}

func summaryFromMediaInfo(info *ports.MediaInfo) domain.VideoSummary {
	return domain.VideoSummary{
		ID:              info.ID,
		Title:           info.Title,
		Channel:         info.Channel,
		ThumbnailURL:    info.ThumbnailURL,
		CanonicalURL:    info.WebpageURL,
		PlatformTag:     domain.PlatformYouTube,
		Description:     info.Description,
		DurationSeconds: info.DurationSeconds,
		Views:           info.Views,
	}
}
