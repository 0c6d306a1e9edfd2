// Package odysee implements the proprietary scraping source adapter against
// the LBRY backend proxy. Contract-wise it tracks the paid-actor adapter:
// every operation is one bounded backend call, classified on failure.
package odysee

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/tidwall/gjson"

	"github.com/vidra-project/vidra/internal/adapter/platform/shared"
	"github.com/vidra-project/vidra/internal/adapter/resilience"
	"github.com/vidra-project/vidra/internal/config"
	"github.com/vidra-project/vidra/internal/core/domain"
	"github.com/vidra-project/vidra/internal/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	defaultBackendURL = "https://api.na-backend.odysee.com/api/v1/proxy"
	defaultRunTimeout = 60 * time.Second

	streamHandleTTL = 30 * time.Minute
)

type Adapter struct {
	cfg     config.OdyseeConfig
	baseURL string
	client  *http.Client
	breaker *resilience.Breaker
	retry   resilience.RetryPolicy
	logger  logger.StyledLogger
}

type Options struct {
	Client   *http.Client
	Breakers *resilience.Manager
	Logger   logger.StyledLogger
}

func New(cfg config.OdyseeConfig, opts Options) *Adapter {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBackendURL
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = defaultRunTimeout
	}
	client := opts.Client
	if client == nil {
		client = http.DefaultClient
	}

	return &Adapter{
		cfg:     cfg,
		baseURL: baseURL,
		client:  client,
		breaker: opts.Breakers.Breaker(domain.PlatformOdysee),
		retry:   resilience.DefaultRetryPolicy(),
		logger:  opts.Logger,
	}
}

func (a *Adapter) Name() string { return domain.PlatformOdysee }

func (a *Adapter) Initialize(ctx context.Context) error { return nil }

func (a *Adapter) Shutdown(ctx context.Context) error { return nil }

func (a *Adapter) ClassifyURL(rawURL string) string { return shared.OdyseeVideoID(rawURL) }

func (a *Adapter) OwnsURL(rawURL string) bool { return shared.OdyseeVideoID(rawURL) != "" }

// rpc performs one JSON-RPC style backend call bounded by the run timeout.
func (a *Adapter) rpc(ctx context.Context, method string, params map[string]any) (gjson.Result, error) {
	payload, err := json.Marshal(map[string]any{
		"method": method,
		"params": params,
	})
	if err != nil {
		return gjson.Result{}, err
	}

	var result gjson.Result
	call := func(ctx context.Context) error {
		return a.breaker.Call(ctx, func(ctx context.Context) error {
			runCtx, cancel := context.WithTimeout(ctx, a.cfg.RunTimeout)
			defer cancel()

			req, reqErr := http.NewRequestWithContext(runCtx, http.MethodPost, a.baseURL, bytes.NewReader(payload))
			if reqErr != nil {
				return reqErr
			}
			req.Header.Set("Content-Type", "application/json")
			if a.cfg.APIToken != "" {
				req.Header.Set("X-Lbry-Auth-Token", a.cfg.APIToken)
			}

			resp, doErr := a.client.Do(req)
			if doErr != nil {
				if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
					return domain.NewPlatformError(domain.PlatformOdysee,
						fmt.Sprintf("backend call exceeded %s", a.cfg.RunTimeout),
						domain.CategoryTimeout, doErr)
				}
				return doErr
			}
			defer resp.Body.Close()

			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
			if readErr != nil {
				return readErr
			}
			if resp.StatusCode != http.StatusOK {
				return &domain.StatusError{StatusCode: resp.StatusCode}
			}

			doc := gjson.ParseBytes(raw)
			if rpcErr := doc.Get("error"); rpcErr.Exists() {
				return domain.NewPlatformError(domain.PlatformOdysee,
					rpcErr.Get("message").String(), domain.CategoryUnknown, nil)
			}
			result = doc.Get("result")
			return nil
		})
	}

	if err := resilience.Retry(ctx, a.retry, call); err != nil {
		return gjson.Result{}, a.wrap(method+" failed", err)
	}
	return result, nil
}

func (a *Adapter) Search(ctx context.Context, query string, max int) ([]domain.VideoSummary, error) {
	if max <= 0 {
		max = 10
	}

	if shared.IsURL(query) {
		id := shared.OdyseeVideoID(query)
		if id == "" {
			return nil, domain.NewPlatformError(domain.PlatformOdysee, "unrecognised content URL",
				domain.CategoryNotFound, nil)
		}
		details, err := a.GetDetails(ctx, id)
		if err != nil {
			return nil, err
		}
		if details == nil {
			return nil, domain.NewPlatformError(domain.PlatformOdysee, "content not found",
				domain.CategoryNotFound, nil)
		}
		return []domain.VideoSummary{details.VideoSummary}, nil
	}

	result, err := a.rpc(ctx, "claim_search", map[string]any{
		"text":         query,
		"claim_type":   []string{"stream"},
		"stream_types": []string{"video"},
		"page_size":    max,
		"order_by":     []string{"effective_amount"},
		"no_totals":    true,
		"has_source":   true,
	})
	if err != nil {
		return nil, err
	}

	var results []domain.VideoSummary
	result.Get("items").ForEach(func(_, claim gjson.Result) bool {
		summary := summaryFromClaim(claim)
		if summary.ID == "" {
			return true
		}
		results = append(results, summary)
		return len(results) < max
	})
	return results, nil
}

func (a *Adapter) GetDetails(ctx context.Context, id string) (*domain.VideoDetails, error) {
	uri := "lbry://" + id
	result, err := a.rpc(ctx, "resolve", map[string]any{"urls": []string{uri}})
	if err != nil {
		return nil, err
	}

	claim := result.Get(uri)
	if !claim.Exists() || claim.Get("error").Exists() {
		return nil, nil
	}

	summary := summaryFromClaim(claim)
	if summary.ID == "" {
		summary.ID = id
	}
	details := &domain.VideoDetails{
		VideoSummary:       summary,
		AvailableQualities: []string{domain.QualityBest},
	}
	if ts := claim.Get("value.release_time").Int(); ts > 0 {
		published := time.Unix(ts, 0).UTC()
		details.PublishedAt = &published
	}
	return details, nil
}

func (a *Adapter) ExtractStreamURL(ctx context.Context, id, quality string) (*domain.StreamHandle, error) {
	result, err := a.rpc(ctx, "get", map[string]any{
		"uri":       "lbry://" + id,
		"save_file": false,
	})
	if err != nil {
		return nil, err
	}

	streamingURL := result.Get("streaming_url").String()
	if streamingURL == "" {
		return nil, nil
	}

	expires := time.Now().Add(streamHandleTTL)
	return &domain.StreamHandle{
		DirectURL:  streamingURL,
		QualityTag: quality,
		ExpiresAt:  &expires,
	}, nil
}

func (a *Adapter) wrap(message string, err error) error {
	return domain.NewPlatformError(domain.PlatformOdysee, message, domain.Classify(err), err)
}

func summaryFromClaim(claim gjson.Result) domain.VideoSummary {
	name := claim.Get("name").String()
	channel := claim.Get("signing_channel.name").String()
	id := name
	if channel != "" {
		id = channel + "/" + name
	}
	canonical := claim.Get("canonical_url").String()
	if canonical == "" && id != "" {
		canonical = "https://odysee.com/" + id
	}
	return domain.VideoSummary{
		ID:              id,
		Title:           claim.Get("value.title").String(),
		Channel:         claim.Get("signing_channel.value.title").String(),
		ThumbnailURL:    claim.Get("value.thumbnail.url").String(),
		CanonicalURL:    canonical,
		PlatformTag:     domain.PlatformOdysee,
		Description:     claim.Get("value.description").String(),
		DurationSeconds: claim.Get("value.video.duration").Int(),
		Views:           claim.Get("meta.effective_amount").Int(),
	}
}
