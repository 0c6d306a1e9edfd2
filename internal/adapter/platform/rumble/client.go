package rumble

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

	"github.com/vidra-project/vidra/internal/core/domain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	defaultActorBaseURL = "https://api.apify.com/v2"
	defaultRunTimeout   = 60 * time.Second
)

// actorClient drives the paid actor runner. Every operation is one
// synchronous run: POST the input payload, block until the dataset is ready,
// read the items. A run that outlives the configured timeout surfaces as
// Unavailable.
type actorClient struct {
	baseURL    string
	token      string
	runTimeout time.Duration
	httpClient *http.Client
}

func newActorClient(baseURL, token string, runTimeout time.Duration, httpClient *http.Client) *actorClient {
	if baseURL == "" {
		baseURL = defaultActorBaseURL
	}
	if runTimeout <= 0 {
		runTimeout = defaultRunTimeout
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &actorClient{
		baseURL:    baseURL,
		token:      token,
		runTimeout: runTimeout,
		httpClient: httpClient,
	}
}

// runSync executes one actor run and returns the dataset items.
func (c *actorClient) runSync(ctx context.Context, actor string, input any) (gjson.Result, error) {
	if c.token == "" {
		return gjson.Result{}, domain.NewPlatformError(domain.PlatformRumble,
			"actor runner requires an API token", domain.CategoryAuth, nil)
	}

	payload, err := json.Marshal(input)
	if err != nil {
		return gjson.Result{}, err
	}

	runCtx, cancel := context.WithTimeout(ctx, c.runTimeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/acts/%s/run-sync-get-dataset-items?token=%s", c.baseURL, actor, c.token)
	req, err := http.NewRequestWithContext(runCtx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return gjson.Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return gjson.Result{}, domain.NewPlatformError(domain.PlatformRumble,
				fmt.Sprintf("actor run exceeded %s", c.runTimeout), domain.CategoryTimeout, err)
		}
		return gjson.Result{}, domain.NewPlatformError(domain.PlatformRumble,
			"actor run failed", domain.Classify(err), err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return gjson.Result{}, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return gjson.Result{}, domain.NewPlatformError(domain.PlatformRumble,
			fmt.Sprintf("actor run rejected with status %d", resp.StatusCode),
			domain.ClassifyStatus(resp.StatusCode),
			&domain.StatusError{StatusCode: resp.StatusCode})
	}

	doc := gjson.ParseBytes(raw)
	if !doc.IsArray() {
		return gjson.Result{}, domain.NewPlatformError(domain.PlatformRumble,
			"actor returned a non-dataset response", domain.CategoryUnknown, nil)
	}
	return doc, nil
}
