package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/vidra-project/vidra/internal/config"
	"github.com/vidra-project/vidra/internal/core/domain"
	"github.com/vidra-project/vidra/internal/core/ports"
	"github.com/vidra-project/vidra/internal/logger"
	"github.com/vidra-project/vidra/pkg/pool"
)

const (
	defaultBinary  = "yt-dlp"
	defaultWorkers = 4
	defaultTimeout = 45 * time.Second
)

// YtDlp shells out to the media-info extractor binary and parses its single
// JSON document. Probes are bounded by a worker-pool semaphore; a saturated
// pool rejects immediately rather than queueing subprocess spawns.
type YtDlp struct {
	binary      string
	cookiesFile string
	timeout     time.Duration
	slots       chan struct{}
	buffers     *pool.Pool[*bytes.Buffer]
	logger      logger.StyledLogger

	cookieConvertOnce func() (string, error)
}

func NewYtDlp(cfg config.ExtractorConfig, log logger.StyledLogger) (*YtDlp, error) {
	binary := cfg.BinaryPath
	if binary == "" {
		binary = defaultBinary
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	buffers, err := pool.New(func() *bytes.Buffer { return &bytes.Buffer{} })
	if err != nil {
		return nil, err
	}

	y := &YtDlp{
		binary:      binary,
		cookiesFile: cfg.CookiesFile,
		timeout:     timeout,
		slots:       make(chan struct{}, workers),
		buffers:     buffers,
		logger:      log,
	}
	y.cookieConvertOnce = onceCookieConversion(cfg.CookiesFile, log)
	return y, nil
}

// Probe runs `<binary> -J <url>` and maps the JSON document to MediaInfo.
func (y *YtDlp) Probe(ctx context.Context, pageURL string) (*ports.MediaInfo, error) {
	select {
	case y.slots <- struct{}{}:
		defer func() { <-y.slots }()
	default:
		return nil, domain.NewPlatformError("extractor", "worker pool saturated",
			domain.CategoryServer5xx, errors.New("all extraction workers busy"))
	}

	runCtx, cancel := context.WithTimeout(ctx, y.timeout)
	defer cancel()

	args := []string{"-J", "--no-playlist", "--no-warnings"}
	if cookiePath, err := y.cookieConvertOnce(); err == nil && cookiePath != "" {
		args = append(args, "--cookies", cookiePath)
	}
	args = append(args, pageURL)

	stdout := y.buffers.Get()
	stderr := y.buffers.Get()
	defer y.buffers.Put(stdout)
	defer y.buffers.Put(stderr)

	cmd := exec.CommandContext(runCtx, y.binary, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		return nil, y.classifyRunError(runCtx, pageURL, err, stderr.String())
	}
	y.logger.Debug("probe complete", "url", pageURL, "duration", time.Since(start))

	info, err := parseMediaInfo(stdout.Bytes())
	if err != nil {
		return nil, domain.NewPlatformError("extractor", "unparseable extractor output",
			domain.CategoryUnknown, err)
	}
	return info, nil
}

func (y *YtDlp) classifyRunError(ctx context.Context, pageURL string, err error, stderr string) error {
	if ctx.Err() == context.DeadlineExceeded {
		return domain.NewPlatformError("extractor", "probe timed out",
			domain.CategoryTimeout, context.DeadlineExceeded)
	}

	lowered := strings.ToLower(stderr)
	category := domain.CategoryUnknown
	switch {
	case strings.Contains(lowered, "video unavailable"),
		strings.Contains(lowered, "private video"),
		strings.Contains(lowered, "removed"):
		category = domain.CategoryNotFound
	case strings.Contains(lowered, "sign in"),
		strings.Contains(lowered, "login required"),
		strings.Contains(lowered, "age-restricted"):
		category = domain.CategoryAuth
	case strings.Contains(lowered, "429"),
		strings.Contains(lowered, "rate-limit"):
		category = domain.CategoryRateLimit
	case strings.Contains(lowered, "unable to download"),
		strings.Contains(lowered, "connection"):
		category = domain.CategoryNetwork
	}

	y.logger.Debug("probe failed", "url", pageURL, "category", string(category), "error", err)
	return domain.NewPlatformError("extractor", firstStderrLine(stderr), category, err)
}

func firstStderrLine(stderr string) string {
	for _, line := range strings.Split(stderr, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			return line
		}
	}
	return "extraction failed"
}

func parseMediaInfo(raw []byte) (*ports.MediaInfo, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("invalid JSON document")
	}
	doc := gjson.ParseBytes(raw)
	if !doc.Get("id").Exists() {
		return nil, fmt.Errorf("document has no id field")
	}

	info := &ports.MediaInfo{
		ID:              doc.Get("id").String(),
		Title:           doc.Get("title").String(),
		Channel:         doc.Get("channel").String(),
		ThumbnailURL:    doc.Get("thumbnail").String(),
		Description:     doc.Get("description").String(),
		WebpageURL:      doc.Get("webpage_url").String(),
		DurationSeconds: doc.Get("duration").Int(),
		Views:           doc.Get("view_count").Int(),
	}
	if info.Channel == "" {
		info.Channel = doc.Get("uploader").String()
	}

	doc.Get("formats").ForEach(func(_, f gjson.Result) bool {
		info.Formats = append(info.Formats, ports.MediaFormat{
			URL:          f.Get("url").String(),
			FormatID:     f.Get("format_id").String(),
			Extension:    f.Get("ext").String(),
			VideoCodec:   f.Get("vcodec").String(),
			AudioCodec:   f.Get("acodec").String(),
			AudioBitrate: f.Get("abr").Float(),
			Height:       int(f.Get("height").Int()),
		})
		return true
	})
	return info, nil
}

// BestAudioURL applies the selection order: audio-only formats by bitrate,
// then any audio-carrying format by bitrate, then anything with a URL.
func (y *YtDlp) BestAudioURL(info *ports.MediaInfo) (string, string, error) {
	if info == nil || len(info.Formats) == 0 {
		return "", "", domain.NewPlatformError("extractor", "no playable formats",
			domain.CategoryNotFound, nil)
	}

	hasAudio := func(f ports.MediaFormat) bool {
		return f.AudioCodec != "" && f.AudioCodec != "none"
	}
	audioOnly := func(f ports.MediaFormat) bool {
		return hasAudio(f) && (f.VideoCodec == "" || f.VideoCodec == "none")
	}

	candidates := make([]ports.MediaFormat, 0, len(info.Formats))
	for _, f := range info.Formats {
		if f.URL != "" && audioOnly(f) {
			candidates = append(candidates, f)
		}
	}
	if len(candidates) == 0 {
		for _, f := range info.Formats {
			if f.URL != "" && hasAudio(f) {
				candidates = append(candidates, f)
			}
		}
	}
	if len(candidates) == 0 {
		for _, f := range info.Formats {
			if f.URL != "" {
				candidates = append(candidates, f)
			}
		}
	}
	if len(candidates) == 0 {
		return "", "", domain.NewPlatformError("extractor", "no format carries a URL",
			domain.CategoryNotFound, nil)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].AudioBitrate > candidates[j].AudioBitrate
	})
	best := candidates[0]
	return best.URL, best.FormatID, nil
}

// Available reports whether the extractor binary resolves on PATH (or at the
// configured absolute path). Used by startup diagnostics only.
func (y *YtDlp) Available() bool {
	if strings.Contains(y.binary, string(os.PathSeparator)) {
		_, err := os.Stat(y.binary)
		return err == nil
	}
	_, err := exec.LookPath(y.binary)
	return err == nil
}
