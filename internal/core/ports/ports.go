package ports

import (
	"context"
	"time"

	"github.com/vidra-project/vidra/internal/core/domain"
)

// MediaInfo is the extractor's view of a single video page.
type MediaInfo struct {
	ID              string
	Title           string
	Channel         string
	ThumbnailURL    string
	Description     string
	WebpageURL      string
	DurationSeconds int64
	Views           int64
	Formats         []MediaFormat
}

// MediaFormat is one playable format reported by the extractor.
type MediaFormat struct {
	URL          string
	FormatID     string
	Extension    string
	VideoCodec   string
	AudioCodec   string
	AudioBitrate float64
	Height       int
}

// Extractor is the opaque media-info extractor (yt-dlp or compatible). Probe
// returns metadata plus playable formats; BestAudioURL applies the format
// selection order best-audio-only -> highest-bitrate audio-containing -> any.
type Extractor interface {
	Probe(ctx context.Context, pageURL string) (*MediaInfo, error)
	BestAudioURL(info *MediaInfo) (string, string, error)
}

// HealthEvent flows from the health monitor to the prioritizer and the
// fallback engine over the event bus.
type HealthEvent struct {
	Service   string
	Status    domain.HealthStatus
	Category  domain.ErrorCategory
	Latency   time.Duration
	CheckedAt time.Time
}

// Prioritizer orders platforms by observed behaviour.
type Prioritizer interface {
	Record(platform string, success bool, responseTime time.Duration, category domain.ErrorCategory)
	UpdateHealth(platform string, status domain.HealthStatus)
	Order(available []string) []string
	SetStrategy(strategy string) error
	Summary() []domain.MetricsSnapshot
}

// FallbackEngine maintains per-platform degraded operating modes.
type FallbackEngine interface {
	Activate(platform, reason string) (*domain.FallbackStrategy, error)
	Deactivate(platform, reason string)
	ActiveMode(platform string) (domain.FallbackMode, bool)
	Restricted(platform, operation string) (bool, string)
	Recommendations(platform string) []string
	Report() map[string]domain.PlatformFallbackState
	ClearHistory(platform string)
}
