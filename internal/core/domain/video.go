package domain

import "time"

// Platform tags. (PlatformTag, VideoID) is globally unique; the id itself is
// opaque outside its platform.
const (
	PlatformYouTube  = "youtube"
	PlatformRumble   = "rumble"
	PlatformPeerTube = "peertube"
	PlatformOdysee   = "odysee"
)

// StreamQuality values accepted by stream extraction.
const (
	QualityBest   = "best"
	QualityMedium = "medium"
	QualityLow    = "low"
)

// VideoSummary is a single search hit. Immutable after construction.
type VideoSummary struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Channel         string `json:"channel"`
	ThumbnailURL    string `json:"thumbnail_url"`
	CanonicalURL    string `json:"canonical_url"`
	PlatformTag     string `json:"platform_tag"`
	Description     string `json:"description,omitempty"`
	DurationSeconds int64  `json:"duration_seconds,omitempty"`
	Views           int64  `json:"views,omitempty"`
	// Instance is set only for federated results and names the instance
	// that produced the hit.
	Instance string `json:"instance,omitempty"`
}

// VideoDetails extends VideoSummary with per-video metadata. Immutable.
type VideoDetails struct {
	VideoSummary
	Likes              int64      `json:"likes,omitempty"`
	Dislikes           int64      `json:"dislikes,omitempty"`
	PublishedAt        *time.Time `json:"published_at,omitempty"`
	AvailableQualities []string   `json:"available_qualities"`
}

// StreamHandle points at a playable media URL. Direct URLs are short-lived;
// cache layers cap their TTL at 30 minutes.
type StreamHandle struct {
	DirectURL  string     `json:"direct_url"`
	QualityTag string     `json:"quality_tag"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

// Expired reports whether the handle is past its expiry, if one is known.
func (s *StreamHandle) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && now.After(*s.ExpiresAt)
}
