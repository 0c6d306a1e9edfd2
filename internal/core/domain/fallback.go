package domain

import "time"

// FallbackMode names a degraded operating regime. Two enumerations coexist:
// the generic set applies to any platform, the YTDLP_* / API_PRIMARY set is
// specific to the API-gated platform. They carry distinct priority lists and
// are deliberately not merged.
type FallbackMode string

const (
	// API-gated platform modes. API_PRIMARY is the baseline: it never sits
	// in a cascade or restriction table, it is what a deactivation restores.
	ModeAPIPrimary         FallbackMode = "API_PRIMARY"
	ModeYtdlpAuthenticated FallbackMode = "YTDLP_AUTHENTICATED"
	ModeYtdlpPublic        FallbackMode = "YTDLP_PUBLIC"
	ModeCacheOnly          FallbackMode = "CACHE_ONLY"
	ModeCrossPlatform      FallbackMode = "CROSS_PLATFORM"

	// Generic platform modes. API_ONLY is the generic baseline, restored
	// on deactivation like API_PRIMARY above.
	ModeAPIOnly       FallbackMode = "API_ONLY"
	ModePublicOnly    FallbackMode = "PUBLIC_ONLY"
	ModeLimitedSearch FallbackMode = "LIMITED_SEARCH"
	ModeReadOnly      FallbackMode = "READ_ONLY"
	ModeDisabled      FallbackMode = "DISABLED"
)

// Operation names used by the fallback restriction table.
const (
	OpSearch               = "search"
	OpGetDetails           = "get_details"
	OpExtractStream        = "extract_stream_url"
	OpAuthenticatedContent = "authenticated_content"
)

// FallbackStrategy is the static description of one degraded mode for one
// platform. Lower priority is preferred on activation.
type FallbackStrategy struct {
	Mode        FallbackMode `json:"mode"`
	Description string       `json:"description"`
	Limitations []string     `json:"limitations"`
	Priority    int          `json:"priority"`
	Enabled     bool         `json:"enabled"`
}

// FallbackAction marks a history entry as an activation or deactivation.
type FallbackAction string

const (
	FallbackActivated   FallbackAction = "activated"
	FallbackDeactivated FallbackAction = "deactivated"
)

// FallbackEvent is one entry in a platform's fallback history.
type FallbackEvent struct {
	Timestamp time.Time      `json:"timestamp"`
	Action    FallbackAction `json:"action"`
	Reason    string         `json:"reason"`
	Strategy  FallbackMode   `json:"strategy"`
}

// PlatformFallbackState is the runtime fallback state for one platform.
type PlatformFallbackState struct {
	Active  *FallbackStrategy `json:"active,omitempty"`
	History []FallbackEvent   `json:"history"`
}
