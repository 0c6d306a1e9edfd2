package ports

import (
	"context"

	"github.com/vidra-project/vidra/internal/core/domain"
)

// Platform is the uniform contract every source adapter implements.
//
// Search with a URL-shaped query returns exactly one hit for the owned video.
// GetDetails and ExtractStreamURL return nil (not an error) when the backend
// reports no content.
type Platform interface {
	// Name returns the platform tag, e.g. domain.PlatformYouTube.
	Name() string

	Initialize(ctx context.Context) error
	Search(ctx context.Context, query string, max int) ([]domain.VideoSummary, error)
	GetDetails(ctx context.Context, id string) (*domain.VideoDetails, error)
	ExtractStreamURL(ctx context.Context, id string, quality string) (*domain.StreamHandle, error)

	// ClassifyURL extracts the platform-local video id from a URL the
	// adapter owns; empty string when the URL is not recognised.
	ClassifyURL(rawURL string) string
	OwnsURL(rawURL string) bool

	Shutdown(ctx context.Context) error
}
