package cache

import (
	"strings"
	"time"

	"github.com/vidra-project/vidra/internal/core/ports"
)

const keyPrefix = "vidra:"

// searchKey normalises the query so trivially different spellings share one
// entry.
func searchKey(platform, query string) string {
	normalised := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	return keyPrefix + "search:" + platform + ":" + normalised
}

func metadataKey(platform, id string) string {
	return keyPrefix + "meta:" + platform + ":" + id
}

func streamKey(platform, id, quality string) string {
	return keyPrefix + "stream:" + platform + ":" + id + ":" + quality
}

// clampStreamTTL enforces the hard ceiling on stream entries. Direct media
// URLs go stale on the backend well before metadata does.
func clampStreamTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 || ttl > ports.MaxStreamTTL {
		return ports.MaxStreamTTL
	}
	return ttl
}

func orDefault(ttl, fallback time.Duration) time.Duration {
	if ttl <= 0 {
		return fallback
	}
	return ttl
}
