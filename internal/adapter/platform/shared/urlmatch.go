// Package shared holds helpers common to all source adapters: URL
// classification and the caching decorator.
package shared

import (
	"net/url"
	"regexp"
	"strings"
)

// Fixed host patterns for platform URL classification. The video id grammars
// are platform-specific and deliberately strict; anything else is treated as
// a text query.
var (
	youtubeWatchRe = regexp.MustCompile(`^/watch$`)
	youtubeEmbedRe = regexp.MustCompile(`^/embed/([A-Za-z0-9_-]{11})$`)
	youtubeShortRe = regexp.MustCompile(`^/([A-Za-z0-9_-]{11})$`)
	youtubeIDRe    = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

	rumbleVideoRe = regexp.MustCompile(`^/(v[a-z0-9]+)(?:-[^/]*)?(?:\.html)?$`)
	rumbleEmbedRe = regexp.MustCompile(`^/embed/(v[a-z0-9]+)`)

	peertubeWatchRe = regexp.MustCompile(`^/videos/watch/([0-9a-fA-F-]{36}|[0-9a-zA-Z]{22})$`)
	peertubeShortRe = regexp.MustCompile(`^/w/([0-9a-fA-F-]{36}|[0-9a-zA-Z]{22})$`)

	odyseeVideoRe = regexp.MustCompile(`^/(@[^/]+)/([^/]+)$`)
)

// IsURL reports whether the query is URL-shaped at all.
func IsURL(query string) bool {
	trimmed := strings.TrimSpace(query)
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		return false
	}
	u, err := url.Parse(trimmed)
	return err == nil && u.Host != ""
}

func parsedHostPath(rawURL string) (host, path string, query url.Values, ok bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return "", "", nil, false
	}
	host = strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	return host, u.Path, u.Query(), true
}

// YouTubeVideoID extracts the 11-character id from the three owned URL
// shapes; empty when the URL is not a recognised video page.
func YouTubeVideoID(rawURL string) string {
	host, path, query, ok := parsedHostPath(rawURL)
	if !ok {
		return ""
	}

	switch host {
	case "youtube.com", "m.youtube.com", "music.youtube.com":
		if youtubeWatchRe.MatchString(path) {
			if id := query.Get("v"); youtubeIDRe.MatchString(id) {
				return id
			}
			return ""
		}
		if m := youtubeEmbedRe.FindStringSubmatch(path); m != nil {
			return m[1]
		}
	case "youtu.be":
		if m := youtubeShortRe.FindStringSubmatch(path); m != nil {
			return m[1]
		}
	}
	return ""
}

// RumbleVideoID extracts the v-prefixed id from a video or embed URL.
func RumbleVideoID(rawURL string) string {
	host, path, _, ok := parsedHostPath(rawURL)
	if !ok || host != "rumble.com" {
		return ""
	}
	if m := rumbleEmbedRe.FindStringSubmatch(path); m != nil {
		return m[1]
	}
	if m := rumbleVideoRe.FindStringSubmatch(path); m != nil {
		return m[1]
	}
	return ""
}

// PeerTubeVideoID extracts the video UUID (or short id) from a watch URL on
// any instance; the caller decides whether it owns the host.
func PeerTubeVideoID(rawURL string) string {
	_, path, _, ok := parsedHostPath(rawURL)
	if !ok {
		return ""
	}
	if m := peertubeWatchRe.FindStringSubmatch(path); m != nil {
		return m[1]
	}
	if m := peertubeShortRe.FindStringSubmatch(path); m != nil {
		return m[1]
	}
	return ""
}

// OdyseeVideoID extracts the claim path (channel/slug) from a content URL.
func OdyseeVideoID(rawURL string) string {
	host, path, _, ok := parsedHostPath(rawURL)
	if !ok || (host != "odysee.com" && host != "lbry.tv") {
		return ""
	}
	if m := odyseeVideoRe.FindStringSubmatch(path); m != nil {
		return m[1] + "/" + m[2]
	}
	return ""
}
