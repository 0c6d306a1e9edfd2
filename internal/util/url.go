package util

import (
	"net/url"
	"path"
	"strings"
)

// NormaliseBaseURL strips a single trailing slash from a base URL.
func NormaliseBaseURL(baseURL string) string {
	if len(baseURL) > 1 && strings.HasSuffix(baseURL, "/") {
		return baseURL[:len(baseURL)-1]
	}
	return baseURL
}

// ResolveURLPath joins a relative path onto a base URL, preserving any path
// prefix the base carries. Absolute URLs pass through untouched; plain
// url.ResolveReference would drop the base path for inputs starting with "/".
func ResolveURLPath(baseURL, pathOrURL string) string {
	if baseURL == "" {
		return pathOrURL
	}
	if pathOrURL == "" {
		return baseURL
	}

	if parsed, err := url.Parse(pathOrURL); err == nil && parsed.IsAbs() {
		return pathOrURL
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return baseURL + pathOrURL
	}

	base.Path = path.Join(base.Path, pathOrURL)
	return base.String()
}

// HostMatchesSuffix reports whether host equals the suffix domain or is a
// subdomain of it ("watch.example.org" matches "example.org", while
// "notexample.org" does not).
func HostMatchesSuffix(host, suffix string) bool {
	host = strings.ToLower(host)
	suffix = strings.ToLower(suffix)
	return host == suffix || strings.HasSuffix(host, "."+suffix)
}
