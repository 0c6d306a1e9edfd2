package extractor

import (
	"fmt"
	"os"
	"strings"
	"sync"

	jsoniter "github.com/json-iterator/go"

	"github.com/vidra-project/vidra/internal/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// browserCookie is the harvested-cookie shape dropped next to the process by
// an external collaborator. The extractor binary only understands the
// Netscape text format, so the file is converted once per process.
type browserCookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Secure   bool    `json:"secure"`
	HTTPOnly bool    `json:"httpOnly"`
	Expires  float64 `json:"expires"`
}

const netscapeHeader = "# Netscape HTTP Cookie File\n"

// NetscapeCookiePath is the deterministic output path for a converted cookie
// file: the input path with its extension replaced by .txt.
func NetscapeCookiePath(jsonPath string) string {
	if idx := strings.LastIndex(jsonPath, "."); idx > strings.LastIndex(jsonPath, string(os.PathSeparator)) {
		return jsonPath[:idx] + ".txt"
	}
	return jsonPath + ".txt"
}

// ConvertCookies reads the JSON cookie array at jsonPath and writes the
// Netscape rendition to its sibling .txt path, returning that path.
func ConvertCookies(jsonPath string) (string, error) {
	raw, err := os.ReadFile(jsonPath)
	if err != nil {
		return "", err
	}

	var cookies []browserCookie
	if err := json.Unmarshal(raw, &cookies); err != nil {
		return "", fmt.Errorf("cookie file is not a JSON array: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(netscapeHeader)
	for _, c := range cookies {
		if c.Name == "" || c.Domain == "" {
			continue
		}
		sb.WriteString(netscapeLine(c))
	}

	outPath := NetscapeCookiePath(jsonPath)
	if err := os.WriteFile(outPath, []byte(sb.String()), 0o600); err != nil {
		return "", err
	}
	return outPath, nil
}

// netscapeLine renders one cookie as the seven tab-separated Netscape
// columns: domain, include-subdomains, path, secure, expiry, name, value.
func netscapeLine(c browserCookie) string {
	includeSubdomains := "FALSE"
	if strings.HasPrefix(c.Domain, ".") {
		includeSubdomains = "TRUE"
	}
	secure := "FALSE"
	if c.Secure {
		secure = "TRUE"
	}
	path := c.Path
	if path == "" {
		path = "/"
	}
	domain := c.Domain
	if c.HTTPOnly {
		// The extractor expects the #HttpOnly_ marker prefix.
		domain = "#HttpOnly_" + domain
	}
	return fmt.Sprintf("%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
		domain, includeSubdomains, path, secure, int64(c.Expires), c.Name, c.Value)
}

// CookiesHealthy reports whether a usable cookie source exists: the JSON file
// is present and parses to at least one cookie.
func CookiesHealthy(jsonPath string) bool {
	if jsonPath == "" {
		return false
	}
	raw, err := os.ReadFile(jsonPath)
	if err != nil {
		return false
	}
	var cookies []browserCookie
	if err := json.Unmarshal(raw, &cookies); err != nil {
		return false
	}
	return len(cookies) > 0
}

// onceCookieConversion defers the conversion to the first probe and caches
// the outcome. A missing cookie file is not an error, just public access.
func onceCookieConversion(jsonPath string, log logger.StyledLogger) func() (string, error) {
	var once sync.Once
	var path string
	var err error

	return func() (string, error) {
		once.Do(func() {
			if jsonPath == "" {
				return
			}
			if _, statErr := os.Stat(jsonPath); statErr != nil {
				log.Debug("no cookie file, extracting unauthenticated", "path", jsonPath)
				return
			}
			path, err = ConvertCookies(jsonPath)
			if err != nil {
				log.Warn("cookie conversion failed, extracting unauthenticated",
					"path", jsonPath, "error", err)
				return
			}
			log.Info("cookies attached to extractor", "path", path)
		})
		return path, err
	}
}
