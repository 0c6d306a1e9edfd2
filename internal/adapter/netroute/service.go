package netroute

import (
	"net/url"
	"strings"

	"github.com/vidra-project/vidra/internal/util"
)

// ServiceType tags an HTTP session pool with the backend family it talks to.
// Split-tunnel routing is configured per service, not per host.
type ServiceType string

const (
	ServiceDiscord  ServiceType = "discord"
	ServiceYouTube  ServiceType = "youtube"
	ServiceRumble   ServiceType = "rumble"
	ServiceOdysee   ServiceType = "odysee"
	ServicePeerTube ServiceType = "peertube"
	ServiceGeneric  ServiceType = "generic"
)

// AllServices lists every routable service type.
func AllServices() []ServiceType {
	return []ServiceType{
		ServiceDiscord, ServiceYouTube, ServiceRumble,
		ServiceOdysee, ServicePeerTube, ServiceGeneric,
	}
}

// hostServiceSuffixes is the fixed host-suffix classification table used by
// AcquireForURL. First match wins; anything unmatched is generic.
var hostServiceSuffixes = []struct {
	suffix  string
	service ServiceType
}{
	{"discord.com", ServiceDiscord},
	{"discordapp.com", ServiceDiscord},
	{"discord.gg", ServiceDiscord},
	{"youtube.com", ServiceYouTube},
	{"youtu.be", ServiceYouTube},
	{"googlevideo.com", ServiceYouTube},
	{"ytimg.com", ServiceYouTube},
	{"rumble.com", ServiceRumble},
	{"rmbl.ws", ServiceRumble},
	{"odysee.com", ServiceOdysee},
	{"lbry.tv", ServiceOdysee},
}

// ClassifyURL maps a URL's host onto a service type.
func ClassifyURL(rawURL string) ServiceType {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return ServiceGeneric
	}

	host := strings.ToLower(parsed.Hostname())
	for _, entry := range hostServiceSuffixes {
		if util.HostMatchesSuffix(host, entry.suffix) {
			return entry.service
		}
	}
	return ServiceGeneric
}
