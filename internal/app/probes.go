package app

import (
	"context"
	"io"
	"net/http"

	"github.com/vidra-project/vidra/internal/adapter/health"
	"github.com/vidra-project/vidra/internal/adapter/netroute"
	"github.com/vidra-project/vidra/internal/core/domain"
	"github.com/vidra-project/vidra/internal/util"
)

// Cheap always-on endpoints used as liveness targets. Probes never touch
// metered APIs; quota stays reserved for real queries.
const (
	youtubeProbeURL = "https://www.youtube.com/generate_204"
	rumbleProbeURL  = "https://rumble.com/"
	odyseeProbeURL  = "https://odysee.com/"
)

// registerProbes wires one probe per enabled platform plus the shared
// infrastructure services.
func (a *App) registerProbes() {
	platforms := a.cfg.Platforms

	if platforms.YouTube.Enabled {
		a.health.Register(domain.PlatformYouTube,
			httpProbe(a.router.Acquire(netroute.ServiceYouTube), domain.PlatformYouTube, youtubeProbeURL))
	}
	if platforms.Rumble.Enabled {
		a.health.Register(domain.PlatformRumble,
			httpProbe(a.router.Acquire(netroute.ServiceRumble), domain.PlatformRumble, rumbleProbeURL))
	}
	if platforms.Odysee.Enabled {
		a.health.Register(domain.PlatformOdysee,
			httpProbe(a.router.Acquire(netroute.ServiceOdysee), domain.PlatformOdysee, odyseeProbeURL))
	}
	if platforms.PeerTube.Enabled && len(platforms.PeerTube.Instances) > 0 {
		// One representative instance stands in for the federation; the
		// adapter tracks per-instance health on its own.
		target := util.NormaliseBaseURL(platforms.PeerTube.Instances[0]) + "/api/v1/config"
		a.health.Register(domain.PlatformPeerTube,
			httpProbe(a.router.Acquire(netroute.ServicePeerTube), domain.PlatformPeerTube, target))
	}

	a.health.Register("cache", a.cache.Ping)
	a.health.Register("extractor", a.extractorProbe)
}

// httpProbe performs a GET and treats anything below 500 as alive. Client
// errors mean the endpoint answered, which is all a liveness probe needs.
func httpProbe(client *http.Client, platform, target string) health.Probe {
	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err != nil {
			return domain.NewPlatformError(platform, "probe failed", domain.Classify(err), err)
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

		if resp.StatusCode >= 500 {
			return domain.NewPlatformError(platform, "probe failed",
				domain.ClassifyStatus(resp.StatusCode), &domain.StatusError{StatusCode: resp.StatusCode})
		}
		return nil
	}
}

func (a *App) extractorProbe(ctx context.Context) error {
	if !a.extractor.Available() {
		return domain.NewPlatformError("extractor", "binary not found",
			domain.CategoryUnknown, nil)
	}
	return nil
}
