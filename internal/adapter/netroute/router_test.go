package netroute

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidra-project/vidra/internal/config"
	"github.com/vidra-project/vidra/internal/logger"
)

func testNetworkConfig() *config.NetworkConfig {
	return &config.NetworkConfig{
		Strategy:        "auto",
		ServiceVPN:      map[string]bool{},
		MaxConnsPerHost: 10,
	}
}

func TestClassifyURL(t *testing.T) {
	tests := []struct {
		url      string
		expected ServiceType
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", ServiceYouTube},
		{"https://youtu.be/dQw4w9WgXcQ", ServiceYouTube},
		{"https://rr4---sn-abc.googlevideo.com/videoplayback", ServiceYouTube},
		{"https://rumble.com/v4abcd-title.html", ServiceRumble},
		{"https://discord.com/api/v10/gateway", ServiceDiscord},
		{"https://odysee.com/@channel/video", ServiceOdysee},
		{"https://tilvids.com/videos/watch/uuid", ServiceGeneric},
		{"not a url", ServiceGeneric},
		{"https://notyoutube.com/watch", ServiceGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClassifyURL(tt.url))
		})
	}
}

func TestAcquireNeverReturnsNil(t *testing.T) {
	router, err := New(testNetworkConfig(), logger.NewTestLogger())
	require.NoError(t, err)
	defer router.Shutdown()

	for _, service := range AllServices() {
		client := router.Acquire(service)
		require.NotNil(t, client, "service %s", service)
	}
}

func TestAcquireReusesSessions(t *testing.T) {
	router, err := New(testNetworkConfig(), logger.NewTestLogger())
	require.NoError(t, err)
	defer router.Shutdown()

	first := router.Acquire(ServiceYouTube)
	second := router.Acquire(ServiceYouTube)
	assert.Same(t, first, second)
}

func TestAcquireForURLDelegates(t *testing.T) {
	router, err := New(testNetworkConfig(), logger.NewTestLogger())
	require.NoError(t, err)
	defer router.Shutdown()

	byURL := router.AcquireForURL("https://www.youtube.com/watch?v=abc")
	byService := router.Acquire(ServiceYouTube)
	assert.Same(t, byService, byURL)
}

func TestMissingVPNFallsBackToDefault(t *testing.T) {
	cfg := testNetworkConfig()
	cfg.Strategy = "split_tunnel"
	cfg.VPNInterface = "wg-does-not-exist"
	cfg.ServiceVPN["youtube"] = true

	router, err := New(cfg, logger.NewTestLogger())
	require.NoError(t, err)
	defer router.Shutdown()

	// Requests must still get a session even though the VPN leg is absent.
	client := router.Acquire(ServiceYouTube)
	require.NotNil(t, client)

	info := router.Info()
	if info.VPNInterface == "" {
		assert.Equal(t, "default", info.ServiceRoutes["youtube"])
	}
}

func TestRoutingInfoCoversAllServices(t *testing.T) {
	router, err := New(testNetworkConfig(), logger.NewTestLogger())
	require.NoError(t, err)
	defer router.Shutdown()

	info := router.Info()
	assert.Equal(t, "auto", info.Strategy)
	for _, service := range AllServices() {
		assert.Contains(t, info.ServiceRoutes, string(service))
	}
}
