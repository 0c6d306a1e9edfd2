package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "auto", cfg.Network.Strategy)
	assert.Equal(t, 10, cfg.Network.MaxConnsPerHost)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 0.8, cfg.Platforms.YouTube.ConservationThreshold)
	assert.NotEmpty(t, cfg.Platforms.PeerTube.Instances)
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsBadStrategy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Network.Strategy = "tunnel_all_the_things"
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsBadCacheBackend(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cache.Backend = "memcached"
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsEmptyFederation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Platforms.PeerTube.Instances = nil
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsBadThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Platforms.YouTube.ConservationThreshold = 1.5
	assert.Error(t, cfg.Validate())
}

func TestWellKnownEnvOverrides(t *testing.T) {
	t.Setenv("APIFY_API_TOKEN", "apify_test_token")
	t.Setenv("YOUTUBE_API_KEY", "yt_test_key")
	t.Setenv("NETWORK_STRATEGY", "split_tunnel")
	t.Setenv("VPN_INTERFACE", "wg0")
	t.Setenv("YOUTUBE_USE_VPN", "true")
	t.Setenv("DISCORD_USE_VPN", "false")

	cfg := DefaultConfig()
	applyWellKnownEnv(cfg)

	assert.Equal(t, "apify_test_token", cfg.Platforms.Rumble.APIToken)
	assert.Equal(t, "yt_test_key", cfg.Platforms.YouTube.APIKey)
	assert.Equal(t, "split_tunnel", cfg.Network.Strategy)
	assert.Equal(t, "wg0", cfg.Network.VPNInterface)
	assert.True(t, cfg.Network.ServiceVPN["youtube"])
	assert.False(t, cfg.Network.ServiceVPN["discord"])
}
