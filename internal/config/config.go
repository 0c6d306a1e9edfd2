package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/vidra-project/vidra/internal/env"
)

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:      "info",
			Theme:      "default",
			LogDir:     "./logs",
			FileOutput: true,
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     30,
		},
		Network: NetworkConfig{
			Strategy:        "auto",
			ServiceVPN:      map[string]bool{},
			MaxConnsPerHost: 10,
			DNSCacheTTL:     5 * time.Minute,
		},
		Cache: CacheConfig{
			Backend:  "memory",
			Capacity: 10_000,
			Redis: RedisConfig{
				Addr: "localhost:6379",
			},
		},
		Extractor: ExtractorConfig{
			BinaryPath: "yt-dlp",
			Workers:    4,
			Timeout:    90 * time.Second,
		},
		Platforms: PlatformsConfig{
			YouTube: YouTubeConfig{
				Enabled:               true,
				QuotaDailyLimit:       10_000,
				ConservationThreshold: 0.8,
			},
			Rumble: ActorConfig{
				Enabled:       true,
				BaseURL:       "https://api.apify.com",
				SearchActor:   "rumble-search-scraper",
				MetadataActor: "rumble-video-scraper",
				StreamActor:   "rumble-stream-extractor",
				RunTimeout:    60 * time.Second,
			},
			Odysee: OdyseeConfig{
				Enabled:    true,
				BaseURL:    "https://api.odysee.com",
				RunTimeout: 60 * time.Second,
			},
			PeerTube: PeerTubeConfig{
				Enabled: true,
				Instances: []string{
					"https://tilvids.com",
					"https://video.blender.org",
				},
				FanoutStagger:      50 * time.Millisecond,
				PerInstanceTimeout: 15 * time.Second,
			},
		},
		Health: HealthConfig{
			CheckInterval:          30 * time.Second,
			CheckTimeout:           30 * time.Second,
			MaxConsecutiveFailures: 3,
			RecoveryBackoffStep:    15 * time.Second,
			RecoveryBackoffMax:     5 * time.Minute,
		},
		Fallback: FallbackConfig{
			RetryInterval: 30 * time.Minute,
		},
		Prioritizer: PrioritizerConfig{
			Strategy:       "balanced",
			UpdateInterval: 60 * time.Second,
		},
	}
}

// Load reads configuration from file, VIDRA_* env overrides, and the
// documented raw environment variables.
func Load() (*Config, error) {
	config := DefaultConfig()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.SetEnvPrefix("VIDRA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults plus env cover it.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if configFile := os.Getenv("VIDRA_CONFIG_FILE"); configFile != "" {
			viper.SetConfigFile(configFile)
			if err := viper.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
			}
		}
	}

	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	applyWellKnownEnv(config)

	viper.WatchConfig()

	return config, nil
}

// applyWellKnownEnv folds in the raw env vars consumers already set, which
// take precedence over file values.
func applyWellKnownEnv(config *Config) {
	if token := os.Getenv("APIFY_API_TOKEN"); token != "" {
		config.Platforms.Rumble.APIToken = token
	}
	if key := os.Getenv("YOUTUBE_API_KEY"); key != "" {
		config.Platforms.YouTube.APIKey = key
	}

	if strategy := os.Getenv("NETWORK_STRATEGY"); strategy != "" {
		config.Network.Strategy = strategy
	}
	if iface := os.Getenv("VPN_INTERFACE"); iface != "" {
		config.Network.VPNInterface = iface
	}
	if iface := os.Getenv("DEFAULT_INTERFACE"); iface != "" {
		config.Network.DefaultInterface = iface
	}

	if config.Network.ServiceVPN == nil {
		config.Network.ServiceVPN = map[string]bool{}
	}
	for _, service := range []string{"discord", "youtube", "rumble", "odysee", "peertube"} {
		key := strings.ToUpper(service) + "_USE_VPN"
		if os.Getenv(key) != "" {
			config.Network.ServiceVPN[service] = env.GetEnvBoolOrDefault(key, false)
		}
	}
}

// Validate rejects configurations the broker cannot start with.
func (c *Config) Validate() error {
	switch c.Network.Strategy {
	case "auto", "vpn_only", "direct_only", "split_tunnel":
	default:
		return fmt.Errorf("invalid network strategy: %s", c.Network.Strategy)
	}

	switch c.Cache.Backend {
	case "noop", "memory", "redis":
	default:
		return fmt.Errorf("invalid cache backend: %s", c.Cache.Backend)
	}

	if c.Platforms.PeerTube.Enabled && len(c.Platforms.PeerTube.Instances) == 0 {
		return fmt.Errorf("peertube enabled with no instances configured")
	}

	if c.Platforms.YouTube.Enabled &&
		(c.Platforms.YouTube.ConservationThreshold <= 0 || c.Platforms.YouTube.ConservationThreshold > 1) {
		return fmt.Errorf("youtube conservation threshold must be in (0, 1]")
	}

	return nil
}
