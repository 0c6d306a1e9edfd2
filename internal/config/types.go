package config

import "time"

// Config is read-only after Load; the app never mutates it.
type Config struct {
	Logging     LoggingConfig     `mapstructure:"logging"`
	Network     NetworkConfig     `mapstructure:"network"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Extractor   ExtractorConfig   `mapstructure:"extractor"`
	Platforms   PlatformsConfig   `mapstructure:"platforms"`
	Health      HealthConfig      `mapstructure:"health"`
	Fallback    FallbackConfig    `mapstructure:"fallback"`
	Prioritizer PrioritizerConfig `mapstructure:"prioritizer"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Theme      string `mapstructure:"theme"`
	LogDir     string `mapstructure:"log_dir"`
	FileOutput bool   `mapstructure:"file_output"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

// NetworkConfig drives the split-tunnel HTTP router.
type NetworkConfig struct {
	// Strategy is one of auto, vpn_only, direct_only, split_tunnel.
	Strategy         string          `mapstructure:"strategy"`
	VPNInterface     string          `mapstructure:"vpn_interface"`
	DefaultInterface string          `mapstructure:"default_interface"`
	VPNSubnets       []string        `mapstructure:"vpn_subnets"`
	ServiceVPN       map[string]bool `mapstructure:"service_vpn"`
	MaxConnsPerHost  int             `mapstructure:"max_conns_per_host"`
	DNSCacheTTL      time.Duration   `mapstructure:"dns_cache_ttl"`
}

type CacheConfig struct {
	// Backend is one of noop, memory, redis.
	Backend  string      `mapstructure:"backend"`
	Capacity int         `mapstructure:"capacity"`
	Redis    RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type ExtractorConfig struct {
	BinaryPath  string        `mapstructure:"binary_path"`
	Workers     int           `mapstructure:"workers"`
	Timeout     time.Duration `mapstructure:"timeout"`
	CookiesFile string        `mapstructure:"cookies_file"`
}

type PlatformsConfig struct {
	YouTube  YouTubeConfig  `mapstructure:"youtube"`
	Rumble   ActorConfig    `mapstructure:"rumble"`
	Odysee   OdyseeConfig   `mapstructure:"odysee"`
	PeerTube PeerTubeConfig `mapstructure:"peertube"`
}

type YouTubeConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
	// QuotaDailyLimit is the platform's daily unit budget; the fallback
	// engine escalates once usage crosses ConservationThreshold of it.
	QuotaDailyLimit       int     `mapstructure:"quota_daily_limit"`
	ConservationThreshold float64 `mapstructure:"conservation_threshold"`
}

// ActorConfig configures a paid-actor scraping platform.
type ActorConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	APIToken      string        `mapstructure:"api_token"`
	BaseURL       string        `mapstructure:"base_url"`
	SearchActor   string        `mapstructure:"search_actor"`
	MetadataActor string        `mapstructure:"metadata_actor"`
	StreamActor   string        `mapstructure:"stream_actor"`
	RunTimeout    time.Duration `mapstructure:"run_timeout"`
}

type OdyseeConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	BaseURL    string        `mapstructure:"base_url"`
	APIToken   string        `mapstructure:"api_token"`
	RunTimeout time.Duration `mapstructure:"run_timeout"`
}

type PeerTubeConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	Instances          []string      `mapstructure:"instances"`
	FanoutStagger      time.Duration `mapstructure:"fanout_stagger"`
	PerInstanceTimeout time.Duration `mapstructure:"per_instance_timeout"`
}

type HealthConfig struct {
	CheckInterval          time.Duration `mapstructure:"check_interval"`
	CheckTimeout           time.Duration `mapstructure:"check_timeout"`
	MaxConsecutiveFailures int           `mapstructure:"max_consecutive_failures"`
	RecoveryBackoffStep    time.Duration `mapstructure:"recovery_backoff_step"`
	RecoveryBackoffMax     time.Duration `mapstructure:"recovery_backoff_max"`
}

type FallbackConfig struct {
	RetryInterval time.Duration `mapstructure:"retry_interval"`
}

type PrioritizerConfig struct {
	Strategy       string        `mapstructure:"strategy"`
	UpdateInterval time.Duration `mapstructure:"update_interval"`
}
