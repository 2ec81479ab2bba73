// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/cinefeed/cinefeed/internal/crawl"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Auth         AuthConfig         `mapstructure:"auth"`
	Mongo        MongoConfig        `mapstructure:"mongo"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Revalidation RevalidationConfig `mapstructure:"revalidation"`
	Crawler      CrawlerConfig      `mapstructure:"crawler"`
	Sources      []SourceConfig     `mapstructure:"sources"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// MongoConfig controls access to the document store.
type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

// RedisConfig controls access to the crawl-state cache. With Enabled false
// the service falls back to the in-process cache and loses resumability
// across restarts.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// RevalidationConfig points at the external cache-invalidation webhook.
type RevalidationConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	APIKey   string `mapstructure:"api_key"`
}

// CrawlerConfig governs process-wide crawl behavior.
type CrawlerConfig struct {
	KillSwitch      bool     `mapstructure:"kill_switch"`
	ExcludedSources []string `mapstructure:"excluded_sources"`
	UserAgent       string   `mapstructure:"user_agent"`
	TimeoutSeconds  int      `mapstructure:"timeout_seconds"`
}

// SourceConfig is the file-level configuration of one content source;
// persisted settings override it at startup.
type SourceConfig struct {
	Name               string `mapstructure:"name"`
	Host               string `mapstructure:"host"`
	ImageHost          string `mapstructure:"image_host"`
	CronSchedule       string `mapstructure:"cron_schedule"`
	ForceUpdate        bool   `mapstructure:"force_update"`
	MaxRetries         int    `mapstructure:"max_retries"`
	RateLimitDelayMs   int    `mapstructure:"rate_limit_delay_ms"`
	MaxConcurrent      int    `mapstructure:"max_concurrent"`
	MaxContinuousSkips int    `mapstructure:"max_continuous_skips"`
	Enabled            bool   `mapstructure:"enabled"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CINEFEED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "cinefeed")
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("crawler.user_agent", "cinefeed-bot/0.1")
	v.SetDefault("crawler.timeout_seconds", 30)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Mongo.URI == "" {
		return fmt.Errorf("mongo.uri must be set")
	}
	if c.Mongo.Database == "" {
		return fmt.Errorf("mongo.database must be set")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	seen := make(map[string]struct{}, len(c.Sources))
	for _, src := range c.Sources {
		if _, dup := seen[src.Name]; dup {
			return fmt.Errorf("sources: duplicate name %q", src.Name)
		}
		seen[src.Name] = struct{}{}
		if err := src.CrawlConfig().Validate(); err != nil {
			return err
		}
	}
	return nil
}

// HTTPTimeout converts the timeout config into a duration.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.Crawler.TimeoutSeconds) * time.Second
}

// Enablement builds the process-wide enablement gate state.
func (c Config) Enablement() crawl.Enablement {
	return crawl.Enablement{
		KillSwitch:      c.Crawler.KillSwitch,
		ExcludedSources: c.Crawler.ExcludedSources,
	}
}

// CrawlConfig converts a file-level source entry into the runtime config.
func (s SourceConfig) CrawlConfig() crawl.Config {
	return crawl.Config{
		SourceName:         s.Name,
		Host:               s.Host,
		ImageHost:          s.ImageHost,
		CronSchedule:       s.CronSchedule,
		ForceUpdate:        s.ForceUpdate,
		MaxRetries:         s.MaxRetries,
		RateLimitDelay:     time.Duration(s.RateLimitDelayMs) * time.Millisecond,
		MaxConcurrent:      s.MaxConcurrent,
		MaxContinuousSkips: s.MaxContinuousSkips,
		Enabled:            s.Enabled,
	}
}
