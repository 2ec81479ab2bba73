package crawl

import (
	"fmt"
	"time"

	"github.com/cinefeed/cinefeed/internal/catalog"
)

// Config is the per-source crawler configuration. It is hot-reloadable:
// UpdateConfig swaps it at runtime from persisted settings.
type Config struct {
	SourceName         string
	Host               string
	ImageHost          string
	CronSchedule       string
	ForceUpdate        bool
	MaxRetries         int
	RateLimitDelay     time.Duration
	MaxConcurrent      int
	MaxContinuousSkips int
	Enabled            bool
}

// Validate enforces the construction-time invariants. A crawler instance
// refuses to start on a bad config.
func (c Config) Validate() error {
	if c.SourceName == "" {
		return fmt.Errorf("crawler config: source name is required")
	}
	if c.Host == "" {
		return fmt.Errorf("crawler config %q: host is required", c.SourceName)
	}
	if c.CronSchedule == "" {
		return fmt.Errorf("crawler config %q: cron schedule is required", c.SourceName)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("crawler config %q: max retries must be >= 0", c.SourceName)
	}
	if c.MaxConcurrent <= 0 {
		return fmt.Errorf("crawler config %q: max concurrent requests must be > 0", c.SourceName)
	}
	if c.MaxContinuousSkips <= 0 {
		return fmt.Errorf("crawler config %q: max continuous skips must be > 0", c.SourceName)
	}
	return nil
}

// Settings converts the config to its persisted form.
func (c Config) Settings() catalog.SourceSettings {
	return catalog.SourceSettings{
		Name:               c.SourceName,
		Host:               c.Host,
		ImageHost:          c.ImageHost,
		CronSchedule:       c.CronSchedule,
		ForceUpdate:        c.ForceUpdate,
		MaxRetries:         c.MaxRetries,
		RateLimitDelayMs:   int(c.RateLimitDelay / time.Millisecond),
		MaxConcurrent:      c.MaxConcurrent,
		MaxContinuousSkips: c.MaxContinuousSkips,
		Enabled:            c.Enabled,
	}
}

// ConfigFromSettings converts persisted settings back to a Config.
func ConfigFromSettings(s catalog.SourceSettings) Config {
	return Config{
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

// Enablement is the process-wide gate state checked before the per-source
// flags: a global kill-switch and a source exclusion list.
type Enablement struct {
	KillSwitch      bool
	ExcludedSources []string
}

// Excluded reports whether source is on the exclusion list.
func (e Enablement) Excluded(source string) bool {
	for _, name := range e.ExcludedSources {
		if name == source {
			return true
		}
	}
	return false
}
