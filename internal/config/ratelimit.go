package config

import "time"

// RateLimitConfig controls the fixed-window request limiter. Limit is
// the number of requests allowed per Window for one client key
// (IP + route). TTL bounds how long idle counters live in Redis.
type RateLimitConfig struct {
	Enabled bool
	Limit   int
	Window  time.Duration
	TTL     time.Duration
	Prefix  string
}

// LoadRateLimitConfig reads environment variables with permissive
// defaults and clamps nonsense values rather than failing the boot.
func LoadRateLimitConfig() RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled: getenv("RATE_LIMIT_ENABLED", "true") == "true",
		Limit:   atoi(getenv("RATE_LIMIT_PER_WINDOW", "60")),
		Window:  parseDur(getenv("RATE_LIMIT_WINDOW", "1m")),
		TTL:     parseDur(getenv("RATE_LIMIT_TTL", "10m")),
		Prefix:  getenv("RATE_LIMIT_PREFIX", "rl"),
	}
	if cfg.Limit < 1 {
		cfg.Limit = 1
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.Window < time.Second {
		// the limiter buckets by whole seconds
		cfg.Window = time.Second
	}
	if cfg.TTL < cfg.Window {
		cfg.TTL = 2 * cfg.Window
	}
	return cfg
}
