package config

import "time"

// RateLimitConfig configures a Redis token bucket. Capacity tokens are
// available up front and RefillTokens are added every RefillInterval.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	KeyStrategy    string
	Prefix         string
	Debug          bool
}

// LoadRateLimitConfig reads the general API bucket from RATE_LIMIT_*.
func LoadRateLimitConfig() RateLimitConfig {
	return loadBucket("RATE_LIMIT", RateLimitConfig{
		Enabled:        true,
		Capacity:       60,
		RefillTokens:   1,
		RefillInterval: time.Second,
		TTL:            10 * time.Minute,
		KeyStrategy:    "ip_user_route",
		Prefix:         "theatre:rl",
	})
}

// LoadAuthRateLimitConfig reads the stricter bucket applied to the login and
// registration endpoints from AUTH_RATE_LIMIT_*.
func LoadAuthRateLimitConfig() RateLimitConfig {
	return loadBucket("AUTH_RATE_LIMIT", RateLimitConfig{
		Enabled:        true,
		Capacity:       10,
		RefillTokens:   1,
		RefillInterval: 6 * time.Second,
		TTL:            10 * time.Minute,
		KeyStrategy:    "ip_route",
		Prefix:         "theatre:rl:auth",
	})
}

func loadBucket(env string, def RateLimitConfig) RateLimitConfig {
	c := RateLimitConfig{
		Enabled:        envBool(env+"_ENABLED", def.Enabled),
		Capacity:       envInt(env+"_CAPACITY", def.Capacity),
		RefillTokens:   envInt(env+"_REFILL_TOKENS", def.RefillTokens),
		RefillInterval: envDur(env+"_REFILL_INTERVAL", def.RefillInterval),
		TTL:            envDur(env+"_TTL", def.TTL),
		KeyStrategy:    envStr(env+"_KEY_STRATEGY", def.KeyStrategy),
		Prefix:         envStr(env+"_PREFIX", def.Prefix),
		Debug:          envBool(env+"_DEBUG", false),
	}
	if b := envInt(env+"_BURST", -1); b > 0 {
		c.Capacity = b
	}
	if every := envDur(env+"_REFILL_EVERY", 0); every > 0 {
		c.RefillTokens = 1
		c.RefillInterval = every
	}
	if c.Capacity < 1 {
		c.Capacity = 1
	}
	if c.RefillTokens < 1 {
		c.RefillTokens = 1
	}
	if c.RefillInterval <= 0 {
		c.RefillInterval = time.Second
	}
	// keep idle buckets around long enough to refill completely
	if minTTL := 5 * c.RefillInterval; c.TTL < minTTL {
		c.TTL = minTTL
	}
	return c
}
