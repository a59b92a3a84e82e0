package config

import "time"

// RateLimitRule admits at most Limit requests per client in any trailing
// Window.
type RateLimitRule struct {
    Limit  int
    Window time.Duration
}

// RateLimitConfig holds the three limiter tiers: Global wraps every route,
// Write wraps content creation and Vote wraps up/down votes.
type RateLimitConfig struct {
    Enabled       bool
    Backend       string // "memory" or "redis"
    Global        RateLimitRule
    Write         RateLimitRule
    Vote          RateLimitRule
    MaxClients    int           // LRU capacity of the in-memory client table
    SweepInterval time.Duration // how often idle clients are evicted
    Prefix        string        // Redis key prefix
    Debug         bool
}

func LoadRateLimitConfig() RateLimitConfig {
    cfg := RateLimitConfig{
        Enabled: envBool("RATE_LIMIT_ENABLED", true),
        Backend: envStr("RATE_LIMIT_BACKEND", "memory"),
        Global: RateLimitRule{
            Limit:  envInt("RATE_LIMIT_GLOBAL_LIMIT", 50),
            Window: envDur("RATE_LIMIT_GLOBAL_WINDOW", time.Minute),
        },
        Write: RateLimitRule{
            Limit:  envInt("RATE_LIMIT_WRITE_LIMIT", 10),
            Window: envDur("RATE_LIMIT_WRITE_WINDOW", time.Minute),
        },
        Vote: RateLimitRule{
            Limit:  envInt("RATE_LIMIT_VOTE_LIMIT", 10),
            Window: envDur("RATE_LIMIT_VOTE_WINDOW", 24*time.Minute),
        },
        MaxClients:    envInt("RATE_LIMIT_MAX_CLIENTS", 10000),
        SweepInterval: envDur("RATE_LIMIT_SWEEP_INTERVAL", time.Minute),
        Prefix:        envStr("RATE_LIMIT_PREFIX", "rl"),
        Debug:         envBool("RATE_LIMIT_DEBUG", false),
    }
    for _, r := range []*RateLimitRule{&cfg.Global, &cfg.Write, &cfg.Vote} {
        if r.Limit < 1 {
            r.Limit = 1
        }
        if r.Window <= 0 {
            r.Window = time.Minute
        }
    }
    if cfg.MaxClients < 1 {
        cfg.MaxClients = 1
    }
    if cfg.SweepInterval <= 0 {
        cfg.SweepInterval = time.Minute
    }
    return cfg
}
