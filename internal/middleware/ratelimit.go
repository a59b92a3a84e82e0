package middleware

import (
    "context"
    "fmt"
    "math"
    "net/http"
    "strconv"
    "sync"
    "time"

    "github.com/google/uuid"
    lru "github.com/hashicorp/golang-lru/v2"
    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/qa-forum-api/internal/config"
    "github.com/iliyamo/qa-forum-api/internal/metrics"
)

// Decision is the outcome of one rate limit check.
type Decision struct {
    Allowed    bool
    Limit      int
    Remaining  int
    RetryAfter time.Duration
}

// Limiter admits or rejects a request identified by key.
type Limiter interface {
    Allow(ctx context.Context, key string) (Decision, error)
}

// SlidingWindow is an in-process sliding-window log.  Each client keeps the
// timestamps of its admitted requests inside the window; the client table is
// a fixed-capacity LRU so a flood of distinct addresses cannot grow memory
// without bound.  An evicted client simply starts a fresh window.
type SlidingWindow struct {
    rule config.RateLimitRule
    now  func() time.Time

    mu      sync.Mutex
    clients *lru.Cache[string, []time.Time]
}

func NewSlidingWindow(rule config.RateLimitRule, capacity int) *SlidingWindow {
    if capacity < 1 {
        capacity = 1
    }
    clients, _ := lru.New[string, []time.Time](capacity) // only fails for capacity <= 0
    return &SlidingWindow{rule: rule, now: time.Now, clients: clients}
}

// Allow prunes timestamps that left the window, rejects when the remaining
// count reached the limit and otherwise records now.
func (w *SlidingWindow) Allow(_ context.Context, key string) (Decision, error) {
    now := w.now()

    w.mu.Lock()
    defer w.mu.Unlock()

    ts, _ := w.clients.Get(key)
    kept := ts[:0]
    for _, t := range ts {
        if now.Sub(t) < w.rule.Window {
            kept = append(kept, t)
        }
    }

    if len(kept) >= w.rule.Limit {
        w.clients.Add(key, kept)
        return Decision{
            Allowed:    false,
            Limit:      w.rule.Limit,
            Remaining:  0,
            RetryAfter: kept[0].Add(w.rule.Window).Sub(now),
        }, nil
    }
    kept = append(kept, now)
    w.clients.Add(key, kept)
    return Decision{Allowed: true, Limit: w.rule.Limit, Remaining: w.rule.Limit - len(kept)}, nil
}

// Sweep drops clients whose newest timestamp is outside the window and
// returns how many were removed.
func (w *SlidingWindow) Sweep() int {
    now := w.now()

    w.mu.Lock()
    defer w.mu.Unlock()

    removed := 0
    for _, k := range w.clients.Keys() {
        ts, ok := w.clients.Peek(k)
        if !ok {
            continue
        }
        if len(ts) == 0 || now.Sub(ts[len(ts)-1]) >= w.rule.Window {
            w.clients.Remove(k)
            removed++
        }
    }
    return removed
}

// Len reports the number of tracked clients.
func (w *SlidingWindow) Len() int {
    w.mu.Lock()
    defer w.mu.Unlock()
    return w.clients.Len()
}

// RunSweeper calls Sweep every interval until ctx is done.
func (w *SlidingWindow) RunSweeper(ctx context.Context, interval time.Duration) {
    t := time.NewTicker(interval)
    defer t.Stop()
    for {
        select {
        case <-ctx.Done():
            return
        case <-t.C:
            w.Sweep()
        }
    }
}

// slidingWindowScript keeps one sorted set per client scored by request
// time in milliseconds.  Members are random so simultaneous requests do not
// collapse into one entry.
var slidingWindowScript = redis.NewScript(`
    local key = KEYS[1]
    local now_ms = tonumber(ARGV[1])
    local window_ms = tonumber(ARGV[2])
    local limit = tonumber(ARGV[3])
    local member = ARGV[4]

    redis.call('ZREMRANGEBYSCORE', key, '-inf', now_ms - window_ms)
    local count = redis.call('ZCARD', key)
    if count >= limit then
        local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
        local retry_ms = window_ms
        if oldest[2] then
            retry_ms = tonumber(oldest[2]) + window_ms - now_ms
        end
        return { 0, 0, retry_ms }
    end

    redis.call('ZADD', key, now_ms, member)
    redis.call('PEXPIRE', key, window_ms)
    return { 1, limit - count - 1, 0 }
`)

// RedisSlidingWindow is the shared variant of SlidingWindow.  Every
// instance pointing at the same Redis sees the same windows.
type RedisSlidingWindow struct {
    rdb    *redis.Client
    rule   config.RateLimitRule
    prefix string
    now    func() time.Time
}

func NewRedisSlidingWindow(rdb *redis.Client, rule config.RateLimitRule, prefix string) *RedisSlidingWindow {
    return &RedisSlidingWindow{rdb: rdb, rule: rule, prefix: prefix, now: time.Now}
}

func (w *RedisSlidingWindow) Allow(ctx context.Context, key string) (Decision, error) {
    args := []interface{}{
        w.now().UnixMilli(),
        w.rule.Window.Milliseconds(),
        w.rule.Limit,
        uuid.NewString(),
    }
    vals, err := slidingWindowScript.Run(ctx, w.rdb, []string{w.prefix + ":" + key}, args...).Int64Slice()
    if err != nil {
        return Decision{}, err
    }
    if len(vals) != 3 {
        return Decision{}, fmt.Errorf("unexpected rate limit script result: %v", vals)
    }
    return Decision{
        Allowed:    vals[0] == 1,
        Limit:      w.rule.Limit,
        Remaining:  int(vals[1]),
        RetryAfter: time.Duration(vals[2]) * time.Millisecond,
    }, nil
}

// NewLimiter picks the backend named by cfg.Backend.  Redis is used only
// when a client is available; otherwise the in-process window is returned.
func NewLimiter(cfg config.RateLimitConfig, rule config.RateLimitRule, rdb *redis.Client) Limiter {
    if cfg.Backend == "redis" && rdb != nil {
        return NewRedisSlidingWindow(rdb, rule, cfg.Prefix)
    }
    return NewSlidingWindow(rule, cfg.MaxClients)
}

// RateLimit admits requests per client address through l.  scope separates
// the tiers so one address has independent windows per tier.  Limiter
// errors let the request through.
func RateLimit(l Limiter, scope string, log logrus.FieldLogger) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            ip := c.RealIP()
            if ip == "" {
                ip = "unknown"
            }
            d, err := l.Allow(c.Request().Context(), scope+":"+ip)
            if err != nil {
                log.WithError(err).WithField("scope", scope).Warn("rate limiter unavailable, allowing request")
                return next(c)
            }

            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
            h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
            if !d.Allowed {
                secs := int(math.Ceil(d.RetryAfter.Seconds()))
                if secs < 1 {
                    secs = 1
                }
                h.Set("Retry-After", strconv.Itoa(secs))
                metrics.RecordRateLimited(scope)
                log.WithFields(logrus.Fields{"scope": scope, "remote_ip": ip}).Debug("rate limited")
                return echo.NewHTTPError(http.StatusTooManyRequests, "Too Many Requests")
            }
            return next(c)
        }
    }
}
