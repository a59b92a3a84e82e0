// Package metrics exposes Prometheus collectors for the API.
package metrics

import (
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/collectors"
    "github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "qa_forum"

var (
    // Registry holds the application-specific Prometheus collectors.
    Registry = prometheus.NewRegistry()

    httpInFlight = prometheus.NewGauge(
        prometheus.GaugeOpts{
            Namespace: namespace,
            Subsystem: "http",
            Name:      "inflight_requests",
            Help:      "Current number of in-flight HTTP requests.",
        },
    )

    httpRequests = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: namespace,
            Subsystem: "http",
            Name:      "requests_total",
            Help:      "Total number of HTTP requests handled.",
        },
        []string{"method", "route", "status"},
    )

    httpDuration = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{
            Namespace: namespace,
            Subsystem: "http",
            Name:      "request_duration_seconds",
            Help:      "Duration of HTTP requests.",
            Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
        },
        []string{"method", "route"},
    )

    votesCast = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: namespace,
            Subsystem: "votes",
            Name:      "cast_total",
            Help:      "Votes recorded, by target kind and direction.",
        },
        []string{"target", "direction"},
    )

    authEvents = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: namespace,
            Subsystem: "auth",
            Name:      "events_total",
            Help:      "Authentication operations by kind and outcome.",
        },
        []string{"event", "result"},
    )

    rateLimited = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: namespace,
            Subsystem: "ratelimit",
            Name:      "rejections_total",
            Help:      "Requests rejected with 429, by limiter scope.",
        },
        []string{"scope"},
    )

    cacheLookups = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: namespace,
            Subsystem: "cache",
            Name:      "lookups_total",
            Help:      "Response cache lookups by result.",
        },
        []string{"result"},
    )

    eventsPublished = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: namespace,
            Subsystem: "events",
            Name:      "published_total",
            Help:      "Activity events handed to the broker, by type and outcome.",
        },
        []string{"type", "result"},
    )
)

func init() {
    Registry.MustRegister(
        httpInFlight,
        httpRequests,
        httpDuration,
        votesCast,
        authEvents,
        rateLimited,
        cacheLookups,
        eventsPublished,
        collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
        collectors.NewGoCollector(),
    )
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
    return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Middleware records request count, latency and in-flight gauge.  Routes are
// labelled with their registered pattern (e.g. /questions/:id) so ids do not
// blow up label cardinality.
func Middleware() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if c.Request().URL.Path == "/metrics" {
                return next(c)
            }
            start := time.Now()
            httpInFlight.Inc()
            defer httpInFlight.Dec()

            err := next(c)

            status := c.Response().Status
            if he, ok := err.(*echo.HTTPError); ok {
                status = he.Code
            } else if err != nil && !c.Response().Committed {
                status = http.StatusInternalServerError
            }
            route := c.Path()
            if route == "" {
                route = "unmatched"
            }
            method := strings.ToUpper(c.Request().Method)
            httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
            httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
            return err
        }
    }
}

// RecordVote counts a recorded vote.  target is "question" or "answer".
func RecordVote(target string, value int) {
    dir := "up"
    if value < 0 {
        dir = "down"
    }
    votesCast.WithLabelValues(target, dir).Inc()
}

// RecordAuth counts an auth operation such as "login" with result "ok" or
// "fail".
func RecordAuth(event string, ok bool) {
    authEvents.WithLabelValues(event, result(ok)).Inc()
}

// RecordRateLimited counts a 429 for the given limiter scope.
func RecordRateLimited(scope string) {
    rateLimited.WithLabelValues(scope).Inc()
}

// RecordCache counts a cache lookup; result is "hit", "miss" or "bypass".
func RecordCache(result string) {
    cacheLookups.WithLabelValues(result).Inc()
}

// RecordEvent counts a publish attempt.
func RecordEvent(eventType string, ok bool) {
    eventsPublished.WithLabelValues(eventType, result(ok)).Inc()
}

func result(ok bool) string {
    if ok {
        return "ok"
    }
    return "fail"
}
