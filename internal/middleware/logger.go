package middleware

import (
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"
)

// RequestLogger emits one entry per request.  Errors returned by the chain
// are handed to the HTTP error handler first so the logged status is the
// one the client saw.
func RequestLogger(log logrus.FieldLogger) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            if err := next(c); err != nil {
                c.Error(err)
            }

            req, res := c.Request(), c.Response()
            fields := logrus.Fields{
                "request_id": res.Header().Get(echo.HeaderXRequestID),
                "method":     req.Method,
                "path":       req.URL.Path,
                "route":      c.Path(),
                "status":     res.Status,
                "latency_ms": time.Since(start).Milliseconds(),
                "remote_ip":  c.RealIP(),
                "bytes_out":  res.Size,
            }
            if uid, ok := UserID(c); ok {
                fields["user_id"] = uid
            }
            entry := log.WithFields(fields)
            switch {
            case res.Status >= http.StatusInternalServerError:
                entry.Error("request")
            case res.Status >= http.StatusBadRequest:
                entry.Warn("request")
            default:
                entry.Info("request")
            }
            return nil
        }
    }
}
