package middleware

import (
    "errors"
    "fmt"
    "net/http"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/qa-forum-api/internal/validation"
)

// HTTPErrorHandler writes every error as {"message": ...}.  Internal causes
// attached with SetInternal are logged, never sent to the client.
func HTTPErrorHandler(log logrus.FieldLogger) echo.HTTPErrorHandler {
    return func(err error, c echo.Context) {
        if c.Response().Committed {
            return
        }

        code := http.StatusInternalServerError
        msg := http.StatusText(code)
        var cause error

        var he *echo.HTTPError
        var fe *validation.FieldError
        switch {
        case errors.As(err, &he):
            code = he.Code
            msg = messageOf(he)
            cause = he.Internal
        case errors.As(err, &fe):
            code = http.StatusBadRequest
            msg = fe.Message
        default:
            cause = err
        }

        entry := log.WithFields(logrus.Fields{
            "request_id": c.Response().Header().Get(echo.HeaderXRequestID),
            "method":     c.Request().Method,
            "path":       c.Request().URL.Path,
            "status":     code,
        })
        if cause != nil {
            entry = entry.WithError(cause)
        }
        if code >= http.StatusInternalServerError {
            entry.Error(msg)
        } else if cause != nil {
            entry.Debug(msg)
        }

        if c.Request().Method == http.MethodHead {
            err = c.NoContent(code)
        } else {
            err = c.JSON(code, echo.Map{"message": msg})
        }
        if err != nil {
            log.WithError(err).Error("write error response")
        }
    }
}

func messageOf(he *echo.HTTPError) string {
    switch m := he.Message.(type) {
    case string:
        return m
    case error:
        return m.Error()
    case nil:
        return http.StatusText(he.Code)
    default:
        return fmt.Sprint(m)
    }
}
