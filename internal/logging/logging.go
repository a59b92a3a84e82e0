// Package logging builds the process-wide logrus logger.
package logging

import (
    "io"
    "os"
    "strings"

    "github.com/sirupsen/logrus"
)

// New returns a logger writing to stdout.  format "text" selects the
// human-readable formatter and "json" the JSON one; when format is empty dev
// gets text and every other environment JSON.  Unknown levels fall back to
// info.
func New(env, level, format string) *logrus.Logger {
    return NewWithOutput(os.Stdout, env, level, format)
}

// NewWithOutput is New with an explicit destination.
func NewWithOutput(w io.Writer, env, level, format string) *logrus.Logger {
    log := logrus.New()
    log.SetOutput(w)

    lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
    if err != nil {
        lvl = logrus.InfoLevel
    }
    log.SetLevel(lvl)

    format = strings.ToLower(strings.TrimSpace(format))
    if format == "" && strings.EqualFold(env, "dev") {
        format = "text"
    }
    if format == "text" {
        log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
    } else {
        log.SetFormatter(&logrus.JSONFormatter{})
    }
    return log
}

// Discard returns a logger that drops everything.  Tests use it.
func Discard() *logrus.Logger {
    log := logrus.New()
    log.SetOutput(io.Discard)
    return log
}
