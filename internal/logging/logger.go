// Package logging wraps log/slog with the level and format conventions used
// across marbles. The level comes from the MARBLES_LOG_LEVEL environment
// variable unless set explicitly; the format is either text or json.
package logging

import (
	"crypto/rand"
	"encoding/hex"
	"io"
	"log/slog"
	"os"
	"strings"
)

// EnvLevel names the environment variable read by NewFromEnv.
const EnvLevel = "MARBLES_LOG_LEVEL"

// Logger wraps slog.Logger.
type Logger struct {
	*slog.Logger
}

// New creates a logger writing to w. Format "json" selects the JSON
// handler, anything else the text handler.
func New(w io.Writer, level slog.Level, format string) *Logger {
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if strings.EqualFold(format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return &Logger{slog.New(h)}
}

// NewFromEnv logs to stderr at the level named by MARBLES_LOG_LEVEL, or
// at fallback when the variable is unset or invalid.
func NewFromEnv(fallback, format string) *Logger {
	level := ParseLevel(fallback)
	if env := os.Getenv(EnvLevel); env != "" {
		level = ParseLevel(env)
	}
	return New(os.Stderr, level, format)
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return &Logger{slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// ParseLevel maps DEBUG, INFO, WARN/WARNING and ERROR in any case to a
// slog level. Unknown values give INFO.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Err logs msg at error level with err attached.
func (l *Logger) Err(msg string, err error, args ...any) {
	if err != nil {
		args = append(args, "error", err.Error())
	}
	l.Error(msg, args...)
}

// With returns a logger carrying the given attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{l.Logger.With(args...)}
}

// NewSessionID returns a random 16 character hex id used to tag the log
// lines of one session.
func NewSessionID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "0000000000000000"
	}
	return hex.EncodeToString(b)
}
