package logger

import (
	"io"
	"log/slog"
	"strings"
)

// Option configures a logger created with New.
type Option func(*config)

// WithDebug sets the level to Debug when true, Info otherwise.
func WithDebug(debug bool) Option {
	return func(c *config) {
		if debug {
			c.level = slog.LevelDebug
		} else {
			c.level = slog.LevelInfo
		}
	}
}

// WithLevel sets the level by name ("debug", "info", "warn", "error").
// An empty or unknown name keeps the current level, so an unset
// DYNRAG_LOG_LEVEL falls back to Info.
func WithLevel(name string) Option {
	return func(c *config) {
		if level, ok := ParseLevel(name); ok {
			c.level = level
		}
	}
}

// ParseLevel maps a level name onto a slog.Level.
func ParseLevel(name string) (slog.Level, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return slog.LevelInfo, false
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo, false
	}
	return level, true
}

// WithService tags every record with service=name, e.g. "lambda-ingest".
func WithService(name string) Option {
	return func(c *config) {
		c.service = name
	}
}

// WithPretty selects the charmbracelet/log handler for colorized CLI output.
func WithPretty(pretty bool) Option {
	return func(c *config) {
		c.pretty = pretty
	}
}

// WithJSON selects slog's JSON handler, used by serve's log file and the
// Lambda binaries.
func WithJSON(json bool) Option {
	return func(c *config) {
		c.json = json
	}
}

// WithWriter overrides the output writer. Defaults to os.Stdout.
func WithWriter(w io.Writer) Option {
	return WithWriters(w)
}

// WithWriters sets multiple output writers.
func WithWriters(w ...io.Writer) Option {
	return func(c *config) {
		c.writers = w
	}
}

// WithSource includes source file:line in log output.
func WithSource(source bool) Option {
	return func(c *config) {
		c.source = source
	}
}
