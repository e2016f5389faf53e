// Package logging builds the process logger from the logging section of the
// active environment. Records fan out to the console and to the debug and
// error files, each with its own threshold.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/IIP-Design/orchestra/internal/config"
)

// Logger owns the files opened for a configured logger.
type Logger struct {
	*slog.Logger
	files []*os.File
}

// Close closes the debug and error files.
func (l *Logger) Close() error {
	var errs []error
	for _, f := range l.files {
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	l.files = nil
	return errors.Join(errs...)
}

// New returns a logger writing text to console at cfg.Level, JSON to
// cfg.DebugFile at debug and JSON to cfg.ErrorFile at warn. Empty file paths
// are skipped. A nil console disables console output.
func New(cfg config.Logging, console io.Writer) (*Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	l := &Logger{}
	var handlers []slog.Handler
	if console != nil {
		handlers = append(handlers, slog.NewTextHandler(console, &slog.HandlerOptions{Level: level}))
	}

	for _, target := range []struct {
		path  string
		level slog.Level
	}{
		{cfg.DebugFile, slog.LevelDebug},
		{cfg.ErrorFile, slog.LevelWarn},
	} {
		if target.path == "" {
			continue
		}
		f, err := os.OpenFile(target.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			l.Close()
			return nil, fmt.Errorf("logging: open %s: %w", target.path, err)
		}
		l.files = append(l.files, f)
		handlers = append(handlers, slog.NewJSONHandler(f, &slog.HandlerOptions{Level: target.level}))
	}

	l.Logger = slog.New(Fanout(handlers...))
	return l, nil
}

// Console returns a text logger on w, used before a configuration is loaded.
func Console(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// ParseLevel maps debug, info, warn and error to slog levels. The empty
// string is info.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return level, fmt.Errorf("logging: unknown level %q", s)
	}
	return level, nil
}

type fanout []slog.Handler

// Fanout returns a handler that passes each record to every handler enabled
// for its level.
func Fanout(handlers ...slog.Handler) slog.Handler {
	return fanout(handlers)
}

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
