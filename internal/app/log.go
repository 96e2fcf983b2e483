package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"rgit-go/internal/config"
	"rgit-go/internal/rgit"
)

// tsvHandler is a slog.Handler that formats log records as:
//
//	<timestamp>\t<level>\t<opID>\t<message>\t<key=value ...>
type tsvHandler struct {
	w     io.Writer
	opID  string
	level slog.Leveler
	attrs []slog.Attr
}

func (h *tsvHandler) Enabled(_ context.Context, level slog.Level) bool {
	if h.level == nil {
		return true
	}
	return level >= h.level.Level()
}

func (h *tsvHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\t%s\t%s\t%s", r.Time.UTC().Format("2006-01-02T15:04:05Z"), r.Level, h.opID, r.Message)

	for _, a := range h.attrs {
		fmt.Fprintf(&b, "\t%s=%v", a.Key, a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(&b, "\t%s=%v", a.Key, a.Value)
		return true
	})
	b.WriteByte('\n')

	// One write per record so concurrent lines never interleave.
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *tsvHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &tsvHandler{
		w:     h.w,
		opID:  h.opID,
		level: h.level,
		attrs: append(append([]slog.Attr{}, h.attrs...), attrs...),
	}
}

func (h *tsvHandler) WithGroup(string) slog.Handler { return h }

func parseLevel(s string) (slog.Level, error) {
	if s == "" {
		return slog.LevelInfo, nil
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return l, nil
}

// newLogger creates the service logger described by cfg, writing to
// logDir/rgit.log and, if cfg.Stderr is set, to stderr as well. The returned
// file must be closed by the caller.
func newLogger(cfg config.LogConfig, logDir, opID string) (rgit.Logger, *os.File, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}

	logPath := filepath.Join(logDir, "rgit.log")
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	var w io.Writer = f
	if cfg.Stderr {
		w = io.MultiWriter(f, os.Stderr)
	}

	logger, err := newLoggerTo(cfg, w, opID)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return logger, f, nil
}

func newLoggerTo(cfg config.LogConfig, w io.Writer, opID string) (rgit.Logger, error) {
	switch cfg.Format {
	case "", "text":
		level, err := parseLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
		return &slogAdapter{l: slog.New(&tsvHandler{w: w, opID: opID, level: level})}, nil
	case "json":
		level := zerolog.InfoLevel
		if cfg.Level != "" {
			var err error
			if level, err = zerolog.ParseLevel(cfg.Level); err != nil {
				return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
			}
		}
		l := zerolog.New(w).Level(level).With().
			Timestamp().
			Str("service", "rgit").
			Str("op", opID).
			Logger()
		return &zerologAdapter{l: l}, nil
	default:
		return nil, fmt.Errorf("unknown log format: %s", cfg.Format)
	}
}

// slogAdapter wraps *slog.Logger to satisfy the rgit.Logger interface.
type slogAdapter struct {
	l *slog.Logger
}

func (a *slogAdapter) Debug(msg string, args ...any) { a.l.Debug(msg, args...) }
func (a *slogAdapter) Info(msg string, args ...any)  { a.l.Info(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.l.Warn(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.l.Error(msg, args...) }

// zerologAdapter maps slog-style key/value args onto zerolog fields.
type zerologAdapter struct {
	l zerolog.Logger
}

func (a *zerologAdapter) Debug(msg string, args ...any) { a.l.Debug().Fields(args).Msg(msg) }
func (a *zerologAdapter) Info(msg string, args ...any)  { a.l.Info().Fields(args).Msg(msg) }
func (a *zerologAdapter) Warn(msg string, args ...any)  { a.l.Warn().Fields(args).Msg(msg) }
func (a *zerologAdapter) Error(msg string, args ...any) { a.l.Error().Fields(args).Msg(msg) }

var (
	_ rgit.Logger = (*slogAdapter)(nil)
	_ rgit.Logger = (*zerologAdapter)(nil)
)
