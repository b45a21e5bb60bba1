// Package logx builds the process slog logger.
package logx

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

// Options selects the level, output format and destination of a logger.
type Options struct {
	Level   string // debug, info, warn, error
	Format  string // text or json
	Path    string // empty writes to stderr
	Service string
}

// New returns a logger configured by opts and installs it as the slog
// default. The returned func closes the log file, if any.
func New(opts Options) (*slog.Logger, func() error, error) {
	var (
		out     io.Writer
		closeFn func() error
	)
	if opts.Path == "" {
		out = os.Stderr
		closeFn = func() error { return nil }
	} else {
		f, err := os.OpenFile(opts.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, nil, err
		}
		out = f
		closeFn = f.Close
	}

	l := NewWriter(out, opts)
	slog.SetDefault(l)
	return l, closeFn, nil
}

// NewWriter returns a logger writing to w without touching the default.
func NewWriter(w io.Writer, opts Options) *slog.Logger {
	hopts := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}
	var h slog.Handler
	if strings.EqualFold(opts.Format, "json") {
		h = slog.NewJSONHandler(w, hopts)
	} else {
		h = slog.NewTextHandler(w, hopts)
	}
	l := slog.New(h)
	if opts.Service != "" {
		l = l.With(slog.String("service", opts.Service))
	}
	return l
}

// ParseLevel maps a level name to a slog.Level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Discard returns a logger that drops everything. Handy in tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// WithRequest annotates l with the chi request id carried by ctx.
func WithRequest(ctx context.Context, l *slog.Logger) *slog.Logger {
	if id := middleware.GetReqID(ctx); id != "" {
		return l.With(slog.String("request_id", id))
	}
	return l
}
