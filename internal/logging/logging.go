// Package logging installs the process logger.
package logging

import (
	"context"
	"io"
	"log/slog"

	"github.com/lmittmann/tint"
	slogctx "github.com/veqryn/slog-context"
)

// TimeFormat is the timestamp layout of log lines.
const TimeFormat = "2006-01-02 15:04 05.0000"

// Setup builds a tint handler writing to w at level, wraps it so attributes
// stored in a context reach every record, installs it as the default logger
// and returns ctx carrying it.
func Setup(ctx context.Context, w io.Writer, level slog.Level, color bool) context.Context {
	handler := tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: TimeFormat,
		NoColor:    !color,
	})

	logger := slog.New(slogctx.NewHandler(handler, nil))
	slog.SetDefault(logger)

	return slogctx.NewCtx(ctx, logger)
}

// Level maps the verbosity flags to a level. verbose wins over quiet.
func Level(verbose, quiet bool) slog.Level {
	switch {
	case verbose:
		return slog.LevelDebug
	case quiet:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
