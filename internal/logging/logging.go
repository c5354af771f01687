// Package logging builds the process-wide slog handler.
package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// Err tags an error attribute so the console handler highlights it.
var Err = tint.Err

// New returns a tint-backed logger writing to w. Quiet raises the level to
// warn regardless of level.
func New(w io.Writer, level slog.Level, quiet bool) *slog.Logger {
	if quiet && level < slog.LevelWarn {
		level = slog.LevelWarn
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.DateTime,
		NoColor:    !isTerminal(w),
	}))
}

// Setup installs New(os.Stderr, ...) as the default logger.
func Setup(level slog.Level, quiet bool) *slog.Logger {
	logger := New(os.Stderr, level, quiet)
	slog.SetDefault(logger)
	return logger
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
