package logging

import (
	"io"
	"log/slog"
	"time"

	"github.com/lmittmann/tint"
	"gorm.io/gorm/logger"
)

// New builds the process logger: colourised text in dev, JSON otherwise.
func New(w io.Writer, appEnv string, level slog.Level) *slog.Logger {
	if appEnv == "dev" {
		h := tint.NewHandler(w, &tint.Options{
			Level:      level,
			AddSource:  true,
			TimeFormat: time.Kitchen,
		})
		return slog.New(h).With("app", "airqd")
	}

	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(h).With(
		"app", "airqd",
		"env", appEnv,
	)
}

// GormLevel maps the process log level onto gorm's SQL logger. Statements
// are only logged at debug.
func GormLevel(level slog.Level) logger.LogLevel {
	switch {
	case level <= slog.LevelDebug:
		return logger.Info
	case level <= slog.LevelWarn:
		return logger.Warn
	default:
		return logger.Error
	}
}
