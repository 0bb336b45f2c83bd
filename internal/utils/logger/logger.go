package logger

import (
	"io"
	"os"

	"golang.org/x/exp/slog"
	"gopkg.in/natefinch/lumberjack.v2"

	"notekeeper/internal/config"
	"notekeeper/internal/utils/logger/handlers/slogpretty"
)

// New builds the process logger for env. Output goes to stderr so command
// output on stdout stays clean.
func New(env string) *slog.Logger {
	return newLogger(env, os.Stderr)
}

// NewWithFile logs as JSON into a rotated file. An empty path falls back to New.
func NewWithFile(env, path string) *slog.Logger {
	if path == "" {
		return New(env)
	}
	w := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: levelFor(env)}))
}

func newLogger(env string, out io.Writer) *slog.Logger {
	switch env {
	case config.EnvLocal:
		return setupPrettySlog()
	case config.EnvDev:
		return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: slog.LevelDebug}))
	default:
		return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
}

func levelFor(env string) slog.Level {
	if env == config.EnvProd {
		return slog.LevelInfo
	}
	return slog.LevelDebug
}

func setupPrettySlog() *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{Level: slog.LevelDebug},
	}
	return slog.New(opts.NewPrettyHandler(os.Stderr))
}
