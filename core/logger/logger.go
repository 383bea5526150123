package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	mu      sync.RWMutex
	current = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
)

// Init replaces the process logger. format is "json" or "text".
func Init(level, format string, w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var h slog.Handler
	if strings.EqualFold(format, "text") {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}

	mu.Lock()
	current = slog.New(h)
	mu.Unlock()
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

func get() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// normalize turns a lone error argument into an "error" attribute so that
// calls like logger.Error("Repo:Create:Error", err) stay well formed.
func normalize(args []any) []any {
	if len(args)%2 == 1 {
		if err, ok := args[len(args)-1].(error); ok {
			return append(args[:len(args)-1:len(args)-1], "error", err)
		}
	}
	return args
}

func Debug(msg string, args ...any) { get().Debug(msg, normalize(args)...) }

func Info(msg string, args ...any) { get().Info(msg, normalize(args)...) }

func Warn(msg string, args ...any) { get().Warn(msg, normalize(args)...) }

func Error(msg string, args ...any) { get().Error(msg, normalize(args)...) }

// With returns a child logger carrying the given attributes.
func With(args ...any) *slog.Logger { return get().With(args...) }
