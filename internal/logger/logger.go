// Package logger wraps slog with the printf helpers used across the
// codebase. Output and level can be swapped at runtime so main can point
// logs at a file once config is loaded.
package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"log/slog"
)

var (
	levelVar slog.LevelVar
	current  atomic.Pointer[slog.Logger]
)

func init() {
	levelVar.Set(slog.LevelInfo)
	current.Store(textLogger(os.Stdout))
}

func textLogger(w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: &levelVar}))
}

// SetOutput redirects all subsequent log lines to w.
func SetOutput(w io.Writer) {
	current.Store(textLogger(w))
}

// SetLevel accepts debug/info/warn/error; anything else means info.
func SetLevel(level string) {
	levelVar.Set(parseLevel(level))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

func logAt(level slog.Level, format string, v ...any) {
	l := current.Load()
	if l == nil {
		l = textLogger(os.Stdout)
		current.Store(l)
	}
	l.Log(context.Background(), level, fmt.Sprintf(format, v...))
}

func Debugf(format string, v ...any) { logAt(slog.LevelDebug, format, v...) }

func Infof(format string, v ...any) { logAt(slog.LevelInfo, format, v...) }

func Warnf(format string, v ...any) { logAt(slog.LevelWarn, format, v...) }

func Errorf(format string, v ...any) { logAt(slog.LevelError, format, v...) }
