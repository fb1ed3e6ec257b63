// Package logger provides component-scoped structured logging for the bot.
// Call sites pass a component name plus a field map; output goes through
// log/slog so the handler format (text or JSON) is a deployment choice.
package logger

import (
	"context"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync/atomic"
)

var current atomic.Pointer[slog.Logger]

func init() {
	current.Store(slog.Default())
}

// Init configures the process-wide logger. Level is one of
// debug/info/warn/error (case-insensitive); anything else means info.
func Init(level string, jsonOutput bool) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if jsonOutput {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	current.Store(slog.New(handler))
}

// DebugCF logs at debug level with a component and fields.
func DebugCF(component, msg string, fields map[string]interface{}) {
	logCF(slog.LevelDebug, component, msg, fields)
}

// InfoCF logs at info level with a component and fields.
func InfoCF(component, msg string, fields map[string]interface{}) {
	logCF(slog.LevelInfo, component, msg, fields)
}

// WarnCF logs at warn level with a component and fields.
func WarnCF(component, msg string, fields map[string]interface{}) {
	logCF(slog.LevelWarn, component, msg, fields)
}

// ErrorCF logs at error level with a component and fields.
func ErrorCF(component, msg string, fields map[string]interface{}) {
	logCF(slog.LevelError, component, msg, fields)
}

func logCF(level slog.Level, component, msg string, fields map[string]interface{}) {
	attrs := make([]any, 0, 2+2*len(fields))
	attrs = append(attrs, "component", component)

	// Sorted keys keep log lines stable across runs.
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, k, fields[k])
	}

	current.Load().Log(context.Background(), level, msg, attrs...)
}
