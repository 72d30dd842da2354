package config

import (
	"log/slog"
	"os"
	"strings"
)

// LogLevel enumerates supported logging levels.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LogLevelEnv overrides the configured level when set.
const LogLevelEnv = "OBFPKG_LOG_LEVEL"

// NormalizeLogLevel maps raw input onto a LogLevel, defaulting to info.
func NormalizeLogLevel(raw string) LogLevel {
	switch LogLevel(strings.ToLower(strings.TrimSpace(raw))) {
	case LogLevelDebug:
		return LogLevelDebug
	case LogLevelWarn, "warning":
		return LogLevelWarn
	case LogLevelError:
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

// SlogLevel resolves the effective slog level: verbose wins, then the
// environment, then raw.
func SlogLevel(verbose bool, raw string) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	if env := os.Getenv(LogLevelEnv); env != "" {
		raw = env
	}
	switch NormalizeLogLevel(raw) {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
