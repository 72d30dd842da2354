package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID    = "build_id"
	KeyStage      = "stage"
	KeyPath       = "path"
	KeyPackage    = "package"
	KeyTool       = "tool"
	KeyAttempt    = "attempt"
	KeyDurationMS = "duration_ms"
	KeyVersion    = "version"
	KeyCount      = "count"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr     { return slog.String(KeyBuildID, id) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Package(name string) slog.Attr   { return slog.String(KeyPackage, name) }
func Tool(name string) slog.Attr      { return slog.String(KeyTool, name) }
func Attempt(n int) slog.Attr         { return slog.Int(KeyAttempt, n) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Version(v string) slog.Attr      { return slog.String(KeyVersion, v) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }

// Duration renders d as milliseconds under the canonical duration key.
func Duration(d time.Duration) slog.Attr {
	return DurationMS(float64(d.Microseconds()) / 1000)
}

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
