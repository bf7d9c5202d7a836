package timeutil

import (
	"strings"
	"time"
)

// ParseDurationOrDefault parses duration and returns def on empty or invalid value.
func ParseDurationOrDefault(value string, def time.Duration) time.Duration {
	if strings.TrimSpace(value) == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}

// Millis converts a duration to whole milliseconds for wire payloads.
func Millis(d time.Duration) int64 {
	return d.Milliseconds()
}

// FromMillis converts a millisecond count into a duration, returning def
// for non-positive values.
func FromMillis(ms int, def time.Duration) time.Duration {
	if ms <= 0 {
		return def
	}
	return time.Duration(ms) * time.Millisecond
}
