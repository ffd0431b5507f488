// Package util holds small helpers with no better home, currently
// environment variable parsing for process configuration.
package util

import (
	"log/slog"
	"os"
	"strings"
)

// ParseBoolEnv reads the named environment variable as a boolean flag.
// Unset means the default; true/1/yes/on and false/0/no/off are recognized
// regardless of case. Anything else logs a warning and keeps the default
// rather than failing startup.
func ParseBoolEnv(key string, defaultValue bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	}
	slog.Warn("ParseBoolEnv: unrecognized boolean value, keeping default",
		"key", key, "value", raw, "default", defaultValue)
	return defaultValue
}
