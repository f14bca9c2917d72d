package env

import (
	"os"
	"strings"

	"github.com/spf13/cast"
)

// Helpers for the handful of settings read before config is loaded, mostly
// logging. Values that fail to parse fall back to the default.

func GetEnvOrDefault(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return fallback
}

func GetEnvBoolOrDefault(key string, fallback bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	b, err := cast.ToBoolE(strings.TrimSpace(v))
	if err != nil {
		return fallback
	}
	return b
}

func GetEnvIntOrDefault(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := cast.ToIntE(strings.TrimSpace(v))
	if err != nil {
		return fallback
	}
	return n
}
