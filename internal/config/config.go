package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/docker/go-units"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/thushan/qlite/internal/core/constants"
	"github.com/thushan/qlite/internal/core/domain"
	"github.com/thushan/qlite/internal/platform"
)

const (
	DefaultPort = 8080
	DefaultHost = "0.0.0.0"

	DefaultMaxResponseSize = "1MiB"
	DefaultSessionMaxBytes = "16MiB"

	EnvPrefix     = "QLITE"
	EnvConfigFile = "QLITE_CONFIG_FILE"

	BackendTypeAuto   = "auto"
	BackendTypeOllama = "ollama"
	BackendTypeOpenAI = "openai"
)

// flag name -> config key
var flagBindings = map[string]string{
	"host":         "server.host",
	"port":         "server.port",
	"preset":       "server.preset",
	"backend":      "backend.url",
	"backend-type": "backend.type",
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            DefaultHost,
			Port:            DefaultPort,
			Preset:          platform.PresetAuto,
			ShutdownTimeout: 10 * time.Second,
		},
		Backend: BackendConfig{
			Type:            BackendTypeAuto,
			ProbeTimeout:    constants.DefaultProbeTimeout,
			MaxResponseSize: DefaultMaxResponseSize,
		},
		Sessions: SessionsConfig{
			MaxBytes: DefaultSessionMaxBytes,
		},
	}
}

// RegisterFlags adds the command line flags Load understands
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("host", DefaultHost, "Address to listen on")
	fs.IntP("port", "p", DefaultPort, "Port to listen on")
	fs.String("preset", platform.PresetAuto, "Platform preset ("+strings.Join(platform.Names(), ", ")+")")
	fs.StringP("backend", "b", "", "Backend URL, eg. "+constants.DefaultBackendURL+" (default: auto-detect)")
	fs.String("backend-type", BackendTypeAuto, "Backend family (auto, ollama, openai)")
	fs.StringP("config", "c", "", "Path to config file")
	fs.BoolP("version", "v", false, "Print version information and exit")
	fs.BoolP("help", "h", false, "Show this help")
}

// Load loads configuration from defaults, file, environment and flags (in
// increasing order of precedence). fs may be nil.
func Load(fs *pflag.FlagSet) (*Config, error) {
	config := DefaultConfig()
	v := viper.New()
	setDefaults(v, config)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for flag, key := range flagBindings {
			if f := fs.Lookup(flag); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("unable to bind flag %s: %w", flag, err)
				}
			}
		}
	}

	explicit := os.Getenv(EnvConfigFile)
	if fs != nil {
		if f := fs.Lookup("config"); f != nil && f.Changed {
			explicit = f.Value.String()
		}
	}

	if explicit != "" {
		v.SetConfigFile(explicit)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", explicit, err)
		}
	} else if err := v.ReadInConfig(); err != nil {
		// It's okay if config file doesn't exist
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	config.Filename = v.ConfigFileUsed()
	config.v = v

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func setDefaults(v *viper.Viper, c *Config) {
	v.SetDefault("server.host", c.Server.Host)
	v.SetDefault("server.port", c.Server.Port)
	v.SetDefault("server.preset", c.Server.Preset)
	v.SetDefault("server.request_buffer_size", c.Server.RequestBufferSize)
	v.SetDefault("server.response_buffer_size", c.Server.ResponseBufferSize)
	v.SetDefault("server.shutdown_timeout", c.Server.ShutdownTimeout)
	v.SetDefault("server.rate_limits.global_requests_per_minute", c.Server.RateLimits.GlobalRequestsPerMinute)
	v.SetDefault("server.rate_limits.burst_size", c.Server.RateLimits.BurstSize)
	v.SetDefault("backend.type", c.Backend.Type)
	v.SetDefault("backend.url", c.Backend.URL)
	v.SetDefault("backend.probe_timeout", c.Backend.ProbeTimeout)
	v.SetDefault("backend.max_response_size", c.Backend.MaxResponseSize)
	v.SetDefault("sessions.max_bytes", c.Sessions.MaxBytes)
	v.SetDefault("sessions.persist_path", c.Sessions.PersistPath)
	v.SetDefault("engineering.show_nerdstats", c.Engineering.ShowNerdStats)
	v.SetDefault("engineering.profiler_address", c.Engineering.ProfilerAddress)
}

// Watch re-reads the config file when it changes and hands the result to fn.
// Only settings that can change at runtime are worth acting on; the preset and
// listener need a restart.
func (c *Config) Watch(fn func(*Config, error)) {
	if c.v == nil || c.Filename == "" {
		return
	}
	c.v.OnConfigChange(func(_ fsnotify.Event) {
		updated := DefaultConfig()
		if err := c.v.Unmarshal(updated); err != nil {
			fn(nil, fmt.Errorf("unable to decode config: %w", err))
			return
		}
		updated.Filename = c.Filename
		updated.v = c.v
		fn(updated, updated.Validate())
	})
	c.v.WatchConfig()
}

// Validate checks the config for values we can't run with
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return &domain.ConfigValidationError{Field: "server.port", Value: c.Server.Port, Reason: "must be between 1 and 65535"}
	}
	if c.Server.RateLimits.GlobalRequestsPerMinute < 0 {
		return &domain.ConfigValidationError{Field: "server.rate_limits.global_requests_per_minute", Value: c.Server.RateLimits.GlobalRequestsPerMinute, Reason: "cannot be negative"}
	}
	if c.Server.RateLimits.BurstSize < 0 {
		return &domain.ConfigValidationError{Field: "server.rate_limits.burst_size", Value: c.Server.RateLimits.BurstSize, Reason: "cannot be negative"}
	}
	if _, err := c.BackendFamily(); err != nil {
		return err
	}
	if c.Backend.ProbeTimeout <= 0 {
		return &domain.ConfigValidationError{Field: "backend.probe_timeout", Value: c.Backend.ProbeTimeout, Reason: "must be positive"}
	}

	sizes := map[string]string{
		"server.request_buffer_size":  c.Server.RequestBufferSize,
		"server.response_buffer_size": c.Server.ResponseBufferSize,
		"backend.max_response_size":   c.Backend.MaxResponseSize,
		"sessions.max_bytes":          c.Sessions.MaxBytes,
	}
	for field, value := range sizes {
		if _, err := parseSize(value, 0); err != nil {
			return &domain.ConfigValidationError{Field: field, Value: value, Reason: err.Error()}
		}
	}

	if c.Backend.URL != "" {
		family, _ := c.BackendFamily()
		if family == "" {
			family = domain.FamilyNative
		}
		if _, err := domain.ParseBackendURL(c.Backend.URL, family); err != nil {
			return &domain.ConfigValidationError{Field: "backend.url", Value: c.Backend.URL, Reason: err.Error()}
		}
	}
	return nil
}

// BackendFamily maps backend.type to a family, empty for auto-detect
func (c *Config) BackendFamily() (domain.Family, error) {
	t := strings.ToLower(strings.TrimSpace(c.Backend.Type))
	if t == "" || t == BackendTypeAuto {
		return "", nil
	}
	if family, ok := domain.ParseFamily(t); ok {
		return family, nil
	}
	return "", &domain.ConfigValidationError{Field: "backend.type", Value: c.Backend.Type, Reason: "must be auto, ollama or openai"}
}

// Limits resolves the preset and applies any buffer overrides
func (c *Config) Limits() (platform.Config, bool) {
	preset, known := platform.Lookup(c.Server.Preset)
	if n, _ := parseSize(c.Server.RequestBufferSize, 0); n > 0 {
		preset.RequestBufferOverride = n
	}
	if n, _ := parseSize(c.Server.ResponseBufferSize, 0); n > 0 {
		preset.ResponseBufferOverride = n
	}
	return preset, known
}

// MaxResponseBytes is the cap on a unary backend response body
func (c *Config) MaxResponseBytes() int64 {
	n, _ := parseSize(c.Backend.MaxResponseSize, 0)
	return int64(n)
}

// SessionBudget is the byte budget across all session caches, 0 is unbounded
func (c *Config) SessionBudget() int64 {
	n, _ := parseSize(c.Sessions.MaxBytes, 0)
	return int64(n)
}

func parseSize(value string, fallback int) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	n, err := units.RAMInBytes(value)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("size cannot be negative")
	}
	return int(n), nil
}
