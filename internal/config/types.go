package config

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the gateway
type Config struct {
	v           *viper.Viper
	Filename    string            `yaml:"-" mapstructure:"-"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Backend     BackendConfig     `yaml:"backend" mapstructure:"backend"`
	Sessions    SessionsConfig    `yaml:"sessions" mapstructure:"sessions"`
	Engineering EngineeringConfig `yaml:"engineering" mapstructure:"engineering"`
}

// ServerConfig holds listener and admission configuration
type ServerConfig struct {
	Host   string `yaml:"host" mapstructure:"host"`
	Preset string `yaml:"preset" mapstructure:"preset"`

	// human sizes ("4KiB", "16k"), empty means derive from the preset
	RequestBufferSize  string `yaml:"request_buffer_size" mapstructure:"request_buffer_size"`
	ResponseBufferSize string `yaml:"response_buffer_size" mapstructure:"response_buffer_size"`

	RateLimits      ServerRateLimits `yaml:"rate_limits" mapstructure:"rate_limits"`
	Port            int              `yaml:"port" mapstructure:"port"`
	ShutdownTimeout time.Duration    `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// GetAddress returns the server address in host:port format
func (s *ServerConfig) GetAddress() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// ServerRateLimits is a global token bucket in front of admission, 0 disables it
type ServerRateLimits struct {
	GlobalRequestsPerMinute int `yaml:"global_requests_per_minute" mapstructure:"global_requests_per_minute"`
	BurstSize               int `yaml:"burst_size" mapstructure:"burst_size"`
}

// BackendConfig selects the inference backend
type BackendConfig struct {
	// auto, ollama or openai (lmstudio and vllm are accepted as openai)
	Type string `yaml:"type" mapstructure:"type"`
	// when empty and type is auto we probe the well known local ports
	URL             string        `yaml:"url" mapstructure:"url"`
	MaxResponseSize string        `yaml:"max_response_size" mapstructure:"max_response_size"`
	ProbeTimeout    time.Duration `yaml:"probe_timeout" mapstructure:"probe_timeout"`
}

// SessionsConfig holds session cache configuration
type SessionsConfig struct {
	MaxBytes    string `yaml:"max_bytes" mapstructure:"max_bytes"`
	PersistPath string `yaml:"persist_path" mapstructure:"persist_path"`
}

// EngineeringConfig holds development/debugging configuration
type EngineeringConfig struct {
	// ProfilerAddress enables pprof on that address, keep it on loopback
	ProfilerAddress string `yaml:"profiler_address" mapstructure:"profiler_address"`
	ShowNerdStats   bool   `yaml:"show_nerdstats" mapstructure:"show_nerdstats"`
}

func (c *Config) String() string {
	return fmt.Sprintf("server=%s preset=%s backend=%s(%s)",
		c.Server.GetAddress(), c.Server.Preset, c.Backend.Type, c.Backend.URL)
}
