package platform

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	PresetAuto    = "auto"
	PresetESP32   = "esp32"
	PresetSTM32   = "stm32"
	PresetPico    = "pico"
	PresetDesktop = "desktop"

	// request and response buffers are sized off buffer_size, auto gives 4KiB/8KiB
	RequestBufferMultiplier  = 2
	ResponseBufferMultiplier = 4
)

//go:embed presets.yaml
var presetsYAML []byte

// Config is one preset's resource envelope
type Config struct {
	Name           string `yaml:"-"`
	NetworkType    string `yaml:"network_type"`
	FlashSize      uint32 `yaml:"flash_size"`
	RAMSize        uint64 `yaml:"ram_size"`
	MaxConnections int    `yaml:"max_connections"`
	BufferSize     int    `yaml:"buffer_size"`
	QueueDepth     int    `yaml:"queue_depth"`
	TimeoutMS      int    `yaml:"timeout_ms"`

	// set from server config, zero means derive from BufferSize
	RequestBufferOverride  int `yaml:"-"`
	ResponseBufferOverride int `yaml:"-"`
}

// Timeout returns timeout_ms as a duration
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

func (c Config) RequestBufferSize() int {
	if c.RequestBufferOverride > 0 {
		return c.RequestBufferOverride
	}
	return c.BufferSize * RequestBufferMultiplier
}

func (c Config) ResponseBufferSize() int {
	if c.ResponseBufferOverride > 0 {
		return c.ResponseBufferOverride
	}
	return c.BufferSize * ResponseBufferMultiplier
}

func (c Config) Validate() error {
	switch {
	case c.MaxConnections <= 0:
		return fmt.Errorf("preset %s: max_connections must be positive", c.Name)
	case c.BufferSize <= 0:
		return fmt.Errorf("preset %s: buffer_size must be positive", c.Name)
	case c.QueueDepth <= 0:
		return fmt.Errorf("preset %s: queue_depth must be positive", c.Name)
	case c.TimeoutMS <= 0:
		return fmt.Errorf("preset %s: timeout_ms must be positive", c.Name)
	}
	return nil
}

type presetFile struct {
	Presets map[string]Config `yaml:"presets"`
}

var (
	presetsOnce sync.Once
	presets     map[string]Config
	presetsErr  error
)

func loadPresets() (map[string]Config, error) {
	presetsOnce.Do(func() {
		presets, presetsErr = parsePresets(presetsYAML)
	})
	return presets, presetsErr
}

func parsePresets(data []byte) (map[string]Config, error) {
	var file presetFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse presets: %w", err)
	}
	if _, ok := file.Presets[PresetAuto]; !ok {
		return nil, fmt.Errorf("presets must define %q", PresetAuto)
	}

	out := make(map[string]Config, len(file.Presets))
	for name, cfg := range file.Presets {
		cfg.Name = name
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		out[name] = cfg
	}
	return out, nil
}

// Lookup returns the preset for tag, falling back to auto for anything unknown.
// The bool reports whether tag itself matched.
func Lookup(tag string) (Config, bool) {
	all, err := loadPresets()
	if err != nil {
		// the table is embedded, this only trips if someone breaks presets.yaml
		panic(err)
	}

	if cfg, ok := all[strings.ToLower(strings.TrimSpace(tag))]; ok {
		return cfg, true
	}
	return all[PresetAuto], false
}

// Names lists known preset tags, sorted
func Names() []string {
	all, _ := loadPresets()
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
