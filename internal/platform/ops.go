package platform

import (
	"fmt"
	"sync"
	"time"

	"github.com/docker/go-units"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/thushan/qlite/internal/logger"
	"github.com/thushan/qlite/pkg/container"
)

const (
	NetworkHost      = "Ethernet/WiFi"
	NetworkContainer = "Container"
)

// Ops is the hardware abstraction the gateway runs on top of. Embedded
// targets would implement it against their SDK, Host covers anything with a
// real OS underneath.
type Ops interface {
	Init() error
	NetworkStart(ssid, password string) error
	TimeMS() uint32
	Debug(msg string)
	Delay(ms uint32)
	Config() Config
}

// Host is the Ops implementation for desktops, servers and containers
type Host struct {
	logger  *logger.StyledLogger
	started time.Time
	preset  Config
	mu      sync.RWMutex
	inited  bool
}

func NewHost(preset Config, log *logger.StyledLogger) *Host {
	return &Host{
		preset: preset,
		logger: log,
	}
}

// Init fills in the host's RAM and starts the millisecond clock
func (h *Host) Init() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.inited {
		return nil
	}

	h.started = time.Now()
	if vm, err := mem.VirtualMemory(); err == nil {
		h.preset.RAMSize = vm.Total
	} else {
		h.logger.Warn("Unable to read host memory", "error", err)
	}
	if h.preset.NetworkType == "" || h.preset.NetworkType == PresetAuto {
		h.preset.NetworkType = NetworkHost
		if rt := container.Runtime(); rt != container.RuntimeNone {
			h.preset.NetworkType = NetworkContainer + " (" + rt + ")"
		}
	}
	h.inited = true
	return nil
}

// NetworkStart is a no-op, the OS already owns the network
func (h *Host) NetworkStart(ssid, _ string) error {
	if ssid != "" {
		h.logger.Debug("Ignoring wireless credentials, host network is managed by the OS", "ssid", ssid)
	}
	return nil
}

// TimeMS is milliseconds since Init, wrapping like a 32 bit tick counter would
func (h *Host) TimeMS() uint32 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.started.IsZero() {
		return 0
	}
	return uint32(time.Since(h.started).Milliseconds())
}

func (h *Host) Debug(msg string) {
	h.logger.Debug(msg)
}

func (h *Host) Delay(ms uint32) {
	time.Sleep(time.Duration(ms) * time.Millisecond)
}

func (h *Host) Config() Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.preset
}

// PrintInfo logs a one line summary of the platform we're running on
func PrintInfo(ops Ops, log *logger.StyledLogger) {
	cfg := ops.Config()

	ram := "unknown"
	if cfg.RAMSize > 0 {
		ram = units.BytesSize(float64(cfg.RAMSize))
	}

	log.InfoWithPreset("Platform preset", cfg.Name,
		"network", cfg.NetworkType,
		"ram", ram,
		"max_connections", cfg.MaxConnections,
		"queue_depth", cfg.QueueDepth,
		"request_buffer", units.BytesSize(float64(cfg.RequestBufferSize())),
		"response_buffer", units.BytesSize(float64(cfg.ResponseBufferSize())),
		"timeout", cfg.Timeout().String())

	if cfg.FlashSize > 0 {
		log.Debug(fmt.Sprintf("Target flash %s", units.BytesSize(float64(cfg.FlashSize))))
	}
}
