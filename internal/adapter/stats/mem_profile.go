package stats

import (
	"sync"

	"github.com/docker/go-units"

	"github.com/thushan/qlite/internal/core/ports"
	"github.com/thushan/qlite/internal/logger"
)

// MemProfile tracks bytes handed out to sessions and connection buffers.
// It's bookkeeping only, Go's allocator does the real work.
type MemProfile struct {
	stats ports.MemStats
	mu    sync.Mutex
}

var _ ports.MemoryTracker = (*MemProfile)(nil)

func NewMemProfile() *MemProfile {
	return &MemProfile{}
}

func (m *MemProfile) Alloc(size int64) {
	if size <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stats.TotalAlloc += size
	m.stats.CurrentUsage += size
	if m.stats.CurrentUsage > m.stats.PeakUsage {
		m.stats.PeakUsage = m.stats.CurrentUsage
	}
}

// Free never takes current usage below zero, a mismatched free is ignored
func (m *MemProfile) Free(size int64) {
	if size <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stats.TotalFree += size
	if m.stats.CurrentUsage >= size {
		m.stats.CurrentUsage -= size
	}
}

func (m *MemProfile) Snapshot() ports.MemStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// UsagePercent is current usage relative to the peak, 0 before anything is allocated
func (m *MemProfile) UsagePercent() int {
	s := m.Snapshot()
	if s.PeakUsage == 0 {
		return 0
	}
	return int(s.CurrentUsage * 100 / s.PeakUsage)
}

// CheckWarning reports (and logs) when current usage is over threshold bytes
func (m *MemProfile) CheckWarning(threshold int64, log *logger.StyledLogger) bool {
	s := m.Snapshot()
	if threshold <= 0 || s.CurrentUsage <= threshold {
		return false
	}
	if log != nil {
		log.Warn("Memory usage exceeds threshold",
			"current", units.BytesSize(float64(s.CurrentUsage)),
			"threshold", units.BytesSize(float64(threshold)))
	}
	return true
}

// Report logs the profile, used at shutdown
func (m *MemProfile) Report(log *logger.StyledLogger) {
	s := m.Snapshot()
	log.Info("Memory profile",
		"total_alloc", units.BytesSize(float64(s.TotalAlloc)),
		"total_free", units.BytesSize(float64(s.TotalFree)),
		"current", units.BytesSize(float64(s.CurrentUsage)),
		"peak", units.BytesSize(float64(s.PeakUsage)),
		"usage_percent", m.UsagePercent())
}
