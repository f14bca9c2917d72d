package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/thushan/qlite/internal/logger"
)

func TestMemProfile_AllocFree(t *testing.T) {
	m := NewMemProfile()

	m.Alloc(1024)
	m.Alloc(2048)
	m.Free(1024)

	s := m.Snapshot()
	assert.Equal(t, int64(3072), s.TotalAlloc)
	assert.Equal(t, int64(1024), s.TotalFree)
	assert.Equal(t, int64(2048), s.CurrentUsage)
	assert.Equal(t, int64(3072), s.PeakUsage)
}

func TestMemProfile_FreeNeverUnderflows(t *testing.T) {
	m := NewMemProfile()
	m.Alloc(10)
	m.Free(100)

	s := m.Snapshot()
	assert.Equal(t, int64(10), s.CurrentUsage)
	assert.Equal(t, int64(100), s.TotalFree)
}

func TestMemProfile_IgnoresNonPositive(t *testing.T) {
	m := NewMemProfile()
	m.Alloc(0)
	m.Alloc(-5)
	m.Free(-5)

	assert.Equal(t, int64(0), m.Snapshot().TotalAlloc)
}

func TestMemProfile_UsagePercent(t *testing.T) {
	m := NewMemProfile()
	assert.Equal(t, 0, m.UsagePercent())

	m.Alloc(400)
	assert.Equal(t, 100, m.UsagePercent())

	m.Free(300)
	assert.Equal(t, 25, m.UsagePercent())
}

func TestMemProfile_CheckWarning(t *testing.T) {
	m := NewMemProfile()
	log := logger.NewDiscard()

	m.Alloc(2048)
	assert.False(t, m.CheckWarning(4096, log))
	assert.False(t, m.CheckWarning(2048, log), "equal to threshold is fine")
	assert.True(t, m.CheckWarning(1024, log))
	assert.False(t, m.CheckWarning(0, nil), "zero threshold disables the check")
}

func TestMemProfile_Report(t *testing.T) {
	m := NewMemProfile()
	m.Alloc(4096)
	assert.NotPanics(t, func() { m.Report(logger.NewDiscard()) })
}
