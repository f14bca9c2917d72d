package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thushan/qlite/internal/logger"
	"github.com/thushan/qlite/pkg/container"
)

func TestHost_ImplementsOps(t *testing.T) {
	var _ Ops = (*Host)(nil)
}

func TestHost_Init(t *testing.T) {
	preset, _ := Lookup(PresetAuto)
	host := NewHost(preset, logger.NewDiscard())

	assert.Zero(t, host.TimeMS(), "clock shouldn't tick before Init")

	require.NoError(t, host.Init())
	require.NoError(t, host.Init(), "Init is idempotent")

	cfg := host.Config()
	if container.IsContainerised() {
		assert.Contains(t, cfg.NetworkType, NetworkContainer)
	} else {
		assert.Equal(t, NetworkHost, cfg.NetworkType)
	}
	assert.Equal(t, preset.MaxConnections, cfg.MaxConnections)
	assert.Positive(t, cfg.RAMSize)
}

func TestHost_Clock(t *testing.T) {
	host := NewHost(Config{Name: PresetDesktop}, logger.NewDiscard())
	require.NoError(t, host.Init())

	before := host.TimeMS()
	host.Delay(15)
	assert.GreaterOrEqual(t, host.TimeMS()-before, uint32(10))
}

func TestHost_NetworkStart(t *testing.T) {
	host := NewHost(Config{}, logger.NewDiscard())
	assert.NoError(t, host.NetworkStart("", ""))
	assert.NoError(t, host.NetworkStart("home-wifi", "hunter2"))
}

func TestPrintInfo(t *testing.T) {
	preset, _ := Lookup(PresetESP32)
	host := NewHost(preset, logger.NewDiscard())
	require.NoError(t, host.Init())

	assert.NotPanics(t, func() { PrintInfo(host, logger.NewDiscard()) })
}
