package app

import (
	"github.com/thushan/qlite/internal/config"
)

func (a *Application) setConfig(cfg *config.Config) {
	a.configMu.Lock()
	defer a.configMu.Unlock()
	a.config = cfg
}

func (a *Application) getConfig() *config.Config {
	a.configMu.RLock()
	defer a.configMu.RUnlock()
	return a.config
}

// reloadConfig applies what can change without a restart. The listener,
// preset and backend are fixed for the life of the process.
func (a *Application) reloadConfig(updated *config.Config, err error) {
	if err != nil {
		a.logger.Error("Ignoring config change", "error", err)
		return
	}

	current := a.getConfig()
	limits := updated.Server.RateLimits
	if limits != current.Server.RateLimits {
		a.server.SetRateLimit(limits.GlobalRequestsPerMinute, limits.BurstSize)
		a.logger.Info("Rate limit updated",
			"requests_per_minute", limits.GlobalRequestsPerMinute,
			"burst", limits.BurstSize)
	}

	if updated.Server.Preset != current.Server.Preset ||
		updated.Server.GetAddress() != current.Server.GetAddress() ||
		updated.Backend != current.Backend {
		a.logger.Warn("Listener, preset and backend changes need a restart")
	}

	a.setConfig(updated)
}
