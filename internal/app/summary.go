package app

import (
	"time"

	"github.com/thushan/qlite/pkg/format"
)

// reportGatewayStats logs the request counters at shutdown
func (a *Application) reportGatewayStats() {
	s := a.stats.GetGatewayStats()

	a.logger.Info("Gateway Request Stats",
		"connections", s.Connections,
		"status", s.StatusRequests,
		"generate", s.Generate,
		"chat", s.Chat,
		"streamed", s.Streamed,
		"uptime", format.Duration(time.Since(a.startTime)))

	rejected := s.Rejected + s.RateLimited + s.TooLarge + s.BadRequests
	if rejected > 0 || s.BackendErrors > 0 {
		a.logger.Info("Gateway Rejection Stats",
			"admission", s.Rejected,
			"rate_limited", s.RateLimited,
			"too_large", s.TooLarge,
			"bad_request", s.BadRequests,
			"backend_errors", s.BackendErrors)
	}

	a.logger.Info("Gateway Traffic Stats",
		"bytes_in", format.Bytes(uint64(s.BytesIn)),
		"bytes_out", format.Bytes(uint64(s.BytesOut)),
		"stream_frames", s.StreamFrames,
		"latency_p50", format.Latency(s.LatencyP50),
		"latency_p95", format.Latency(s.LatencyP95),
		"latency_p99", format.Latency(s.LatencyP99))
}
