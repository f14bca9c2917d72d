package ports

import "time"

// StatsCollector records gateway level counters. All methods must be safe for
// concurrent use.
type StatsCollector interface {
	RecordConnection()
	RecordRequest(kind string)
	RecordRejection(status int)
	RecordBackendError()
	RecordBackendLatency(kind string, latency time.Duration)
	RecordStreamFrame(bytes int)
	RecordBytes(in, out int64)
	GetGatewayStats() GatewayStats
}

// MemoryTracker accounts for bytes held by long lived gateway state
type MemoryTracker interface {
	Alloc(size int64)
	Free(size int64)
}

type GatewayStats struct {
	Connections    int64 `json:"connections"`
	StatusRequests int64 `json:"status_requests"`
	Generate       int64 `json:"generate_requests"`
	Chat           int64 `json:"chat_requests"`
	Streamed       int64 `json:"streamed_requests"`
	Rejected       int64 `json:"rejected_requests"`
	RateLimited    int64 `json:"rate_limited_requests"`
	TooLarge       int64 `json:"too_large_requests"`
	BadRequests    int64 `json:"bad_requests"`
	BackendErrors  int64 `json:"backend_errors"`
	StreamFrames   int64 `json:"stream_frames"`
	StreamBytes    int64 `json:"stream_bytes"` // fragment payload only, framing excluded
	BytesIn        int64 `json:"bytes_in"`
	BytesOut       int64 `json:"bytes_out"`

	// backend round trip in milliseconds, sampled
	LatencyP50 int64 `json:"latency_p50_ms"`
	LatencyP95 int64 `json:"latency_p95_ms"`
	LatencyP99 int64 `json:"latency_p99_ms"`
}

// MemStats is a snapshot of a MemoryTracker
type MemStats struct {
	TotalAlloc   int64 `json:"total_alloc"`
	TotalFree    int64 `json:"total_free"`
	CurrentUsage int64 `json:"current_usage"`
	PeakUsage    int64 `json:"peak_usage"`
}
