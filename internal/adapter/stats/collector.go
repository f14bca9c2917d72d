package stats

/*
	Gateway stats collector. Every connection goroutine reports here so the
	status endpoint and the shutdown report can show what the gateway has been
	doing. Everything is lock free on the hot path, the only lock is inside the
	latency sampler.
*/

import (
	"net/http"
	"time"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/thushan/qlite/internal/core/ports"
)

const (
	KindStatus   = "status"
	KindGenerate = "generate"
	KindChat     = "chat"
	KindStream   = "stream"

	DefaultLatencySamples = 200
)

type Collector struct {
	requests *xsync.Map[string, *xsync.Counter]
	latency  *LatencySampler

	connections   *xsync.Counter
	rejected      *xsync.Counter
	rateLimited   *xsync.Counter
	tooLarge      *xsync.Counter
	badRequests   *xsync.Counter
	backendErrors *xsync.Counter
	streamFrames  *xsync.Counter
	streamBytes   *xsync.Counter
	bytesIn       *xsync.Counter
	bytesOut      *xsync.Counter
}

var _ ports.StatsCollector = (*Collector)(nil)

func NewCollector() *Collector {
	return &Collector{
		requests:      xsync.NewMap[string, *xsync.Counter](),
		latency:       NewLatencySampler(DefaultLatencySamples),
		connections:   xsync.NewCounter(),
		rejected:      xsync.NewCounter(),
		rateLimited:   xsync.NewCounter(),
		tooLarge:      xsync.NewCounter(),
		badRequests:   xsync.NewCounter(),
		backendErrors: xsync.NewCounter(),
		streamFrames:  xsync.NewCounter(),
		streamBytes:   xsync.NewCounter(),
		bytesIn:       xsync.NewCounter(),
		bytesOut:      xsync.NewCounter(),
	}
}

func (c *Collector) RecordConnection() {
	c.connections.Inc()
}

func (c *Collector) RecordRequest(kind string) {
	counter, _ := c.requests.LoadOrCompute(kind, func() (*xsync.Counter, bool) {
		return xsync.NewCounter(), false
	})
	counter.Inc()
}

// RecordRejection counts a request we turned away before it reached a backend
func (c *Collector) RecordRejection(status int) {
	switch status {
	case http.StatusServiceUnavailable:
		c.rejected.Inc()
	case http.StatusTooManyRequests:
		c.rateLimited.Inc()
	case http.StatusRequestEntityTooLarge:
		c.tooLarge.Inc()
	default:
		c.badRequests.Inc()
	}
}

func (c *Collector) RecordBackendError() {
	c.backendErrors.Inc()
}

func (c *Collector) RecordBackendLatency(_ string, latency time.Duration) {
	c.latency.Add(latency.Milliseconds())
}

func (c *Collector) RecordStreamFrame(bytes int) {
	c.streamFrames.Inc()
	c.streamBytes.Add(int64(bytes))
}

func (c *Collector) RecordBytes(in, out int64) {
	if in > 0 {
		c.bytesIn.Add(in)
	}
	if out > 0 {
		c.bytesOut.Add(out)
	}
}

func (c *Collector) requestCount(kind string) int64 {
	if counter, ok := c.requests.Load(kind); ok {
		return counter.Value()
	}
	return 0
}

func (c *Collector) GetGatewayStats() ports.GatewayStats {
	p50, p95, p99 := c.latency.Percentiles()
	return ports.GatewayStats{
		Connections:    c.connections.Value(),
		StatusRequests: c.requestCount(KindStatus),
		Generate:       c.requestCount(KindGenerate),
		Chat:           c.requestCount(KindChat),
		Streamed:       c.requestCount(KindStream),
		Rejected:       c.rejected.Value(),
		RateLimited:    c.rateLimited.Value(),
		TooLarge:       c.tooLarge.Value(),
		BadRequests:    c.badRequests.Value(),
		BackendErrors:  c.backendErrors.Value(),
		StreamFrames:   c.streamFrames.Value(),
		StreamBytes:    c.streamBytes.Value(),
		BytesIn:        c.bytesIn.Value(),
		BytesOut:       c.bytesOut.Value(),
		LatencyP50:     p50,
		LatencyP95:     p95,
		LatencyP99:     p99,
	}
}
