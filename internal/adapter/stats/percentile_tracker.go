package stats

import (
	"math/rand/v2"
	"slices"
	"sync"
)

// LatencySampler keeps a fixed size reservoir of backend latencies so we can
// report percentiles without holding every sample on a small host.
type LatencySampler struct {
	samples []int64
	size    int
	count   int64
	mu      sync.Mutex
}

func NewLatencySampler(size int) *LatencySampler {
	if size <= 0 {
		size = DefaultLatencySamples
	}
	return &LatencySampler{
		size:    size,
		samples: make([]int64, 0, size),
	}
}

func (ls *LatencySampler) Add(value int64) {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	ls.count++
	if len(ls.samples) < ls.size {
		ls.samples = append(ls.samples, value)
		return
	}

	// each value seen so far has the same chance of being in the reservoir
	if j := rand.Int64N(ls.count); j < int64(ls.size) { //nolint:gosec // sampling, not crypto
		ls.samples[j] = value
	}
}

// Percentiles returns p50, p95 and p99 of the sampled values
func (ls *LatencySampler) Percentiles() (p50, p95, p99 int64) {
	ls.mu.Lock()
	sorted := slices.Clone(ls.samples)
	ls.mu.Unlock()

	if len(sorted) == 0 {
		return 0, 0, 0
	}
	slices.Sort(sorted)

	at := func(pct int) int64 {
		idx := len(sorted) * pct / 100
		if idx >= len(sorted) {
			idx = len(sorted) - 1
		}
		return sorted[idx]
	}
	return at(50), at(95), at(99)
}

func (ls *LatencySampler) Count() int64 {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return ls.count
}

func (ls *LatencySampler) Reset() {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.samples = ls.samples[:0]
	ls.count = 0
}
