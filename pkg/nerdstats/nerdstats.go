package nerdstats

import (
	"runtime"
	"time"

	"github.com/thushan/qlite/pkg/format"
)

/*
	Runtime snapshot logged at shutdown when engineering.show_nerdstats is on.
	On a small host the heap is the number worth watching, the gateway itself
	should sit at a few goroutines plus one per open connection.

	See: https://pkg.go.dev/runtime#MemStats
*/

type NerdStats struct {
	HeapAlloc  uint64
	HeapSys    uint64
	HeapInuse  uint64
	StackInuse uint64
	TotalAlloc uint64
	Mallocs    uint64
	Frees      uint64

	NumGC         uint32
	TotalGCTime   time.Duration
	GCCPUFraction float64

	NumGoroutines int
	GOMAXPROCS    int
	GoVersion     string
	Uptime        time.Duration
}

func Snapshot(startTime time.Time) *NerdStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return &NerdStats{
		HeapAlloc:     m.HeapAlloc,
		HeapSys:       m.HeapSys,
		HeapInuse:     m.HeapInuse,
		StackInuse:    m.StackInuse,
		TotalAlloc:    m.TotalAlloc,
		Mallocs:       m.Mallocs,
		Frees:         m.Frees,
		NumGC:         m.NumGC,
		TotalGCTime:   time.Duration(m.PauseTotalNs),
		GCCPUFraction: m.GCCPUFraction,
		NumGoroutines: runtime.NumGoroutine(),
		GOMAXPROCS:    runtime.GOMAXPROCS(0),
		GoVersion:     runtime.Version(),
		Uptime:        time.Since(startTime),
	}
}

// MemoryPressure is a rough LOW/MEDIUM/HIGH from heap occupancy and how far
// allocations are running ahead of frees
func (ns *NerdStats) MemoryPressure() string {
	if ns.HeapSys == 0 {
		return "LOW"
	}
	heapUsage := float64(ns.HeapInuse) / float64(ns.HeapSys)
	allocsPerFree := float64(ns.Mallocs) / float64(ns.Frees+1)

	switch {
	case heapUsage > 0.9 && allocsPerFree > 1.5:
		return "HIGH"
	case heapUsage > 0.7 || allocsPerFree > 1.2:
		return "MEDIUM"
	}
	return "LOW"
}

// GoroutineHealth compares the goroutine count against what maxConns open
// connections should need
func (ns *NerdStats) GoroutineHealth(maxConns int) string {
	expected := maxConns + 16
	switch {
	case ns.NumGoroutines > expected*4:
		return "CONCERNING"
	case ns.NumGoroutines > expected:
		return "ELEVATED"
	}
	return "HEALTHY"
}

func (ns *NerdStats) AverageGCPause() string {
	if ns.NumGC == 0 {
		return "N/A"
	}
	return format.Duration(ns.TotalGCTime / time.Duration(ns.NumGC))
}
