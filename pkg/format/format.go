package format

import (
	"fmt"
	"time"

	"github.com/docker/go-units"
)

const (
	zeroPercent = "0%"
	zeroLatency = "0ms"
)

// Bytes renders a byte count in binary units, eg. 1536 -> "1.5KiB"
func Bytes(bytes uint64) string {
	return units.BytesSize(float64(bytes))
}

// Duration is Go's own format below a second and whole h/m/s above it
func Duration(d time.Duration) string {
	if d < time.Second {
		return d.String()
	}

	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
	} else if minutes > 0 {
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}

func Percentage(value float64) string {
	if value == 0 {
		return zeroPercent
	}
	if value == 100.0 {
		return "100%"
	}
	return fmt.Sprintf("%.1f%%", value)
}

// Latency takes milliseconds, the unit the stats sampler works in
func Latency(ms int64) string {
	if ms <= 0 {
		return zeroLatency
	}
	if ms >= 1000 {
		return fmt.Sprintf("%.1fs", float64(ms)/1000.0)
	}
	return fmt.Sprintf("%dms", ms)
}
