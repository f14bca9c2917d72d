package constants

import "time"

const (
	// DefaultProbeTimeout bounds each auto-detect TCP connect
	DefaultProbeTimeout = 300 * time.Millisecond

	// DefaultIdlePoll is the pause between accept attempts when the listener is saturated
	DefaultIdlePoll = time.Millisecond
)
