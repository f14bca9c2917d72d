package gateway

// State is where a connection sits in its lifecycle. A connection only moves
// forward: Reading, Processing, Responding, Closing, then back to Idle when
// the goroutine hands its context back to the pool.
type State int

const (
	StateIdle State = iota
	StateReading
	StateProcessing
	StateResponding
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReading:
		return "reading"
	case StateProcessing:
		return "processing"
	case StateResponding:
		return "responding"
	case StateClosing:
		return "closing"
	default:
		return "unknown"
	}
}
