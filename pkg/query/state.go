package query

// State is the stage a call has reached. Transitions are logged at debug level.
type State int

const (
	StatePending State = iota
	StateFormatting
	StateBinding
	StateDispatched
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "PENDING"
	case StateFormatting:
		return "FORMATTING"
	case StateBinding:
		return "BINDING"
	case StateDispatched:
		return "DISPATCHED"
	case StateSucceeded:
		return "SUCCEEDED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}
