package daemon

import "fmt"

// Stage is the daemon's position in the bootstrap sequence.
type Stage int

const (
	// StageConnecting means no provider subscription is running.
	StageConnecting Stage = iota
	// StageLoading means the subscription is running and the initial object
	// set has not arrived yet.
	StageLoading
	// StageWatching means the initial object set is in the registry.
	StageWatching
	// StageReady means evaluation cycles are running.
	StageReady
)

// String returns the lowercase stage name.
func (s Stage) String() string {
	switch s {
	case StageConnecting:
		return "connecting"
	case StageLoading:
		return "loading"
	case StageWatching:
		return "watching"
	case StageReady:
		return "ready"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// validTransitions lists the stages reachable from each stage. Losing the
// provider drops back to Connecting from any later stage.
var validTransitions = map[Stage][]Stage{
	StageConnecting: {StageLoading},
	StageLoading:    {StageWatching, StageConnecting},
	StageWatching:   {StageReady, StageConnecting},
	StageReady:      {StageConnecting},
}

// canTransition reports whether from → to is a legal stage change.
func canTransition(from, to Stage) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
