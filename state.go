package peelhash

import "fmt"

// BuildState is a phase of construction.
type BuildState uint8

const (
	StateUnbuilt BuildState = iota
	StateAssigning
	StatePeeling
	StatePeeled
	StateResidual
	StateFinalizing
	StateBuilt
	StateFailed
)

// String returns the state name.
func (s BuildState) String() string {
	switch s {
	case StateUnbuilt:
		return "unbuilt"
	case StateAssigning:
		return "assigning"
	case StatePeeling:
		return "peeling"
	case StatePeeled:
		return "peeled"
	case StateResidual:
		return "residual"
	case StateFinalizing:
		return "finalizing"
	case StateBuilt:
		return "built"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// validTransitions lists the allowed successors of each state. Built and
// Failed are terminal. Failed is also reachable from the working states so
// that cancellation and duplicate detection end the state machine.
var validTransitions = map[BuildState][]BuildState{
	StateUnbuilt:    {StateAssigning, StateFailed},
	StateAssigning:  {StatePeeling, StateFailed},
	StatePeeling:    {StatePeeled, StateResidual, StateFailed},
	StatePeeled:     {StateFinalizing},
	StateResidual:   {StateAssigning, StateFailed},
	StateFinalizing: {StateBuilt, StateFailed},
}

func canTransition(from, to BuildState) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// transition moves the construction to state to. An illegal move is a bug
// in this package, so it panics.
func (c *construction) transition(to BuildState) {
	from := c.state
	if !canTransition(from, to) {
		panic(fmt.Sprintf("peelhash: illegal state transition %s -> %s", from, to))
	}
	c.state = to
	c.log.Debug().
		Int("attempt", c.attempt).
		Str("from", from.String()).
		Str("state", to.String()).
		Msg("state transition")
	if c.cfg.onTransition != nil {
		c.cfg.onTransition(from, to)
	}
}
