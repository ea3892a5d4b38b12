package importer

import "fmt"

// State is the stage an import run is in.
type State int

const (
	StatePending State = iota
	StateStaging
	StateConverting
	StateLoading
	StateAggregating
	StateUploadingImages
	StateCommitting
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateStaging:
		return "staging"
	case StateConverting:
		return "converting"
	case StateLoading:
		return "loading"
	case StateAggregating:
		return "aggregating"
	case StateUploadingImages:
		return "uploading_images"
	case StateCommitting:
		return "committing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// CanTransition reports whether a run may move from s to next. Stages run
// strictly in order and any non-terminal state may fail.
func (s State) CanTransition(next State) bool {
	if s.Terminal() {
		return false
	}
	if next == StateFailed {
		return true
	}
	return next == s+1
}

// stateMachine tracks the state of one run.
type stateMachine struct {
	current State
	history []State
}

func (m *stateMachine) transition(next State) error {
	if !m.current.CanTransition(next) {
		return fmt.Errorf("invalid import state transition %s -> %s", m.current, next)
	}
	m.history = append(m.history, m.current)
	m.current = next
	return nil
}
