package overlay

// LoopState is the frame loop's lifecycle state.
type LoopState int

const (
	Idle LoopState = iota
	Running
	Paused
)

func (s LoopState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Paused:
		return "paused"
	default:
		return "unknown"
	}
}

// Loop is the frame loop state machine: Idle -> Running <-> Paused -> Idle.
// Each transition method reports whether the state changed.
type Loop struct {
	state LoopState
}

// State returns the current state.
func (l *Loop) State() LoopState {
	return l.state
}

// Start moves Idle to Running.
func (l *Loop) Start() bool {
	if l.state != Idle {
		return false
	}
	l.state = Running
	return true
}

// Pause moves Running to Paused.
func (l *Loop) Pause() bool {
	if l.state != Running {
		return false
	}
	l.state = Paused
	return true
}

// Resume moves Paused to Running.
func (l *Loop) Resume() bool {
	if l.state != Paused {
		return false
	}
	l.state = Running
	return true
}

// Stop moves any state to Idle.
func (l *Loop) Stop() bool {
	if l.state == Idle {
		return false
	}
	l.state = Idle
	return true
}
