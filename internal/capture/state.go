package capture

// State is the capture session lifecycle position.
type State int

const (
	StateIdle State = iota
	StateRequesting
	StateRecording
	StateStopping
	StateReady
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequesting:
		return "requesting"
	case StateRecording:
		return "recording"
	case StateStopping:
		return "stopping"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// transitions lists every legal edge. Anything missing is rejected as a no-op.
var transitions = map[State][]State{
	StateIdle:       {StateRequesting},
	StateRequesting: {StateRecording, StateError},
	StateRecording:  {StateStopping, StateError},
	StateStopping:   {StateReady, StateError},
	StateReady:      {StateRequesting},
	StateError:      {StateRequesting},
}

// CanTransition reports whether from -> to is a legal edge.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Active reports whether the state owns live capture tracks.
func (s State) Active() bool {
	return s == StateRequesting || s == StateRecording || s == StateStopping
}
