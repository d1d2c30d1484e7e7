package aim

// State is the lifecycle position of an AIM.
type State int

const (
	StateCreated State = iota
	StateStarted
	StatePaused
	StateStopped
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateStarted:
		return "started"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Verb is one of the four lifecycle operations plus destroy.
type Verb string

const (
	VerbStart   Verb = "start"
	VerbStop    Verb = "stop"
	VerbPause   Verb = "pause"
	VerbResume  Verb = "resume"
	VerbDestroy Verb = "destroy"
)

func (v Verb) target() State {
	switch v {
	case VerbStart, VerbResume:
		return StateStarted
	case VerbPause:
		return StatePaused
	case VerbStop:
		return StateStopped
	default:
		return StateDestroyed
	}
}

func (v Verb) activates() bool {
	return v == VerbStart || v == VerbResume
}

func (v Verb) pastTense() string {
	switch v {
	case VerbStart:
		return "started"
	case VerbStop:
		return "stopped"
	case VerbPause:
		return "paused"
	case VerbResume:
		return "resumed"
	default:
		return "destroyed"
	}
}

// strictTransitions lists the states each verb may be applied from when
// strict transitions are enabled.
var strictTransitions = map[Verb][]State{
	VerbStart:   {StateCreated, StateStopped},
	VerbPause:   {StateStarted},
	VerbResume:  {StatePaused},
	VerbStop:    {StateStarted, StatePaused},
	VerbDestroy: {StateCreated, StateStopped},
}

func allowed(verb Verb, from State) bool {
	for _, s := range strictTransitions[verb] {
		if s == from {
			return true
		}
	}
	return false
}
