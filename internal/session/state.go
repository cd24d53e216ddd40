package session

// State is the controller's position in the session lifecycle.
type State int

const (
	Idle State = iota
	Active
	Dispatching
	Terminated
)

var stateNames = [...]string{"idle", "active", "dispatching", "terminated"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// allStates is used to zero the other state gauges on a transition.
func allStates() []string {
	return stateNames[:]
}
