package workflows

// StateMachine enforces transitions between named states
type StateMachine struct {
	initial            string
	allowedTransitions map[string][]string
}

// NewStateMachine creates a new state machine with allowed transitions
func NewStateMachine(initial string, transitions map[string][]string) *StateMachine {
	allowed := make(map[string][]string, len(transitions))
	for from, to := range transitions {
		allowed[from] = append([]string(nil), to...)
	}
	return &StateMachine{
		initial:            initial,
		allowedTransitions: allowed,
	}
}

// NewLinear creates a state machine for a fixed sequence where every state
// may move forward to its successor and back to its predecessor.
func NewLinear(states ...string) *StateMachine {
	transitions := make(map[string][]string, len(states))
	for i, s := range states {
		next := []string{}
		if i+1 < len(states) {
			next = append(next, states[i+1])
		}
		if i > 0 {
			next = append(next, states[i-1])
		}
		transitions[s] = next
	}
	initial := ""
	if len(states) > 0 {
		initial = states[0]
	}
	return NewStateMachine(initial, transitions)
}

// Initial returns the entry state
func (sm *StateMachine) Initial() string {
	return sm.initial
}

// Has reports whether the state is known to the machine
func (sm *StateMachine) Has(state string) bool {
	_, ok := sm.allowedTransitions[state]
	return ok
}

// CanTransition checks if a transition is allowed
func (sm *StateMachine) CanTransition(from, to string) bool {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return false
	}
	for _, allowedTo := range allowed {
		if allowedTo == to {
			return true
		}
	}
	return false
}
