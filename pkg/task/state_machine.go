package task

// transitions is the authoritative transition table. It is the single
// source of truth for rejecting illegal requests in both Worker and
// Manager; no other component may hard-code transitions.
var transitions = map[State]map[State]bool{
	Pending:   {Scheduled: true},
	Scheduled: {Scheduled: true, Running: true, Failed: true},
	Running:   {Running: true, Completed: true, Failed: true},
	Completed: {},
	Failed:    {},
}

// Valid reports whether the transition from `from` to `to` is permitted.
// The function is total: every (from, to) pair has a defined answer.
func Valid(from, to State) bool {
	allowed, ok := transitions[from]
	if !ok {
		return false
	}
	return allowed[to]
}

// Successors returns the set of states reachable from s in one
// transition.
func Successors(s State) []State {
	allowed, ok := transitions[s]
	if !ok {
		return nil
	}
	out := make([]State, 0, len(allowed))
	for to := range allowed {
		out = append(out, to)
	}
	return out
}
