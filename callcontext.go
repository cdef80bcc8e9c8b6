package bind

type execState uint8

const (
	stateIdle execState = iota
	stateExecutingChanges
	stateExecutePendingBindings
	stateExecutingObserverCallbacks
)

func (s execState) String() string {
	switch s {
	case stateExecutingChanges:
		return "ExecutingChanges"
	case stateExecutePendingBindings:
		return "ExecutePendingBindings"
	case stateExecutingObserverCallbacks:
		return "ExecutingObserverCallbacks"
	default:
		return "Idle"
	}
}

// maxInFlight bounds the handles tracked while a property method runs.
// A get/set involves at most a target and a source.
const maxInFlight = 4

// callContext records the execution phase and the handles whose methods
// are currently running.
type callContext struct {
	state    execState
	inFlight [maxInFlight]Handle
	n        int
}

// push marks h as in flight. Returns false if the set is full.
func (c *callContext) push(h Handle) bool {
	if c.n == len(c.inFlight) {
		return false
	}
	c.inFlight[c.n] = h
	c.n++
	return true
}

func (c *callContext) pop() {
	if c.n > 0 {
		c.n--
		c.inFlight[c.n] = 0
	}
}

func (c *callContext) contains(h Handle) bool {
	for i := range c.n {
		if c.inFlight[i] == h {
			return true
		}
	}
	return false
}

func (c *callContext) reset() {
	*c = callContext{}
}
