package logic

// DirectionDetector orders rising edges of the two debounced sensors into
// movement events. A left edge followed by a right edge is a movement to the
// right, and the mirror image is a movement to the left.
//
// When both sensors rise in the same tick, the left edge is evaluated first
// against the current state and the right edge against the resulting state.
// At most one event is emitted per tick. From Idle this means simultaneous
// edges resolve as if the left sensor led (MovedRight).
type DirectionDetector struct {
	state     State
	prevLeft  bool
	prevRight bool
}

// NewDirectionDetector creates a detector in the Idle state.
func NewDirectionDetector() *DirectionDetector {
	return &DirectionDetector{state: StateIdle}
}

// Feed takes the debounced sensor values for one tick. It returns the event
// and true when a movement completed on this tick.
func (d *DirectionDetector) Feed(in Input) (Event, bool) {
	leftRise := in.Left && !d.prevLeft
	rightRise := in.Right && !d.prevRight
	d.prevLeft = in.Left
	d.prevRight = in.Right

	if leftRise {
		switch d.state {
		case StateIdle:
			d.state = StateLeftArmed
		case StateRightArmed:
			d.state = StateIdle
			return Event{Timestamp: in.Time, Direction: DirectionLeft}, true
		}
	}

	if rightRise {
		switch d.state {
		case StateIdle:
			d.state = StateRightArmed
		case StateLeftArmed:
			d.state = StateIdle
			return Event{Timestamp: in.Time, Direction: DirectionRight}, true
		}
	}

	return Event{}, false
}

// State returns the current detector state.
func (d *DirectionDetector) State() State {
	return d.state
}
