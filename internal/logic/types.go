// Package logic contains the pure sensing logic: debouncing, direction
// detection and the per-tick sampler that combines them.
// This package has NO external dependencies (no GPIO, network, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// Sensor identifies one of the two physical hall-effect inputs.
type Sensor string

const (
	SensorLeft  Sensor = "LEFT"
	SensorRight Sensor = "RIGHT"
)

// Direction is the direction of a detected movement.
type Direction string

const (
	DirectionLeft  Direction = "LEFT"
	DirectionRight Direction = "RIGHT"
)

// Message returns the text sent to websocket subscribers for this direction.
func (d Direction) Message() string {
	switch d {
	case DirectionLeft:
		return "Moved left!"
	case DirectionRight:
		return "Moved right!"
	}
	return ""
}

// State is the state of the direction detector.
type State string

const (
	StateIdle       State = "IDLE"
	StateLeftArmed  State = "LEFT_ARMED"
	StateRightArmed State = "RIGHT_ARMED"
)

// Event is a detected movement, timestamped at emission.
type Event struct {
	Timestamp time.Time
	Direction Direction
}

// Input represents a single sample of both sensors.
type Input struct {
	Left  bool // true = magnet present (already inverted from raw GPIO)
	Right bool
	Time  time.Time
}

// EventCounts tracks the number of each event type since startup.
type EventCounts struct {
	Left  int
	Right int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    EventCounts
}
