package logic

import "time"

// Sampler debounces both sensors and feeds the stable values to the
// direction detector. One Sampler drives the whole daemon.
type Sampler struct {
	left          *Debouncer
	right         *Debouncer
	detector      *DirectionDetector
	startTime     time.Time
	eventCounts   EventCounts
	lastHeartbeat time.Time
}

// NewSampler creates a sampler with the given debounce duration for both
// sensors. The startTime is used for calculating uptime in heartbeat events.
func NewSampler(debounceDuration time.Duration, startTime time.Time) *Sampler {
	return &Sampler{
		left:          NewDebouncer(debounceDuration),
		right:         NewDebouncer(debounceDuration),
		detector:      NewDirectionDetector(),
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
}

// Process takes a raw input sample and returns the movement event completed
// on this tick, if any.
func (s *Sampler) Process(input Input) (Event, bool) {
	stable := Input{
		Left:  s.left.Update(input.Left, input.Time),
		Right: s.right.Update(input.Right, input.Time),
		Time:  input.Time,
	}

	event, ok := s.detector.Feed(stable)
	if !ok {
		return Event{}, false
	}

	switch event.Direction {
	case DirectionLeft:
		s.eventCounts.Left++
	case DirectionRight:
		s.eventCounts.Right++
	}
	return event, true
}

// CurrentState returns the stable sensor values and the detector state.
func (s *Sampler) CurrentState() (left, right bool, state State) {
	return s.left.Stable(), s.right.Stable(), s.detector.State()
}

// EventCountsSnapshot returns a copy of the event counters.
func (s *Sampler) EventCountsSnapshot() EventCounts {
	return s.eventCounts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if the interval has not elapsed,
// or if interval is <= 0 (disabled).
func (s *Sampler) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if now.Sub(s.lastHeartbeat) < interval {
		return nil
	}

	s.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(s.startTime),
		Counts:    s.eventCounts,
	}
}
