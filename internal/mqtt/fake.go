package mqtt

import (
	"github.com/sweeney/hall-direction/internal/logic"
)

// FakePublisher is an in-memory Publisher. It keeps every movement and
// system event with its encoded payload so tests can check both the
// sequence of directions and the exact wire format.
type FakePublisher struct {
	Events         []logic.Event
	Payloads       [][]byte
	SystemEvents   []SystemEvent
	SystemPayloads [][]byte

	// PublishError and PublishSystemError make the matching call fail
	// without recording anything.
	PublishError       error
	PublishSystemError error

	Closed    bool
	Connected bool
}

// NewFakePublisher returns an empty, disconnected FakePublisher.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

func (f *FakePublisher) Publish(event logic.Event) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	payload, err := FormatPayload(event)
	if err != nil {
		return err
	}
	f.Events, f.Payloads = append(f.Events, event), append(f.Payloads, payload)
	return nil
}

func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemEvents, f.SystemPayloads = append(f.SystemEvents, event), append(f.SystemPayloads, payload)
	return nil
}

func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}

// DirectionCounts tallies the published movements by direction.
func (f *FakePublisher) DirectionCounts() logic.EventCounts {
	var c logic.EventCounts
	for _, e := range f.Events {
		switch e.Direction {
		case logic.DirectionLeft:
			c.Left++
		case logic.DirectionRight:
			c.Right++
		}
	}
	return c
}

// Directions returns the published directions in order.
func (f *FakePublisher) Directions() []logic.Direction {
	out := make([]logic.Direction, len(f.Events))
	for i, e := range f.Events {
		out[i] = e.Direction
	}
	return out
}

// SystemEventsNamed returns the published system events of one kind
// ("STARTUP", "HEARTBEAT", "SHUTDOWN"), oldest first.
func (f *FakePublisher) SystemEventsNamed(name string) []SystemEvent {
	var out []SystemEvent
	for _, se := range f.SystemEvents {
		if se.Event == name {
			out = append(out, se)
		}
	}
	return out
}
