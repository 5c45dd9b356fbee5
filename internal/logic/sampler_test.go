package logic

import (
	"testing"
	"time"
)

// runSamples feeds samples at a fixed step and returns the events produced.
func runSamples(s *Sampler, start time.Time, step time.Duration, samples []Input) []Event {
	var events []Event
	for i, in := range samples {
		in.Time = start.Add(time.Duration(i) * step)
		if e, ok := s.Process(in); ok {
			events = append(events, e)
		}
	}
	return events
}

func repeatInput(left, right bool, n int) []Input {
	out := make([]Input, n)
	for i := range out {
		out[i] = Input{Left: left, Right: right}
	}
	return out
}

func TestSamplerLeftToRight(t *testing.T) {
	s := NewSampler(100*time.Millisecond, t0)

	var samples []Input
	samples = append(samples, repeatInput(true, false, 4)...) // left triggers
	samples = append(samples, repeatInput(true, true, 4)...)  // right triggers
	samples = append(samples, repeatInput(false, true, 4)...) // left clears

	events := runSamples(s, t0, 50*time.Millisecond, samples)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Direction != DirectionRight {
		t.Errorf("expected RIGHT, got %s", events[0].Direction)
	}
	// Right first seen at 200ms, committed at 300ms.
	if !events[0].Timestamp.Equal(t0.Add(300 * time.Millisecond)) {
		t.Errorf("unexpected timestamp: %v", events[0].Timestamp)
	}

	left, right, state := s.CurrentState()
	if state != StateIdle {
		t.Errorf("expected IDLE, got %s", state)
	}
	if left {
		t.Error("expected left stable=false")
	}
	if !right {
		t.Error("expected right stable=true")
	}
}

func TestSamplerRightToLeft(t *testing.T) {
	s := NewSampler(100*time.Millisecond, t0)

	var samples []Input
	samples = append(samples, repeatInput(false, true, 4)...)
	samples = append(samples, repeatInput(false, false, 4)...)
	samples = append(samples, repeatInput(true, false, 4)...)
	samples = append(samples, repeatInput(false, false, 4)...)

	events := runSamples(s, t0, 50*time.Millisecond, samples)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Direction != DirectionLeft {
		t.Errorf("expected LEFT, got %s", events[0].Direction)
	}

	counts := s.EventCountsSnapshot()
	if counts.Left != 1 || counts.Right != 0 {
		t.Errorf("unexpected counts: %+v", counts)
	}
}

func TestSamplerBounceDoesNotArm(t *testing.T) {
	s := NewSampler(100*time.Millisecond, t0)

	var samples []Input
	samples = append(samples, repeatInput(false, false, 4)...)
	samples = append(samples, Input{Left: true}) // single-sample bounce
	samples = append(samples, repeatInput(false, false, 4)...)

	events := runSamples(s, t0, 50*time.Millisecond, samples)
	if len(events) != 0 {
		t.Fatalf("expected 0 events, got %d", len(events))
	}
	if _, _, state := s.CurrentState(); state != StateIdle {
		t.Errorf("bounce armed the detector: state %s", state)
	}
}

func TestSamplerMultiplePasses(t *testing.T) {
	s := NewSampler(100*time.Millisecond, t0)

	pass := func(first, second Input) []Input {
		var out []Input
		out = append(out, repeatInput(first.Left, first.Right, 3)...)
		out = append(out, repeatInput(second.Left, second.Right, 3)...)
		out = append(out, repeatInput(false, false, 3)...)
		return out
	}

	var samples []Input
	samples = append(samples, pass(Input{Left: true}, Input{Right: true})...)
	samples = append(samples, pass(Input{Right: true}, Input{Left: true})...)
	samples = append(samples, pass(Input{Left: true}, Input{Right: true})...)

	events := runSamples(s, t0, 50*time.Millisecond, samples)
	want := []Direction{DirectionRight, DirectionLeft, DirectionRight}
	if len(events) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(events))
	}
	for i, w := range want {
		if events[i].Direction != w {
			t.Errorf("event %d: expected %s, got %s", i, w, events[i].Direction)
		}
	}

	counts := s.EventCountsSnapshot()
	if counts.Right != 2 || counts.Left != 1 {
		t.Errorf("unexpected counts: %+v", counts)
	}
}

func TestCheckHeartbeat(t *testing.T) {
	s := NewSampler(0, t0)

	if hb := s.CheckHeartbeat(t0.Add(10*time.Minute), 15*time.Minute); hb != nil {
		t.Error("heartbeat fired before interval")
	}

	hb := s.CheckHeartbeat(t0.Add(15*time.Minute), 15*time.Minute)
	if hb == nil {
		t.Fatal("expected heartbeat at interval")
	}
	if hb.Uptime != 15*time.Minute {
		t.Errorf("expected uptime 15m, got %v", hb.Uptime)
	}

	if hb := s.CheckHeartbeat(t0.Add(20*time.Minute), 15*time.Minute); hb != nil {
		t.Error("heartbeat fired again before next interval")
	}
	if hb := s.CheckHeartbeat(t0.Add(30*time.Minute), 15*time.Minute); hb == nil {
		t.Error("expected second heartbeat")
	}
}

func TestCheckHeartbeatDisabled(t *testing.T) {
	s := NewSampler(0, t0)
	if hb := s.CheckHeartbeat(t0.Add(24*time.Hour), 0); hb != nil {
		t.Error("heartbeat should be disabled with zero interval")
	}
}
