package broadcast

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
)

func newTestBroadcaster() *Broadcaster {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestBroadcastToAll(t *testing.T) {
	b := newTestBroadcaster()
	subs := []*FakeSubscriber{
		NewFakeSubscriber("s1"),
		NewFakeSubscriber("s2"),
		NewFakeSubscriber("s3"),
	}
	for _, s := range subs {
		b.Register(s)
	}

	if n := b.Broadcast("Moved right!"); n != 3 {
		t.Errorf("delivered: got %d, want 3", n)
	}
	for _, s := range subs {
		msgs := s.Messages()
		if len(msgs) != 1 || msgs[0] != "Moved right!" {
			t.Errorf("%s: got %v", s.Name, msgs)
		}
	}
}

func TestBroadcastFailureRemovesOnlyFailedSubscriber(t *testing.T) {
	b := newTestBroadcaster()
	s1 := NewFakeSubscriber("s1")
	s2 := NewFakeSubscriber("s2")
	s3 := NewFakeSubscriber("s3")
	s2.SendError = ErrClosed
	b.Register(s1)
	b.Register(s2)
	b.Register(s3)

	if n := b.Broadcast("Moved left!"); n != 2 {
		t.Errorf("delivered: got %d, want 2", n)
	}
	if got := s1.Messages(); len(got) != 1 {
		t.Errorf("s1: expected 1 message, got %v", got)
	}
	if got := s3.Messages(); len(got) != 1 {
		t.Errorf("s3: expected 1 message, got %v", got)
	}
	if b.Len() != 2 {
		t.Errorf("live set: got %d, want 2", b.Len())
	}
	if s2.CloseCount() != 1 {
		t.Errorf("failed subscriber should be closed once, got %d", s2.CloseCount())
	}

	// Recovery of s2 does not matter: it is no longer in the set.
	s2.SetSendError(nil)
	b.Broadcast("Moved right!")
	if got := s2.Messages(); len(got) != 0 {
		t.Errorf("removed subscriber still received %v", got)
	}
	if got := s1.Messages(); len(got) != 2 {
		t.Errorf("s1: expected 2 messages, got %v", got)
	}
}

func TestBroadcastNoSubscribers(t *testing.T) {
	b := newTestBroadcaster()
	if n := b.Broadcast("Moved left!"); n != 0 {
		t.Errorf("delivered: got %d, want 0", n)
	}
}

func TestBroadcastAllFail(t *testing.T) {
	b := newTestBroadcaster()
	for i := 0; i < 3; i++ {
		s := NewFakeSubscriber(fmt.Sprintf("s%d", i))
		s.SendError = errors.New("write: broken pipe")
		b.Register(s)
	}
	if n := b.Broadcast("Moved left!"); n != 0 {
		t.Errorf("delivered: got %d, want 0", n)
	}
	if b.Len() != 0 {
		t.Errorf("live set: got %d, want 0", b.Len())
	}
}

func TestUnregisterIdempotent(t *testing.T) {
	b := newTestBroadcaster()
	s1 := NewFakeSubscriber("s1")
	s2 := NewFakeSubscriber("s2")
	b.Register(s1)
	b.Register(s2)

	if !b.Unregister(s1) {
		t.Error("first unregister should report presence")
	}
	if b.Unregister(s1) {
		t.Error("second unregister should report absence")
	}
	if b.Len() != 1 {
		t.Errorf("live set: got %d, want 1", b.Len())
	}

	b.Broadcast("Moved right!")
	if len(s1.Messages()) != 0 {
		t.Error("unregistered subscriber received a message")
	}
	if len(s2.Messages()) != 1 {
		t.Error("remaining subscriber missed the message")
	}
}

func TestUnregisterNeverRegistered(t *testing.T) {
	b := newTestBroadcaster()
	if b.Unregister(NewFakeSubscriber("ghost")) {
		t.Error("unregister of unknown subscriber should report absence")
	}
}

func TestRegisterTwiceIsOneMember(t *testing.T) {
	b := newTestBroadcaster()
	s := NewFakeSubscriber("s1")
	b.Register(s)
	b.Register(s)
	if b.Len() != 1 {
		t.Errorf("live set: got %d, want 1", b.Len())
	}
	b.Broadcast("Moved left!")
	if got := s.Messages(); len(got) != 1 {
		t.Errorf("expected a single delivery, got %v", got)
	}
}

func TestBroadcastPreservesOrderPerSubscriber(t *testing.T) {
	b := newTestBroadcaster()
	s := NewFakeSubscriber("s1")
	b.Register(s)

	want := []string{"Moved left!", "Moved right!", "Moved right!", "Moved left!"}
	for _, m := range want {
		b.Broadcast(m)
	}
	got := s.Messages()
	if len(got) != len(want) {
		t.Fatalf("got %d messages, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("message %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestConcurrentRegisterUnregisterBroadcast(t *testing.T) {
	b := newTestBroadcaster()
	stable := NewFakeSubscriber("stable")
	b.Register(stable)

	const workers = 8
	const rounds = 200
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				s := NewFakeSubscriber(fmt.Sprintf("w%d-%d", w, i))
				b.Register(s)
				b.Unregister(s)
				b.Unregister(s)
			}
		}(w)
	}

	for i := 0; i < rounds; i++ {
		b.Broadcast("Moved right!")
	}
	wg.Wait()

	if b.Len() != 1 {
		t.Errorf("live set: got %d, want 1", b.Len())
	}
	if got := len(stable.Messages()); got != rounds {
		t.Errorf("stable subscriber: got %d messages, want %d", got, rounds)
	}
}
