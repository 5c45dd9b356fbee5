// Package broadcast fans text messages out to a live set of subscribers.
package broadcast

import (
	"errors"
	"log/slog"
	"sync"
)

var (
	// ErrClosed is returned by Send when the subscriber's connection is gone.
	ErrClosed = errors.New("broadcast: subscriber closed")
	// ErrQueueFull is returned by Send when the subscriber cannot keep up.
	ErrQueueFull = errors.New("broadcast: subscriber queue full")
)

// Subscriber is a connected peer that can receive text messages.
// Send must not block; a slow peer reports ErrQueueFull instead.
type Subscriber interface {
	// ID identifies the subscriber in logs.
	ID() string
	Send(msg string) error
	// Close releases the underlying connection. It may be called more than
	// once and must not block, since Broadcast calls it on the sampling path.
	Close() error
}

// Broadcaster holds the live subscriber set.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[Subscriber]struct{}
	logger *slog.Logger
}

// New creates an empty Broadcaster. A nil logger uses slog.Default().
func New(logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		subs:   make(map[Subscriber]struct{}),
		logger: logger,
	}
}

// Register adds a subscriber to the live set.
func (b *Broadcaster) Register(sub Subscriber) {
	b.mu.Lock()
	b.subs[sub] = struct{}{}
	n := len(b.subs)
	b.mu.Unlock()
	b.logger.Info("subscriber registered", "subscriber", sub.ID(), "subscribers", n)
}

// Unregister removes a subscriber. Removing an absent subscriber is a no-op.
// It reports whether the subscriber was present.
func (b *Broadcaster) Unregister(sub Subscriber) bool {
	b.mu.Lock()
	_, ok := b.subs[sub]
	delete(b.subs, sub)
	n := len(b.subs)
	b.mu.Unlock()
	if ok {
		b.logger.Info("subscriber unregistered", "subscriber", sub.ID(), "subscribers", n)
	}
	return ok
}

// Len returns the number of live subscribers.
func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Broadcast delivers msg to every live subscriber and returns how many
// accepted it. Subscribers that fail are removed and closed.
func (b *Broadcaster) Broadcast(msg string) int {
	b.mu.Lock()
	snapshot := make([]Subscriber, 0, len(b.subs))
	for sub := range b.subs {
		snapshot = append(snapshot, sub)
	}
	b.mu.Unlock()

	var failed []Subscriber
	delivered := 0
	for _, sub := range snapshot {
		if err := sub.Send(msg); err != nil {
			b.logger.Warn("send failed, dropping subscriber", "subscriber", sub.ID(), "error", err)
			failed = append(failed, sub)
			continue
		}
		delivered++
	}

	for _, sub := range failed {
		// A concurrent Unregister may already have removed it.
		b.Unregister(sub)
		if err := sub.Close(); err != nil {
			b.logger.Debug("close failed", "subscriber", sub.ID(), "error", err)
		}
	}

	return delivered
}
