package broadcast

import "sync"

// FakeSubscriber records messages for test assertions.
type FakeSubscriber struct {
	Name string

	mu       sync.Mutex
	messages []string
	closed   int

	// SendError, if set, will be returned by Send.
	SendError error
}

// NewFakeSubscriber creates a FakeSubscriber with the given name.
func NewFakeSubscriber(name string) *FakeSubscriber {
	return &FakeSubscriber{Name: name}
}

// ID returns the subscriber name.
func (f *FakeSubscriber) ID() string {
	return f.Name
}

// Send records the message unless SendError is set.
func (f *FakeSubscriber) Send(msg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SendError != nil {
		return f.SendError
	}
	f.messages = append(f.messages, msg)
	return nil
}

// Close counts calls to Close.
func (f *FakeSubscriber) Close() error {
	f.mu.Lock()
	f.closed++
	f.mu.Unlock()
	return nil
}

// Messages returns a copy of the received messages.
func (f *FakeSubscriber) Messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.messages...)
}

// CloseCount returns how many times Close was called.
func (f *FakeSubscriber) CloseCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// SetSendError changes the error returned by Send.
func (f *FakeSubscriber) SetSendError(err error) {
	f.mu.Lock()
	f.SendError = err
	f.mu.Unlock()
}
