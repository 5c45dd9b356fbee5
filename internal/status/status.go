// Package status provides a thread-safe status tracker for the hall-direction daemon.
// It is written by the sampling loop and read by HTTP handlers and MQTT
// system events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/hall-direction/internal/logic"
)

// NetworkInfo contains network state as reported by pi-helper.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	PollMs      int64
	DebounceMs  int64
	HeartbeatMs int64
	Broker      string
	HTTPAddr    string
	PinLeft     int
	PinRight    int
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and stays valid after the lock is released.
type Snapshot struct {
	Left          bool
	Right         bool
	State         logic.State
	Counts        logic.EventCounts
	LastEvent     *logic.Event
	Subscribers   int
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			State:     logic.StateIdle,
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update sets the stable sensor values, detector state and event counts.
// Called from runLoop on every tick.
func (t *Tracker) Update(left, right bool, state logic.State, counts logic.EventCounts) {
	t.mu.Lock()
	t.snap.Left = left
	t.snap.Right = right
	t.snap.State = state
	t.snap.Counts = counts
	t.mu.Unlock()
}

// RecordEvent stores the most recent movement event.
func (t *Tracker) RecordEvent(e logic.Event) {
	t.mu.Lock()
	t.snap.LastEvent = &e
	t.mu.Unlock()
}

// SetSubscribers sets the number of live websocket subscribers.
func (t *Tracker) SetSubscribers(n int) {
	t.mu.Lock()
	t.snap.Subscribers = n
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
