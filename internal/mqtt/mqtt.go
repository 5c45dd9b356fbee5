// Package mqtt mirrors movement events to an MQTT broker, with an
// abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/hall-direction/internal/logic"
)

// Topic is the MQTT topic for movement events.
const Topic = "sensors/hall-direction/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "sensors/hall-direction/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a movement event to the broker. It must not block the
	// sampling loop; errors are reported but never fatal.
	Publish(event logic.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload is the MQTT message payload for a movement event.
type Payload struct {
	Motion MotionPayload `json:"motion"`
}

// MotionPayload contains the movement details.
type MotionPayload struct {
	Timestamp string `json:"timestamp"`
	Direction string `json:"direction"`
	Message   string `json:"message"`
}

// FormatPayload creates the JSON payload for a movement event.
func FormatPayload(event logic.Event) ([]byte, error) {
	payload := Payload{
		Motion: MotionPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339Nano),
			Direction: string(event.Direction),
			Message:   event.Direction.Message(),
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events
// that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}
	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// NopPublisher discards everything. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(logic.Event) error       { return nil }
func (NopPublisher) PublishSystem(SystemEvent) error { return nil }
func (NopPublisher) Close() error                    { return nil }
func (NopPublisher) IsConnected() bool               { return false }
