package mqtt

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/hall-direction/internal/logic"
)

// DefaultBufferSize is the number of messages kept while the broker is unreachable.
const DefaultBufferSize = 100

// Options configures a RealPublisher.
type Options struct {
	Broker     string
	ClientID   string
	BufferSize int
}

// RealPublisher publishes to an actual MQTT broker. Publishing never blocks
// the caller: messages are handed to the client and their completion is
// logged asynchronously. While disconnected, messages are buffered and
// replayed on reconnect.
type RealPublisher struct {
	client paho.Client
	logger *slog.Logger

	mu      sync.Mutex
	pending *ringBuffer
}

// NewRealPublisher creates a publisher for the given broker. The connection
// is established (and re-established) in the background.
func NewRealPublisher(opts Options, logger *slog.Logger) *RealPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.ClientID == "" {
		opts.ClientID = "hall-direction"
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}

	p := &RealPublisher{
		logger:  logger.With("broker", opts.Broker),
		pending: newRingBuffer(opts.BufferSize),
	}

	will, _ := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "OFFLINE",
		Reason:    "LWT",
	})

	co := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetBinaryWill(TopicSystem, will, 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			p.logger.Warn("mqtt connection lost", "error", err)
		})

	p.client = paho.NewClient(co)
	p.client.Connect()
	return p
}

// Publish sends a movement event to the MQTT broker.
func (p *RealPublisher) Publish(event logic.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	// QoS 0 (at-most-once), not retained
	p.publish(bufferedMsg{topic: Topic, payload: payload})
	return nil
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	// QoS 1 (at-least-once) for lifecycle events
	p.publish(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
	return nil
}

// IsConnected reports whether the client currently has a live connection.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker, allowing in-flight messages up to one
// second to complete.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000)
	return nil
}

func (p *RealPublisher) publish(msg bufferedMsg) {
	if !p.client.IsConnectionOpen() {
		p.mu.Lock()
		dropped := p.pending.push(msg)
		n := p.pending.len()
		p.mu.Unlock()
		if dropped {
			p.logger.Warn("mqtt buffer full, dropping oldest", "buffered", n)
		}
		return
	}

	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	go func() {
		if !token.WaitTimeout(5 * time.Second) {
			p.logger.Warn("mqtt publish timeout", "topic", msg.topic)
			return
		}
		if err := token.Error(); err != nil {
			p.logger.Warn("mqtt publish failed", "topic", msg.topic, "error", err)
		}
	}()
}

func (p *RealPublisher) onConnect(c paho.Client) {
	p.mu.Lock()
	dropped := p.pending.dropped
	msgs := p.pending.drainAll()
	p.mu.Unlock()

	p.logger.Info("mqtt connected", "replaying", len(msgs), "dropped", dropped)
	for _, m := range msgs {
		c.Publish(m.topic, m.qos, m.retained, m.payload)
	}
}
