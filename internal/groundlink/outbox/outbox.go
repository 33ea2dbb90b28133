// Package outbox decouples MQTT publishing from the event loop. Enqueue
// never blocks; a single worker publishes messages in order.
package outbox

import (
	"context"
	"errors"
	"time"

	"github.com/autopeer-io/groundlink/internal/pkg/metrics"
	"github.com/autopeer-io/groundlink/pkg/log"
	pkgmqtt "github.com/autopeer-io/groundlink/pkg/mqtt"
)

// ErrFull is returned when the queue cannot take another message.
var ErrFull = errors.New("outbox is full")

const DefaultCapacity = 256

// Message is one pending publish.
type Message struct {
	Topic   string
	QoS     int
	Retain  bool
	Payload []byte
	// Kind labels the publish latency metric.
	Kind string
}

// Publisher is the subset of pkgmqtt.Client the outbox needs.
type Publisher interface {
	Publish(ctx context.Context, topic string, qos int, retain bool, payload []byte) error
}

var _ Publisher = (pkgmqtt.Client)(nil)

type Outbox struct {
	publisher Publisher
	queue     chan Message
	timeout   time.Duration
}

// New creates an outbox holding at most capacity messages.
func New(publisher Publisher, capacity int, timeout time.Duration) *Outbox {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Outbox{
		publisher: publisher,
		queue:     make(chan Message, capacity),
		timeout:   timeout,
	}
}

// Enqueue queues msg for publishing.
func (o *Outbox) Enqueue(msg Message) error {
	select {
	case o.queue <- msg:
		return nil
	default:
		return ErrFull
	}
}

// Len returns the number of queued messages.
func (o *Outbox) Len() int {
	return len(o.queue)
}

// Run publishes queued messages until ctx is done.
func (o *Outbox) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-o.queue:
			o.publish(ctx, msg)
		}
	}
}

func (o *Outbox) publish(ctx context.Context, msg Message) {
	pubCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	err := o.publisher.Publish(pubCtx, msg.Topic, msg.QoS, msg.Retain, msg.Payload)
	if msg.Kind != "" {
		metrics.LinkPublishLatency.WithLabelValues(msg.Kind).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		log.Warn("Failed to publish", "topic", msg.Topic, "err", err)
	}
}
