package messaging

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrUnsupported is returned when the selected broker cannot honor a request
// feature, delayed delivery for instance.
var ErrUnsupported = errors.New("messaging: unsupported operation")

// Messaging publishes domain events without exposing a concrete broker.
// Implementations exist for NSQ, NATS, Kafka, Google Pub/Sub and a log sink.
type Messaging interface {
	io.Closer

	// Publish sends a message to the destination (topic, subject or queue
	// depending on the broker).
	Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error)
}

// OutgoingMessage is a broker-agnostic message. Brokers ignore the fields
// they have no concept for.
type OutgoingMessage struct {
	// Body is the message payload.
	Body []byte

	// Key drives partitioning on Kafka.
	Key []byte

	// Headers carry binary values and may repeat keys.
	Headers []Header

	// Attributes map to string attributes on brokers that model them,
	// Pub/Sub among them.
	Attributes map[string]string

	// OrderingKey is honored by Google Pub/Sub.
	OrderingKey string

	// Delay defers delivery where the broker supports it.
	Delay time.Duration
}

// Header is a message header entry.
type Header struct {
	Key   string
	Value []byte
}

// PublishResult carries whatever publish metadata the broker reports.
type PublishResult struct {
	// MessageID is the broker-assigned message ID.
	MessageID string

	// Topic is the destination the message went to.
	Topic string

	// Timestamp is when the broker accepted the message.
	Timestamp time.Time
}
