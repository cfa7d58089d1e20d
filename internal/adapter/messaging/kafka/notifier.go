package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// MessageWriter is the subset of *kafka.Writer the notifier uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type envelope struct {
	Channel string          `json:"channel"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// Notifier implements ports.Notifier on a Kafka topic. Messages are keyed by
// channel so every event for one user or seller lands on the same partition
// and keeps its order.
type Notifier struct {
	writer MessageWriter
}

// NewWriter builds a synchronous hash-balanced writer for topic.
func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
	}
}

// NewNotifier wraps w.
func NewNotifier(w MessageWriter) *Notifier {
	return &Notifier{writer: w}
}

// Publish writes one message. The active trace context travels in the
// message headers.
func (n *Notifier) Publish(ctx context.Context, channel, event string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding %s payload: %w", event, err)
	}
	value, err := json.Marshal(envelope{Channel: channel, Event: event, Payload: body})
	if err != nil {
		return fmt.Errorf("encoding %s envelope: %w", event, err)
	}

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	headers := []kafka.Header{{Key: "event", Value: []byte(event)}}
	for k, v := range carrier {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}

	msg := kafka.Message{
		Key:     []byte(channel),
		Value:   value,
		Headers: headers,
		Time:    time.Now().UTC(),
	}
	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write %s: %w", channel, err)
	}
	return nil
}

// Close flushes and closes the writer.
func (n *Notifier) Close() error {
	return n.writer.Close()
}
