package redis

import (
	"context"
	"encoding/json"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
)

// Envelope is the message body published on a notification channel.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// PubSubNotifier implements ports.Notifier with Redis PUBLISH. Subscribers
// (websocket gateways, push workers) listen on user:<id> and seller:<id>.
type PubSubNotifier struct {
	client *goredis.Client
}

// NewPubSubNotifier creates a notifier publishing on client.
func NewPubSubNotifier(client *goredis.Client) *PubSubNotifier {
	return &PubSubNotifier{client: client}
}

// Publish sends event with its JSON-encoded payload on channel.
func (n *PubSubNotifier) Publish(ctx context.Context, channel, event string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding %s payload: %w", event, err)
	}
	msg, err := json.Marshal(Envelope{Event: event, Payload: body})
	if err != nil {
		return fmt.Errorf("encoding %s envelope: %w", event, err)
	}
	if err := n.client.Publish(ctx, channel, msg).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", channel, err)
	}
	return nil
}
