package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPubSubNotifier_Publish(t *testing.T) {
	_, client := newTestClient(t)
	ctx := context.Background()

	sub := client.Subscribe(ctx, "user:42")
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	n := NewPubSubNotifier(client)
	require.NoError(t, n.Publish(ctx, "user:42", "order:placed", map[string]string{"tracking_number": "TRK-1"}))

	select {
	case msg := <-sub.Channel():
		assert.Equal(t, "user:42", msg.Channel)
		var env Envelope
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &env))
		assert.Equal(t, "order:placed", env.Event)
		assert.JSONEq(t, `{"tracking_number":"TRK-1"}`, string(env.Payload))
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}

func TestPubSubNotifier_UnencodablePayload(t *testing.T) {
	_, client := newTestClient(t)
	n := NewPubSubNotifier(client)

	err := n.Publish(context.Background(), "user:1", "order:placed", make(chan int))
	assert.ErrorContains(t, err, "encoding order:placed payload")
}

func TestPubSubNotifier_ServerDown(t *testing.T) {
	s, client := newTestClient(t)
	s.Close()
	n := NewPubSubNotifier(client)

	err := n.Publish(context.Background(), "seller:9", "order:new", struct{}{})
	assert.ErrorContains(t, err, "redis publish seller:9")
}
