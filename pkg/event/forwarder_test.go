package event_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/event"
)

func receive(t *testing.T, ch <-chan *message.Message) *message.Message {
	t.Helper()
	select {
	case msg := <-ch:
		msg.Ack()
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no message forwarded")
		return nil
	}
}

func TestForwarder(t *testing.T) {
	t.Parallel()

	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 8}, watermill.NopLogger{})
	defer pubSub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	messages, err := pubSub.Subscribe(ctx, "sdk.events")
	require.NoError(t, err)

	bus := event.NewBus(nil)
	fwd := event.NewForwarder(bus, pubSub, "sdk.events", "instance-1", nil)

	bus.Emit(ctx, event.Ready, nil)
	bus.Emit(ctx, event.Login, map[string]string{"id": "u1"})

	msg := receive(t, messages)
	assert.Equal(t, "login", msg.Metadata.Get(event.MetadataEvent))
	assert.Equal(t, "instance-1", msg.Metadata.Get(event.MetadataInstance))

	var body event.ForwardedEvent
	require.NoError(t, json.Unmarshal(msg.Payload, &body))
	assert.Equal(t, event.Login, body.Event)
	assert.Equal(t, map[string]any{"id": "u1"}, body.Payload)

	fwd.Close()
	assert.Zero(t, bus.HandlerCount(event.Login))
	assert.Zero(t, bus.HandlerCount(event.Logout))
}
