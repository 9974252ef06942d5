package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/log"
)

// DefaultForwardTopic is the topic lifecycle events are published to.
const DefaultForwardTopic = "mirrorworld.session"

// Metadata keys set on forwarded messages.
const (
	MetadataEvent    = "event"
	MetadataInstance = "sdk_instance"
)

// ForwardedEvent is the JSON body of a forwarded lifecycle event.
type ForwardedEvent struct {
	Event     Event     `json:"event"`
	Instance  string    `json:"instance"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Forwarder republishes lifecycle events from a Bus to a watermill publisher,
// so other processes can observe logins and logouts.
type Forwarder struct {
	publisher message.Publisher
	topic     string
	instance  string
	lg        log.Logger
	subs      []Subscription
}

// NewForwarder subscribes to every lifecycle event of bus. An empty topic
// means DefaultForwardTopic. Ready is not forwarded.
func NewForwarder(bus *Bus, publisher message.Publisher, topic, instance string, lg log.Logger) *Forwarder {
	if topic == "" {
		topic = DefaultForwardTopic
	}
	f := &Forwarder{
		publisher: publisher,
		topic:     topic,
		instance:  instance,
		lg:        log.OrNoop(lg).WithName("forwarder"),
	}

	for _, ev := range Events() {
		if ev == Ready {
			continue
		}
		f.subs = append(f.subs, bus.Subscribe(ev, f.forward))
	}
	return f
}

func (f *Forwarder) forward(ctx context.Context, ev Event, payload any) {
	if err := f.Publish(ev, payload); err != nil {
		log.FromContextOr(ctx, f.lg).Warn("failed to forward event", "event", ev, "error", err)
	}
}

// Publish sends one event to the topic.
func (f *Forwarder) Publish(ev Event, payload any) error {
	body, err := json.Marshal(ForwardedEvent{
		Event:     ev,
		Instance:  f.instance,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), body)
	msg.Metadata.Set(MetadataEvent, ev.String())
	msg.Metadata.Set(MetadataInstance, f.instance)

	if err := f.publisher.Publish(f.topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Close detaches the forwarder from the bus. The publisher is left open.
func (f *Forwarder) Close() {
	for _, s := range f.subs {
		s.Unsubscribe()
	}
	f.subs = nil
}
