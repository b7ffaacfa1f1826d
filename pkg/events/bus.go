package events

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Bus is an in-process pub/sub; each event type is its own topic.
// Events published while nobody subscribes are dropped.
type Bus struct {
	pubSub *gochannel.GoChannel
}

func NewBus() *Bus {
	return &Bus{
		pubSub: gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: 64},
			watermill.NopLogger{},
		),
	}
}

func (b *Bus) Publish(ctx context.Context, event Event) error {
	payload, err := Encode(event)
	if err != nil {
		return err
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	return b.pubSub.Publish(event.EventType(), msg)
}

// Subscribe streams events of one type until ctx is cancelled or the bus closes.
func (b *Bus) Subscribe(ctx context.Context, eventType string) (<-chan Event, error) {
	messages, err := b.pubSub.Subscribe(ctx, eventType)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", eventType, err)
	}

	out := make(chan Event)
	go func() {
		defer close(out)
		for msg := range messages {
			event, err := Decode(msg.Payload)
			msg.Ack()
			if err != nil {
				continue
			}

			select {
			case out <- event:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (b *Bus) Close() error {
	return b.pubSub.Close()
}
