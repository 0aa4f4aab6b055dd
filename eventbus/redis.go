package eventbus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// RedisBus publishes events on Redis pub/sub channels keyed by topic, so
// multiple worker processes running independent sessions can observe
// each other's events without sharing an in-process Bus.
type RedisBus struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisBus returns a RedisBus using client, namespacing channels under
// keyPrefix (e.g. "agentgraph").
func NewRedisBus(client *redis.Client, keyPrefix string) *RedisBus {
	return &RedisBus{client: client, keyPrefix: keyPrefix}
}

func (b *RedisBus) channel(topic string) string {
	return fmt.Sprintf("%s:events:%s", b.keyPrefix, topic)
}

// Publish marshals event and publishes it on the topic's channel.
func (b *RedisBus) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("eventbus: marshal event: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel(event.Topic), data).Err(); err != nil {
		return fmt.Errorf("eventbus: publish to %q: %w", event.Topic, err)
	}
	return nil
}

// Subscribe returns a channel of events published to topic and a cleanup
// function the caller must invoke when done listening.
func (b *RedisBus) Subscribe(ctx context.Context, topic string) (<-chan Event, func(), error) {
	subCtx, cancel := context.WithCancel(ctx)
	pubsub := b.client.Subscribe(subCtx, b.channel(topic))
	if _, err := pubsub.Receive(subCtx); err != nil {
		cancel()
		return nil, nil, fmt.Errorf("eventbus: subscribe to %q: %w", topic, err)
	}

	out := make(chan Event, 16)
	go func() {
		defer close(out)
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					continue
				}
				select {
				case out <- ev:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return out, cancel, nil
}
