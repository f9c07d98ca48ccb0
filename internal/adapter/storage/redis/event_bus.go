package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Jamarblack/Degen-Arena/internal/core/domain"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// EventBus implements ports.EventBus over Redis Pub/Sub. Every API replica
// subscribes, so a wager settled by the worker reaches feeds on all of them.
type EventBus struct {
	client *goredis.Client
	log    zerolog.Logger
}

// NewEventBus creates a Redis Pub/Sub event bus on WagerChannel.
func NewEventBus(client *goredis.Client, log zerolog.Logger) *EventBus {
	return &EventBus{client: client, log: log}
}

// Publish broadcasts ev to all subscribers.
func (b *EventBus) Publish(ctx context.Context, ev domain.WagerEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode wager event: %w", err)
	}
	if err := b.client.Publish(ctx, WagerChannel, data).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", WagerChannel, err)
	}
	return nil
}

// Subscribe returns a channel of decoded events. The channel is closed when
// ctx is cancelled. Payloads that fail to decode are logged and dropped.
func (b *EventBus) Subscribe(ctx context.Context) (<-chan domain.WagerEvent, error) {
	pubsub := b.client.Subscribe(ctx, WagerChannel)

	// Wait for the subscription confirmation so no publish is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis subscribe %s: %w", WagerChannel, err)
	}

	out := make(chan domain.WagerEvent, 128)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev domain.WagerEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					b.log.Warn().Err(err).Str("channel", msg.Channel).Msg("dropping undecodable wager event")
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
