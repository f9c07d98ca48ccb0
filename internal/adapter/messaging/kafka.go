package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Jamarblack/Degen-Arena/config"
	"github.com/Jamarblack/Degen-Arena/internal/core/domain"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is the subset of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewWriter builds a topic-less writer; each message names its own topic.
func NewWriter(brokers string) *kafka.Writer {
	addrs := make([]string, 0)
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			addrs = append(addrs, b)
		}
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(addrs...),
		Balancer:               &kafka.LeastBytes{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
		WriteTimeout:           10 * time.Second,
	}
}

// KafkaPublisher implements ports.EventPublisher. Placed and settled events go
// to separate topics, keyed by wager ID so one wager's events stay ordered.
type KafkaPublisher struct {
	writer       MessageWriter
	topicPlaced  string
	topicSettled string
}

// NewKafkaPublisher creates a publisher over writer.
func NewKafkaPublisher(writer MessageWriter, cfg config.KafkaConfig) *KafkaPublisher {
	return &KafkaPublisher{
		writer:       writer,
		topicPlaced:  cfg.TopicPlaced,
		topicSettled: cfg.TopicSettled,
	}
}

// Publish writes ev to the topic for its type.
func (p *KafkaPublisher) Publish(ctx context.Context, ev domain.WagerEvent) error {
	var topic string
	switch ev.Type {
	case domain.EventWagerPlaced:
		topic = p.topicPlaced
	case domain.EventWagerSettled:
		topic = p.topicSettled
	default:
		return fmt.Errorf("kafka: no topic for event type %q", ev.Type)
	}

	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("kafka: encode event: %w", err)
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(ev.Wager.ID.String()),
		Value: value,
		Time:  ev.OccurredAt,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: write %s: %w", topic, err)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
