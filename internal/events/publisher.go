// Package events publishes committed review changes to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"review-service/internal/logger"
	"review-service/internal/review"
)

const publishTimeout = 2 * time.Second

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher is a review.Notifier. Messages are keyed by record id so
// every change to one record lands on one partition in order.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
}

var _ review.Notifier = (*KafkaPublisher)(nil)

func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher requires at least one broker")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka publisher requires a topic")
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			RequiredAcks:           kafka.RequireAll,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
		},
		topic: topic,
	}, nil
}

// Notify publishes c. Failures are logged; the mutation is already
// committed.
func (p *KafkaPublisher) Notify(ctx context.Context, c review.Change) {
	msg, err := encode(c)
	if err != nil {
		logger.Error("failed to encode change", map[string]any{
			"kind":  string(c.Kind),
			"id":    c.RecordID,
			"error": err.Error(),
		})
		return
	}

	// detached from the request so a client disconnect does not drop it
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		logger.Warn("failed to publish change", map[string]any{
			"topic": p.topic,
			"kind":  string(c.Kind),
			"id":    c.RecordID,
			"error": err.Error(),
		})
	}
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func encode(c review.Change) (kafka.Message, error) {
	payload, err := json.Marshal(c)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(c.RecordID),
		Value: payload,
		Time:  c.At,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(c.Kind)},
		},
	}, nil
}

// Noop drops every change. Used when no brokers are configured.
type Noop struct{}

func (Noop) Notify(context.Context, review.Change) {}

func (Noop) Close() error { return nil }
