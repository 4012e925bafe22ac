package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"dineflow/internal/events"
	"dineflow/internal/logger"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is the subset of *kafka.Writer the producer needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	Writer MessageWriter
	Topic  string
	Logger *logger.Logger
}

func NewProducer(brokers []string, topic string, log *logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return &Producer{Writer: writer, Topic: topic, Logger: log}
}

// Publish writes the event keyed by tenant so one tenant's events stay ordered.
func (p *Producer) Publish(ctx context.Context, e events.Event) error {
	msgBytes, err := json.Marshal(e)
	if err != nil {
		return err
	}

	if err := p.Writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.TenantID),
		Value: msgBytes,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(e.Type)},
		},
	}); err != nil {
		return fmt.Errorf("kafka publish %s: %w", e.Type, err)
	}

	p.Logger.LogKafka("PUBLISH", p.Topic, fmt.Sprintf("%s tenant=%s", e.Type, e.TenantID))
	return nil
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}
