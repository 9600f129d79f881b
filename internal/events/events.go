package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	kafkaGo "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// LifecycleEvent describes one status change of an order or one of its items.
// ItemID is nil for order-level changes.
type LifecycleEvent struct {
	Type       string     `json:"type"`
	OrderID    uuid.UUID  `json:"order_id"`
	ItemID     *uuid.UUID `json:"item_id,omitempty"`
	From       string     `json:"from"`
	To         string     `json:"to"`
	OccurredAt time.Time  `json:"occurred_at"`
}

// Key groups every event of one order onto the same partition
func (e LifecycleEvent) Key() string {
	return e.OrderID.String()
}

// Publisher delivers lifecycle events to downstream consumers
type Publisher interface {
	Publish(ctx context.Context, event LifecycleEvent) error
	Close() error
}

type kafkaPublisher struct {
	writer *kafkaGo.Writer
	logger *zap.Logger
}

// NewKafkaPublisher writes events as JSON to topic
func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) Publisher {
	return &kafkaPublisher{
		writer: &kafkaGo.Writer{
			Addr:         kafkaGo.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafkaGo.Hash{},
			RequiredAcks: kafkaGo.RequireOne,
		},
		logger: logger,
	}
}

func (p *kafkaPublisher) Publish(ctx context.Context, event LifecycleEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.writer.WriteMessages(ctx, kafkaGo.Message{
		Key:   []byte(event.Key()),
		Value: payload,
		Time:  event.OccurredAt,
	}); err != nil {
		p.logger.Error("Failed to publish lifecycle event",
			zap.String("type", event.Type),
			zap.String("order_id", event.OrderID.String()),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (p *kafkaPublisher) Close() error {
	return p.writer.Close()
}

type logPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher records events in the log only
func NewLogPublisher(logger *zap.Logger) Publisher {
	return &logPublisher{logger: logger}
}

func (p *logPublisher) Publish(_ context.Context, event LifecycleEvent) error {
	fields := []zap.Field{
		zap.String("type", event.Type),
		zap.String("order_id", event.OrderID.String()),
		zap.String("from", event.From),
		zap.String("to", event.To),
		zap.Time("occurred_at", event.OccurredAt),
	}
	if event.ItemID != nil {
		fields = append(fields, zap.String("item_id", event.ItemID.String()))
	}
	p.logger.Info("Lifecycle event", fields...)
	return nil
}

func (p *logPublisher) Close() error {
	return nil
}

// New picks the kafka publisher when brokers are configured
func New(brokers []string, topic string, logger *zap.Logger) Publisher {
	if len(brokers) == 0 {
		return NewLogPublisher(logger)
	}
	return NewKafkaPublisher(brokers, topic, logger)
}
