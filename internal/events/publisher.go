// Package events forwards committed ledger movements to Kafka.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"maintenance-ledger/internal/config"
	"maintenance-ledger/internal/core"

	otelkafka "github.com/Trendyol/otel-kafka-konsumer"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	EventTypeHeader = "event_type"
	BatchTimeout    = 10 * time.Millisecond
)

// MovementEvent is the message body published for each committed movement.
type MovementEvent struct {
	EventType string        `json:"event_type"`
	Movement  core.Movement `json:"movement"`
}

// Producer is the subset of the Kafka writer the publisher needs.
type Producer interface {
	WriteMessage(ctx context.Context, msg kafka.Message) error
	Close() error
}

// KafkaPublisher implements core.MovementPublisher.
type KafkaPublisher struct {
	producer Producer
}

var _ core.MovementPublisher = (*KafkaPublisher)(nil)

func NewKafkaPublisher(producer Producer) *KafkaPublisher {
	return &KafkaPublisher{producer: producer}
}

// NewKafkaWriter builds a traced writer for the movements topic. Messages are hashed on their
// key so every movement of one stock record lands on the same partition, in order.
func NewKafkaWriter(cfg config.KafkaConfig, tp trace.TracerProvider) (Producer, error) {
	if !cfg.Enabled() {
		return nil, errors.New("no Kafka brokers configured")
	}
	base := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: BatchTimeout,
		RequiredAcks: kafka.RequireAll,
	}
	writer, err := otelkafka.NewWriter(base,
		otelkafka.WithTracerProvider(tp),
		otelkafka.WithPropagator(propagation.TraceContext{}),
		otelkafka.WithAttributes(
			[]attribute.KeyValue{
				semconv.MessagingDestinationNameKey.String(cfg.Topic),
				attribute.String("messaging.kafka.client_id", config.ServiceName),
			},
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka writer: %w", err)
	}
	return writer, nil
}

// EncodeMovement builds the Kafka message for m, keyed by stock record id.
func EncodeMovement(m core.Movement) (kafka.Message, error) {
	eventType := "parts_ledger.movement." + string(m.Type)
	body, err := json.Marshal(MovementEvent{EventType: eventType, Movement: m})
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to encode movement %s: %w", m.ID, err)
	}
	return kafka.Message{
		Key:   []byte(m.StockRecordID),
		Value: body,
		Time:  m.CreatedAt,
		Headers: []kafka.Header{
			{Key: EventTypeHeader, Value: []byte(eventType)},
		},
	}, nil
}

// Publish writes one message per movement. The first failure stops the batch.
func (p *KafkaPublisher) Publish(ctx context.Context, movements []core.Movement) error {
	for _, m := range movements {
		msg, err := EncodeMovement(m)
		if err != nil {
			return err
		}
		if err := p.producer.WriteMessage(ctx, msg); err != nil {
			return fmt.Errorf("failed to publish movement %s: %w", m.ID, err)
		}
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

// NopPublisher drops every movement. Used when Kafka is not configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, []core.Movement) error { return nil }
