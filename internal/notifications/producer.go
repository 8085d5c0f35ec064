package notifications

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/IBM/sarama"
)

// EventProducer defines the contract for publishing draw lifecycle and
// ticket payout events
type EventProducer interface {
	PublishDrawEvent(ctx context.Context, event *DrawEvent) error
	PublishTicketEvent(ctx context.Context, event *TicketEvent) error
	Close() error
}

// KafkaProducerConfig contains configuration for the Kafka event producer
type KafkaProducerConfig struct {
	Brokers          []string
	Topic            string
	RetryMax         int
	TimeoutMs        int
	RequiredAcks     sarama.RequiredAcks
	CompressionType  sarama.CompressionCodec
	IdempotentWrites bool
}

// DefaultKafkaProducerConfig returns a default producer configuration
func DefaultKafkaProducerConfig() *KafkaProducerConfig {
	return &KafkaProducerConfig{
		Brokers:          []string{"localhost:9092"},
		Topic:            "draw-events",
		RetryMax:         3,
		TimeoutMs:        10000,             // 10 seconds
		RequiredAcks:     sarama.WaitForAll, // Wait for all in-sync replicas
		CompressionType:  sarama.CompressionSnappy,
		IdempotentWrites: true,
	}
}

// KafkaEventProducer publishes draw events to Kafka
type KafkaEventProducer struct {
	producer sarama.SyncProducer
	config   *KafkaProducerConfig
}

// NewKafkaEventProducer creates a new Kafka event producer
func NewKafkaEventProducer(config *KafkaProducerConfig) (EventProducer, error) {
	saramaConfig := sarama.NewConfig()

	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.RequiredAcks = config.RequiredAcks
	saramaConfig.Producer.Compression = config.CompressionType
	saramaConfig.Producer.Retry.Max = config.RetryMax
	saramaConfig.Producer.Timeout = time.Duration(config.TimeoutMs) * time.Millisecond
	saramaConfig.Producer.Idempotent = config.IdempotentWrites

	if config.IdempotentWrites {
		saramaConfig.Net.MaxOpenRequests = 1
	}

	// Hash partitioner keeps one draw's events on one partition
	saramaConfig.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := sarama.NewSyncProducer(config.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	log.Printf("📤 Kafka draw event producer created successfully")
	return &KafkaEventProducer{
		producer: producer,
		config:   config,
	}, nil
}

// PublishDrawEvent publishes a single draw lifecycle event to Kafka
func (kep *KafkaEventProducer) PublishDrawEvent(ctx context.Context, event *DrawEvent) error {
	messageBytes, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal draw event: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic:     kep.config.Topic,
		Key:       sarama.StringEncoder(event.GetPartitionKey()),
		Value:     sarama.ByteEncoder(messageBytes),
		Headers:   kep.createHeaders(event),
		Timestamp: event.OccurredAt,
	}

	partition, offset, err := kep.producer.SendMessage(message)
	if err != nil {
		return fmt.Errorf("failed to send draw event to Kafka: %w", err)
	}

	log.Printf("📤 Draw event published - Topic: %s, Partition: %d, Offset: %d, Type: %s, Draw: %s",
		kep.config.Topic, partition, offset, event.Type, event.DrawID)

	return nil
}

// PublishTicketEvent publishes an instant-ticket payout event to Kafka
func (kep *KafkaEventProducer) PublishTicketEvent(ctx context.Context, event *TicketEvent) error {
	messageBytes, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal ticket event: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic:     kep.config.Topic,
		Key:       sarama.StringEncoder(event.GetPartitionKey()),
		Value:     sarama.ByteEncoder(messageBytes),
		Timestamp: event.OccurredAt,
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_id"), Value: []byte(event.ID.String())},
			{Key: []byte("event_type"), Value: []byte(event.Type)},
			{Key: []byte("draw_id"), Value: []byte(event.DrawID.String())},
			{Key: []byte("version"), Value: []byte("1.0")},
			{Key: []byte("producer"), Value: []byte("sorteo-tickets")},
			{Key: []byte("occurred_at"), Value: []byte(event.OccurredAt.Format(time.RFC3339))},
		},
	}

	partition, offset, err := kep.producer.SendMessage(message)
	if err != nil {
		return fmt.Errorf("failed to send ticket event to Kafka: %w", err)
	}

	log.Printf("📤 Ticket event published - Topic: %s, Partition: %d, Offset: %d, Ticket: %s",
		kep.config.Topic, partition, offset, event.TicketID)

	return nil
}

// createHeaders creates Kafka headers for draw events
func (kep *KafkaEventProducer) createHeaders(event *DrawEvent) []sarama.RecordHeader {
	return []sarama.RecordHeader{
		{Key: []byte("event_id"), Value: []byte(event.ID.String())},
		{Key: []byte("event_type"), Value: []byte(event.Type)},
		{Key: []byte("draw_id"), Value: []byte(event.DrawID.String())},
		{Key: []byte("version"), Value: []byte("1.0")},
		{Key: []byte("producer"), Value: []byte("sorteo-draws")},
		{Key: []byte("occurred_at"), Value: []byte(event.OccurredAt.Format(time.RFC3339))},
	}
}

// Close closes the Kafka producer, flushing any in-flight messages
func (kep *KafkaEventProducer) Close() error {
	if kep.producer != nil {
		if err := kep.producer.Close(); err != nil {
			return fmt.Errorf("failed to close Kafka producer: %w", err)
		}
		log.Printf("📤 Kafka draw event producer closed")
	}
	return nil
}

// NopProducer discards events. Used when Kafka is disabled so the draw
// state machine never has to care whether a broker is configured.
type NopProducer struct{}

func NewNopProducer() EventProducer {
	return &NopProducer{}
}

func (NopProducer) PublishDrawEvent(ctx context.Context, event *DrawEvent) error {
	return nil
}

func (NopProducer) PublishTicketEvent(ctx context.Context, event *TicketEvent) error {
	return nil
}

func (NopProducer) Close() error {
	return nil
}
