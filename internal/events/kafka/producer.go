package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Shopify/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CloudEvent defines the structure for CloudEvents v1.0.
type CloudEvent struct {
	SpecVersion     string                 `json:"specversion"`
	Type            string                 `json:"type"`
	Source          string                 `json:"source"`
	Subject         *string                `json:"subject,omitempty"`
	ID              string                 `json:"id"`
	Time            time.Time              `json:"time"`
	DataContentType *string                `json:"datacontenttype,omitempty"`
	Data            interface{}            `json:"data,omitempty"`
	Extensions      map[string]interface{} `json:"extensions,omitempty"`
}

// EventType is a string alias for event types.
type EventType string

// Constants for CloudEvent fields
const (
	CloudEventSpecVersion     = "1.0"
	CloudEventDataContentType = "application/json"
)

// Producer sends CloudEvents to Kafka through a synchronous, idempotent
// sarama producer.
type Producer struct {
	producer sarama.SyncProducer
	logger   *zap.Logger
	source   string // Default source for CloudEvents from this producer
}

// NewProducer creates a new Kafka producer.
// cloudEventSource should be a URN or path identifying the service, e.g., "/role-service".
func NewProducer(brokers []string, logger *zap.Logger, cloudEventSource string) (*Producer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Flush.Frequency = 500 * time.Millisecond
	config.Producer.Idempotent = true // Requires Kafka >= 0.11 & broker-side settings
	config.Net.MaxOpenRequests = 1    // For idempotent producer, limit inflight messages

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	return &Producer{
		producer: producer,
		logger:   logger,
		source:   cloudEventSource,
	}, nil
}

// PublishCloudEvent constructs a CloudEvent and sends it to the specified Kafka topic.
// - topic: The Kafka topic to publish to.
// - eventType: The CloudEvents type string (e.g., "com.gameplatform.role.create").
// - subject: An optional subject for the CloudEvent (e.g., role ID). Can be nil.
// - dataContentType: The content type of the data payload (e.g., "application/json").
// - dataPayload: The actual event data struct.
func (p *Producer) PublishCloudEvent(ctx context.Context, topic string, eventType EventType, subject *string, dataContentType *string, dataPayload interface{}) error {
	eventID, err := uuid.NewRandom()
	if err != nil {
		p.logger.Error("Failed to generate CloudEvent ID", zap.Error(err))
		return fmt.Errorf("failed to generate CloudEvent ID: %w", err)
	}

	actualDataContentType := CloudEventDataContentType // Default
	if dataContentType != nil && *dataContentType != "" {
		actualDataContentType = *dataContentType
	}

	cloudEvent := CloudEvent{
		SpecVersion:     CloudEventSpecVersion,
		ID:              eventID.String(),
		Source:          p.source,
		Type:            string(eventType),
		DataContentType: &actualDataContentType,
		Subject:         subject,
		Time:            time.Now().UTC(),
		Data:            dataPayload,
	}

	eventJSON, err := json.Marshal(cloudEvent)
	if err != nil {
		p.logger.Error("Failed to marshal CloudEvent to JSON",
			zap.Error(err), zap.String("event_type", string(eventType)), zap.String("event_id", cloudEvent.ID))
		return fmt.Errorf("failed to marshal CloudEvent to JSON: %w", err)
	}

	var messageKey sarama.Encoder
	if subject != nil && *subject != "" { // Use subject for partitioning if available and meaningful
		messageKey = sarama.StringEncoder(*subject)
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.ByteEncoder(eventJSON),
		Key:   messageKey,
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.logger.Error("Failed to send CloudEvent to Kafka",
			zap.Error(err),
			zap.String("topic", topic),
			zap.String("event_type", string(eventType)),
			zap.String("event_id", cloudEvent.ID),
		)
		return fmt.Errorf("failed to send CloudEvent to Kafka: %w", err)
	}

	p.logger.Info("CloudEvent sent to Kafka",
		zap.String("topic", topic),
		zap.String("event_type", string(eventType)),
		zap.String("event_id", cloudEvent.ID),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
	)

	return nil
}

// Close shuts the underlying sarama producer down.
func (p *Producer) Close() error {
	if err := p.producer.Close(); err != nil {
		p.logger.Error("Failed to close Kafka producer", zap.Error(err))
		return fmt.Errorf("failed to close Kafka producer: %w", err)
	}
	p.logger.Info("Kafka producer closed successfully")
	return nil
}
