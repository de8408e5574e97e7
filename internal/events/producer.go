package events

import (
	"context"

	"github.com/gameplatform/role-service/internal/events/kafka"
)

// CloudEventProducer is the sink abstraction the Kafka publisher writes
// through. Satisfied by kafka.Producer and mocked in tests.
type CloudEventProducer interface {
	PublishCloudEvent(ctx context.Context, topic string, eventType kafka.EventType, subject *string, dataContentType *string, dataPayload interface{}) error
	Close() error
}

var _ CloudEventProducer = (*kafka.Producer)(nil)
