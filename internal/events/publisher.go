package events

import (
	"context"

	"github.com/gameplatform/role-service/internal/events/kafka"
	"github.com/gameplatform/role-service/internal/utils/metrics"
)

// KafkaPublisher forwards committed role events to Kafka as
// CloudEvents, one message per operation keyed by role ID.
type KafkaPublisher struct {
	producer CloudEventProducer
	topic    string
}

// NewKafkaPublisher creates a new instance of KafkaPublisher.
func NewKafkaPublisher(producer CloudEventProducer, topic string) *KafkaPublisher {
	if topic == "" {
		topic = kafka.RoleEventsTopic
	}
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) HandlePost(ctx context.Context, event RoleEvent) error {
	eventType := kafka.EventType("com.gameplatform." + string(event.Operation))
	var subject *string
	if event.RoleID != "" {
		subject = &event.RoleID
	}
	err := p.producer.PublishCloudEvent(ctx, p.topic, eventType, subject, nil, event)
	status := "success"
	if err != nil {
		status = "failure"
	}
	metrics.EventsPublishedTotal.WithLabelValues(string(event.Operation), status).Inc()
	return err
}

var _ PostPublisher = (*KafkaPublisher)(nil)
