package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	kafka "github.com/gameplatform/role-service/internal/events/kafka"
)

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) PublishCloudEvent(ctx context.Context, topic string, eventType kafka.EventType, subject *string, dataContentType *string, dataPayload interface{}) error {
	args := m.Called(ctx, topic, eventType, subject, dataContentType, dataPayload)
	return args.Error(0)
}

func (m *MockProducer) Close() error {
	args := m.Called()
	return args.Error(0)
}
