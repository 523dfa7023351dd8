package mocks

import (
	"context"
	"sync"

	"github.com/blood-link/request-matching-service/internal/core/ports"
)

// MockRequestEventPublisher implements ports.RequestEventPublisher and
// records every published event for assertions.
type MockRequestEventPublisher struct {
	mu sync.Mutex

	CreatedEvents   []ports.RequestCreatedEvent
	FulfilledEvents []ports.RequestFulfilledEvent
	ExpiredEvents   []ports.RequestsExpiredEvent

	// Error injection
	PublishError error
}

var _ ports.RequestEventPublisher = (*MockRequestEventPublisher)(nil)

func NewMockRequestEventPublisher() *MockRequestEventPublisher {
	return &MockRequestEventPublisher{}
}

func (m *MockRequestEventPublisher) PublishRequestCreated(ctx context.Context, evt ports.RequestCreatedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.PublishError != nil {
		return m.PublishError
	}
	m.CreatedEvents = append(m.CreatedEvents, evt)
	return nil
}

func (m *MockRequestEventPublisher) PublishRequestFulfilled(ctx context.Context, evt ports.RequestFulfilledEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.PublishError != nil {
		return m.PublishError
	}
	m.FulfilledEvents = append(m.FulfilledEvents, evt)
	return nil
}

func (m *MockRequestEventPublisher) PublishRequestsExpired(ctx context.Context, evt ports.RequestsExpiredEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.PublishError != nil {
		return m.PublishError
	}
	m.ExpiredEvents = append(m.ExpiredEvents, evt)
	return nil
}

// Reset clears recorded events and injected errors.
func (m *MockRequestEventPublisher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CreatedEvents = nil
	m.FulfilledEvents = nil
	m.ExpiredEvents = nil
	m.PublishError = nil
}
