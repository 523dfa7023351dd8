// Package mocks provides mock implementations of port interfaces for testing.
// In hexagonal architecture, ports define the contracts between the core domain
// and external adapters. Mocks implement these interfaces to enable isolated testing.
package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/blood-link/request-matching-service/internal/core/domain"
	"github.com/blood-link/request-matching-service/internal/core/ports"
)

// MockRequestRepository implements ports.RequestRepository in memory.
// It enforces the same atomicity rules as the SQL adapter (one response per
// (request, donor), compare-and-set status transitions) so service tests
// exercise the real race semantics.
type MockRequestRepository struct {
	mu sync.Mutex

	requests map[string]*domain.BloodRequest

	// Now overrides the clock used by listing queries. Defaults to
	// time.Now, matching the SQL adapter's NOW() filters.
	Now func() time.Time

	// Call tracking for verification
	CreateCalls      []string
	AddResponseCalls []string
	FulfilledCalls   []string
	CancelledCalls   []string
	ExpireDueCalls   []time.Time

	// Error injection for testing error scenarios
	CreateError      error
	FindByIDError    error
	AddResponseError error
	FulfilledError   error
	CancelledError   error
	ExpireDueError   error
	ListError        error
}

var _ ports.RequestRepository = (*MockRequestRepository)(nil)

func NewMockRequestRepository() *MockRequestRepository {
	return &MockRequestRepository{
		requests: make(map[string]*domain.BloodRequest),
	}
}

// SeedRequest adds a request to the mock repository for test setup.
func (m *MockRequestRepository) SeedRequest(req domain.BloodRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := req
	clone.Responses = append([]domain.Response(nil), req.Responses...)
	m.requests[req.ID] = &clone
}

func (m *MockRequestRepository) Create(ctx context.Context, req domain.BloodRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CreateCalls = append(m.CreateCalls, req.ID)

	if m.CreateError != nil {
		return m.CreateError
	}

	clone := req
	clone.Responses = append([]domain.Response(nil), req.Responses...)
	m.requests[req.ID] = &clone
	return nil
}

func (m *MockRequestRepository) FindByID(ctx context.Context, id string) (*domain.BloodRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FindByIDError != nil {
		return nil, m.FindByIDError
	}

	req, ok := m.requests[id]
	if !ok {
		return nil, domain.ErrRequestNotFound
	}
	clone := *req
	clone.Responses = append([]domain.Response(nil), req.Responses...)
	return &clone, nil
}

func (m *MockRequestRepository) AddResponse(ctx context.Context, requestID string, resp domain.Response) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.AddResponseCalls = append(m.AddResponseCalls, requestID)

	if m.AddResponseError != nil {
		return m.AddResponseError
	}

	req, ok := m.requests[requestID]
	if !ok {
		return domain.ErrRequestNotFound
	}
	if req.Status != domain.StatusActive || !resp.RespondedAt.Before(req.ExpiresAt) {
		return &domain.InvalidStateError{RequestID: requestID, Status: req.Status}
	}
	for _, existing := range req.Responses {
		if existing.DonorID == resp.DonorID {
			return domain.ErrDuplicateResponse
		}
	}
	req.Responses = append(req.Responses, resp)
	return nil
}

func (m *MockRequestRepository) MarkFulfilled(ctx context.Context, requestID, donorID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.FulfilledCalls = append(m.FulfilledCalls, requestID)

	if m.FulfilledError != nil {
		return m.FulfilledError
	}

	req, ok := m.requests[requestID]
	if !ok {
		return domain.ErrRequestNotFound
	}
	if req.Status != domain.StatusActive {
		return &domain.InvalidStateError{RequestID: requestID, Status: req.Status}
	}
	req.Status = domain.StatusFulfilled
	req.FulfilledBy = donorID
	fulfilledAt := at
	req.FulfilledAt = &fulfilledAt
	return nil
}

func (m *MockRequestRepository) MarkCancelled(ctx context.Context, requestID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CancelledCalls = append(m.CancelledCalls, requestID)

	if m.CancelledError != nil {
		return m.CancelledError
	}

	req, ok := m.requests[requestID]
	if !ok {
		return domain.ErrRequestNotFound
	}
	if req.Status != domain.StatusActive {
		return &domain.InvalidStateError{RequestID: requestID, Status: req.Status}
	}
	req.Status = domain.StatusCancelled
	return nil
}

func (m *MockRequestRepository) ExpireDue(ctx context.Context, now time.Time) ([]domain.BloodRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ExpireDueCalls = append(m.ExpireDueCalls, now)

	if m.ExpireDueError != nil {
		return nil, m.ExpireDueError
	}

	var expired []domain.BloodRequest
	for _, req := range m.requests {
		if req.Status == domain.StatusActive && !req.ExpiresAt.After(now) {
			req.Status = domain.StatusExpired
			expired = append(expired, *req)
		}
	}
	return expired, nil
}

func (m *MockRequestRepository) ListByRequester(ctx context.Context, requesterID string) ([]domain.BloodRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ListError != nil {
		return nil, m.ListError
	}

	var out []domain.BloodRequest
	for _, req := range m.requests {
		if req.RequestedBy == requesterID {
			out = append(out, *req)
		}
	}
	return out, nil
}

func (m *MockRequestRepository) List(ctx context.Context, f domain.RequestFilter) ([]domain.BloodRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ListError != nil {
		return nil, m.ListError
	}

	var out []domain.BloodRequest
	for _, req := range m.requests {
		if f.BloodType != "" && req.BloodType != f.BloodType {
			continue
		}
		if f.Urgency != "" && req.Urgency != f.Urgency {
			continue
		}
		if f.Status != "" && req.Status != f.Status {
			continue
		}
		out = append(out, *req)
	}
	return out, nil
}

func (m *MockRequestRepository) ListOpenByBloodTypes(ctx context.Context, types []domain.BloodType, excludeResponder string) ([]domain.BloodRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ListError != nil {
		return nil, m.ListError
	}

	inSet := make(map[domain.BloodType]bool, len(types))
	for _, t := range types {
		inSet[t] = true
	}

	now := time.Now()
	if m.Now != nil {
		now = m.Now()
	}
	var out []domain.BloodRequest
	for _, req := range m.requests {
		if req.Status != domain.StatusActive || !inSet[req.BloodType] || !now.Before(req.ExpiresAt) {
			continue
		}
		if _, responded := req.ResponseFrom(excludeResponder); responded {
			continue
		}
		out = append(out, *req)
	}
	return out, nil
}

func (m *MockRequestRepository) ListWithResponseFrom(ctx context.Context, donorID string) ([]domain.BloodRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ListError != nil {
		return nil, m.ListError
	}

	var out []domain.BloodRequest
	for _, req := range m.requests {
		if _, responded := req.ResponseFrom(donorID); responded {
			clone := *req
			clone.Responses = append([]domain.Response(nil), req.Responses...)
			out = append(out, clone)
		}
	}
	return out, nil
}

// Stored returns the current stored state of a request (for assertions).
func (m *MockRequestRepository) Stored(id string) (domain.BloodRequest, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	req, ok := m.requests[id]
	if !ok {
		return domain.BloodRequest{}, false
	}
	clone := *req
	clone.Responses = append([]domain.Response(nil), req.Responses...)
	return clone, true
}

// Reset clears all stored data and call tracking.
// Use this between tests to ensure isolation.
func (m *MockRequestRepository) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = make(map[string]*domain.BloodRequest)
	m.CreateCalls = nil
	m.AddResponseCalls = nil
	m.FulfilledCalls = nil
	m.CancelledCalls = nil
	m.ExpireDueCalls = nil
	m.CreateError = nil
	m.FindByIDError = nil
	m.AddResponseError = nil
	m.FulfilledError = nil
	m.CancelledError = nil
	m.ExpireDueError = nil
	m.ListError = nil
}
