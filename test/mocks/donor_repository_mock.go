package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/blood-link/request-matching-service/internal/core/domain"
	"github.com/blood-link/request-matching-service/internal/core/ports"
)

// MockDonorRepository implements ports.DonorRepository in memory.
type MockDonorRepository struct {
	mu sync.Mutex

	donors map[string]*domain.Donor

	// Call tracking for verification
	ListByTypesCalls [][]domain.BloodType

	// Error injection for testing error scenarios
	FindByIDError    error
	ListByTypesError error
}

var _ ports.DonorRepository = (*MockDonorRepository)(nil)

func NewMockDonorRepository() *MockDonorRepository {
	return &MockDonorRepository{
		donors: make(map[string]*domain.Donor),
	}
}

// SeedDonor adds a donor to the mock repository for test setup.
func (m *MockDonorRepository) SeedDonor(donor domain.Donor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := donor
	m.donors[donor.ID] = &clone
}

func (m *MockDonorRepository) FindByID(ctx context.Context, id string) (*domain.Donor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FindByIDError != nil {
		return nil, m.FindByIDError
	}

	donor, ok := m.donors[id]
	if !ok {
		return nil, domain.ErrDonorNotFound
	}
	clone := *donor
	return &clone, nil
}

func (m *MockDonorRepository) ListUsableByBloodTypes(ctx context.Context, types []domain.BloodType, limit int) ([]domain.Donor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ListByTypesCalls = append(m.ListByTypesCalls, types)

	if m.ListByTypesError != nil {
		return nil, m.ListByTypesError
	}

	inSet := make(map[domain.BloodType]bool, len(types))
	for _, t := range types {
		inSet[t] = true
	}

	var out []domain.Donor
	for _, donor := range m.donors {
		if donor.IsUsable() && inSet[donor.BloodType] {
			out = append(out, *donor)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].TotalDonations > out[j].TotalDonations
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Reset clears all stored data and call tracking.
func (m *MockDonorRepository) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.donors = make(map[string]*domain.Donor)
	m.ListByTypesCalls = nil
	m.FindByIDError = nil
	m.ListByTypesError = nil
}
