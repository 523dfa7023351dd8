package services_test

import (
	"context"
	"testing"

	"github.com/blood-link/request-matching-service/internal/core/domain"
	"github.com/blood-link/request-matching-service/internal/core/services"
	"github.com/blood-link/request-matching-service/test/mocks"
)

func matchRequest(bt domain.BloodType) *domain.BloodRequest {
	return &domain.BloodRequest{ID: "req-1", BloodType: bt, Status: domain.StatusActive}
}

func TestFindCandidates_FiltersByCompatibilityAndUsability(t *testing.T) {
	donors := mocks.NewMockDonorRepository()
	donors.SeedDonor(domain.Donor{ID: "d1", BloodType: domain.ONegative, Active: true, Available: true, TotalDonations: 3})
	donors.SeedDonor(domain.Donor{ID: "d2", BloodType: domain.APositive, Active: true, Available: true, TotalDonations: 7})
	donors.SeedDonor(domain.Donor{ID: "d3", BloodType: domain.BPositive, Active: true, Available: true})
	donors.SeedDonor(domain.Donor{ID: "d4", BloodType: domain.ONegative, Active: false, Available: true})
	donors.SeedDonor(domain.Donor{ID: "d5", BloodType: domain.APositive, Active: true, Available: false})

	service := services.NewMatchService(donors, nil)

	candidates, err := service.FindCandidates(context.Background(), matchRequest(domain.APositive))
	if err != nil {
		t.Fatalf("FindCandidates failed: %v", err)
	}

	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}
	// Tiebreak: most donations first.
	if candidates[0].ID != "d2" || candidates[1].ID != "d1" {
		t.Errorf("unexpected candidate order: %s, %s", candidates[0].ID, candidates[1].ID)
	}
}

// TestFindCandidates_EmptyPoolIsNotAnError: no matching donors is a normal
// outcome.
func TestFindCandidates_EmptyPoolIsNotAnError(t *testing.T) {
	donors := mocks.NewMockDonorRepository()
	service := services.NewMatchService(donors, nil)

	candidates, err := service.FindCandidates(context.Background(), matchRequest(domain.ONegative))
	if err != nil {
		t.Fatalf("FindCandidates failed: %v", err)
	}
	if len(candidates) != 0 {
		t.Fatalf("expected no candidates, got %d", len(candidates))
	}
}

func TestFindCandidates_CachesResult(t *testing.T) {
	donors := mocks.NewMockDonorRepository()
	donors.SeedDonor(domain.Donor{ID: "d1", BloodType: domain.ONegative, Active: true, Available: true})
	cache := mocks.NewMockRedisClient()

	service := services.NewMatchService(donors, cache)
	ctx := context.Background()

	if _, err := service.FindCandidates(ctx, matchRequest(domain.APositive)); err != nil {
		t.Fatalf("first lookup failed: %v", err)
	}
	if !cache.HasKey("match:donors:A+") {
		t.Fatal("expected candidates to be cached")
	}

	// Second lookup is served from the cache.
	if _, err := service.FindCandidates(ctx, matchRequest(domain.APositive)); err != nil {
		t.Fatalf("second lookup failed: %v", err)
	}
	if got := len(donors.ListByTypesCalls); got != 1 {
		t.Errorf("expected 1 repository query, got %d", got)
	}
}

func TestFindCandidates_CacheFailureFallsThrough(t *testing.T) {
	donors := mocks.NewMockDonorRepository()
	donors.SeedDonor(domain.Donor{ID: "d1", BloodType: domain.ONegative, Active: true, Available: true})
	cache := mocks.NewMockRedisClient()
	cache.GetError = context.DeadlineExceeded
	cache.SetError = context.DeadlineExceeded

	service := services.NewMatchService(donors, cache)

	candidates, err := service.FindCandidates(context.Background(), matchRequest(domain.APositive))
	if err != nil {
		t.Fatalf("cache failure must not fail the lookup: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate from the database, got %d", len(candidates))
	}
}

func TestFindCandidates_CorruptCacheEntryIsDropped(t *testing.T) {
	donors := mocks.NewMockDonorRepository()
	donors.SeedDonor(domain.Donor{ID: "d1", BloodType: domain.ONegative, Active: true, Available: true})
	cache := mocks.NewMockRedisClient()
	cache.SetKey("match:donors:A+", "{not json", 0)

	service := services.NewMatchService(donors, cache)

	candidates, err := service.FindCandidates(context.Background(), matchRequest(domain.APositive))
	if err != nil {
		t.Fatalf("FindCandidates failed: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}
}
