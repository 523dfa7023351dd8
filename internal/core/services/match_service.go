package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/blood-link/request-matching-service/internal/core/domain"
	"github.com/blood-link/request-matching-service/internal/core/ports"
)

const (
	// The donor pool changes slowly relative to request traffic, so a
	// short cache keeps repeated match queries off the database.
	candidateCacheTTL = time.Minute

	// Matching donor lists are capped; beyond this the count is what
	// matters, not the tail of the list.
	maxCandidates = 50
)

type MatchService struct {
	donorRepo ports.DonorRepository
	cache     ports.Cache
}

var _ ports.MatchService = (*MatchService)(nil)

func NewMatchService(donorRepo ports.DonorRepository, cache ports.Cache) *MatchService {
	return &MatchService{
		donorRepo: donorRepo,
		cache:     cache,
	}
}

// FindCandidates returns usable donors whose blood type may donate to the
// request's required type. Cache failures fall through to the database.
func (s *MatchService) FindCandidates(ctx context.Context, req *domain.BloodRequest) ([]domain.Donor, error) {
	key := "match:donors:" + string(req.BloodType)

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, key).Result()
		if err == nil {
			var donors []domain.Donor
			if err := json.Unmarshal([]byte(cached), &donors); err == nil {
				return donors, nil
			}
			// Corrupt entry: drop it and rebuild from the database.
			s.cache.Del(ctx, key)
		} else if err != redis.Nil {
			log.Printf("match: cache read failed for %s: %v", key, err)
		}
	}

	types := domain.CompatibleDonorTypes(req.BloodType)
	donors, err := s.donorRepo.ListUsableByBloodTypes(ctx, types, maxCandidates)
	if err != nil {
		return nil, err
	}
	if donors == nil {
		donors = []domain.Donor{}
	}

	if s.cache != nil {
		if body, err := json.Marshal(donors); err == nil {
			if err := s.cache.Set(ctx, key, string(body), candidateCacheTTL).Err(); err != nil {
				log.Printf("match: cache write failed for %s: %v", key, err)
			}
		}
	}

	return donors, nil
}
