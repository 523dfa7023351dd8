package ports

import (
	"context"
	"time"

	"github.com/blood-link/request-matching-service/internal/core/domain"
)

// ResponseWithRequest pairs a donor's response with the request it was made
// on, for response-history views.
type ResponseWithRequest struct {
	Response domain.Response     `json:"response"`
	Request  domain.BloodRequest `json:"request"`
}

type RequestService interface {
	// Create validates, persists and returns the new request together with
	// the number of currently matching donors.
	Create(ctx context.Context, requesterID string, in domain.CreateRequestInput) (*domain.BloodRequest, int, error)

	Get(ctx context.Context, requestID string) (*domain.BloodRequest, error)
	Respond(ctx context.Context, requestID string, donor domain.Identity, notes string) (*domain.Response, error)
	AcceptDonor(ctx context.Context, requestID string, actor domain.Identity, donorID string) (*domain.BloodRequest, error)
	Cancel(ctx context.Context, requestID string, actor domain.Identity) (*domain.BloodRequest, error)

	// ExpireDue sweeps every overdue active request into the expired state
	// and returns the newly expired ones. Safe to call on any cadence.
	ExpireDue(ctx context.Context, now time.Time) ([]domain.BloodRequest, error)

	List(ctx context.Context, f domain.RequestFilter) ([]domain.BloodRequest, error)
	ListMine(ctx context.Context, requesterID string) ([]domain.BloodRequest, error)
	ListMatchingForDonor(ctx context.Context, donor domain.Identity) ([]domain.BloodRequest, error)
	ListMyResponses(ctx context.Context, donorID string) ([]ResponseWithRequest, error)
}

type MatchService interface {
	// FindCandidates returns the usable donors compatible with the
	// request's required blood type. An empty result is a normal outcome,
	// not an error.
	FindCandidates(ctx context.Context, req *domain.BloodRequest) ([]domain.Donor, error)
}
