package ports

import (
	"context"
	"time"

	"github.com/blood-link/request-matching-service/internal/core/domain"
)

type RequestRepository interface {
	Create(ctx context.Context, req domain.BloodRequest) error
	FindByID(ctx context.Context, id string) (*domain.BloodRequest, error)

	// AddResponse appends a response to a request. The duplicate check must
	// be atomic: two concurrent calls for the same (request, donor) pair
	// persist exactly one response, the loser gets
	// domain.ErrDuplicateResponse.
	AddResponse(ctx context.Context, requestID string, resp domain.Response) error

	// MarkFulfilled transitions active -> fulfilled only if the request is
	// still active at commit time; returns domain.InvalidStateError
	// otherwise so concurrent accepts have exactly one winner.
	MarkFulfilled(ctx context.Context, requestID, donorID string, at time.Time) error

	// MarkCancelled transitions active -> cancelled under the same
	// compare-and-set rule as MarkFulfilled.
	MarkCancelled(ctx context.Context, requestID string) error

	// ExpireDue transitions every active request whose deadline has passed
	// to expired and returns the newly expired requests. Requests already
	// in a terminal state are untouched, so a second sweep is a no-op.
	ExpireDue(ctx context.Context, now time.Time) ([]domain.BloodRequest, error)

	ListByRequester(ctx context.Context, requesterID string) ([]domain.BloodRequest, error)

	// List returns requests matching the filter, most urgent and newest
	// first. An empty filter matches everything.
	List(ctx context.Context, f domain.RequestFilter) ([]domain.BloodRequest, error)

	// ListOpenByBloodTypes returns active requests whose required type is
	// in the given set, excluding requests the donor already responded to.
	ListOpenByBloodTypes(ctx context.Context, types []domain.BloodType, excludeResponder string) ([]domain.BloodRequest, error)

	// ListWithResponseFrom returns every request carrying a response from
	// the donor, for response-history views.
	ListWithResponseFrom(ctx context.Context, donorID string) ([]domain.BloodRequest, error)
}

type DonorRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Donor, error)

	// ListUsableByBloodTypes returns active, available donors whose blood
	// type is in the given set, ordered by total donations descending.
	ListUsableByBloodTypes(ctx context.Context, types []domain.BloodType, limit int) ([]domain.Donor, error)
}
