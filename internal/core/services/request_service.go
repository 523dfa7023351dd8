package services

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/blood-link/request-matching-service/internal/core/domain"
	"github.com/blood-link/request-matching-service/internal/core/ports"
)

// defaultResponseNote is attached when a donor responds without a message.
const defaultResponseNote = "I am available to donate blood"

// RequestService is the lifecycle controller for blood requests: creation,
// donor responses, fulfilment, cancellation and expiry.
type RequestService struct {
	requestRepo ports.RequestRepository
	matcher     ports.MatchService
	publisher   ports.RequestEventPublisher
	now         func() time.Time
}

var _ ports.RequestService = (*RequestService)(nil)

func NewRequestService(
	requestRepo ports.RequestRepository,
	matcher ports.MatchService,
	publisher ports.RequestEventPublisher,
) *RequestService {
	return &RequestService{
		requestRepo: requestRepo,
		matcher:     matcher,
		publisher:   publisher,
		now:         time.Now,
	}
}

// WithClock overrides the service clock. Tests use this to exercise expiry
// without waiting.
func (s *RequestService) WithClock(now func() time.Time) *RequestService {
	s.now = now
	return s
}

// Create validates the input, persists an active request whose deadline is
// derived from its urgency, and returns it with the current count of
// matching donors. Notifying those donors is the event consumer's job.
func (s *RequestService) Create(ctx context.Context, requesterID string, in domain.CreateRequestInput) (*domain.BloodRequest, int, error) {
	if ve := in.Validate(); ve != nil {
		return nil, 0, ve
	}

	now := s.now()
	urgency := domain.Urgency(in.Urgency)

	req := domain.BloodRequest{
		ID:                 uuid.NewString(),
		RequestedBy:        requesterID,
		PatientName:        in.PatientName,
		BloodType:          domain.BloodType(in.BloodType),
		UnitsNeeded:        in.UnitsNeeded,
		Urgency:            urgency,
		Hospital:           in.Hospital,
		AttendingPhysician: in.AttendingPhysician,
		ContactPhone:       in.ContactPhone,
		MedicalReason:      in.MedicalReason,
		Status:             domain.StatusActive,
		Responses:          []domain.Response{},
		CreatedAt:          now,
		ExpiresAt:          now.Add(urgency.TTL()),
	}

	if err := s.requestRepo.Create(ctx, req); err != nil {
		return nil, 0, err
	}

	candidates, err := s.matcher.FindCandidates(ctx, &req)
	if err != nil {
		// The request is already persisted; a failed match count is
		// informational and must not fail the creation.
		log.Printf("request: match lookup failed for %s: %v", req.ID, err)
		candidates = nil
	}

	s.publishCreated(ctx, &req, len(candidates))

	return &req, len(candidates), nil
}

func (s *RequestService) Get(ctx context.Context, requestID string) (*domain.BloodRequest, error) {
	return s.requestRepo.FindByID(ctx, requestID)
}

// Respond records a donor's interest in a request. The compatibility check
// runs here even though matching already filtered the donor list: respond
// must be safe against any caller, not just the UI.
func (s *RequestService) Respond(ctx context.Context, requestID string, donor domain.Identity, notes string) (*domain.Response, error) {
	req, err := s.requestRepo.FindByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if !req.IsOpenAt(s.now()) {
		return nil, s.closedStateError(req)
	}

	if _, ok := req.ResponseFrom(donor.UserID); ok {
		return nil, domain.ErrDuplicateResponse
	}

	if !domain.CanDonate(donor.BloodType, req.BloodType) {
		return nil, &domain.IncompatibleBloodTypeError{
			DonorType:    donor.BloodType,
			RequiredType: req.BloodType,
		}
	}

	if notes == "" {
		notes = defaultResponseNote
	}

	resp := domain.Response{
		DonorID:     donor.UserID,
		RespondedAt: s.now(),
		Status:      domain.ResponseInterested,
		Notes:       notes,
	}

	// The repository enforces the one-response-per-donor rule atomically;
	// the read-side check above only exists for a friendlier fast path.
	if err := s.requestRepo.AddResponse(ctx, requestID, resp); err != nil {
		return nil, err
	}

	return &resp, nil
}

// AcceptDonor lets the request owner (or an admin) select a responding donor
// and close the request as fulfilled. The transition is terminal.
func (s *RequestService) AcceptDonor(ctx context.Context, requestID string, actor domain.Identity, donorID string) (*domain.BloodRequest, error) {
	req, err := s.requestRepo.FindByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if err := authorizeOwner(req, actor); err != nil {
		return nil, err
	}

	if !req.IsOpenAt(s.now()) {
		return nil, s.closedStateError(req)
	}

	if _, ok := req.ResponseFrom(donorID); !ok {
		return nil, domain.ErrNotAResponder
	}

	fulfilledAt := s.now()
	// Compare-and-set in the repository: concurrent accepts race here and
	// exactly one wins, the rest see InvalidStateError.
	if err := s.requestRepo.MarkFulfilled(ctx, requestID, donorID, fulfilledAt); err != nil {
		return nil, err
	}

	req.Status = domain.StatusFulfilled
	req.FulfilledBy = donorID
	req.FulfilledAt = &fulfilledAt

	if s.publisher != nil {
		if err := s.publisher.PublishRequestFulfilled(ctx, ports.RequestFulfilledEvent{
			RequestID: requestID,
			DonorID:   donorID,
		}); err != nil {
			log.Printf("request: publish fulfilled event for %s: %v", requestID, err)
		}
	}

	return req, nil
}

// Cancel closes an active request without selecting a donor. Owner or admin
// only; terminal.
func (s *RequestService) Cancel(ctx context.Context, requestID string, actor domain.Identity) (*domain.BloodRequest, error) {
	req, err := s.requestRepo.FindByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if err := authorizeOwner(req, actor); err != nil {
		return nil, err
	}

	if !req.IsOpenAt(s.now()) {
		return nil, s.closedStateError(req)
	}

	if err := s.requestRepo.MarkCancelled(ctx, requestID); err != nil {
		return nil, err
	}

	req.Status = domain.StatusCancelled
	return req, nil
}

// ExpireDue transitions every overdue active request to expired and returns
// the newly expired requests. Idempotent: a second sweep with no new
// requests returns nothing.
func (s *RequestService) ExpireDue(ctx context.Context, now time.Time) ([]domain.BloodRequest, error) {
	expired, err := s.requestRepo.ExpireDue(ctx, now)
	if err != nil {
		return nil, err
	}

	if len(expired) > 0 && s.publisher != nil {
		ids := make([]string, len(expired))
		for i, req := range expired {
			ids[i] = req.ID
		}
		if err := s.publisher.PublishRequestsExpired(ctx, ports.RequestsExpiredEvent{RequestIDs: ids}); err != nil {
			log.Printf("request: publish expired event: %v", err)
		}
	}

	return expired, nil
}

// List returns requests matching the filter, for the browse view.
func (s *RequestService) List(ctx context.Context, f domain.RequestFilter) ([]domain.BloodRequest, error) {
	if ve := f.Validate(); ve != nil {
		return nil, ve
	}
	return s.requestRepo.List(ctx, f)
}

func (s *RequestService) ListMine(ctx context.Context, requesterID string) ([]domain.BloodRequest, error) {
	return s.requestRepo.ListByRequester(ctx, requesterID)
}

// ListMatchingForDonor returns the active requests this donor could fulfil,
// excluding ones already responded to.
func (s *RequestService) ListMatchingForDonor(ctx context.Context, donor domain.Identity) ([]domain.BloodRequest, error) {
	types := domain.DonatableTypes(donor.BloodType)
	return s.requestRepo.ListOpenByBloodTypes(ctx, types, donor.UserID)
}

// ListMyResponses returns the donor's responses joined with the requests
// they were made on.
func (s *RequestService) ListMyResponses(ctx context.Context, donorID string) ([]ports.ResponseWithRequest, error) {
	requests, err := s.requestRepo.ListWithResponseFrom(ctx, donorID)
	if err != nil {
		return nil, err
	}

	history := make([]ports.ResponseWithRequest, 0, len(requests))
	for _, req := range requests {
		if resp, ok := req.ResponseFrom(donorID); ok {
			history = append(history, ports.ResponseWithRequest{
				Response: *resp,
				Request:  req,
			})
		}
	}
	return history, nil
}

// closedStateError reports the effective status of a request that no longer
// accepts operations. A request past its deadline is reported as expired
// even if the sweep has not stored that transition yet.
func (s *RequestService) closedStateError(req *domain.BloodRequest) error {
	status := req.Status
	if status == domain.StatusActive && !s.now().Before(req.ExpiresAt) {
		status = domain.StatusExpired
	}
	return &domain.InvalidStateError{RequestID: req.ID, Status: status}
}

func authorizeOwner(req *domain.BloodRequest, actor domain.Identity) error {
	if actor.UserID != req.RequestedBy && !actor.IsAdmin() {
		return domain.ErrNotRequestOwner
	}
	return nil
}

func (s *RequestService) publishCreated(ctx context.Context, req *domain.BloodRequest, matchCount int) {
	if s.publisher == nil {
		return
	}
	evt := ports.RequestCreatedEvent{
		RequestID:          req.ID,
		BloodType:          req.BloodType,
		Urgency:            req.Urgency,
		CompatibleTypes:    domain.CompatibleDonorTypes(req.BloodType),
		MatchingDonorCount: matchCount,
	}
	if err := s.publisher.PublishRequestCreated(ctx, evt); err != nil {
		log.Printf("request: publish created event for %s: %v", req.ID, err)
	}
}
