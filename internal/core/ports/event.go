package ports

import (
	"context"

	"github.com/blood-link/request-matching-service/internal/core/domain"
)

// RequestCreatedEvent notifies the surrounding notification/chat system that
// a new request is live. Delivery to matched donors is that system's job.
type RequestCreatedEvent struct {
	RequestID          string             `json:"request_id"`
	BloodType          domain.BloodType   `json:"blood_type"`
	Urgency            domain.Urgency     `json:"urgency"`
	CompatibleTypes    []domain.BloodType `json:"compatible_types"`
	MatchingDonorCount int                `json:"matching_donor_count"`
}

type RequestFulfilledEvent struct {
	RequestID string `json:"request_id"`
	DonorID   string `json:"donor_id"`
}

type RequestsExpiredEvent struct {
	RequestIDs []string `json:"request_ids"`
}

type RequestEventPublisher interface {
	PublishRequestCreated(ctx context.Context, evt RequestCreatedEvent) error
	PublishRequestFulfilled(ctx context.Context, evt RequestFulfilledEvent) error
	PublishRequestsExpired(ctx context.Context, evt RequestsExpiredEvent) error
}
