package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/blood-link/request-matching-service/internal/adapters/handler"
	"github.com/blood-link/request-matching-service/internal/adapters/middleware"
	"github.com/blood-link/request-matching-service/internal/core/domain"
	"github.com/blood-link/request-matching-service/internal/core/ports"
)

// stubRequestService lets each test script the service outcome and checks
// only the HTTP mapping.
type stubRequestService struct {
	ports.RequestService

	respondErr error
	acceptErr  error
	createErr  error
}

func (s *stubRequestService) Create(ctx context.Context, requesterID string, in domain.CreateRequestInput) (*domain.BloodRequest, int, error) {
	if s.createErr != nil {
		return nil, 0, s.createErr
	}
	return &domain.BloodRequest{ID: "req-1", RequestedBy: requesterID, Status: domain.StatusActive}, 3, nil
}

func (s *stubRequestService) Respond(ctx context.Context, requestID string, donor domain.Identity, notes string) (*domain.Response, error) {
	if s.respondErr != nil {
		return nil, s.respondErr
	}
	return &domain.Response{DonorID: donor.UserID, Status: domain.ResponseInterested, RespondedAt: time.Now()}, nil
}

func (s *stubRequestService) AcceptDonor(ctx context.Context, requestID string, actor domain.Identity, donorID string) (*domain.BloodRequest, error) {
	if s.acceptErr != nil {
		return nil, s.acceptErr
	}
	return &domain.BloodRequest{ID: requestID, Status: domain.StatusFulfilled, FulfilledBy: donorID}, nil
}

func authedRequest(method, target string, body any, identity domain.Identity) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	return req.WithContext(middleware.WithIdentity(req.Context(), identity))
}

func donorID() domain.Identity {
	return domain.Identity{UserID: "donor-1", Role: domain.RoleDonor, BloodType: domain.ONegative}
}

func TestRespond_StatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		serviceErr error
		wantStatus int
	}{
		{
			name:       "recorded",
			serviceErr: nil,
			wantStatus: http.StatusCreated,
		},
		{
			name:       "request_not_found",
			serviceErr: domain.ErrRequestNotFound,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "request_closed",
			serviceErr: &domain.InvalidStateError{RequestID: "req-1", Status: domain.StatusFulfilled},
			wantStatus: http.StatusConflict,
		},
		{
			name:       "duplicate_response",
			serviceErr: domain.ErrDuplicateResponse,
			wantStatus: http.StatusConflict,
		},
		{
			name:       "incompatible_blood_type",
			serviceErr: &domain.IncompatibleBloodTypeError{DonorType: domain.APositive, RequiredType: domain.OPositive},
			wantStatus: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handler.NewRequestHandler(&stubRequestService{respondErr: tt.serviceErr})

			req := authedRequest(http.MethodPost, "/requests/req-1/respond", map[string]string{"notes": "hi"}, donorID())
			req.SetPathValue("id", "req-1")
			rec := httptest.NewRecorder()

			h.Respond(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body: %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestRespond_EmptyBodyIsAllowed(t *testing.T) {
	h := handler.NewRequestHandler(&stubRequestService{})

	req := authedRequest(http.MethodPost, "/requests/req-1/respond", nil, donorID())
	req.SetPathValue("id", "req-1")
	rec := httptest.NewRecorder()

	h.Respond(rec, req)

	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d (body: %s)", rec.Code, http.StatusCreated, rec.Body.String())
	}
}

func TestUpdateStatus_Mapping(t *testing.T) {
	owner := domain.Identity{UserID: "recipient-1", Role: domain.RoleRecipient}

	tests := []struct {
		name       string
		body       map[string]string
		serviceErr error
		wantStatus int
	}{
		{
			name:       "fulfil_success",
			body:       map[string]string{"status": "fulfilled", "fulfilled_by": "donor-1"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "fulfil_requires_donor",
			body:       map[string]string{"status": "fulfilled"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unsupported_target_state",
			body:       map[string]string{"status": "expired"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "not_owner",
			body:       map[string]string{"status": "fulfilled", "fulfilled_by": "donor-1"},
			serviceErr: domain.ErrNotRequestOwner,
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "not_a_responder",
			body:       map[string]string{"status": "fulfilled", "fulfilled_by": "donor-9"},
			serviceErr: domain.ErrNotAResponder,
			wantStatus: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handler.NewRequestHandler(&stubRequestService{acceptErr: tt.serviceErr})

			req := authedRequest(http.MethodPatch, "/requests/req-1/status", tt.body, owner)
			req.SetPathValue("id", "req-1")
			rec := httptest.NewRecorder()

			h.UpdateStatus(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body: %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestCreate_ValidationErrorListsFields(t *testing.T) {
	ve := &domain.ValidationError{}
	ve.Add("patient_name", "patient name is required")
	ve.Add("blood_type", "blood type is required")

	h := handler.NewRequestHandler(&stubRequestService{createErr: ve})

	owner := domain.Identity{UserID: "recipient-1", Role: domain.RoleRecipient}
	req := authedRequest(http.MethodPost, "/requests", map[string]any{}, owner)
	rec := httptest.NewRecorder()

	h.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	var body struct {
		Errors []domain.FieldError `json:"errors"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if len(body.Errors) != 2 {
		t.Errorf("expected both field errors in the payload, got %v", body.Errors)
	}
}

func TestCreate_ReturnsMatchingDonorCount(t *testing.T) {
	h := handler.NewRequestHandler(&stubRequestService{})

	owner := domain.Identity{UserID: "recipient-1", Role: domain.RoleRecipient}
	req := authedRequest(http.MethodPost, "/requests", map[string]any{"patient_name": "x"}, owner)
	rec := httptest.NewRecorder()

	h.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d (body: %s)", rec.Code, http.StatusCreated, rec.Body.String())
	}

	var body struct {
		MatchingDonors int `json:"matching_donors"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.MatchingDonors != 3 {
		t.Errorf("matching_donors = %d, want 3", body.MatchingDonors)
	}
}

func TestUnauthenticatedRequestIsRejected(t *testing.T) {
	h := handler.NewRequestHandler(&stubRequestService{})

	req := httptest.NewRequest(http.MethodPost, "/requests", bytes.NewBufferString("{}"))
	rec := httptest.NewRecorder()

	h.Create(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}
