package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/blood-link/request-matching-service/internal/adapters/metrics"
	"github.com/blood-link/request-matching-service/internal/adapters/middleware"
	"github.com/blood-link/request-matching-service/internal/core/domain"
	"github.com/blood-link/request-matching-service/internal/core/ports"
)

type RequestHandler struct {
	requestService ports.RequestService
}

func NewRequestHandler(requestService ports.RequestService) *RequestHandler {
	return &RequestHandler{requestService: requestService}
}

type createRequestResponse struct {
	Message       string               `json:"message"`
	Request       *domain.BloodRequest `json:"request"`
	MatchingDonor int                  `json:"matching_donors"`
}

// Create handles POST /requests.
func (h *RequestHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	var in domain.CreateRequestInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid request payload", http.StatusBadRequest)
		return
	}

	req, matching, err := h.requestService.Create(r.Context(), identity.UserID, in)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	metrics.RequestsCreated.Inc()

	writeJSON(w, http.StatusCreated, createRequestResponse{
		Message:       "Blood request created successfully",
		Request:       req,
		MatchingDonor: matching,
	})
}

// Get handles GET /requests/{id}.
func (h *RequestHandler) Get(w http.ResponseWriter, r *http.Request) {
	req, err := h.requestService.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"request": req})
}

type respondRequest struct {
	Notes string `json:"notes"`
}

// Respond handles POST /requests/{id}/respond (donor interest).
func (h *RequestHandler) Respond(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	// The notes body is optional; an empty body means no notes.
	var body respondRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "invalid request payload", http.StatusBadRequest)
		return
	}

	resp, err := h.requestService.Respond(r.Context(), r.PathValue("id"), identity, body.Notes)
	if err != nil {
		metrics.ResponsesRecorded.WithLabelValues(responseResult(err)).Inc()
		writeDomainError(w, err)
		return
	}

	metrics.ResponsesRecorded.WithLabelValues("recorded").Inc()

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":  "Response recorded successfully! The requester will contact you soon.",
		"response": resp,
	})
}

type updateStatusRequest struct {
	Status      string `json:"status"`
	FulfilledBy string `json:"fulfilled_by"`
}

// UpdateStatus handles PATCH /requests/{id}/status: the owner (or an admin)
// closes the request as fulfilled or cancelled.
func (h *RequestHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	var body updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request payload", http.StatusBadRequest)
		return
	}

	var req *domain.BloodRequest
	var err error

	switch domain.RequestStatus(body.Status) {
	case domain.StatusFulfilled:
		if body.FulfilledBy == "" {
			http.Error(w, "fulfilled_by is required to fulfil a request", http.StatusBadRequest)
			return
		}
		req, err = h.requestService.AcceptDonor(r.Context(), r.PathValue("id"), identity, body.FulfilledBy)
		if err == nil {
			metrics.RequestsFulfilled.Inc()
		}
	case domain.StatusCancelled:
		req, err = h.requestService.Cancel(r.Context(), r.PathValue("id"), identity)
		if err == nil {
			metrics.RequestsCancelled.Inc()
		}
	default:
		http.Error(w, "status must be fulfilled or cancelled", http.StatusBadRequest)
		return
	}

	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Request status updated successfully",
		"request": req,
	})
}

// List handles GET /requests: the browse view, optionally narrowed by
// blood_type, urgency and status query parameters.
func (h *RequestHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.RequestFilter{
		BloodType: domain.BloodType(q.Get("blood_type")),
		Urgency:   domain.Urgency(q.Get("urgency")),
		Status:    domain.RequestStatus(q.Get("status")),
	}

	requests, err := h.requestService.List(r.Context(), filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if requests == nil {
		requests = []domain.BloodRequest{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"requests": requests})
}

// ListMine handles GET /requests/mine (requester's own requests).
func (h *RequestHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	requests, err := h.requestService.ListMine(r.Context(), identity.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if requests == nil {
		requests = []domain.BloodRequest{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"requests": requests})
}

// ListMatching handles GET /requests/matching: active requests the donor
// could fulfil, excluding ones already responded to.
func (h *RequestHandler) ListMatching(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	requests, err := h.requestService.ListMatchingForDonor(r.Context(), identity)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if requests == nil {
		requests = []domain.BloodRequest{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"requests":         requests,
		"donor_blood_type": identity.BloodType,
		"compatible_types": domain.DonatableTypes(identity.BloodType),
	})
}

// ListMyResponses handles GET /requests/responses (donor response history).
func (h *RequestHandler) ListMyResponses(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	responses, err := h.requestService.ListMyResponses(r.Context(), identity.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if responses == nil {
		responses = []ports.ResponseWithRequest{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"responses": responses})
}

// writeDomainError maps the domain error taxonomy onto HTTP statuses so the
// UI can distinguish, e.g., "already responded" from "not compatible".
func writeDomainError(w http.ResponseWriter, err error) {
	var ve *domain.ValidationError
	var ise *domain.InvalidStateError
	var ibe *domain.IncompatibleBloodTypeError

	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"message": ve.Error(),
			"errors":  ve.Fields,
		})
	case errors.Is(err, domain.ErrRequestNotFound), errors.Is(err, domain.ErrDonorNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.As(err, &ise):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, domain.ErrDuplicateResponse):
		writeError(w, http.StatusConflict, err)
	case errors.As(err, &ibe):
		writeError(w, http.StatusUnprocessableEntity, err)
	case errors.Is(err, domain.ErrNotAResponder):
		writeError(w, http.StatusUnprocessableEntity, err)
	case errors.Is(err, domain.ErrNotRequestOwner):
		writeError(w, http.StatusForbidden, err)
	default:
		log.Printf("handler: internal error: %v", err)
		writeError(w, http.StatusInternalServerError, errors.New("internal server error"))
	}
}

func responseResult(err error) string {
	var ibe *domain.IncompatibleBloodTypeError
	switch {
	case errors.Is(err, domain.ErrDuplicateResponse):
		return "duplicate"
	case errors.As(err, &ibe):
		return "incompatible"
	default:
		return "rejected"
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"message": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}
