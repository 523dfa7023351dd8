package handler

import (
	"net/http"

	"github.com/blood-link/request-matching-service/internal/core/domain"
	"github.com/blood-link/request-matching-service/internal/core/ports"
)

type DonorHandler struct {
	requestService ports.RequestService
	matchService   ports.MatchService
}

func NewDonorHandler(requestService ports.RequestService, matchService ports.MatchService) *DonorHandler {
	return &DonorHandler{
		requestService: requestService,
		matchService:   matchService,
	}
}

// DonorSummary is the contact view of a matching donor exposed to the
// request owner. Medical history and address stay with the identity service.
type DonorSummary struct {
	ID             string           `json:"id"`
	FirstName      string           `json:"first_name"`
	LastName       string           `json:"last_name"`
	Email          string           `json:"email"`
	Phone          string           `json:"phone"`
	BloodType      domain.BloodType `json:"blood_type"`
	TotalDonations int              `json:"total_donations"`
}

// ListCompatible handles GET /requests/{id}/donors: the usable donors whose
// blood type can serve the request. An empty list is a normal result.
func (h *DonorHandler) ListCompatible(w http.ResponseWriter, r *http.Request) {
	req, err := h.requestService.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	donors, err := h.matchService.FindCandidates(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	summaries := make([]DonorSummary, len(donors))
	for i, d := range donors {
		summaries[i] = DonorSummary{
			ID:             d.ID,
			FirstName:      d.FirstName,
			LastName:       d.LastName,
			Email:          d.Email,
			Phone:          d.Phone,
			BloodType:      d.BloodType,
			TotalDonations: d.TotalDonations,
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"donors":           summaries,
		"compatible_types": domain.CompatibleDonorTypes(req.BloodType),
	})
}
