package integration

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/blood-link/request-matching-service/internal/adapters/handler"
	"github.com/blood-link/request-matching-service/internal/adapters/middleware"
	"github.com/blood-link/request-matching-service/internal/core/domain"
	"github.com/blood-link/request-matching-service/internal/core/services"
	"github.com/blood-link/request-matching-service/test/mocks"
)

// Test helpers
func generateTestKeys(t *testing.T) (*rsa.PrivateKey, *rsa.PublicKey) {
	t.Helper()
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	return privateKey, &privateKey.PublicKey
}

func createToken(privateKey *rsa.PrivateKey, sub, role, bloodType string) string {
	claims := jwt.MapClaims{
		"sub":  sub,
		"role": role,
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	if bloodType != "" {
		claims["blood_type"] = bloodType
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tokenString, _ := token.SignedString(privateKey)
	return tokenString
}

type testEnv struct {
	server    *httptest.Server
	private   *rsa.PrivateKey
	requests  *mocks.MockRequestRepository
	donors    *mocks.MockDonorRepository
	publisher *mocks.MockRequestEventPublisher
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()
	privateKey, publicKey := generateTestKeys(t)

	requestRepo := mocks.NewMockRequestRepository()
	donorRepo := mocks.NewMockDonorRepository()
	publisher := mocks.NewMockRequestEventPublisher()

	matchService := services.NewMatchService(donorRepo, mocks.NewMockRedisClient())
	requestService := services.NewRequestService(requestRepo, matchService, publisher)

	requestHandler := handler.NewRequestHandler(requestService)
	donorHandler := handler.NewDonorHandler(requestService, matchService)
	authMiddleware := middleware.NewAuthMiddleware(publicKey)

	mux := http.NewServeMux()
	mux.Handle("POST /requests",
		authMiddleware.RequireRole([]string{"recipient", "admin"}, requestHandler.Create),
	)
	mux.Handle("GET /requests/{id}/donors",
		authMiddleware.RequireRole([]string{"recipient", "admin"}, donorHandler.ListCompatible),
	)
	mux.Handle("POST /requests/{id}/respond",
		authMiddleware.RequireRole([]string{"donor"}, requestHandler.Respond),
	)
	mux.Handle("PATCH /requests/{id}/status",
		authMiddleware.RequireRole([]string{"recipient", "admin"}, requestHandler.UpdateStatus),
	)
	mux.Handle("GET /requests/matching",
		authMiddleware.RequireRole([]string{"donor"}, requestHandler.ListMatching),
	)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &testEnv{
		server:    server,
		private:   privateKey,
		requests:  requestRepo,
		donors:    donorRepo,
		publisher: publisher,
	}
}

func (env *testEnv) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, env.server.URL+path, &buf)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func requestPayload() map[string]any {
	return map[string]any{
		"patient_name": "Jane Smith",
		"blood_type":   "A+",
		"units_needed": 2,
		"urgency":      "critical",
		"hospital": map[string]string{
			"name":           "City General",
			"address":        "1 Hospital Way",
			"contact_number": "+1 555 0100",
		},
		"attending_physician": map[string]string{
			"name":    "Dr. Okafor",
			"contact": "+1 555 0101",
		},
		"contact_phone":  "+1 555 0102",
		"medical_reason": "Scheduled surgery",
	}
}

// ==================== TESTS ====================

// TestRequestFlow_CreateRespondFulfil drives the whole lifecycle over HTTP:
// a recipient posts a request, a compatible donor responds, the owner
// accepts the donor, and the closed request rejects further responses.
func TestRequestFlow_CreateRespondFulfil(t *testing.T) {
	env := setupTestServer(t)

	env.donors.SeedDonor(domain.Donor{
		ID: "donor-1", FirstName: "Omar", LastName: "Haddad",
		BloodType: domain.ONegative, Active: true, Available: true,
	})

	ownerToken := createToken(env.private, "recipient-1", "recipient", "")
	donorToken := createToken(env.private, "donor-1", "donor", "O-")

	// Create
	resp := env.do(t, http.MethodPost, "/requests", ownerToken, requestPayload())
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: status = %d", resp.StatusCode)
	}
	var created struct {
		Request        domain.BloodRequest `json:"request"`
		MatchingDonors int                 `json:"matching_donors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("create: failed to decode: %v", err)
	}
	resp.Body.Close()
	if created.MatchingDonors != 1 {
		t.Errorf("create: matching_donors = %d, want 1", created.MatchingDonors)
	}

	requestPath := fmt.Sprintf("/requests/%s", created.Request.ID)

	// Donor list for the owner
	resp = env.do(t, http.MethodGet, requestPath+"/donors", ownerToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list donors: status = %d", resp.StatusCode)
	}
	var donorList struct {
		Donors []handler.DonorSummary `json:"donors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&donorList); err != nil {
		t.Fatalf("list donors: failed to decode: %v", err)
	}
	resp.Body.Close()
	if len(donorList.Donors) != 1 || donorList.Donors[0].ID != "donor-1" {
		t.Fatalf("list donors: unexpected result %+v", donorList.Donors)
	}

	// Respond
	resp = env.do(t, http.MethodPost, requestPath+"/respond", donorToken, map[string]string{"notes": "on my way"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("respond: status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	// A second response from the same donor is a conflict.
	resp = env.do(t, http.MethodPost, requestPath+"/respond", donorToken, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate respond: status = %d, want %d", resp.StatusCode, http.StatusConflict)
	}
	resp.Body.Close()

	// Fulfil
	resp = env.do(t, http.MethodPatch, requestPath+"/status", ownerToken,
		map[string]string{"status": "fulfilled", "fulfilled_by": "donor-1"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("fulfil: status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	stored, _ := env.requests.Stored(created.Request.ID)
	if stored.Status != domain.StatusFulfilled || stored.FulfilledBy != "donor-1" {
		t.Fatalf("stored request not fulfilled: %+v", stored)
	}

	// Terminal state: further responses are rejected.
	lateToken := createToken(env.private, "donor-2", "donor", "O-")
	resp = env.do(t, http.MethodPost, requestPath+"/respond", lateToken, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("late respond: status = %d, want %d", resp.StatusCode, http.StatusConflict)
	}
	resp.Body.Close()
}

func TestRequestFlow_IncompatibleDonorRejected(t *testing.T) {
	env := setupTestServer(t)

	ownerToken := createToken(env.private, "recipient-1", "recipient", "")
	payload := requestPayload()
	payload["blood_type"] = "O+"

	resp := env.do(t, http.MethodPost, "/requests", ownerToken, payload)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: status = %d", resp.StatusCode)
	}
	var created struct {
		Request domain.BloodRequest `json:"request"`
	}
	json.NewDecoder(resp.Body).Decode(&created)
	resp.Body.Close()

	// A+ cannot donate to O+.
	donorToken := createToken(env.private, "donor-1", "donor", "A+")
	resp = env.do(t, http.MethodPost, "/requests/"+created.Request.ID+"/respond", donorToken, nil)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("respond: status = %d, want %d", resp.StatusCode, http.StatusUnprocessableEntity)
	}
	resp.Body.Close()
}

func TestRequestFlow_StrangerCannotClose(t *testing.T) {
	env := setupTestServer(t)

	ownerToken := createToken(env.private, "recipient-1", "recipient", "")
	resp := env.do(t, http.MethodPost, "/requests", ownerToken, requestPayload())
	var created struct {
		Request domain.BloodRequest `json:"request"`
	}
	json.NewDecoder(resp.Body).Decode(&created)
	resp.Body.Close()

	strangerToken := createToken(env.private, "recipient-2", "recipient", "")
	resp = env.do(t, http.MethodPatch, "/requests/"+created.Request.ID+"/status", strangerToken,
		map[string]string{"status": "cancelled"})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("stranger cancel: status = %d, want %d", resp.StatusCode, http.StatusForbidden)
	}
	resp.Body.Close()

	stored, _ := env.requests.Stored(created.Request.ID)
	if stored.Status != domain.StatusActive {
		t.Fatalf("request state changed by rejected call: %s", stored.Status)
	}

	// An admin may close any request.
	adminToken := createToken(env.private, "admin-1", "admin", "")
	resp = env.do(t, http.MethodPatch, "/requests/"+created.Request.ID+"/status", adminToken,
		map[string]string{"status": "cancelled"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin cancel: status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	resp.Body.Close()
}

func TestRequestFlow_MatchingListForDonor(t *testing.T) {
	env := setupTestServer(t)

	ownerToken := createToken(env.private, "recipient-1", "recipient", "")
	env.do(t, http.MethodPost, "/requests", ownerToken, requestPayload()).Body.Close() // A+

	abPayload := requestPayload()
	abPayload["blood_type"] = "AB+"
	env.do(t, http.MethodPost, "/requests", ownerToken, abPayload).Body.Close()

	oPayload := requestPayload()
	oPayload["blood_type"] = "O-"
	env.do(t, http.MethodPost, "/requests", ownerToken, oPayload).Body.Close()

	// An A+ donor serves A+ and AB+ requests, never O-.
	donorToken := createToken(env.private, "donor-1", "donor", "A+")
	resp := env.do(t, http.MethodGet, "/requests/matching", donorToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("matching: status = %d", resp.StatusCode)
	}
	var matching struct {
		Requests []domain.BloodRequest `json:"requests"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&matching); err != nil {
		t.Fatalf("matching: failed to decode: %v", err)
	}
	resp.Body.Close()

	if len(matching.Requests) != 2 {
		t.Fatalf("matching: expected 2 requests, got %d", len(matching.Requests))
	}
	for _, req := range matching.Requests {
		if req.BloodType == domain.ONegative {
			t.Errorf("O- request should not match an A+ donor")
		}
	}
}
