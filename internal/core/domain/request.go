package domain

import (
	"time"
)

type RequestStatus string

const (
	StatusActive    RequestStatus = "active"
	StatusFulfilled RequestStatus = "fulfilled"
	StatusCancelled RequestStatus = "cancelled"
	StatusExpired   RequestStatus = "expired"
)

// IsTerminal reports whether the status is absorbing: no further transitions
// or responses are accepted once a request reaches it.
func (s RequestStatus) IsTerminal() bool {
	return s == StatusFulfilled || s == StatusCancelled || s == StatusExpired
}

type Urgency string

const (
	UrgencyCritical Urgency = "critical"
	UrgencyUrgent   Urgency = "urgent"
	UrgencyModerate Urgency = "moderate"
	UrgencyRoutine  Urgency = "routine"
)

// urgencyTTL maps each urgency level to the request's time-to-live.
var urgencyTTL = map[Urgency]time.Duration{
	UrgencyCritical: 2 * time.Hour,
	UrgencyUrgent:   6 * time.Hour,
	UrgencyModerate: 24 * time.Hour,
	UrgencyRoutine:  72 * time.Hour,
}

// TTL returns how long a request of this urgency stays active.
func (u Urgency) TTL() time.Duration {
	return urgencyTTL[u]
}

func (u Urgency) valid() bool {
	_, ok := urgencyTTL[u]
	return ok
}

func (s RequestStatus) valid() bool {
	switch s {
	case StatusActive, StatusFulfilled, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

type ResponseStatus string

const (
	ResponseInterested ResponseStatus = "interested"
	ResponseConfirmed  ResponseStatus = "confirmed"
	ResponseCompleted  ResponseStatus = "completed"
)

// Hospital describes where the blood is needed.
type Hospital struct {
	Name          string `json:"name"`
	Address       string `json:"address"`
	ContactNumber string `json:"contact_number"`
}

// Physician is the attending physician for the patient.
type Physician struct {
	Name    string `json:"name"`
	Contact string `json:"contact"`
}

// Response records a donor's declaration of interest in a request. Responses
// are never deleted; later workflow only updates their status.
type Response struct {
	DonorID     string         `json:"donor_id"`
	RespondedAt time.Time      `json:"responded_at"`
	Status      ResponseStatus `json:"status"`
	Notes       string         `json:"notes,omitempty"`
}

// BloodRequest is the central lifecycle entity. Created active, it reaches
// exactly one of the terminal states fulfilled, cancelled or expired.
type BloodRequest struct {
	ID                 string        `json:"id"`
	RequestedBy        string        `json:"requested_by"`
	PatientName        string        `json:"patient_name"`
	BloodType          BloodType     `json:"blood_type"`
	UnitsNeeded        int           `json:"units_needed"`
	Urgency            Urgency       `json:"urgency"`
	Hospital           Hospital      `json:"hospital"`
	AttendingPhysician Physician     `json:"attending_physician"`
	ContactPhone       string        `json:"contact_phone"`
	MedicalReason      string        `json:"medical_reason"`
	Status             RequestStatus `json:"status"`
	Responses          []Response    `json:"responses"`
	CreatedAt          time.Time     `json:"created_at"`
	ExpiresAt          time.Time     `json:"expires_at"`
	FulfilledBy        string        `json:"fulfilled_by,omitempty"`
	FulfilledAt        *time.Time    `json:"fulfilled_at,omitempty"`
}

// IsOpenAt reports whether the request still accepts responses and
// transitions at the given instant. A request whose deadline has passed is
// treated as closed even if the expiry sweep has not yet stored the
// transition (see ExpireDue).
func (r *BloodRequest) IsOpenAt(now time.Time) bool {
	return r.Status == StatusActive && now.Before(r.ExpiresAt)
}

// ResponseFrom returns the donor's response on this request, if any.
func (r *BloodRequest) ResponseFrom(donorID string) (*Response, bool) {
	for i := range r.Responses {
		if r.Responses[i].DonorID == donorID {
			return &r.Responses[i], true
		}
	}
	return nil, false
}

// RequestFilter narrows request listings. Zero values mean "any".
type RequestFilter struct {
	BloodType BloodType
	Urgency   Urgency
	Status    RequestStatus
}

// Validate rejects filter values outside the closed sets. An empty filter is
// valid and matches everything.
func (f RequestFilter) Validate() *ValidationError {
	var ve ValidationError

	if f.BloodType != "" {
		if _, err := ParseBloodType(string(f.BloodType)); err != nil {
			ve.Add("blood_type", "blood type must be one of A+, A-, B+, B-, AB+, AB-, O+, O-")
		}
	}
	if f.Urgency != "" && !f.Urgency.valid() {
		ve.Add("urgency", "urgency must be one of critical, urgent, moderate, routine")
	}
	if f.Status != "" && !f.Status.valid() {
		ve.Add("status", "status must be one of active, fulfilled, cancelled, expired")
	}

	if len(ve.Fields) == 0 {
		return nil
	}
	return &ve
}

// CreateRequestInput carries the caller-supplied fields of a new request.
type CreateRequestInput struct {
	PatientName        string    `json:"patient_name"`
	BloodType          string    `json:"blood_type"`
	UnitsNeeded        int       `json:"units_needed"`
	Urgency            string    `json:"urgency"`
	Hospital           Hospital  `json:"hospital"`
	AttendingPhysician Physician `json:"attending_physician"`
	ContactPhone       string    `json:"contact_phone"`
	MedicalReason      string    `json:"medical_reason"`
}

const (
	MinUnitsNeeded = 1
	MaxUnitsNeeded = 10

	maxPatientNameLen   = 100
	maxMedicalReasonLen = 500
)

// Validate checks every field of the input and reports all violations at
// once, not just the first.
func (in CreateRequestInput) Validate() *ValidationError {
	var ve ValidationError

	if in.PatientName == "" {
		ve.Add("patient_name", "patient name is required")
	} else if len(in.PatientName) > maxPatientNameLen {
		ve.Add("patient_name", "patient name cannot exceed 100 characters")
	}

	if in.BloodType == "" {
		ve.Add("blood_type", "blood type is required")
	} else if _, err := ParseBloodType(in.BloodType); err != nil {
		ve.Add("blood_type", "blood type must be one of A+, A-, B+, B-, AB+, AB-, O+, O-")
	}

	if in.UnitsNeeded < MinUnitsNeeded {
		ve.Add("units_needed", "at least 1 unit is required")
	} else if in.UnitsNeeded > MaxUnitsNeeded {
		ve.Add("units_needed", "cannot request more than 10 units at once")
	}

	if in.Urgency == "" {
		ve.Add("urgency", "urgency level is required")
	} else if !Urgency(in.Urgency).valid() {
		ve.Add("urgency", "urgency must be one of critical, urgent, moderate, routine")
	}

	if in.Hospital.Name == "" {
		ve.Add("hospital.name", "hospital name is required")
	}
	if in.Hospital.Address == "" {
		ve.Add("hospital.address", "hospital address is required")
	}
	if in.Hospital.ContactNumber == "" {
		ve.Add("hospital.contact_number", "hospital contact number is required")
	}

	if in.AttendingPhysician.Name == "" {
		ve.Add("attending_physician.name", "attending physician name is required")
	}
	if in.AttendingPhysician.Contact == "" {
		ve.Add("attending_physician.contact", "attending physician contact is required")
	}

	if in.ContactPhone == "" {
		ve.Add("contact_phone", "contact phone is required")
	}

	if in.MedicalReason == "" {
		ve.Add("medical_reason", "medical reason is required")
	} else if len(in.MedicalReason) > maxMedicalReasonLen {
		ve.Add("medical_reason", "medical reason cannot exceed 500 characters")
	}

	if len(ve.Fields) == 0 {
		return nil
	}
	return &ve
}
