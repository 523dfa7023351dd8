// Package repository implements the core's persistence ports on PostgreSQL.
//
// Expected schema:
//
//	blood_requests(id, requested_by, patient_name, blood_type, units_needed,
//	    urgency, hospital_name, hospital_address, hospital_contact,
//	    physician_name, physician_contact, contact_phone, medical_reason,
//	    status, created_at, expires_at, fulfilled_by, fulfilled_at)
//	request_responses(request_id, donor_id, responded_at, status, notes,
//	    PRIMARY KEY (request_id, donor_id))
//	donors(id, first_name, last_name, email, phone, blood_type, available,
//	    active, last_donation, total_donations)
//
// The (request_id, donor_id) primary key is what makes the duplicate-response
// rule race-free: concurrent inserts collide on the constraint and the loser
// is mapped to domain.ErrDuplicateResponse.
package repository

import (
	"github.com/lib/pq"
)

// uniqueViolation is the PostgreSQL error code for unique_violation.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	pqErr, ok := err.(*pq.Error)
	return ok && pqErr.Code == uniqueViolation
}
