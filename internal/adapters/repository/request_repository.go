package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/blood-link/request-matching-service/internal/core/domain"
	"github.com/blood-link/request-matching-service/internal/core/ports"
)

type RequestRepository struct {
	db *sql.DB
}

func NewRequestRepository(db *sql.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

var _ ports.RequestRepository = (*RequestRepository)(nil)

const requestColumns = `id, requested_by, patient_name, blood_type, units_needed, urgency,
	hospital_name, hospital_address, hospital_contact,
	physician_name, physician_contact, contact_phone, medical_reason,
	status, created_at, expires_at, fulfilled_by, fulfilled_at`

func (r *RequestRepository) Create(ctx context.Context, req domain.BloodRequest) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO blood_requests (`+requestColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		req.ID,
		req.RequestedBy,
		req.PatientName,
		string(req.BloodType),
		req.UnitsNeeded,
		string(req.Urgency),
		req.Hospital.Name,
		req.Hospital.Address,
		req.Hospital.ContactNumber,
		req.AttendingPhysician.Name,
		req.AttendingPhysician.Contact,
		req.ContactPhone,
		req.MedicalReason,
		string(req.Status),
		req.CreatedAt,
		req.ExpiresAt,
		nullString(req.FulfilledBy),
		req.FulfilledAt,
	)
	return err
}

func (r *RequestRepository) FindByID(ctx context.Context, id string) (*domain.BloodRequest, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+requestColumns+" FROM blood_requests WHERE id = $1", id)

	req, err := scanRequest(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrRequestNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := r.loadResponses(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// AddResponse inserts the donor's response while the request row is locked,
// so the liveness check and the insert are atomic. A constraint collision
// from a concurrent duplicate maps to domain.ErrDuplicateResponse.
func (r *RequestRepository) AddResponse(ctx context.Context, requestID string, resp domain.Response) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var status string
	var expiresAt time.Time
	err = tx.QueryRowContext(ctx,
		"SELECT status, expires_at FROM blood_requests WHERE id = $1 FOR UPDATE",
		requestID,
	).Scan(&status, &expiresAt)
	if err == sql.ErrNoRows {
		return domain.ErrRequestNotFound
	}
	if err != nil {
		return err
	}

	if status != string(domain.StatusActive) || !resp.RespondedAt.Before(expiresAt) {
		return &domain.InvalidStateError{RequestID: requestID, Status: domain.RequestStatus(status)}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO request_responses (request_id, donor_id, responded_at, status, notes)
		VALUES ($1, $2, $3, $4, $5)`,
		requestID,
		resp.DonorID,
		resp.RespondedAt,
		string(resp.Status),
		resp.Notes,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateResponse
		}
		return err
	}

	return tx.Commit()
}

// MarkFulfilled is a compare-and-set on status: only one of several
// concurrent accepts observes RowsAffected == 1.
func (r *RequestRepository) MarkFulfilled(ctx context.Context, requestID, donorID string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE blood_requests
		SET status = $2, fulfilled_by = $3, fulfilled_at = $4
		WHERE id = $1 AND status = $5`,
		requestID,
		string(domain.StatusFulfilled),
		donorID,
		at,
		string(domain.StatusActive),
	)
	if err != nil {
		return err
	}
	return r.checkTransition(ctx, requestID, res)
}

func (r *RequestRepository) MarkCancelled(ctx context.Context, requestID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE blood_requests
		SET status = $2
		WHERE id = $1 AND status = $3`,
		requestID,
		string(domain.StatusCancelled),
		string(domain.StatusActive),
	)
	if err != nil {
		return err
	}
	return r.checkTransition(ctx, requestID, res)
}

// checkTransition distinguishes "request gone" from "lost the CAS race"
// when a guarded status update touched no rows.
func (r *RequestRepository) checkTransition(ctx context.Context, requestID string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	var status string
	err = r.db.QueryRowContext(ctx,
		"SELECT status FROM blood_requests WHERE id = $1", requestID,
	).Scan(&status)
	if err == sql.ErrNoRows {
		return domain.ErrRequestNotFound
	}
	if err != nil {
		return err
	}
	return &domain.InvalidStateError{RequestID: requestID, Status: domain.RequestStatus(status)}
}

func (r *RequestRepository) ExpireDue(ctx context.Context, now time.Time) ([]domain.BloodRequest, error) {
	rows, err := r.db.QueryContext(ctx, `
		UPDATE blood_requests
		SET status = $1
		WHERE status = $2 AND expires_at <= $3
		RETURNING `+requestColumns,
		string(domain.StatusExpired),
		string(domain.StatusActive),
		now,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRequests(rows)
}

func (r *RequestRepository) ListByRequester(ctx context.Context, requesterID string) ([]domain.BloodRequest, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+requestColumns+" FROM blood_requests WHERE requested_by = $1 ORDER BY created_at DESC",
		requesterID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests, err := collectRequests(rows)
	if err != nil {
		return nil, err
	}
	for i := range requests {
		if err := r.loadResponses(ctx, &requests[i]); err != nil {
			return nil, err
		}
	}
	return requests, nil
}

func (r *RequestRepository) List(ctx context.Context, f domain.RequestFilter) ([]domain.BloodRequest, error) {
	query := "SELECT " + requestColumns + " FROM blood_requests WHERE true"
	var args []any

	if f.BloodType != "" {
		args = append(args, string(f.BloodType))
		query += fmt.Sprintf(" AND blood_type = $%d", len(args))
	}
	if f.Urgency != "" {
		args = append(args, string(f.Urgency))
		query += fmt.Sprintf(" AND urgency = $%d", len(args))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}

	query += `
		ORDER BY CASE urgency
			WHEN 'critical' THEN 0
			WHEN 'urgent' THEN 1
			WHEN 'moderate' THEN 2
			ELSE 3
		END, created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRequests(rows)
}

func (r *RequestRepository) ListOpenByBloodTypes(ctx context.Context, types []domain.BloodType, excludeResponder string) ([]domain.BloodRequest, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+requestColumns+`
		FROM blood_requests r
		WHERE r.status = $1
		  AND r.expires_at > NOW()
		  AND r.blood_type = ANY($2)
		  AND NOT EXISTS (
			SELECT 1 FROM request_responses rr
			WHERE rr.request_id = r.id AND rr.donor_id = $3
		  )
		ORDER BY CASE r.urgency
			WHEN 'critical' THEN 0
			WHEN 'urgent' THEN 1
			WHEN 'moderate' THEN 2
			ELSE 3
		END, r.created_at DESC`,
		string(domain.StatusActive),
		pq.Array(bloodTypeStrings(types)),
		excludeResponder,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRequests(rows)
}

func (r *RequestRepository) ListWithResponseFrom(ctx context.Context, donorID string) ([]domain.BloodRequest, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+requestColumns+`
		FROM blood_requests r
		WHERE EXISTS (
			SELECT 1 FROM request_responses rr
			WHERE rr.request_id = r.id AND rr.donor_id = $1
		)
		ORDER BY r.created_at DESC`,
		donorID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests, err := collectRequests(rows)
	if err != nil {
		return nil, err
	}
	for i := range requests {
		if err := r.loadResponses(ctx, &requests[i]); err != nil {
			return nil, err
		}
	}
	return requests, nil
}

func (r *RequestRepository) loadResponses(ctx context.Context, req *domain.BloodRequest) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT donor_id, responded_at, status, notes
		FROM request_responses
		WHERE request_id = $1
		ORDER BY responded_at`,
		req.ID,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	req.Responses = []domain.Response{}
	for rows.Next() {
		var resp domain.Response
		var status string
		if err := rows.Scan(&resp.DonorID, &resp.RespondedAt, &status, &resp.Notes); err != nil {
			return err
		}
		resp.Status = domain.ResponseStatus(status)
		req.Responses = append(req.Responses, resp)
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*domain.BloodRequest, error) {
	var req domain.BloodRequest
	var bloodType, urgency, status string
	var fulfilledBy sql.NullString
	var fulfilledAt sql.NullTime

	err := row.Scan(
		&req.ID,
		&req.RequestedBy,
		&req.PatientName,
		&bloodType,
		&req.UnitsNeeded,
		&urgency,
		&req.Hospital.Name,
		&req.Hospital.Address,
		&req.Hospital.ContactNumber,
		&req.AttendingPhysician.Name,
		&req.AttendingPhysician.Contact,
		&req.ContactPhone,
		&req.MedicalReason,
		&status,
		&req.CreatedAt,
		&req.ExpiresAt,
		&fulfilledBy,
		&fulfilledAt,
	)
	if err != nil {
		return nil, err
	}

	req.BloodType = domain.BloodType(bloodType)
	req.Urgency = domain.Urgency(urgency)
	req.Status = domain.RequestStatus(status)
	if fulfilledBy.Valid {
		req.FulfilledBy = fulfilledBy.String
	}
	if fulfilledAt.Valid {
		t := fulfilledAt.Time
		req.FulfilledAt = &t
	}
	return &req, nil
}

func collectRequests(rows *sql.Rows) ([]domain.BloodRequest, error) {
	var requests []domain.BloodRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *req)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return requests, nil
}

func bloodTypeStrings(types []domain.BloodType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
