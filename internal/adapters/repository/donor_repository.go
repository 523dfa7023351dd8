package repository

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"github.com/blood-link/request-matching-service/internal/core/domain"
	"github.com/blood-link/request-matching-service/internal/core/ports"
)

type DonorRepository struct {
	db *sql.DB
}

func NewDonorRepository(db *sql.DB) *DonorRepository {
	return &DonorRepository{db: db}
}

var _ ports.DonorRepository = (*DonorRepository)(nil)

const donorColumns = `id, first_name, last_name, email, phone, blood_type,
	available, active, last_donation, total_donations`

func (r *DonorRepository) FindByID(ctx context.Context, id string) (*domain.Donor, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+donorColumns+" FROM donors WHERE id = $1", id)

	donor, err := scanDonor(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrDonorNotFound
	}
	if err != nil {
		return nil, err
	}
	return donor, nil
}

func (r *DonorRepository) ListUsableByBloodTypes(ctx context.Context, types []domain.BloodType, limit int) ([]domain.Donor, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+donorColumns+`
		FROM donors
		WHERE active AND available AND blood_type = ANY($1)
		ORDER BY total_donations DESC, last_donation DESC NULLS LAST
		LIMIT $2`,
		pq.Array(bloodTypeStrings(types)),
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var donors []domain.Donor
	for rows.Next() {
		donor, err := scanDonor(rows)
		if err != nil {
			return nil, err
		}
		donors = append(donors, *donor)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return donors, nil
}

func scanDonor(row rowScanner) (*domain.Donor, error) {
	var donor domain.Donor
	var bloodType string
	var lastDonation sql.NullTime

	err := row.Scan(
		&donor.ID,
		&donor.FirstName,
		&donor.LastName,
		&donor.Email,
		&donor.Phone,
		&bloodType,
		&donor.Available,
		&donor.Active,
		&lastDonation,
		&donor.TotalDonations,
	)
	if err != nil {
		return nil, err
	}

	donor.BloodType = domain.BloodType(bloodType)
	if lastDonation.Valid {
		t := lastDonation.Time
		donor.LastDonation = &t
	}
	return &donor, nil
}
