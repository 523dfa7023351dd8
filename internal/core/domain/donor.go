package domain

import "time"

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleDonor     Role = "donor"
	RoleRecipient Role = "recipient"
)

// Donor is the read-side view of a registered donor. Registration and
// authentication are owned by the identity service; the matching core only
// reads blood type and availability.
type Donor struct {
	ID             string     `json:"id"`
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	Email          string     `json:"email"`
	Phone          string     `json:"phone"`
	BloodType      BloodType  `json:"blood_type"`
	Available      bool       `json:"available"`
	Active         bool       `json:"active"`
	LastDonation   *time.Time `json:"last_donation,omitempty"`
	TotalDonations int        `json:"total_donations"`
}

// IsUsable reports whether the donor may be matched: not soft-deleted and
// currently available to donate.
func (d Donor) IsUsable() bool {
	return d.Active && d.Available
}

// Identity is the authenticated caller extracted from the access token.
type Identity struct {
	UserID    string
	Role      Role
	BloodType BloodType
}

// IsAdmin reports whether the identity holds the administrative capability.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}
