package carerecipient

import (
	"time"

	"github.com/google/uuid"
)

// CareRecipient maps to the care_recipients table. DateOfBirth is
// YYYY-MM-DD; Age is computed on read and never stored.
type CareRecipient struct {
	ID           uuid.UUID `db:"id" json:"id"`
	UserID       string    `db:"user_id" json:"userId"`
	Name         string    `db:"name" json:"name"`
	DateOfBirth  *string   `db:"date_of_birth" json:"dateOfBirth,omitempty"`
	Relationship *string   `db:"relationship" json:"relationship,omitempty"`
	IsActive     bool      `db:"is_active" json:"isActive"`
	Age          *int      `db:"-" json:"age,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

type CreateRequest struct {
	Name         string  `json:"name"`
	DateOfBirth  *string `json:"dateOfBirth"`
	Relationship *string `json:"relationship"`
}

// UpdateRequest is a partial update: nil fields keep the stored value.
type UpdateRequest struct {
	Name         *string `json:"name"`
	DateOfBirth  *string `json:"dateOfBirth"`
	Relationship *string `json:"relationship"`
	IsActive     *bool   `json:"isActive"`
}

const dateLayout = "2006-01-02"

// ageOn returns the number of whole years between dob and today.
func ageOn(dob, today time.Time) int {
	age := today.Year() - dob.Year()
	if today.Month() < dob.Month() || (today.Month() == dob.Month() && today.Day() < dob.Day()) {
		age--
	}
	return age
}

func (r *CareRecipient) fillAge(today time.Time) {
	r.Age = nil
	if r.DateOfBirth == nil {
		return
	}
	dob, err := time.Parse(dateLayout, *r.DateOfBirth)
	if err != nil {
		return
	}
	age := ageOn(dob, today)
	r.Age = &age
}
