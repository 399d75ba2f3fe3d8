// AngelaMos | 2026
// entity.go

package application

import (
	"time"

	"github.com/pamojakenya/backend/internal/review"
)

const (
	TypeSingle = "single"
	TypeDouble = "double"
)

type Application struct {
	ID             string        `db:"id"`
	MemberID       string        `db:"member_id"`
	MembershipType string        `db:"membership_type"`
	FirstName      string        `db:"first_name"`
	MiddleName     string        `db:"middle_name"`
	LastName       string        `db:"last_name"`
	Email          string        `db:"email"`
	Phone          string        `db:"phone"`
	Address        string        `db:"address"`
	City           string        `db:"city"`
	State          string        `db:"state"`
	ZipCode        string        `db:"zip_code"`
	SpouseName     string        `db:"spouse_name"`
	SpousePhone    string        `db:"spouse_phone"`
	IDDocument     string        `db:"id_document"`
	Status         review.Status `db:"status"`
	AdminNotes     string        `db:"admin_notes"`
	ReviewedBy     *string       `db:"reviewed_by"`
	ReviewedAt     *time.Time    `db:"reviewed_at"`
	CreatedAt      time.Time     `db:"created_at"`
	UpdatedAt      time.Time     `db:"updated_at"`
}

func (a *Application) FullName() string {
	name := a.FirstName
	if a.MiddleName != "" {
		name += " " + a.MiddleName
	}
	return name + " " + a.LastName
}
