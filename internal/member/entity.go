// AngelaMos | 2026
// entity.go

package member

import (
	"time"
)

type Member struct {
	ID               string     `db:"id"`
	Email            string     `db:"email"`
	PasswordHash     string     `db:"password_hash"`
	Name             string     `db:"name"`
	Phone            string     `db:"phone"`
	Address          string     `db:"address"`
	Role             string     `db:"role"`
	TokenVersion     int        `db:"token_version"`
	SharesOwned      int        `db:"shares_owned"`
	MembershipStatus string     `db:"membership_status"`
	MembershipType   string     `db:"membership_type"`
	ActivationDate   *time.Time `db:"activation_date"`
	CreatedAt        time.Time  `db:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"`
	DeletedAt        *time.Time `db:"deleted_at"`
}

func (m *Member) IsAdmin() bool {
	return m.Role == RoleAdmin
}

// Aggregate is the derived part of a member row. It is only ever written
// from a recompute over approved ledger history.
type Aggregate struct {
	SharesOwned      int
	MembershipStatus string
	ActivationDate   *time.Time
}

func (m *Member) Aggregate() Aggregate {
	return Aggregate{
		SharesOwned:      m.SharesOwned,
		MembershipStatus: m.MembershipStatus,
		ActivationDate:   m.ActivationDate,
	}
}

func (a Aggregate) Equal(b Aggregate) bool {
	if a.SharesOwned != b.SharesOwned || a.MembershipStatus != b.MembershipStatus {
		return false
	}
	if a.ActivationDate == nil || b.ActivationDate == nil {
		return a.ActivationDate == nil && b.ActivationDate == nil
	}
	return a.ActivationDate.Equal(*b.ActivationDate)
}

const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

const (
	StatusInactive  = "inactive"
	StatusPending   = "pending"
	StatusActive    = "active"
	StatusSuspended = "suspended"
)

const (
	TypeNone   = "none"
	TypeSingle = "single"
	TypeDouble = "double"
)
