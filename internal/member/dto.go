// AngelaMos | 2026
// dto.go

package member

import (
	"time"
)

type UpdateProfileRequest struct {
	Name    *string `json:"name,omitempty"    validate:"omitempty,min=1,max=100"`
	Phone   *string `json:"phone,omitempty"   validate:"omitempty,max=20"`
	Address *string `json:"address,omitempty" validate:"omitempty,max=500"`
}

// UpdateMemberRequest is the complete set of fields an admin may change.
// Shares are deliberately absent: they only move through ledger entries.
type UpdateMemberRequest struct {
	Name             *string `json:"name,omitempty"              validate:"omitempty,min=1,max=100"`
	Phone            *string `json:"phone,omitempty"             validate:"omitempty,max=20"`
	Address          *string `json:"address,omitempty"           validate:"omitempty,max=500"`
	Role             *string `json:"role,omitempty"              validate:"omitempty,oneof=member admin"`
	MembershipType   *string `json:"membership_type,omitempty"   validate:"omitempty,oneof=none single double"`
	MembershipStatus *string `json:"membership_status,omitempty" validate:"omitempty,oneof=suspended inactive"`
}

type MemberResponse struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	Name             string     `json:"name"`
	Phone            string     `json:"phone"`
	Address          string     `json:"address"`
	Role             string     `json:"role"`
	SharesOwned      int        `json:"shares_owned"`
	MembershipStatus string     `json:"membership_status"`
	MembershipType   string     `json:"membership_type"`
	ActivationDate   *time.Time `json:"activation_date"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

type ListMembersParams struct {
	Page             int    `json:"page"`
	PageSize         int    `json:"page_size"`
	Search           string `json:"search"`
	Role             string `json:"role"`
	MembershipStatus string `json:"membership_status"`
	MembershipType   string `json:"membership_type"`
}

func (p *ListMembersParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}

func (p *ListMembersParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// StatusCount is one row of the membership overview.
type StatusCount struct {
	MembershipStatus string `db:"membership_status" json:"membership_status"`
	Members          int    `db:"members"           json:"members"`
	Shares           int    `db:"shares"            json:"shares"`
}

func ToMemberResponse(m *Member) MemberResponse {
	return MemberResponse{
		ID:               m.ID,
		Email:            m.Email,
		Name:             m.Name,
		Phone:            m.Phone,
		Address:          m.Address,
		Role:             m.Role,
		SharesOwned:      m.SharesOwned,
		MembershipStatus: m.MembershipStatus,
		MembershipType:   m.MembershipType,
		ActivationDate:   m.ActivationDate,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func ToMemberResponseList(members []Member) []MemberResponse {
	responses := make([]MemberResponse, 0, len(members))
	for _, m := range members {
		responses = append(responses, ToMemberResponse(&m))
	}
	return responses
}
