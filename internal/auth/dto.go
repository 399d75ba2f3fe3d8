// AngelaMos | 2026
// dto.go

package auth

import (
	"time"
)

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// RegisterRequest opens a member account. The membership itself starts
// inactive; it only changes through an application or an approved payment.
type RegisterRequest struct {
	Email    string `json:"email"    validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=128"`
	Name     string `json:"name"     validate:"required,min=1,max=100"`
	Phone    string `json:"phone"    validate:"omitempty,max=20"`
	Address  string `json:"address"  validate:"omitempty,max=200"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password"     validate:"required,min=8,max=128,nefield=CurrentPassword"`
}

type AccessToken struct {
	Token     string    `json:"access_token"`
	Type      string    `json:"token_type"`
	ExpiresIn int       `json:"expires_in"`
	ExpiresAt time.Time `json:"expires_at"`
}

// MemberSummary is the signed-in member as shown by the client header bar.
type MemberSummary struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	Name             string    `json:"name"`
	Phone            string    `json:"phone,omitempty"`
	Role             string    `json:"role"`
	MembershipStatus string    `json:"membership_status"`
	MembershipType   string    `json:"membership_type"`
	SharesOwned      int       `json:"shares_owned"`
	MemberSince      time.Time `json:"member_since"`
}

type Session struct {
	Member MemberSummary `json:"member"`
	Token  AccessToken   `json:"token"`
}

func summarize(a *Account) MemberSummary {
	return MemberSummary{
		ID:               a.ID,
		Email:            a.Email,
		Name:             a.Name,
		Phone:            a.Phone,
		Role:             a.Role,
		MembershipStatus: a.MembershipStatus,
		MembershipType:   a.MembershipType,
		SharesOwned:      a.SharesOwned,
		MemberSince:      a.CreatedAt,
	}
}
