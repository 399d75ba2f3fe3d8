// AngelaMos | 2026
// dto.go

package application

import (
	"time"

	"github.com/pamojakenya/backend/internal/review"
	"github.com/pamojakenya/backend/internal/storage"
)

// SubmitRequest holds the form fields of an application. The identity
// document arrives separately as a file.
type SubmitRequest struct {
	MembershipType string `json:"membership_type" validate:"required,oneof=single double"`
	FirstName      string `json:"first_name"      validate:"required,max=100"`
	MiddleName     string `json:"middle_name"     validate:"max=100"`
	LastName       string `json:"last_name"       validate:"required,max=100"`
	Email          string `json:"email"           validate:"required,email,max=255"`
	Phone          string `json:"phone"           validate:"required,max=20"`
	Address        string `json:"address"         validate:"required,max=200"`
	City           string `json:"city"            validate:"required,max=100"`
	State          string `json:"state"           validate:"required,max=100"`
	ZipCode        string `json:"zip_code"        validate:"required,max=20"`
	SpouseName     string `json:"spouse_name"     validate:"required_if=MembershipType double,max=100"`
	SpousePhone    string `json:"spouse_phone"    validate:"max=20"`
}

type SubmitInput struct {
	SubmitRequest
	IDDocument *storage.Upload
}

type ReviewInput struct {
	ApplicationID string
	Decision      review.Decision
	Reviewer      review.Reviewer
	Notes         string
}

type ReviewRequest struct {
	Notes      string `json:"notes"       validate:"max=2000"`
	AdminNotes string `json:"admin_notes" validate:"max=2000"`
}

func (r ReviewRequest) notes() string {
	if r.Notes != "" {
		return r.Notes
	}
	return r.AdminNotes
}

type ApplicationResponse struct {
	ID             string        `json:"id"`
	MemberID       string        `json:"member_id"`
	MembershipType string        `json:"membership_type"`
	FirstName      string        `json:"first_name"`
	MiddleName     string        `json:"middle_name"`
	LastName       string        `json:"last_name"`
	Email          string        `json:"email"`
	Phone          string        `json:"phone"`
	Address        string        `json:"address"`
	City           string        `json:"city"`
	State          string        `json:"state"`
	ZipCode        string        `json:"zip_code"`
	SpouseName     string        `json:"spouse_name,omitempty"`
	SpousePhone    string        `json:"spouse_phone,omitempty"`
	Status         review.Status `json:"status"`
	AdminNotes     string        `json:"admin_notes"`
	ReviewedBy     *string       `json:"reviewed_by"`
	ReviewedAt     *time.Time    `json:"reviewed_at"`
	CreatedAt      time.Time     `json:"created_at"`
}

type ListParams struct {
	Page     int
	PageSize int
	MemberID string
	Status   string
	Type     string
}

func (p *ListParams) Normalize() {
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

func (p *ListParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

func ToApplicationResponse(a *Application) ApplicationResponse {
	return ApplicationResponse{
		ID:             a.ID,
		MemberID:       a.MemberID,
		MembershipType: a.MembershipType,
		FirstName:      a.FirstName,
		MiddleName:     a.MiddleName,
		LastName:       a.LastName,
		Email:          a.Email,
		Phone:          a.Phone,
		Address:        a.Address,
		City:           a.City,
		State:          a.State,
		ZipCode:        a.ZipCode,
		SpouseName:     a.SpouseName,
		SpousePhone:    a.SpousePhone,
		Status:         a.Status,
		AdminNotes:     a.AdminNotes,
		ReviewedBy:     a.ReviewedBy,
		ReviewedAt:     a.ReviewedAt,
		CreatedAt:      a.CreatedAt,
	}
}

func ToApplicationResponseList(apps []Application) []ApplicationResponse {
	responses := make([]ApplicationResponse, 0, len(apps))
	for i := range apps {
		responses = append(responses, ToApplicationResponse(&apps[i]))
	}
	return responses
}
