// AngelaMos | 2026
// dto.go

package announcement

import (
	"time"
)

type CreateRequest struct {
	Title     string     `json:"title"      validate:"required,max=200"`
	Content   string     `json:"content"    validate:"required,max=10000"`
	Priority  string     `json:"priority"   validate:"omitempty,oneof=low medium high urgent"`
	Audience  string     `json:"audience"   validate:"omitempty,oneof=all members admins"`
	IsActive  *bool      `json:"is_active"`
	ExpiresAt *time.Time `json:"expires_at"`
}

type UpdateRequest struct {
	Title     *string    `json:"title"      validate:"omitempty,min=1,max=200"`
	Content   *string    `json:"content"    validate:"omitempty,min=1,max=10000"`
	Priority  *string    `json:"priority"   validate:"omitempty,oneof=low medium high urgent"`
	Audience  *string    `json:"audience"   validate:"omitempty,oneof=all members admins"`
	IsActive  *bool      `json:"is_active"`
	ExpiresAt *time.Time `json:"expires_at"`
	// ClearExpiry removes the expiry. It wins over ExpiresAt.
	ClearExpiry bool `json:"clear_expiry"`
}

type ListParams struct {
	Page     int
	PageSize int
	// Visible restricts results to active, unexpired announcements for
	// Audiences. Admin listings leave it false.
	Visible   bool
	Audiences []string
	Now       time.Time
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

type AnnouncementResponse struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	Priority  string     `json:"priority"`
	Audience  string     `json:"audience"`
	IsActive  bool       `json:"is_active"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedBy string     `json:"created_by"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func ToAnnouncementResponse(a *Announcement) AnnouncementResponse {
	return AnnouncementResponse{
		ID:        a.ID,
		Title:     a.Title,
		Content:   a.Content,
		Priority:  a.Priority,
		Audience:  a.Audience,
		IsActive:  a.IsActive,
		ExpiresAt: a.ExpiresAt,
		CreatedBy: a.CreatedBy,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func ToAnnouncementResponseList(list []Announcement) []AnnouncementResponse {
	out := make([]AnnouncementResponse, len(list))
	for i := range list {
		out[i] = ToAnnouncementResponse(&list[i])
	}
	return out
}
