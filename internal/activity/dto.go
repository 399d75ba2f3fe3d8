// AngelaMos | 2026
// dto.go

package activity

import (
	"time"
)

type ListParams struct {
	Page     int
	PageSize int
	// ActorID limits results to actions the member performed.
	ActorID string
	// SubjectID limits results to actions performed by or on the member.
	SubjectID string
	Kind      string
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

type ActivityResponse struct {
	ID          string    `json:"id"`
	MemberID    string    `json:"member_id"`
	Kind        Kind      `json:"kind"`
	Description string    `json:"description"`
	TargetID    string    `json:"target_id,omitempty"`
	IPAddress   string    `json:"ip_address,omitempty"`
	UserAgent   string    `json:"user_agent,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ToActivityResponse renders a for admins. Members viewing their own
// history get ToOwnActivityResponse, which drops client details.
func ToActivityResponse(a *Activity) ActivityResponse {
	return ActivityResponse{
		ID:          a.ID,
		MemberID:    a.MemberID,
		Kind:        a.Kind,
		Description: a.Description,
		TargetID:    a.TargetID,
		IPAddress:   a.IPAddress,
		UserAgent:   a.UserAgent,
		CreatedAt:   a.CreatedAt,
	}
}

func ToOwnActivityResponse(a *Activity) ActivityResponse {
	resp := ToActivityResponse(a)
	resp.IPAddress = ""
	resp.UserAgent = ""
	return resp
}

func toResponses(list []Activity, render func(*Activity) ActivityResponse) []ActivityResponse {
	out := make([]ActivityResponse, len(list))
	for i := range list {
		out[i] = render(&list[i])
	}
	return out
}
