// AngelaMos | 2026
// entity.go

package announcement

import (
	"time"
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

const (
	AudienceAll     = "all"
	AudienceMembers = "members"
	AudienceAdmins  = "admins"
)

type Announcement struct {
	ID        string     `db:"id"`
	Title     string     `db:"title"`
	Content   string     `db:"content"`
	Priority  string     `db:"priority"`
	Audience  string     `db:"audience"`
	IsActive  bool       `db:"is_active"`
	ExpiresAt *time.Time `db:"expires_at"`
	CreatedBy string     `db:"created_by"`
	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt time.Time  `db:"updated_at"`
}

// VisibleTo reports whether a reader with the given admin flag should see a
// at now. Admins see every audience, members never see admin-only notices.
func (a *Announcement) VisibleTo(isAdmin bool, now time.Time) bool {
	if !a.IsActive {
		return false
	}
	if a.ExpiresAt != nil && !a.ExpiresAt.After(now) {
		return false
	}
	return isAdmin || a.Audience != AudienceAdmins
}
