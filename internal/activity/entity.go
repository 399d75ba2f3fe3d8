// AngelaMos | 2026
// entity.go

package activity

import (
	"time"
)

type Kind string

const (
	KindRegistered           Kind = "registered"
	KindLogin                Kind = "login"
	KindLogout               Kind = "logout"
	KindPasswordChanged      Kind = "password_changed"
	KindProfileUpdated       Kind = "profile_updated"
	KindAccountClosed        Kind = "account_closed"
	KindApplicationSubmitted Kind = "application_submitted"
	KindPaymentMade          Kind = "payment_made"
	KindSharesPurchased      Kind = "shares_purchased"
	KindClaimSubmitted       Kind = "claim_submitted"
	KindEntryReviewed        Kind = "entry_reviewed"
	KindApplicationReviewed  Kind = "application_reviewed"
	KindMemberUpdated        Kind = "member_updated"
	KindSharesDeducted       Kind = "shares_deducted"
	KindAnnouncementChanged  Kind = "announcement_changed"
)

// Activity is one audited action. MemberID is the actor. TargetID names the
// entry, application, member or announcement acted on, when the route has one.
type Activity struct {
	ID          string    `db:"id"`
	MemberID    string    `db:"member_id"`
	Kind        Kind      `db:"kind"`
	Description string    `db:"description"`
	TargetID    string    `db:"target_id"`
	IPAddress   string    `db:"ip_address"`
	UserAgent   string    `db:"user_agent"`
	CreatedAt   time.Time `db:"created_at"`
}
