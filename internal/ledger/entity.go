// AngelaMos | 2026
// entity.go

package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pamojakenya/backend/internal/review"
)

type Kind string

const (
	KindActivationFee  Kind = "activation_fee"
	KindSharePurchase  Kind = "share_purchase"
	KindMembershipFee  Kind = "membership_fee"
	KindClaimPayout    Kind = "claim_payout"
	KindShareDeduction Kind = "share_deduction"
	KindRefund         Kind = "refund"
)

var Kinds = []Kind{
	KindActivationFee,
	KindSharePurchase,
	KindMembershipFee,
	KindClaimPayout,
	KindShareDeduction,
	KindRefund,
}

func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Submittable reports whether members may create entries of this kind.
// Share deductions are only ever created by an admin action.
func (k Kind) Submittable() bool {
	return k.Valid() && k != KindShareDeduction
}

func (k Kind) RequiresProof() bool {
	return k == KindActivationFee || k == KindSharePurchase
}

type Method string

const (
	MethodPayPal     Method = "paypal"
	MethodVenmo      Method = "venmo"
	MethodZelle      Method = "zelle"
	MethodDebitCard  Method = "debit_card"
	MethodCreditCard Method = "credit_card"
	MethodMpesa      Method = "mpesa"
	MethodBank       Method = "bank"
	MethodCash       Method = "cash"
	MethodOther      Method = "other"
	MethodSystem     Method = "system"
)

var Methods = []Method{
	MethodPayPal,
	MethodVenmo,
	MethodZelle,
	MethodDebitCard,
	MethodCreditCard,
	MethodMpesa,
	MethodBank,
	MethodCash,
	MethodOther,
	MethodSystem,
}

func (m Method) Valid() bool {
	for _, known := range Methods {
		if m == known {
			return true
		}
	}
	return false
}

func (m Method) Selectable() bool {
	return m.Valid() && m != MethodSystem
}

// Entry is one submitted financial request. Amount is money for every kind
// except share_deduction, where it is the number of shares removed.
type Entry struct {
	ID              string              `db:"id"`
	MemberID        string              `db:"member_id"`
	Kind            Kind                `db:"kind"`
	Amount          decimal.Decimal     `db:"amount"`
	Method          Method              `db:"method"`
	TransactionID   string              `db:"transaction_id"`
	ReferenceID     string              `db:"reference_id"`
	Description     string              `db:"description"`
	ProofRef        *string             `db:"proof_ref"`
	Status          review.Status       `db:"status"`
	SharesRequested *int                `db:"shares_requested"`
	SharesAssigned  *int                `db:"shares_assigned"`
	AmountApproved  decimal.NullDecimal `db:"amount_approved"`
	AdminNotes      string              `db:"admin_notes"`
	ReviewedBy      *string             `db:"reviewed_by"`
	ReviewedAt      *time.Time          `db:"reviewed_at"`
	CreatedAt       time.Time           `db:"created_at"`
	UpdatedAt       time.Time           `db:"updated_at"`
}

func (e *Entry) IsApproved() bool {
	return e.Status == review.StatusApproved
}

// DeductedShares is the share count of an approved share_deduction.
func (e *Entry) DeductedShares() int {
	if e.Kind != KindShareDeduction {
		return 0
	}
	return int(e.Amount.IntPart())
}

// AssignedShares is the share count credited by an approved share_purchase.
func (e *Entry) AssignedShares() int {
	if e.Kind != KindSharePurchase || e.SharesAssigned == nil {
		return 0
	}
	return *e.SharesAssigned
}

func (e *Entry) applyStamp(s review.Stamp) {
	reviewedAt := s.ReviewedAt
	reviewedBy := s.ReviewedBy
	e.Status = s.Status
	e.ReviewedAt = &reviewedAt
	e.ReviewedBy = &reviewedBy
	e.AdminNotes = s.Notes
}

// NewReferenceID returns a human-quotable id of the form
// PAY-20260314-1A2B3C4D.
func NewReferenceID(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	return fmt.Sprintf("PAY-%s-%s", now.UTC().Format("20060102"), suffix)
}
