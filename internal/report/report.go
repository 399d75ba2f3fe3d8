// AngelaMos | 2026
// report.go

package report

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/pamojakenya/backend/internal/ledger"
)

// Range bounds a report on review time. Either end may be open; To is
// exclusive.
type Range struct {
	From *time.Time `json:"from"`
	To   *time.Time `json:"to"`
}

type KindTotal struct {
	Kind  ledger.Kind     `db:"kind"  json:"kind"`
	Count int             `db:"count" json:"count"`
	Total decimal.Decimal `db:"total" json:"total"`
}

type FinancialReport struct {
	Range       Range           `json:"range"`
	Income      decimal.Decimal `json:"income"`
	Payouts     decimal.Decimal `json:"payouts"`
	Net         decimal.Decimal `json:"net"`
	ByKind      []KindTotal     `json:"by_kind"`
	GeneratedAt time.Time       `json:"generated_at"`
}

const (
	TierHigh   = "high"
	TierMedium = "medium"
	TierLow    = "low"

	highTierShares   = 50
	mediumTierShares = 20
)

// Tier buckets a holding: high is 50 or more, medium 20 to 49, low below 20.
func Tier(shares int) string {
	switch {
	case shares >= highTierShares:
		return TierHigh
	case shares >= mediumTierShares:
		return TierMedium
	default:
		return TierLow
	}
}

type Holder struct {
	MemberID    string `db:"id"           json:"member_id"`
	Name        string `db:"name"         json:"name"`
	Email       string `db:"email"        json:"email"`
	SharesOwned int    `db:"shares_owned" json:"shares_owned"`
	Tier        string `db:"-"            json:"tier"`
}

type SharesReport struct {
	SharePrice       decimal.Decimal `json:"share_price"`
	TotalSold        int             `json:"total_sold"`
	TotalDeducted    int             `json:"total_deducted"`
	TotalOutstanding int             `json:"total_outstanding"`
	Holders          int             `json:"holders"`
	ByTier           map[string]int  `json:"by_tier"`
	TopHolders       []Holder        `json:"top_holders"`
	GeneratedAt      time.Time       `json:"generated_at"`
}

func isIncome(k ledger.Kind) bool {
	return k == ledger.KindActivationFee ||
		k == ledger.KindSharePurchase ||
		k == ledger.KindMembershipFee
}

func isPayout(k ledger.Kind) bool {
	return k == ledger.KindClaimPayout || k == ledger.KindRefund
}
