// AngelaMos | 2026
// recompute_test.go

package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pamojakenya/backend/internal/config"
	"github.com/pamojakenya/backend/internal/member"
	"github.com/pamojakenya/backend/internal/review"
)

func at(day int) *time.Time {
	t := time.Date(2026, 1, day, 12, 0, 0, 0, time.UTC)
	return &t
}

func purchase(shares int, status review.Status, day int) Entry {
	return Entry{
		Kind:           KindSharePurchase,
		Amount:         decimal.NewFromInt(int64(shares * 25)),
		Status:         status,
		SharesAssigned: &shares,
		ReviewedAt:     at(day),
	}
}

func deduction(shares int, day int) Entry {
	return Entry{
		Kind:       KindShareDeduction,
		Amount:     decimal.NewFromInt(int64(shares)),
		Status:     review.StatusApproved,
		ReviewedAt: at(day),
	}
}

func fee(status review.Status, day int) Entry {
	return Entry{
		Kind:       KindActivationFee,
		Amount:     decimal.NewFromInt(50),
		Status:     status,
		ReviewedAt: at(day),
	}
}

var inactive = Basis{CurrentStatus: member.StatusInactive, MembershipType: member.TypeNone}

func TestRecomputeShareBalance(t *testing.T) {
	tests := []struct {
		name    string
		entries []Entry
		want    int
	}{
		{"empty", nil, 0},
		{"purchases", []Entry{
			purchase(4, review.StatusApproved, 1),
			purchase(6, review.StatusApproved, 2),
		}, 10},
		{"pending and rejected ignored", []Entry{
			purchase(4, review.StatusApproved, 1),
			purchase(100, review.StatusPending, 2),
			purchase(100, review.StatusRejected, 3),
		}, 4},
		{"deductions subtract", []Entry{
			purchase(10, review.StatusApproved, 1),
			deduction(3, 2),
		}, 7},
		{"floored at zero", []Entry{
			purchase(2, review.StatusApproved, 1),
			deduction(5, 2),
		}, 0},
		{"other kinds carry no shares", []Entry{
			fee(review.StatusApproved, 1),
			{Kind: KindClaimPayout, Amount: decimal.NewFromInt(900), Status: review.StatusApproved},
		}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := Recompute(testPolicy(config.ActivationRuleFee), inactive, tt.entries)
			assert.Equal(t, tt.want, snap.SharesOwned)
		})
	}
}

func TestRecomputeIsIdempotent(t *testing.T) {
	entries := []Entry{
		fee(review.StatusApproved, 3),
		purchase(12, review.StatusApproved, 4),
		deduction(2, 5),
		purchase(3, review.StatusPending, 6),
	}
	p := testPolicy(config.ActivationRuleEither)

	first := Recompute(p, inactive, entries)
	second := Recompute(p, Basis{
		CurrentStatus:  first.MembershipStatus,
		MembershipType: member.TypeSingle,
	}, entries)

	assert.Equal(t, first, second)
}

func TestRecomputeStatusRules(t *testing.T) {
	enough := purchase(20, review.StatusApproved, 5)

	tests := []struct {
		name     string
		rule     string
		basis    Basis
		entries  []Entry
		status   string
		date     *time.Time
		byFee    bool
		byShares bool
	}{
		{
			name:    "fee rule activates on fee",
			rule:    config.ActivationRuleFee,
			basis:   inactive,
			entries: []Entry{fee(review.StatusApproved, 2)},
			status:  member.StatusActive,
			date:    at(2),
			byFee:   true,
		},
		{
			name:     "fee rule ignores share threshold",
			rule:     config.ActivationRuleFee,
			basis:    inactive,
			entries:  []Entry{enough},
			status:   member.StatusInactive,
			byShares: true,
		},
		{
			name:    "pending fee does not activate",
			rule:    config.ActivationRuleFee,
			basis:   inactive,
			entries: []Entry{fee(review.StatusPending, 2)},
			status:  member.StatusInactive,
		},
		{
			name:   "approved application without activation is pending",
			rule:   config.ActivationRuleFee,
			basis:  Basis{CurrentStatus: member.StatusInactive, MembershipType: member.TypeDouble},
			status: member.StatusPending,
		},
		{
			name:     "share rule activates at threshold",
			rule:     config.ActivationRuleShares,
			basis:    inactive,
			entries:  []Entry{purchase(15, review.StatusApproved, 1), purchase(5, review.StatusApproved, 7)},
			status:   member.StatusActive,
			date:     at(7),
			byShares: true,
		},
		{
			name:    "share rule ignores fee",
			rule:    config.ActivationRuleShares,
			basis:   inactive,
			entries: []Entry{fee(review.StatusApproved, 1)},
			status:  member.StatusInactive,
			byFee:   true,
		},
		{
			name:     "either takes the earlier date",
			rule:     config.ActivationRuleEither,
			basis:    inactive,
			entries:  []Entry{enough, fee(review.StatusApproved, 9)},
			status:   member.StatusActive,
			date:     at(5),
			byFee:    true,
			byShares: true,
		},
		{
			name:    "suspension is preserved",
			rule:    config.ActivationRuleFee,
			basis:   Basis{CurrentStatus: member.StatusSuspended, MembershipType: member.TypeSingle},
			entries: []Entry{fee(review.StatusApproved, 2)},
			status:  member.StatusSuspended,
			date:    at(2),
			byFee:   true,
		},
		{
			name:  "earliest fee wins",
			rule:  config.ActivationRuleFee,
			basis: inactive,
			entries: []Entry{
				fee(review.StatusApproved, 8),
				fee(review.StatusApproved, 3),
			},
			status: member.StatusActive,
			date:   at(3),
			byFee:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := Recompute(testPolicy(tt.rule), tt.basis, tt.entries)
			assert.Equal(t, tt.status, snap.MembershipStatus)
			assert.Equal(t, tt.byFee, snap.ActivatedByFee)
			assert.Equal(t, tt.byShares, snap.ActivatedByShares)
			if tt.date == nil {
				assert.Nil(t, snap.ActivationDate)
				return
			}
			require.NotNil(t, snap.ActivationDate)
			assert.True(t, tt.date.Equal(*snap.ActivationDate))
		})
	}
}

func TestThresholdCrossingResetsBelowThreshold(t *testing.T) {
	entries := []Entry{
		purchase(20, review.StatusApproved, 1),
		deduction(5, 2),
		purchase(10, review.StatusApproved, 10),
	}

	snap := Recompute(testPolicy(config.ActivationRuleShares), inactive, entries)
	assert.Equal(t, 25, snap.SharesOwned)
	require.NotNil(t, snap.ActivationDate)
	assert.True(t, at(10).Equal(*snap.ActivationDate))
}

func TestActivationPredicates(t *testing.T) {
	assert.False(t, ActivatedByFee(nil))
	assert.False(t, ActivatedByFee([]Entry{fee(review.StatusRejected, 1)}))
	assert.True(t, ActivatedByFee([]Entry{fee(review.StatusApproved, 1)}))

	assert.False(t, ActivatedByShares(19, 20))
	assert.True(t, ActivatedByShares(20, 20))
	assert.False(t, ActivatedByShares(100, 0))
}

func TestImpliedShares(t *testing.T) {
	p := testPolicy(config.ActivationRuleFee)

	assert.Equal(t, 4, p.ImpliedShares(decimal.NewFromInt(100)))
	assert.Equal(t, 3, p.ImpliedShares(decimal.RequireFromString("99.99")))
	assert.Equal(t, 0, p.ImpliedShares(decimal.NewFromInt(24)))
	assert.Equal(t, 0, p.ImpliedShares(decimal.Zero))
	assert.True(t, p.Cost(4).Equal(decimal.NewFromInt(100)))
}

func TestPolicyFromConfig(t *testing.T) {
	p, err := PolicyFromConfig(config.MembershipConfig{
		PricePerShare:       "100",
		ActivationThreshold: 20,
		ActivationRule:      config.ActivationRuleEither,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, p.ImpliedShares(decimal.NewFromInt(150)))

	_, err = PolicyFromConfig(config.MembershipConfig{PricePerShare: "25", ActivationRule: "vibes"})
	assert.Error(t, err)
}

func TestReferenceIDFormat(t *testing.T) {
	id := NewReferenceID(time.Date(2026, 3, 14, 23, 0, 0, 0, time.UTC))
	assert.Regexp(t, `^PAY-20260314-[0-9A-F]{8}$`, id)
	assert.NotEqual(t, id, NewReferenceID(time.Date(2026, 3, 14, 23, 0, 0, 0, time.UTC)))
}
