// AngelaMos | 2026
// recompute.go

package ledger

import (
	"sort"
	"time"

	"github.com/pamojakenya/backend/internal/config"
	"github.com/pamojakenya/backend/internal/member"
)

// Basis is the part of the member row that history alone cannot tell us.
type Basis struct {
	CurrentStatus  string
	MembershipType string
}

// Snapshot is the aggregate derived from approved history. The two
// predicates are reported separately whichever one gates the status.
type Snapshot struct {
	SharesOwned       int        `json:"shares_owned"`
	MembershipStatus  string     `json:"membership_status"`
	ActivationDate    *time.Time `json:"activation_date"`
	ActivatedByFee    bool       `json:"activated_by_fee"`
	ActivatedByShares bool       `json:"activated_by_shares"`
}

func (s Snapshot) Aggregate() member.Aggregate {
	return member.Aggregate{
		SharesOwned:      s.SharesOwned,
		MembershipStatus: s.MembershipStatus,
		ActivationDate:   s.ActivationDate,
	}
}

// ActivatedByFee holds when any activation_fee entry has been approved.
func ActivatedByFee(entries []Entry) bool {
	return feeActivation(entries) != nil
}

// ActivatedByShares holds when the balance has reached the threshold.
func ActivatedByShares(shares, threshold int) bool {
	return threshold > 0 && shares >= threshold
}

// Recompute derives the member aggregate from entries. Only approved
// entries count; callers may pass the full history. It is pure, so running
// it twice over the same input yields the same snapshot.
func Recompute(p Policy, b Basis, entries []Entry) Snapshot {
	approved := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.IsApproved() {
			approved = append(approved, e)
		}
	}
	sort.SliceStable(approved, func(i, j int) bool {
		return reviewedAt(approved[i]).Before(reviewedAt(approved[j]))
	})

	var snap Snapshot

	purchased, deducted := 0, 0
	for _, e := range approved {
		purchased += e.AssignedShares()
		deducted += e.DeductedShares()
	}
	snap.SharesOwned = max(0, purchased-deducted)

	feeDate := feeActivation(approved)
	snap.ActivatedByFee = feeDate != nil
	snap.ActivatedByShares = ActivatedByShares(snap.SharesOwned, p.ActivationThreshold)

	var active bool
	switch p.ActivationRule {
	case config.ActivationRuleShares:
		active = snap.ActivatedByShares
		if active {
			snap.ActivationDate = thresholdCrossing(approved, p.ActivationThreshold)
		}
	case config.ActivationRuleEither:
		active = snap.ActivatedByFee || snap.ActivatedByShares
		if active {
			var shareDate *time.Time
			if snap.ActivatedByShares {
				shareDate = thresholdCrossing(approved, p.ActivationThreshold)
			}
			snap.ActivationDate = earliest(feeDate, shareDate)
		}
	default:
		active = snap.ActivatedByFee
		if active {
			snap.ActivationDate = feeDate
		}
	}

	switch {
	case b.CurrentStatus == member.StatusSuspended:
		snap.MembershipStatus = member.StatusSuspended
	case active:
		snap.MembershipStatus = member.StatusActive
	case b.MembershipType != "" && b.MembershipType != member.TypeNone:
		snap.MembershipStatus = member.StatusPending
	default:
		snap.MembershipStatus = member.StatusInactive
	}

	return snap
}

// feeActivation is the review time of the first approved activation fee.
func feeActivation(entries []Entry) *time.Time {
	var first *time.Time
	for _, e := range entries {
		if !e.IsApproved() || e.Kind != KindActivationFee || e.ReviewedAt == nil {
			continue
		}
		if first == nil || e.ReviewedAt.Before(*first) {
			t := *e.ReviewedAt
			first = &t
		}
	}
	return first
}

// thresholdCrossing walks approved entries in review order and returns the
// last time the running balance rose to the threshold from below.
func thresholdCrossing(sorted []Entry, threshold int) *time.Time {
	var crossed *time.Time
	running := 0
	for _, e := range sorted {
		before := running
		running += e.AssignedShares() - e.DeductedShares()
		if before < threshold && running >= threshold && e.ReviewedAt != nil {
			t := *e.ReviewedAt
			crossed = &t
		}
		if running < threshold {
			crossed = nil
		}
	}
	return crossed
}

func earliest(a, b *time.Time) *time.Time {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case b.Before(*a):
		return b
	}
	return a
}

func reviewedAt(e Entry) time.Time {
	if e.ReviewedAt != nil {
		return *e.ReviewedAt
	}
	return e.CreatedAt
}
