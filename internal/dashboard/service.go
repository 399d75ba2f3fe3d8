// AngelaMos | 2026
// service.go

package dashboard

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/pamojakenya/backend/internal/application"
	"github.com/pamojakenya/backend/internal/core"
	"github.com/pamojakenya/backend/internal/ledger"
	"github.com/pamojakenya/backend/internal/member"
	"github.com/pamojakenya/backend/internal/review"
)

type MemberReader interface {
	GetMember(ctx context.Context, id string) (*member.Member, error)
}

type LedgerReader interface {
	Snapshot(ctx context.Context, m *member.Member) (ledger.Snapshot, []ledger.Entry, error)
	Policy() ledger.Policy
}

type ApplicationReader interface {
	ListForMember(ctx context.Context, memberID string) ([]application.Application, error)
}

type Totals struct {
	ApprovedContributions decimal.Decimal `json:"approved_contributions"`
	ApprovedPayouts       decimal.Decimal `json:"approved_payouts"`
	PendingEntries        int             `json:"pending_entries"`
	PendingApplications   int             `json:"pending_applications"`
}

type Dashboard struct {
	Profile        member.MemberResponse             `json:"profile"`
	Membership     ledger.Snapshot                   `json:"membership"`
	InSync         bool                              `json:"in_sync"`
	SharePrice     decimal.Decimal                   `json:"share_price"`
	Applications   []application.ApplicationResponse `json:"applications"`
	Payments       []ledger.EntryResponse            `json:"payments"`
	SharePurchases []ledger.EntryResponse            `json:"share_purchases"`
	Claims         []ledger.EntryResponse            `json:"claims"`
	Totals         Totals                            `json:"totals"`
}

type Service struct {
	members      MemberReader
	ledger       LedgerReader
	applications ApplicationReader
}

func NewService(members MemberReader, l LedgerReader, apps ApplicationReader) *Service {
	return &Service{members: members, ledger: l, applications: apps}
}

// Get assembles the member's view. Membership is recomputed from approved
// history on every read; InSync reports whether the stored row agrees.
func (s *Service) Get(ctx context.Context, memberID string) (*Dashboard, error) {
	if memberID == "" {
		return nil, fmt.Errorf("dashboard: %w", core.ErrUnauthorized)
	}

	m, err := s.members.GetMember(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("dashboard: %w", err)
	}

	snap, history, err := s.ledger.Snapshot(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("dashboard: %w", err)
	}

	apps, err := s.applications.ListForMember(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("dashboard: %w", err)
	}

	policy := s.ledger.Policy()
	d := &Dashboard{
		Profile:        member.ToMemberResponse(m),
		Membership:     snap,
		InSync:         snap.Aggregate().Equal(m.Aggregate()),
		SharePrice:     policy.SharePrice,
		Applications:   application.ToApplicationResponseList(apps),
		Payments:       []ledger.EntryResponse{},
		SharePurchases: []ledger.EntryResponse{},
		Claims:         []ledger.EntryResponse{},
		Totals: Totals{
			ApprovedContributions: decimal.Zero,
			ApprovedPayouts:       decimal.Zero,
		},
	}

	for i := range history {
		e := &history[i]
		resp := ledger.ToEntryResponse(e, policy)

		switch e.Kind {
		case ledger.KindSharePurchase:
			d.SharePurchases = append(d.SharePurchases, resp)
		case ledger.KindClaimPayout:
			d.Claims = append(d.Claims, resp)
		default:
			d.Payments = append(d.Payments, resp)
		}

		switch {
		case e.Status == review.StatusPending:
			d.Totals.PendingEntries++
		case !e.IsApproved():
		case isContribution(e.Kind):
			d.Totals.ApprovedContributions = d.Totals.ApprovedContributions.Add(e.Amount)
		case e.Kind == ledger.KindClaimPayout, e.Kind == ledger.KindRefund:
			d.Totals.ApprovedPayouts = d.Totals.ApprovedPayouts.Add(payout(e))
		}
	}

	for _, a := range apps {
		if a.Status == review.StatusPending {
			d.Totals.PendingApplications++
		}
	}

	return d, nil
}

func isContribution(k ledger.Kind) bool {
	return k == ledger.KindActivationFee ||
		k == ledger.KindSharePurchase ||
		k == ledger.KindMembershipFee
}

func payout(e *ledger.Entry) decimal.Decimal {
	if e.AmountApproved.Valid {
		return e.AmountApproved.Decimal
	}
	return e.Amount
}
