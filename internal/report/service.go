// AngelaMos | 2026
// service.go

package report

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pamojakenya/backend/internal/core"
)

const topHolderCount = 10

type Service struct {
	repo       Repository
	sharePrice decimal.Decimal
	now        func() time.Time
}

func NewService(repo Repository, sharePrice decimal.Decimal) *Service {
	return &Service{repo: repo, sharePrice: sharePrice, now: time.Now}
}

func (s *Service) Financial(ctx context.Context, rng Range) (*FinancialReport, error) {
	if rng.From != nil && rng.To != nil && !rng.From.Before(*rng.To) {
		return nil, core.Validationf("from must be before to")
	}

	totals, err := s.repo.KindTotals(ctx, rng)
	if err != nil {
		return nil, err
	}

	rep := &FinancialReport{
		Range:       rng,
		Income:      decimal.Zero,
		Payouts:     decimal.Zero,
		ByKind:      totals,
		GeneratedAt: s.now().UTC(),
	}
	if rep.ByKind == nil {
		rep.ByKind = []KindTotal{}
	}

	for _, t := range totals {
		switch {
		case isIncome(t.Kind):
			rep.Income = rep.Income.Add(t.Total)
		case isPayout(t.Kind):
			rep.Payouts = rep.Payouts.Add(t.Total)
		}
	}
	rep.Net = rep.Income.Sub(rep.Payouts)

	return rep, nil
}

func (s *Service) Shares(ctx context.Context) (*SharesReport, error) {
	sold, deducted, err := s.repo.ShareMovements(ctx)
	if err != nil {
		return nil, err
	}

	holders, err := s.repo.Holdings(ctx)
	if err != nil {
		return nil, err
	}

	rep := &SharesReport{
		SharePrice:    s.sharePrice,
		TotalSold:     sold,
		TotalDeducted: deducted,
		Holders:       len(holders),
		ByTier:        map[string]int{TierHigh: 0, TierMedium: 0, TierLow: 0},
		TopHolders:    []Holder{},
		GeneratedAt:   s.now().UTC(),
	}

	for i := range holders {
		holders[i].Tier = Tier(holders[i].SharesOwned)
		rep.ByTier[holders[i].Tier]++
		rep.TotalOutstanding += holders[i].SharesOwned
	}

	if len(holders) > topHolderCount {
		holders = holders[:topHolderCount]
	}
	rep.TopHolders = append(rep.TopHolders, holders...)

	return rep, nil
}
