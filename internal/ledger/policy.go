// AngelaMos | 2026
// policy.go

package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/pamojakenya/backend/internal/config"
)

// Policy carries the business constants the aggregate rules depend on.
type Policy struct {
	SharePrice          decimal.Decimal
	ActivationThreshold int
	ActivationRule      string
}

func PolicyFromConfig(cfg config.MembershipConfig) (Policy, error) {
	price, err := cfg.SharePrice()
	if err != nil {
		return Policy{}, err
	}

	switch cfg.ActivationRule {
	case config.ActivationRuleFee, config.ActivationRuleShares, config.ActivationRuleEither:
	default:
		return Policy{}, fmt.Errorf("unknown activation rule %q", cfg.ActivationRule)
	}

	return Policy{
		SharePrice:          price,
		ActivationThreshold: cfg.ActivationThreshold,
		ActivationRule:      cfg.ActivationRule,
	}, nil
}

// ImpliedShares is floor(amount / price).
func (p Policy) ImpliedShares(amount decimal.Decimal) int {
	if !p.SharePrice.IsPositive() || !amount.IsPositive() {
		return 0
	}
	return int(amount.Div(p.SharePrice).Floor().IntPart())
}

// Cost is the price of shares at the configured rate.
func (p Policy) Cost(shares int) decimal.Decimal {
	return p.SharePrice.Mul(decimal.NewFromInt(int64(shares)))
}
