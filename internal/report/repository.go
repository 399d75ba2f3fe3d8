// AngelaMos | 2026
// repository.go

package report

import (
	"context"
	"fmt"
	"time"

	"github.com/pamojakenya/backend/internal/core"
	"github.com/pamojakenya/backend/internal/ledger"
	"github.com/pamojakenya/backend/internal/review"
)

type Repository interface {
	KindTotals(ctx context.Context, rng Range) ([]KindTotal, error)
	ShareMovements(ctx context.Context) (sold, deducted int, err error)
	Holdings(ctx context.Context) ([]Holder, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

// KindTotals sums approved money movements per kind. Payouts count the
// approved amount when the reviewer changed it. Share deductions carry a
// share count rather than money and are left out.
func (r *repository) KindTotals(ctx context.Context, rng Range) ([]KindTotal, error) {
	query := `
		SELECT kind,
		       COUNT(*) AS count,
		       COALESCE(SUM(COALESCE(amount_approved, amount)), 0) AS total
		FROM ledger_entries
		WHERE status = $1
		  AND kind <> $2
		  AND ($3::timestamptz IS NULL OR reviewed_at >= $3)
		  AND ($4::timestamptz IS NULL OR reviewed_at < $4)
		GROUP BY kind
		ORDER BY kind`

	var totals []KindTotal
	err := r.db.SelectContext(ctx, &totals, query,
		review.StatusApproved,
		ledger.KindShareDeduction,
		nullTime(rng.From),
		nullTime(rng.To),
	)
	if err != nil {
		return nil, fmt.Errorf("kind totals: %w", err)
	}

	return totals, nil
}

func (r *repository) ShareMovements(ctx context.Context) (int, int, error) {
	query := `
		SELECT
			COALESCE(SUM(shares_assigned) FILTER (WHERE kind = $2), 0) AS sold,
			COALESCE(SUM(amount::integer) FILTER (WHERE kind = $3), 0) AS deducted
		FROM ledger_entries
		WHERE status = $1`

	var row struct {
		Sold     int `db:"sold"`
		Deducted int `db:"deducted"`
	}
	err := r.db.GetContext(ctx, &row, query,
		review.StatusApproved,
		ledger.KindSharePurchase,
		ledger.KindShareDeduction,
	)
	if err != nil {
		return 0, 0, fmt.Errorf("share movements: %w", err)
	}

	return row.Sold, row.Deducted, nil
}

func (r *repository) Holdings(ctx context.Context) ([]Holder, error) {
	query := `
		SELECT id, name, email, shares_owned
		FROM members
		WHERE deleted_at IS NULL AND shares_owned > 0
		ORDER BY shares_owned DESC, name`

	var holders []Holder
	if err := r.db.SelectContext(ctx, &holders, query); err != nil {
		return nil, fmt.Errorf("holdings: %w", err)
	}

	return holders, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
