// AngelaMos | 2026
// repository.go

package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pamojakenya/backend/internal/core"
	"github.com/pamojakenya/backend/internal/review"
)

type Repository interface {
	Create(ctx context.Context, e *Entry) error
	GetByID(ctx context.Context, id string) (*Entry, error)
	GetForUpdate(ctx context.Context, id string) (*Entry, error)
	MarkReviewed(ctx context.Context, e *Entry) error
	ListApproved(ctx context.Context, memberID string) ([]Entry, error)
	ListForMember(ctx context.Context, memberID string) ([]Entry, error)
	List(ctx context.Context, params ListParams) ([]Entry, int, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const entryColumns = `
	id, member_id, kind, amount, method, transaction_id, reference_id,
	description, proof_ref, status, shares_requested, shares_assigned,
	amount_approved, admin_notes, reviewed_by, reviewed_at, created_at,
	updated_at`

func (r *repository) Create(ctx context.Context, e *Entry) error {
	query := `
		INSERT INTO ledger_entries (
			id, member_id, kind, amount, method, transaction_id,
			reference_id, description, proof_ref, status, shares_requested
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		e.ID,
		e.MemberID,
		e.Kind,
		e.Amount,
		e.Method,
		e.TransactionID,
		e.ReferenceID,
		e.Description,
		e.ProofRef,
		e.Status,
		e.SharesRequested,
	).Scan(&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("create entry: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create entry: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Entry, error) {
	query := `SELECT ` + entryColumns + `
		FROM ledger_entries
		WHERE id = $1`

	return r.getOne(ctx, "get entry", query, id)
}

// GetForUpdate locks the entry row for the rest of the transaction.
func (r *repository) GetForUpdate(
	ctx context.Context,
	id string,
) (*Entry, error) {
	query := `SELECT ` + entryColumns + `
		FROM ledger_entries
		WHERE id = $1
		FOR UPDATE`

	return r.getOne(ctx, "lock entry", query, id)
}

func (r *repository) getOne(
	ctx context.Context,
	op, query string,
	args ...any,
) (*Entry, error) {
	var e Entry
	err := r.db.GetContext(ctx, &e, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &e, nil
}

// MarkReviewed persists the review stamp and side-effect columns. The
// status guard makes a second review a no-op at the SQL level even if the
// caller skipped the lock.
func (r *repository) MarkReviewed(ctx context.Context, e *Entry) error {
	query := `
		UPDATE ledger_entries
		SET status = $2, shares_assigned = $3, amount_approved = $4,
		    admin_notes = $5, reviewed_by = $6, reviewed_at = $7,
		    updated_at = NOW()
		WHERE id = $1 AND status = $8
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &e.UpdatedAt, query,
		e.ID,
		e.Status,
		e.SharesAssigned,
		e.AmountApproved,
		e.AdminNotes,
		e.ReviewedBy,
		e.ReviewedAt,
		review.StatusPending,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("mark entry reviewed: entry is not pending: %w", core.ErrStateConflict)
	}
	if err != nil {
		return fmt.Errorf("mark entry reviewed: %w", err)
	}

	return nil
}

func (r *repository) ListApproved(
	ctx context.Context,
	memberID string,
) ([]Entry, error) {
	query := `SELECT ` + entryColumns + `
		FROM ledger_entries
		WHERE member_id = $1 AND status = $2
		ORDER BY reviewed_at, created_at`

	var entries []Entry
	err := r.db.SelectContext(ctx, &entries, query, memberID, review.StatusApproved)
	if err != nil {
		return nil, fmt.Errorf("list approved entries: %w", err)
	}
	return entries, nil
}

func (r *repository) ListForMember(
	ctx context.Context,
	memberID string,
) ([]Entry, error) {
	query := `SELECT ` + entryColumns + `
		FROM ledger_entries
		WHERE member_id = $1
		ORDER BY created_at DESC`

	var entries []Entry
	if err := r.db.SelectContext(ctx, &entries, query, memberID); err != nil {
		return nil, fmt.Errorf("list member entries: %w", err)
	}
	return entries, nil
}

func (r *repository) List(
	ctx context.Context,
	params ListParams,
) ([]Entry, int, error) {
	params.Normalize()

	var conditions []string
	var args []any
	argIdx := 1

	conditions = append(conditions, "TRUE")

	if params.MemberID != "" {
		conditions = append(conditions, fmt.Sprintf("member_id = $%d", argIdx))
		args = append(args, params.MemberID)
		argIdx++
	}

	if params.Kind != "" {
		conditions = append(conditions, fmt.Sprintf("kind = $%d", argIdx))
		args = append(args, params.Kind)
		argIdx++
	}

	if params.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, params.Status)
		argIdx++
	}

	if params.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(reference_id ILIKE $%d OR transaction_id ILIKE $%d)", argIdx, argIdx))
		args = append(args, "%"+escapeLike(params.Search)+"%")
		argIdx++
	}

	whereClause := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf(
		"SELECT COUNT(*) FROM ledger_entries WHERE %s",
		whereClause,
	)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count entries: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM ledger_entries
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		entryColumns, whereClause, argIdx, argIdx+1)

	args = append(args, params.PageSize, params.Offset())

	var entries []Entry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list entries: %w", err)
	}

	return entries, total, nil
}

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "%", "\\%")
	s = strings.ReplaceAll(s, "_", "\\_")
	return s
}
