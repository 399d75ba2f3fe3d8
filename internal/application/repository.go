// AngelaMos | 2026
// repository.go

package application

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

var ErrPendingExists = errors.New("a pending application already exists")

type Repository interface {
	Create(ctx context.Context, a *Application) error
	GetByID(ctx context.Context, id string) (*Application, error)
	GetForUpdate(ctx context.Context, id string) (*Application, error)
	HasPending(ctx context.Context, memberID string) (bool, error)
	MarkReviewed(ctx context.Context, a *Application) error
	ListForMember(ctx context.Context, memberID string) ([]Application, error)
	List(ctx context.Context, params ListParams) ([]Application, int, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const applicationColumns = `
	id, member_id, membership_type, first_name, middle_name, last_name,
	email, phone, address, city, state, zip_code, spouse_name, spouse_phone,
	id_document, status, admin_notes, reviewed_by, reviewed_at, created_at,
	updated_at`

// Create inserts a pending application. The partial unique index on
// (member_id) WHERE status = 'pending' turns a concurrent second submission
// into ErrPendingExists.
func (r *repository) Create(ctx context.Context, a *Application) error {
	query := `
		INSERT INTO applications (
			id, member_id, membership_type, first_name, middle_name,
			last_name, email, phone, address, city, state, zip_code,
			spouse_name, spouse_phone, id_document, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		a.ID,
		a.MemberID,
		a.MembershipType,
		a.FirstName,
		a.MiddleName,
		a.LastName,
		a.Email,
		a.Phone,
		a.Address,
		a.City,
		a.State,
		a.ZipCode,
		a.SpouseName,
		a.SpousePhone,
		a.IDDocument,
		a.Status,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("create application: %w: %w", ErrPendingExists, core.ErrStateConflict)
		}
		return fmt.Errorf("create application: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Application, error) {
	query := `SELECT ` + applicationColumns + `
		FROM applications
		WHERE id = $1`

	return r.getOne(ctx, "get application", query, id)
}

func (r *repository) GetForUpdate(ctx context.Context, id string) (*Application, error) {
	query := `SELECT ` + applicationColumns + `
		FROM applications
		WHERE id = $1
		FOR UPDATE`

	return r.getOne(ctx, "lock application", query, id)
}

func (r *repository) getOne(
	ctx context.Context,
	op, query string,
	args ...any,
) (*Application, error) {
	var a Application
	err := r.db.GetContext(ctx, &a, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &a, nil
}

func (r *repository) HasPending(ctx context.Context, memberID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM applications
			WHERE member_id = $1 AND status = $2
		)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, memberID, review.StatusPending); err != nil {
		return false, fmt.Errorf("check pending application: %w", err)
	}
	return exists, nil
}

func (r *repository) MarkReviewed(ctx context.Context, a *Application) error {
	query := `
		UPDATE applications
		SET status = $2, admin_notes = $3, reviewed_by = $4, reviewed_at = $5,
		    updated_at = NOW()
		WHERE id = $1 AND status = $6
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &a.UpdatedAt, query,
		a.ID,
		a.Status,
		a.AdminNotes,
		a.ReviewedBy,
		a.ReviewedAt,
		review.StatusPending,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("mark application reviewed: application is not pending: %w", core.ErrStateConflict)
	}
	if err != nil {
		return fmt.Errorf("mark application reviewed: %w", err)
	}

	return nil
}

func (r *repository) ListForMember(ctx context.Context, memberID string) ([]Application, error) {
	query := `SELECT ` + applicationColumns + `
		FROM applications
		WHERE member_id = $1
		ORDER BY created_at DESC`

	var apps []Application
	if err := r.db.SelectContext(ctx, &apps, query, memberID); err != nil {
		return nil, fmt.Errorf("list member applications: %w", err)
	}
	return apps, nil
}

func (r *repository) List(
	ctx context.Context,
	params ListParams,
) ([]Application, int, error) {
	params.Normalize()

	conditions := []string{"TRUE"}
	var args []any
	argIdx := 1

	if params.MemberID != "" {
		conditions = append(conditions, fmt.Sprintf("member_id = $%d", argIdx))
		args = append(args, params.MemberID)
		argIdx++
	}

	if params.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, params.Status)
		argIdx++
	}

	if params.Type != "" {
		conditions = append(conditions, fmt.Sprintf("membership_type = $%d", argIdx))
		args = append(args, params.Type)
		argIdx++
	}

	whereClause := strings.Join(conditions, " AND ")

	var total int
	countQuery := "SELECT COUNT(*) FROM applications WHERE " + whereClause
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count applications: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM applications
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		applicationColumns, whereClause, argIdx, argIdx+1)

	args = append(args, params.PageSize, params.Offset())

	var apps []Application
	if err := r.db.SelectContext(ctx, &apps, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list applications: %w", err)
	}

	return apps, total, nil
}

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
