// AngelaMos | 2026
// repository.go

package member

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pamojakenya/backend/internal/core"
)

type Repository interface {
	Create(ctx context.Context, m *Member) error
	GetByID(ctx context.Context, id string) (*Member, error)
	GetByEmail(ctx context.Context, email string) (*Member, error)
	GetForUpdate(ctx context.Context, id string) (*Member, error)
	UpdateProfile(ctx context.Context, m *Member) error
	UpdateContact(ctx context.Context, id string, name, phone, address *string) (*Member, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	IncrementTokenVersion(ctx context.Context, id string) error
	UpdateAggregate(ctx context.Context, id string, agg Aggregate) error
	SoftDelete(ctx context.Context, id string) error
	List(ctx context.Context, params ListMembersParams) ([]Member, int, error)
	ListIDs(ctx context.Context) ([]string, error)
	ListHolding(ctx context.Context, minShares int) ([]Member, error)
	CountByStatus(ctx context.Context) ([]StatusCount, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const memberColumns = `
	id, email, password_hash, name, phone, address, role, token_version,
	shares_owned, membership_status, membership_type, activation_date,
	created_at, updated_at, deleted_at`

func (r *repository) Create(ctx context.Context, m *Member) error {
	query := `
		INSERT INTO members (id, email, password_hash, name, phone, address, role)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING token_version, shares_owned, membership_status,
		          membership_type, created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		m.ID,
		m.Email,
		m.PasswordHash,
		m.Name,
		m.Phone,
		m.Address,
		m.Role,
	).Scan(
		&m.TokenVersion,
		&m.SharesOwned,
		&m.MembershipStatus,
		&m.MembershipType,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("create member: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create member: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Member, error) {
	query := `SELECT ` + memberColumns + `
		FROM members
		WHERE id = $1 AND deleted_at IS NULL`

	return r.getOne(ctx, "get member", query, id)
}

func (r *repository) GetByEmail(
	ctx context.Context,
	email string,
) (*Member, error) {
	query := `SELECT ` + memberColumns + `
		FROM members
		WHERE email = $1 AND deleted_at IS NULL`

	return r.getOne(ctx, "get member by email", query, email)
}

// GetForUpdate reads the member and holds its row lock until the enclosing
// transaction ends. Callers must be inside core.InTx.
func (r *repository) GetForUpdate(
	ctx context.Context,
	id string,
) (*Member, error) {
	query := `SELECT ` + memberColumns + `
		FROM members
		WHERE id = $1 AND deleted_at IS NULL
		FOR UPDATE`

	return r.getOne(ctx, "lock member", query, id)
}

func (r *repository) getOne(
	ctx context.Context,
	op, query string,
	args ...any,
) (*Member, error) {
	var m Member
	err := r.db.GetContext(ctx, &m, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &m, nil
}

// UpdateProfile writes the admin-editable columns from m. It overwrites
// membership_type and membership_status, so m must have been read with
// GetForUpdate in the same transaction.
func (r *repository) UpdateProfile(ctx context.Context, m *Member) error {
	query := `
		UPDATE members
		SET name = $2, phone = $3, address = $4, role = $5,
		    membership_type = $6, membership_status = $7, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &m.UpdatedAt, query,
		m.ID,
		m.Name,
		m.Phone,
		m.Address,
		m.Role,
		m.MembershipType,
		m.MembershipStatus,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update member: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update member: %w", err)
	}

	return nil
}

// UpdateContact sets only the self-service columns. A nil field keeps the
// stored value.
func (r *repository) UpdateContact(
	ctx context.Context,
	id string,
	name, phone, address *string,
) (*Member, error) {
	query := `
		UPDATE members
		SET name = COALESCE($2, name),
		    phone = COALESCE($3, phone),
		    address = COALESCE($4, address),
		    updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING ` + memberColumns

	return r.getOne(ctx, "update contact", query, id, name, phone, address)
}

func (r *repository) UpdatePassword(
	ctx context.Context,
	id, passwordHash string,
) error {
	query := `
		UPDATE members
		SET password_hash = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`

	return r.execOne(ctx, "update password", query, id, passwordHash)
}

func (r *repository) IncrementTokenVersion(
	ctx context.Context,
	id string,
) error {
	query := `
		UPDATE members
		SET token_version = token_version + 1, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`

	return r.execOne(ctx, "increment token version", query, id)
}

func (r *repository) UpdateAggregate(
	ctx context.Context,
	id string,
	agg Aggregate,
) error {
	query := `
		UPDATE members
		SET shares_owned = $2, membership_status = $3, activation_date = $4,
		    updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`

	return r.execOne(ctx, "update aggregate", query,
		id,
		agg.SharesOwned,
		agg.MembershipStatus,
		agg.ActivationDate,
	)
}

func (r *repository) SoftDelete(ctx context.Context, id string) error {
	query := `
		UPDATE members
		SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`

	return r.execOne(ctx, "delete member", query, id)
}

func (r *repository) execOne(
	ctx context.Context,
	op, query string,
	args ...any,
) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if rows == 0 {
		return fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}

	return nil
}

func (r *repository) List(
	ctx context.Context,
	params ListMembersParams,
) ([]Member, int, error) {
	params.Normalize()

	var conditions []string
	var args []any
	argIdx := 1

	conditions = append(conditions, "deleted_at IS NULL")

	if params.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(email ILIKE $%d OR name ILIKE $%d)", argIdx, argIdx))
		args = append(args, "%"+escapeLike(params.Search)+"%")
		argIdx++
	}

	if params.Role != "" {
		conditions = append(conditions, fmt.Sprintf("role = $%d", argIdx))
		args = append(args, params.Role)
		argIdx++
	}

	if params.MembershipStatus != "" {
		conditions = append(conditions, fmt.Sprintf("membership_status = $%d", argIdx))
		args = append(args, params.MembershipStatus)
		argIdx++
	}

	if params.MembershipType != "" {
		conditions = append(conditions, fmt.Sprintf("membership_type = $%d", argIdx))
		args = append(args, params.MembershipType)
		argIdx++
	}

	whereClause := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf(
		"SELECT COUNT(*) FROM members WHERE %s",
		whereClause,
	)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count members: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM members
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		memberColumns, whereClause, argIdx, argIdx+1)

	args = append(args, params.PageSize, params.Offset())

	var members []Member
	if err := r.db.SelectContext(ctx, &members, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list members: %w", err)
	}

	return members, total, nil
}

func (r *repository) ListIDs(ctx context.Context) ([]string, error) {
	query := `SELECT id FROM members WHERE deleted_at IS NULL ORDER BY created_at`

	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query); err != nil {
		return nil, fmt.Errorf("list member ids: %w", err)
	}
	return ids, nil
}

func (r *repository) ListHolding(
	ctx context.Context,
	minShares int,
) ([]Member, error) {
	query := `SELECT ` + memberColumns + `
		FROM members
		WHERE deleted_at IS NULL AND shares_owned >= $1
		ORDER BY created_at`

	var members []Member
	if err := r.db.SelectContext(ctx, &members, query, minShares); err != nil {
		return nil, fmt.Errorf("list share holders: %w", err)
	}
	return members, nil
}

func (r *repository) CountByStatus(ctx context.Context) ([]StatusCount, error) {
	query := `
		SELECT membership_status, COUNT(*) AS members,
		       COALESCE(SUM(shares_owned), 0) AS shares
		FROM members
		WHERE deleted_at IS NULL
		GROUP BY membership_status
		ORDER BY membership_status`

	var counts []StatusCount
	if err := r.db.SelectContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("count members by status: %w", err)
	}
	return counts, nil
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
