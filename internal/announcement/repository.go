// AngelaMos | 2026
// repository.go

package announcement

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/pamojakenya/backend/internal/core"
)

type Repository interface {
	Create(ctx context.Context, a *Announcement) error
	GetByID(ctx context.Context, id string) (*Announcement, error)
	GetForUpdate(ctx context.Context, id string) (*Announcement, error)
	Update(ctx context.Context, a *Announcement) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, params ListParams) ([]Announcement, int, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const announcementColumns = `
	id, title, content, priority, audience, is_active, expires_at,
	created_by, created_at, updated_at`

func (r *repository) Create(ctx context.Context, a *Announcement) error {
	query := `
		INSERT INTO announcements (
			id, title, content, priority, audience, is_active, expires_at,
			created_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		a.ID,
		a.Title,
		a.Content,
		a.Priority,
		a.Audience,
		a.IsActive,
		a.ExpiresAt,
		a.CreatedBy,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create announcement: %w", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Announcement, error) {
	query := `SELECT ` + announcementColumns + ` FROM announcements WHERE id = $1`
	return r.getOne(ctx, "get announcement", query, id)
}

func (r *repository) GetForUpdate(ctx context.Context, id string) (*Announcement, error) {
	query := `SELECT ` + announcementColumns + ` FROM announcements WHERE id = $1 FOR UPDATE`
	return r.getOne(ctx, "lock announcement", query, id)
}

func (r *repository) getOne(
	ctx context.Context,
	op, query string,
	args ...any,
) (*Announcement, error) {
	var a Announcement
	err := r.db.GetContext(ctx, &a, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &a, nil
}

func (r *repository) Update(ctx context.Context, a *Announcement) error {
	query := `
		UPDATE announcements
		SET title = $2,
			content = $3,
			priority = $4,
			audience = $5,
			is_active = $6,
			expires_at = $7,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		a.ID,
		a.Title,
		a.Content,
		a.Priority,
		a.Audience,
		a.IsActive,
		a.ExpiresAt,
	).Scan(&a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update announcement: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update announcement: %w", err)
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM announcements WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete announcement: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete announcement: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("delete announcement: %w", core.ErrNotFound)
	}
	return nil
}

func (r *repository) List(
	ctx context.Context,
	params ListParams,
) ([]Announcement, int, error) {
	params.Normalize()

	conditions := []string{"TRUE"}
	var args []any
	argIdx := 1

	if params.Visible {
		conditions = append(conditions,
			"is_active",
			fmt.Sprintf("(expires_at IS NULL OR expires_at > $%d)", argIdx))
		args = append(args, params.Now)
		argIdx++

		placeholders := make([]string, len(params.Audiences))
		for i, aud := range params.Audiences {
			placeholders[i] = fmt.Sprintf("$%d", argIdx)
			args = append(args, aud)
			argIdx++
		}
		if len(placeholders) == 0 {
			conditions = append(conditions, "FALSE")
		} else {
			conditions = append(conditions,
				"audience IN ("+strings.Join(placeholders, ", ")+")")
		}
	}

	whereClause := strings.Join(conditions, " AND ")

	var total int
	countQuery := "SELECT COUNT(*) FROM announcements WHERE " + whereClause
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count announcements: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM announcements
		WHERE %s
		ORDER BY
			CASE priority
				WHEN 'urgent' THEN 0
				WHEN 'high' THEN 1
				WHEN 'medium' THEN 2
				ELSE 3
			END,
			created_at DESC
		LIMIT $%d OFFSET $%d`,
		announcementColumns, whereClause, argIdx, argIdx+1)

	args = append(args, params.PageSize, params.Offset())

	var list []Announcement
	if err := r.db.SelectContext(ctx, &list, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list announcements: %w", err)
	}

	return list, total, nil
}
