// AngelaMos | 2026
// repository.go

package activity

import (
	"context"
	"fmt"
	"strings"

	"github.com/pamojakenya/backend/internal/core"
)

type Repository interface {
	Create(ctx context.Context, a *Activity) error
	List(ctx context.Context, params ListParams) ([]Activity, int, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const activityColumns = `
	id, member_id, kind, description, target_id, ip_address, user_agent,
	created_at`

func (r *repository) Create(ctx context.Context, a *Activity) error {
	query := `
		INSERT INTO member_activities (
			id, member_id, kind, description, target_id, ip_address, user_agent
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`

	err := r.db.QueryRowxContext(ctx, query,
		a.ID,
		a.MemberID,
		a.Kind,
		a.Description,
		a.TargetID,
		a.IPAddress,
		a.UserAgent,
	).Scan(&a.CreatedAt)
	if err != nil {
		return fmt.Errorf("create activity: %w", err)
	}
	return nil
}

func (r *repository) List(
	ctx context.Context,
	params ListParams,
) ([]Activity, int, error) {
	params.Normalize()

	conditions := []string{"TRUE"}
	var args []any
	argIdx := 1

	if params.ActorID != "" {
		conditions = append(conditions, fmt.Sprintf("member_id = $%d", argIdx))
		args = append(args, params.ActorID)
		argIdx++
	}

	if params.SubjectID != "" {
		conditions = append(conditions,
			fmt.Sprintf("(member_id = $%d OR target_id = $%d)", argIdx, argIdx))
		args = append(args, params.SubjectID)
		argIdx++
	}

	if params.Kind != "" {
		conditions = append(conditions, fmt.Sprintf("kind = $%d", argIdx))
		args = append(args, params.Kind)
		argIdx++
	}

	whereClause := strings.Join(conditions, " AND ")

	var total int
	countQuery := "SELECT COUNT(*) FROM member_activities WHERE " + whereClause
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count activities: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM member_activities
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		activityColumns, whereClause, argIdx, argIdx+1)

	args = append(args, params.PageSize, params.Offset())

	var list []Activity
	if err := r.db.SelectContext(ctx, &list, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list activities: %w", err)
	}

	return list, total, nil
}
