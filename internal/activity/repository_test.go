// AngelaMos | 2026
// repository_test.go

package activity

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var activityCols = []string{
	"id", "member_id", "kind", "description", "target_id", "ip_address",
	"user_agent", "created_at",
}

func newMockRepo(t *testing.T) (Repository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewRepository(sqlx.NewDb(db, "pgx")), mock
}

func TestCreateStampsCreatedAt(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

	mock.ExpectQuery(`INSERT INTO member_activities`).
		WithArgs("act-1", "m-1", KindLogin, "Signed in", "", "203.0.113.9", "curl/8").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))

	a := &Activity{
		ID:          "act-1",
		MemberID:    "m-1",
		Kind:        KindLogin,
		Description: "Signed in",
		IPAddress:   "203.0.113.9",
		UserAgent:   "curl/8",
	}
	require.NoError(t, repo.Create(context.Background(), a))
	assert.Equal(t, now, a.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListSubjectMatchesActorOrTarget(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM member_activities WHERE TRUE AND \(member_id = \$1 OR target_id = \$1\) AND kind = \$2`).
		WithArgs("m-1", "shares_deducted").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`FROM member_activities\s+WHERE .+\s+ORDER BY created_at DESC\s+LIMIT \$3 OFFSET \$4`).
		WithArgs("m-1", "shares_deducted", 20, 0).
		WillReturnRows(sqlmock.NewRows(activityCols).AddRow(
			"act-9", "admin-1", "shares_deducted", "Deducted shares from a member",
			"m-1", "198.51.100.2", "Mozilla/5.0", now,
		))

	list, total, err := repo.List(context.Background(), ListParams{
		SubjectID: "m-1",
		Kind:      string(KindSharesDeducted),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, list, 1)
	assert.Equal(t, "admin-1", list[0].MemberID)
	assert.Equal(t, "m-1", list[0].TargetID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
