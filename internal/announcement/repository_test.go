// AngelaMos | 2026
// repository_test.go

package announcement

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pamojakenya/backend/internal/core"
)

var announcementCols = []string{
	"id", "title", "content", "priority", "audience", "is_active",
	"expires_at", "created_by", "created_at", "updated_at",
}

func newMockRepo(t *testing.T) (Repository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewRepository(sqlx.NewDb(db, "pgx")), mock
}

func TestListVisibleFiltersAudienceAndExpiry(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM announcements WHERE TRUE AND is_active AND \(expires_at IS NULL OR expires_at > \$1\) AND audience IN \(\$2, \$3\)`).
		WithArgs(fixedNow, AudienceAll, AudienceMembers).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`ORDER BY\s+CASE priority.+LIMIT \$4 OFFSET \$5`).
		WithArgs(fixedNow, AudienceAll, AudienceMembers, 20, 0).
		WillReturnRows(sqlmock.NewRows(announcementCols).AddRow(
			"a-1", "AGM", "Saturday", "urgent", "all", true, nil, "admin-1", fixedNow, fixedNow,
		))

	list, total, err := repo.List(context.Background(), ListParams{
		Visible:   true,
		Audiences: []string{AudienceAll, AudienceMembers},
		Now:       fixedNow,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, list, 1)
	assert.Equal(t, PriorityUrgent, list[0].Priority)
	assert.Nil(t, list[0].ExpiresAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteMissingAnnouncement(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`DELETE FROM announcements WHERE id = \$1`).
		WithArgs("gone").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "gone")
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
