// AngelaMos | 2026
// database_test.go

package core

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDatabase(t *testing.T) (*Database, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Close() })
	return &Database{DB: sqlx.NewDb(raw, "sqlmock")}, mock
}

func expectLockTimeout(mock sqlmock.Sqlmock) {
	mock.ExpectExec("SET LOCAL lock_timeout").WillReturnResult(sqlmock.NewResult(0, 0))
}

func TestInTxRetriesDeadlock(t *testing.T) {
	db, mock := newMockDatabase(t)

	mock.ExpectBegin()
	expectLockTimeout(mock)
	mock.ExpectRollback()
	mock.ExpectBegin()
	expectLockTimeout(mock)
	mock.ExpectCommit()

	calls := 0
	err := db.InTx(context.Background(), func(DBTX) error {
		calls++
		if calls == 1 {
			return &pgconn.PgError{Code: pgDeadlockDetected}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInTxBusyLockIsStateConflict(t *testing.T) {
	db, mock := newMockDatabase(t)

	mock.ExpectBegin()
	expectLockTimeout(mock)
	mock.ExpectRollback()

	err := db.InTx(context.Background(), func(DBTX) error {
		return &pgconn.PgError{Code: pgLockNotAvailable}
	})

	assert.ErrorIs(t, err, ErrStateConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInTxReturnsDomainErrorUntouched(t *testing.T) {
	db, mock := newMockDatabase(t)

	mock.ExpectBegin()
	expectLockTimeout(mock)
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := db.InTx(context.Background(), func(DBTX) error { return boom })

	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrateLeavesAppPoolAlone(t *testing.T) {
	db, mock := newMockDatabase(t)
	db.url = "postgres://pamoja@127.0.0.1:1/pamoja?sslmode=disable&connect_timeout=2"

	_, err := db.Migrate()
	require.Error(t, err)

	assert.Zero(t, db.DB.Stats().InUse)
	assert.NoError(t, mock.ExpectationsWereMet())
}
