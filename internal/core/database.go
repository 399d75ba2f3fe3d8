// AngelaMos | 2026
// database.go

package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/pamojakenya/backend/internal/config"
)

const (
	lockTimeout = "5s"
	txAttempts  = 3

	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
)

type Database struct {
	DB  *sqlx.DB
	url string
}

func NewDatabase(ctx context.Context, cfg config.DatabaseConfig) (*Database, error) {
	db, err := sqlx.ConnectContext(ctx, "pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(withJitter(cfg.ConnMaxLifetime))
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	d := &Database{DB: db, url: cfg.URL}
	if err := d.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return d, nil
}

func (d *Database) Ping(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := d.DB.PingContext(probeCtx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

func (d *Database) Stats() sql.DBStats {
	return d.DB.Stats()
}

func (d *Database) Close() error {
	if d.DB == nil {
		return nil
	}
	return d.DB.Close()
}

// DBTX is satisfied by both *sqlx.DB and *sqlx.Tx so repositories run the
// same code inside and outside a transaction.
type DBTX interface {
	sqlx.ExtContext
	sqlx.ExecerContext
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

// Transactor is the seam services use to run several repository calls
// atomically without depending on *sqlx.DB directly.
type Transactor interface {
	InTx(ctx context.Context, fn func(tx DBTX) error) error
}

// InTx runs fn in a transaction whose lock waits are bounded by lockTimeout.
// Deadlocks and serialization failures are retried; a lock that stays busy
// past the timeout surfaces as ErrStateConflict so two admins reviewing the
// same member get a 409 instead of a 500.
func (d *Database) InTx(ctx context.Context, fn func(tx DBTX) error) error {
	var err error
	for attempt := range txAttempts {
		err = runTx(ctx, d.DB, func(tx *sqlx.Tx) error {
			if _, err := tx.ExecContext(ctx, "SET LOCAL lock_timeout = '"+lockTimeout+"'"); err != nil {
				return fmt.Errorf("set lock timeout: %w", err)
			}
			return fn(tx)
		})

		switch pgCode(err) {
		case pgSerializationFailure, pgDeadlockDetected:
			if attempt+1 < txAttempts {
				if waitErr := backoff(ctx, attempt); waitErr != nil {
					return waitErr
				}
				continue
			}
		case pgLockNotAvailable:
			return fmt.Errorf("record is locked by another review: %w", ErrStateConflict)
		}
		return err
	}
	return err
}

func runTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback: %w (cause: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func backoff(ctx context.Context, attempt int) error {
	//nolint:gosec // retry jitter
	wait := time.Duration(attempt+1)*25*time.Millisecond + time.Duration(rand.Int64N(int64(25*time.Millisecond)))
	select {
	case <-time.After(wait):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func withJitter(base time.Duration) time.Duration {
	if base <= 0 {
		return base
	}
	//nolint:gosec // pool lifetime jitter
	return base + time.Duration(rand.Int64N(int64(base/7)+1))
}
