package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/api-sage/bank-ledger/internal/domain"
)

type unit struct {
	tx *sql.Tx
}

// UnitRunner maps one domain unit of work onto one database
// transaction. Locks taken inside the unit are held until commit or
// rollback; a configurable lock_timeout bounds how long a competitor
// waits on a stuck holder.
type UnitRunner struct {
	db              *sql.DB
	lockWaitTimeout time.Duration
}

func NewUnitRunner(db *sql.DB, lockWaitTimeout time.Duration) *UnitRunner {
	return &UnitRunner{db: db, lockWaitTimeout: lockWaitTimeout}
}

func (r *UnitRunner) RunInUnit(ctx context.Context, fn func(unit domain.Unit) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin unit: %w", err)
	}

	if r.lockWaitTimeout > 0 {
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockWaitTimeout.Milliseconds())
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("set lock timeout: %w", err)
		}
	}

	if err := fn(unit{tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit unit: %w", err)
	}
	return nil
}

func txFromUnit(u domain.Unit) (*sql.Tx, error) {
	wrapped, ok := u.(unit)
	if !ok || wrapped.tx == nil {
		return nil, fmt.Errorf("operation requires a postgres unit of work")
	}
	return wrapped.tx, nil
}
