package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/api-sage/bank-ledger/internal/logger"
	"github.com/lib/pq"
)

// PoolLimits bounds the shared connection pool. Units of work hold a
// connection for their whole lifetime, so MaxOpen is also the ceiling
// on concurrent ledger operations.
type PoolLimits struct {
	MaxIdle     int
	MaxOpen     int
	MaxIdleTime time.Duration
	MaxLifetime time.Duration
}

func DefaultPoolLimits() PoolLimits {
	return PoolLimits{
		MaxIdle:     20,
		MaxOpen:     30,
		MaxIdleTime: 5 * time.Minute,
		MaxLifetime: 15 * time.Minute,
	}
}

// Open connects, verifies the connection and applies the pool limits.
func Open(ctx context.Context, dsn string, limits PoolLimits) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	db.SetMaxIdleConns(limits.MaxIdle)
	db.SetMaxOpenConns(limits.MaxOpen)
	db.SetConnMaxIdleTime(limits.MaxIdleTime)
	db.SetConnMaxLifetime(limits.MaxLifetime)

	logger.Info("postgres pool ready", logger.Fields{
		"maxOpen": limits.MaxOpen,
		"maxIdle": limits.MaxIdle,
	})

	return db, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == "23505"
	}
	return false
}
