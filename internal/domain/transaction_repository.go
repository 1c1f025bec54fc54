package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// TransactionRepository is the only writer of transaction history.
// Records are append-only; nothing here updates or deletes.
type TransactionRepository interface {
	Record(ctx context.Context, unit Unit, record TransactionRecord) (TransactionRecord, error)
	ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]TransactionRecord, error)
	List(ctx context.Context, filter TransactionFilter) ([]TransactionRecord, int, error)
	SumAll(ctx context.Context) (decimal.Decimal, error)
	SumByAccount(ctx context.Context, accountID string) (decimal.Decimal, error)
}
