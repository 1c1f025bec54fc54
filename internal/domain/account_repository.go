package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// AccountRepository owns account rows. It performs no balance
// arithmetic beyond applying a caller-computed delta; the overdraft
// invariant is enforced in one place, the transaction service.
type AccountRepository interface {
	Create(ctx context.Context, unit Unit, account Account) (Account, error)
	GetByID(ctx context.Context, id string) (Account, error)
	GetByNumber(ctx context.Context, accountNumber string) (Account, error)
	// GetForUpdate takes an exclusive row lock; it is only called
	// inside a transaction service operation.
	GetForUpdate(ctx context.Context, unit Unit, id string) (Account, error)
	ApplyBalanceChange(ctx context.Context, unit Unit, id string, delta decimal.Decimal) error
	UpdateStatus(ctx context.Context, unit Unit, id string, status AccountStatus) error
	SetOverdraftLimit(ctx context.Context, unit Unit, id string, limit decimal.Decimal) error
	List(ctx context.Context, filter AccountFilter) ([]Account, int, error)
}
