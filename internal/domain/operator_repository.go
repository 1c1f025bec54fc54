package domain

import "context"

type OperatorRepository interface {
	Create(ctx context.Context, operator Operator) (Operator, error)
	GetByUsername(ctx context.Context, username string) (Operator, error)
}
