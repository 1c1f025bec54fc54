package domain

import "context"

type FeeTypeRepository interface {
	GetByName(ctx context.Context, feeName string) (FeeType, error)
	Upsert(ctx context.Context, feeType FeeType) (FeeType, error)
	List(ctx context.Context) ([]FeeType, error)
}
