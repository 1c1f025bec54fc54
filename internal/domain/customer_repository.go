package domain

import "context"

type CustomerRepository interface {
	Create(ctx context.Context, customer Customer) (Customer, error)
	GetByID(ctx context.Context, id string) (Customer, error)
	Exists(ctx context.Context, id string) (bool, error)
}
