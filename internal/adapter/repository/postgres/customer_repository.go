package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/api-sage/bank-ledger/internal/domain"
	"github.com/api-sage/bank-ledger/internal/logger"
)

type CustomerRepository struct {
	db *sql.DB
}

func NewCustomerRepository(db *sql.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

func (r *CustomerRepository) Create(ctx context.Context, customer domain.Customer) (domain.Customer, error) {
	const query = `
INSERT INTO customers (first_name, last_name, email)
VALUES ($1, $2, $3)
RETURNING id, created_at`

	if err := r.db.QueryRowContext(
		ctx,
		query,
		customer.FirstName,
		customer.LastName,
		customer.Email,
	).Scan(&customer.ID, &customer.CreatedAt); err != nil {
		logger.Error("customer repository create failed", err, logger.Fields{
			"email": customer.Email,
		})
		return domain.Customer{}, fmt.Errorf("create customer: %w", err)
	}

	return customer, nil
}

func (r *CustomerRepository) GetByID(ctx context.Context, id string) (domain.Customer, error) {
	const query = `
SELECT id, first_name, last_name, email, created_at
FROM customers
WHERE id = $1`

	var customer domain.Customer
	if err := r.db.QueryRowContext(ctx, query, id).Scan(
		&customer.ID,
		&customer.FirstName,
		&customer.LastName,
		&customer.Email,
		&customer.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Customer{}, domain.ErrCustomerNotFound
		}
		logger.Error("customer repository get by id failed", err, logger.Fields{
			"customerId": id,
		})
		return domain.Customer{}, fmt.Errorf("get customer by id: %w", err)
	}

	return customer, nil
}

func (r *CustomerRepository) Exists(ctx context.Context, id string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM customers WHERE id = $1)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check customer exists: %w", err)
	}
	return exists, nil
}
