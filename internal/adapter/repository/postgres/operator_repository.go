package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/api-sage/bank-ledger/internal/commons"
	"github.com/api-sage/bank-ledger/internal/domain"
	"github.com/api-sage/bank-ledger/internal/logger"
)

type OperatorRepository struct {
	db *sql.DB
}

func NewOperatorRepository(db *sql.DB) *OperatorRepository {
	return &OperatorRepository{db: db}
}

func (r *OperatorRepository) Create(ctx context.Context, operator domain.Operator) (domain.Operator, error) {
	const query = `
INSERT INTO operators (username, password_hash, role)
VALUES ($1, $2, $3)
RETURNING id, created_at`

	if err := r.db.QueryRowContext(
		ctx,
		query,
		operator.Username,
		operator.PasswordHash,
		operator.Role,
	).Scan(&operator.ID, &operator.CreatedAt); err != nil {
		logger.Error("operator repository create failed", err, logger.Fields{
			"username": operator.Username,
		})
		return domain.Operator{}, fmt.Errorf("create operator: %w", err)
	}

	return operator, nil
}

func (r *OperatorRepository) GetByUsername(ctx context.Context, username string) (domain.Operator, error) {
	const query = `
SELECT id, username, password_hash, role, created_at
FROM operators
WHERE username = $1`

	var operator domain.Operator
	if err := r.db.QueryRowContext(ctx, query, username).Scan(
		&operator.ID,
		&operator.Username,
		&operator.PasswordHash,
		&operator.Role,
		&operator.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Operator{}, commons.ErrRecordNotFound
		}
		logger.Error("operator repository get by username failed", err, logger.Fields{
			"username": username,
		})
		return domain.Operator{}, fmt.Errorf("get operator by username: %w", err)
	}

	return operator, nil
}
