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

type FeeTypeRepository struct {
	db *sql.DB
}

func NewFeeTypeRepository(db *sql.DB) *FeeTypeRepository {
	return &FeeTypeRepository{db: db}
}

func (r *FeeTypeRepository) GetByName(ctx context.Context, feeName string) (domain.FeeType, error) {
	const query = `
SELECT fee_type_id, fee_name, default_amount
FROM fee_types
WHERE fee_name = $1`

	var feeType domain.FeeType
	if err := r.db.QueryRowContext(ctx, query, feeName).Scan(
		&feeType.ID,
		&feeType.FeeName,
		&feeType.DefaultAmount,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.FeeType{}, commons.ErrRecordNotFound
		}
		logger.Error("fee type repository get by name failed", err, logger.Fields{
			"feeName": feeName,
		})
		return domain.FeeType{}, fmt.Errorf("get fee type by name: %w", err)
	}

	return feeType, nil
}

func (r *FeeTypeRepository) Upsert(ctx context.Context, feeType domain.FeeType) (domain.FeeType, error) {
	const query = `
INSERT INTO fee_types (fee_name, default_amount)
VALUES ($1, $2::numeric)
ON CONFLICT (fee_name) DO UPDATE SET default_amount = EXCLUDED.default_amount
RETURNING fee_type_id`

	if err := r.db.QueryRowContext(ctx, query, feeType.FeeName, feeType.DefaultAmount).Scan(&feeType.ID); err != nil {
		logger.Error("fee type repository upsert failed", err, logger.Fields{
			"feeName": feeType.FeeName,
		})
		return domain.FeeType{}, fmt.Errorf("upsert fee type: %w", err)
	}

	return feeType, nil
}

func (r *FeeTypeRepository) List(ctx context.Context) ([]domain.FeeType, error) {
	const query = `
SELECT fee_type_id, fee_name, default_amount
FROM fee_types
ORDER BY fee_name ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list fee types: %w", err)
	}
	defer rows.Close()

	feeTypes := make([]domain.FeeType, 0)
	for rows.Next() {
		var feeType domain.FeeType
		if err := rows.Scan(&feeType.ID, &feeType.FeeName, &feeType.DefaultAmount); err != nil {
			return nil, fmt.Errorf("scan fee type: %w", err)
		}
		feeTypes = append(feeTypes, feeType)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fee types: %w", err)
	}

	return feeTypes, nil
}
