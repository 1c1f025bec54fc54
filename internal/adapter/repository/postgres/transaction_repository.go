package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/api-sage/bank-ledger/internal/domain"
	"github.com/api-sage/bank-ledger/internal/logger"
	"github.com/shopspring/decimal"
)

type TransactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Record appends one ledger entry inside the caller's unit. The type
// name is resolved against transaction_types in the same statement;
// an unknown name yields ErrInvalidTransactionType.
func (r *TransactionRepository) Record(ctx context.Context, u domain.Unit, record domain.TransactionRecord) (domain.TransactionRecord, error) {
	tx, err := txFromUnit(u)
	if err != nil {
		return domain.TransactionRecord{}, err
	}

	const query = `
INSERT INTO transactions (account_id, transaction_type_id, amount, description, related_account_id)
SELECT $1, tt.transaction_type_id, $2::numeric, $3, $4
FROM transaction_types tt
WHERE tt.type_name = $5
RETURNING id, created_at`

	var related sql.NullString
	if record.RelatedAccountID != nil {
		related = sql.NullString{String: *record.RelatedAccountID, Valid: true}
	}

	if err := tx.QueryRowContext(
		ctx,
		query,
		record.AccountID,
		record.Amount,
		record.Description,
		related,
		record.Type,
	).Scan(&record.ID, &record.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.TransactionRecord{}, fmt.Errorf("%w: %q", domain.ErrInvalidTransactionType, record.Type)
		}
		logger.Error("transaction repository record failed", err, logger.Fields{
			"accountId": record.AccountID,
			"type":      record.Type,
		})
		return domain.TransactionRecord{}, fmt.Errorf("record transaction: %w", err)
	}

	return record, nil
}

const transactionColumns = `
t.id, t.account_id, tt.type_name, t.amount, t.description, t.related_account_id, t.created_at`

func scanTransaction(row rowScanner) (domain.TransactionRecord, error) {
	var (
		record  domain.TransactionRecord
		related sql.NullString
	)
	err := row.Scan(
		&record.ID,
		&record.AccountID,
		&record.Type,
		&record.Amount,
		&record.Description,
		&related,
		&record.CreatedAt,
	)
	if related.Valid {
		value := related.String
		record.RelatedAccountID = &value
	}
	return record, err
}

func (r *TransactionRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]domain.TransactionRecord, error) {
	if limit < 1 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := `
SELECT ` + transactionColumns + `
FROM transactions t
JOIN transaction_types tt ON t.transaction_type_id = tt.transaction_type_id
WHERE t.account_id = $1
ORDER BY t.created_at DESC, t.id DESC
LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list transactions by account: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

func (r *TransactionRepository) List(ctx context.Context, filter domain.TransactionFilter) ([]domain.TransactionRecord, int, error) {
	conditions := make([]string, 0, 4)
	params := make([]any, 0, 6)

	if filter.AccountID != "" {
		params = append(params, filter.AccountID)
		conditions = append(conditions, fmt.Sprintf("t.account_id = $%d", len(params)))
	}
	if filter.Type != "" {
		params = append(params, filter.Type)
		conditions = append(conditions, fmt.Sprintf("tt.type_name = $%d", len(params)))
	}
	if filter.From != nil {
		params = append(params, *filter.From)
		conditions = append(conditions, fmt.Sprintf("t.created_at >= $%d", len(params)))
	}
	if filter.To != nil {
		params = append(params, *filter.To)
		conditions = append(conditions, fmt.Sprintf("t.created_at <= $%d", len(params)))
	}

	fromClause := `
FROM transactions t
JOIN transaction_types tt ON t.transaction_type_id = tt.transaction_type_id`
	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + joinConditions(conditions)
	}

	var total int
	countQuery := "SELECT COUNT(t.id)" + fromClause + whereClause
	if err := r.db.QueryRowContext(ctx, countQuery, params...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage < 1 {
		perPage = 20
	}

	params = append(params, perPage, (page-1)*perPage)
	listQuery := fmt.Sprintf(
		"SELECT %s%s%s ORDER BY t.created_at DESC, t.id DESC LIMIT $%d OFFSET $%d",
		transactionColumns, fromClause, whereClause, len(params)-1, len(params),
	)

	rows, err := r.db.QueryContext(ctx, listQuery, params...)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	records, err := collectTransactions(rows)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

func (r *TransactionRepository) SumAll(ctx context.Context) (decimal.Decimal, error) {
	const query = `SELECT COALESCE(SUM(amount), 0) FROM transactions`

	var sum decimal.Decimal
	if err := r.db.QueryRowContext(ctx, query).Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("sum all transactions: %w", err)
	}
	return sum, nil
}

func (r *TransactionRepository) SumByAccount(ctx context.Context, accountID string) (decimal.Decimal, error) {
	const query = `SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE account_id = $1`

	var sum decimal.Decimal
	if err := r.db.QueryRowContext(ctx, query, accountID).Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("sum transactions for account: %w", err)
	}
	return sum, nil
}

func collectTransactions(rows *sql.Rows) ([]domain.TransactionRecord, error) {
	records := make([]domain.TransactionRecord, 0)
	for rows.Next() {
		record, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return records, nil
}
