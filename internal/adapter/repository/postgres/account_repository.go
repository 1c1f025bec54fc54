package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/api-sage/bank-ledger/internal/commons"
	"github.com/api-sage/bank-ledger/internal/domain"
	"github.com/api-sage/bank-ledger/internal/logger"
	"github.com/shopspring/decimal"
)

type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountColumns = `
a.id, a.customer_id, a.account_number, a.account_type, a.currency,
a.balance, a.overdraft_limit, s.status_name, a.opened_at, a.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (domain.Account, error) {
	var account domain.Account
	err := row.Scan(
		&account.ID,
		&account.CustomerID,
		&account.AccountNumber,
		&account.AccountType,
		&account.Currency,
		&account.Balance,
		&account.OverdraftLimit,
		&account.Status,
		&account.OpenedAt,
		&account.UpdatedAt,
	)
	return account, err
}

func (r *AccountRepository) Create(ctx context.Context, u domain.Unit, account domain.Account) (domain.Account, error) {
	tx, err := txFromUnit(u)
	if err != nil {
		return domain.Account{}, err
	}

	const query = `
INSERT INTO accounts (
	customer_id,
	account_number,
	account_type,
	currency,
	balance,
	overdraft_limit,
	status_id
) VALUES (
	$1, $2, $3, $4, $5, $6,
	(SELECT status_id FROM account_status_types WHERE status_name = $7)
)
RETURNING id, opened_at, updated_at`

	if err := tx.QueryRowContext(
		ctx,
		query,
		account.CustomerID,
		account.AccountNumber,
		account.AccountType,
		account.Currency,
		account.Balance,
		account.OverdraftLimit,
		account.Status,
	).Scan(&account.ID, &account.OpenedAt, &account.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return domain.Account{}, fmt.Errorf("create account %s: %w", account.AccountNumber, commons.ErrDuplicateRecord)
		}
		logger.Error("account repository create failed", err, logger.Fields{
			"customerId":     account.CustomerID,
			"account_number": account.AccountNumber,
		})
		return domain.Account{}, fmt.Errorf("create account: %w", err)
	}

	return account, nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (domain.Account, error) {
	query := `
SELECT ` + accountColumns + `
FROM accounts a
JOIN account_status_types s ON a.status_id = s.status_id
WHERE a.id = $1`

	account, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Account{}, domain.ErrAccountNotFound
		}
		logger.Error("account repository get by id failed", err, logger.Fields{"accountId": id})
		return domain.Account{}, fmt.Errorf("get account by id: %w", err)
	}
	return account, nil
}

func (r *AccountRepository) GetByNumber(ctx context.Context, accountNumber string) (domain.Account, error) {
	query := `
SELECT ` + accountColumns + `
FROM accounts a
JOIN account_status_types s ON a.status_id = s.status_id
WHERE a.account_number = $1`

	account, err := scanAccount(r.db.QueryRowContext(ctx, query, accountNumber))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Account{}, domain.ErrAccountNotFound
		}
		logger.Error("account repository get by number failed", err, logger.Fields{
			"account_number": accountNumber,
		})
		return domain.Account{}, fmt.Errorf("get account by number: %w", err)
	}
	return account, nil
}

// GetForUpdate locks the account row until the unit commits or rolls
// back. Only the accounts row is locked, not the joined status row.
func (r *AccountRepository) GetForUpdate(ctx context.Context, u domain.Unit, id string) (domain.Account, error) {
	tx, err := txFromUnit(u)
	if err != nil {
		return domain.Account{}, err
	}

	query := `
SELECT ` + accountColumns + `
FROM accounts a
JOIN account_status_types s ON a.status_id = s.status_id
WHERE a.id = $1
FOR UPDATE OF a`

	account, err := scanAccount(tx.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Account{}, domain.ErrAccountNotFound
		}
		logger.Error("account repository get for update failed", err, logger.Fields{"accountId": id})
		return domain.Account{}, fmt.Errorf("get account for update: %w", err)
	}
	return account, nil
}

func (r *AccountRepository) ApplyBalanceChange(ctx context.Context, u domain.Unit, id string, delta decimal.Decimal) error {
	tx, err := txFromUnit(u)
	if err != nil {
		return err
	}

	const query = `
UPDATE accounts
SET balance = balance + $2::numeric,
    updated_at = NOW()
WHERE id = $1`

	result, err := tx.ExecContext(ctx, query, id, delta)
	if err != nil {
		logger.Error("account repository apply balance change failed", err, logger.Fields{
			"accountId": id,
			"delta":     delta,
		})
		return fmt.Errorf("apply balance change: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("apply balance change rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) UpdateStatus(ctx context.Context, u domain.Unit, id string, status domain.AccountStatus) error {
	tx, err := txFromUnit(u)
	if err != nil {
		return err
	}

	const query = `
UPDATE accounts
SET status_id = s.status_id,
    updated_at = NOW()
FROM account_status_types s
WHERE accounts.id = $1
  AND s.status_name = $2`

	result, err := tx.ExecContext(ctx, query, id, status)
	if err != nil {
		logger.Error("account repository update status failed", err, logger.Fields{
			"accountId": id,
			"status":    status,
		})
		return fmt.Errorf("update account status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update account status rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) SetOverdraftLimit(ctx context.Context, u domain.Unit, id string, limit decimal.Decimal) error {
	tx, err := txFromUnit(u)
	if err != nil {
		return err
	}

	const query = `
UPDATE accounts
SET overdraft_limit = $2::numeric,
    updated_at = NOW()
WHERE id = $1`

	result, err := tx.ExecContext(ctx, query, id, limit)
	if err != nil {
		logger.Error("account repository set overdraft limit failed", err, logger.Fields{
			"accountId": id,
			"limit":     limit,
		})
		return fmt.Errorf("set overdraft limit: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set overdraft limit rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) List(ctx context.Context, filter domain.AccountFilter) ([]domain.Account, int, error) {
	conditions := make([]string, 0, 3)
	params := make([]any, 0, 5)

	if filter.CustomerID != "" {
		params = append(params, filter.CustomerID)
		conditions = append(conditions, fmt.Sprintf("a.customer_id = $%d", len(params)))
	}
	if filter.Status != "" {
		params = append(params, filter.Status)
		conditions = append(conditions, fmt.Sprintf("s.status_name = $%d", len(params)))
	}
	if filter.AccountType != "" {
		params = append(params, filter.AccountType)
		conditions = append(conditions, fmt.Sprintf("a.account_type = $%d", len(params)))
	}

	fromClause := `
FROM accounts a
JOIN account_status_types s ON a.status_id = s.status_id`
	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + joinConditions(conditions)
	}

	var total int
	countQuery := "SELECT COUNT(a.id)" + fromClause + whereClause
	if err := r.db.QueryRowContext(ctx, countQuery, params...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count accounts: %w", err)
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
		"SELECT %s%s%s ORDER BY a.opened_at DESC, a.id DESC LIMIT $%d OFFSET $%d",
		accountColumns, fromClause, whereClause, len(params)-1, len(params),
	)

	rows, err := r.db.QueryContext(ctx, listQuery, params...)
	if err != nil {
		return nil, 0, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]domain.Account, 0)
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate accounts: %w", err)
	}

	return accounts, total, nil
}

func joinConditions(conditions []string) string {
	out := conditions[0]
	for _, c := range conditions[1:] {
		out += " AND " + c
	}
	return out
}
