package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/api-sage/bank-ledger/internal/domain"
	"github.com/api-sage/bank-ledger/internal/logger"
	"github.com/shopspring/decimal"
)

// TransactionService is the only mutator of account balances. Every
// money-moving operation follows the same shape inside one unit of
// work: lock, validate, mutate, record, optionally audit, commit.
type TransactionService struct {
	units       domain.UnitRunner
	accountRepo domain.AccountRepository
	ledger      domain.TransactionRepository
	audit       *AuditService
}

func NewTransactionService(
	units domain.UnitRunner,
	accountRepo domain.AccountRepository,
	ledger domain.TransactionRepository,
	audit *AuditService,
) *TransactionService {
	return &TransactionService{
		units:       units,
		accountRepo: accountRepo,
		ledger:      ledger,
		audit:       audit,
	}
}

func (s *TransactionService) Deposit(ctx context.Context, accountID string, amount decimal.Decimal, description string) (string, error) {
	var txID string
	err := s.units.RunInUnit(ctx, func(u domain.Unit) error {
		id, err := s.DepositInUnit(ctx, u, accountID, amount, description)
		txID = id
		return err
	})
	return txID, err
}

func (s *TransactionService) DepositInUnit(ctx context.Context, u domain.Unit, accountID string, amount decimal.Decimal, description string) (string, error) {
	if description == "" {
		description = "Deposit"
	}
	return s.creditInUnit(ctx, u, accountID, amount, description, domain.TransactionTypeDeposit)
}

func (s *TransactionService) Withdraw(ctx context.Context, accountID string, amount decimal.Decimal, description string) (string, error) {
	var txID string
	err := s.units.RunInUnit(ctx, func(u domain.Unit) error {
		id, err := s.WithdrawInUnit(ctx, u, accountID, amount, description)
		txID = id
		return err
	})
	return txID, err
}

func (s *TransactionService) WithdrawInUnit(ctx context.Context, u domain.Unit, accountID string, amount decimal.Decimal, description string) (string, error) {
	if description == "" {
		description = "Withdrawal"
	}
	return s.debitInUnit(ctx, u, accountID, amount, description, domain.TransactionTypeWithdrawal)
}

func (s *TransactionService) Transfer(ctx context.Context, fromID, toID string, amount decimal.Decimal, description string) (string, string, error) {
	var debitID, creditID string
	err := s.units.RunInUnit(ctx, func(u domain.Unit) error {
		d, c, err := s.TransferInUnit(ctx, u, fromID, toID, amount, description)
		debitID, creditID = d, c
		return err
	})
	return debitID, creditID, err
}

// TransferInUnit locks both accounts in ascending id order regardless
// of transfer direction. This total order is the sole guard against
// deadlock under concurrent reciprocal transfers.
func (s *TransactionService) TransferInUnit(ctx context.Context, u domain.Unit, fromID, toID string, amount decimal.Decimal, description string) (string, string, error) {
	if !amount.IsPositive() {
		return "", "", fmt.Errorf("transfer: %w", domain.ErrInvalidAmount)
	}
	if fromID == toID {
		return "", "", fmt.Errorf("%w: cannot transfer funds to the same account", domain.ErrTransaction)
	}
	if description == "" {
		description = "Transfer"
	}

	firstID, secondID := fromID, toID
	if strings.Compare(secondID, firstID) < 0 {
		firstID, secondID = secondID, firstID
	}

	first, err := s.accountRepo.GetForUpdate(ctx, u, firstID)
	if err != nil {
		return "", "", err
	}
	second, err := s.accountRepo.GetForUpdate(ctx, u, secondID)
	if err != nil {
		return "", "", err
	}

	from, to := first, second
	if from.ID != fromID {
		from, to = second, first
	}

	if from.Status != domain.AccountStatusActive {
		return "", "", fmt.Errorf("origin account %s: %w", from.ID, domain.ErrAccountNotActive)
	}
	if to.Status != domain.AccountStatusActive {
		return "", "", fmt.Errorf("destination account %s: %w", to.ID, domain.ErrAccountNotActive)
	}

	newFromBalance := from.Balance.Sub(amount)
	if newFromBalance.LessThan(from.OverdraftLimit.Neg()) {
		return "", "", fmt.Errorf("account %s: %w", from.ID, domain.ErrInsufficientFunds)
	}

	if err := s.accountRepo.ApplyBalanceChange(ctx, u, from.ID, amount.Neg()); err != nil {
		return "", "", err
	}
	if err := s.accountRepo.ApplyBalanceChange(ctx, u, to.ID, amount); err != nil {
		return "", "", err
	}

	if err := s.auditOverdraftInUnit(ctx, u, from, newFromBalance, amount, domain.TransactionTypeTransfer); err != nil {
		return "", "", err
	}

	debitRecord, err := s.ledger.Record(ctx, u, domain.TransactionRecord{
		AccountID:        from.ID,
		Type:             domain.TransactionTypeTransfer,
		Amount:           amount.Neg(),
		Description:      fmt.Sprintf("%s to account %s", description, to.AccountNumber),
		RelatedAccountID: &to.ID,
	})
	if err != nil {
		return "", "", err
	}
	creditRecord, err := s.ledger.Record(ctx, u, domain.TransactionRecord{
		AccountID:        to.ID,
		Type:             domain.TransactionTypeTransfer,
		Amount:           amount,
		Description:      fmt.Sprintf("%s from account %s", description, from.AccountNumber),
		RelatedAccountID: &from.ID,
	})
	if err != nil {
		return "", "", err
	}

	logger.Info("transfer posted", logger.Fields{
		"fromAccountId": from.ID,
		"toAccountId":   to.ID,
		"amount":        amount,
		"debitTxId":     debitRecord.ID,
		"creditTxId":    creditRecord.ID,
	})

	return debitRecord.ID, creditRecord.ID, nil
}

func (s *TransactionService) ProcessACH(ctx context.Context, accountID string, amount decimal.Decimal, description string, direction domain.ACHDirection) (string, error) {
	var txID string
	err := s.units.RunInUnit(ctx, func(u domain.Unit) error {
		id, err := s.ProcessACHInUnit(ctx, u, accountID, amount, description, direction)
		txID = id
		return err
	})
	return txID, err
}

func (s *TransactionService) ProcessACHInUnit(ctx context.Context, u domain.Unit, accountID string, amount decimal.Decimal, description string, direction domain.ACHDirection) (string, error) {
	if description == "" {
		description = "ACH Transaction"
	}
	switch direction {
	case domain.ACHDirectionCredit:
		return s.creditInUnit(ctx, u, accountID, amount, description, domain.TransactionTypeACHCredit)
	case domain.ACHDirectionDebit:
		return s.debitInUnit(ctx, u, accountID, amount, description, domain.TransactionTypeACHDebit)
	default:
		return "", fmt.Errorf("%w: ach direction %q", domain.ErrInvalidDirection, direction)
	}
}

func (s *TransactionService) ProcessWire(ctx context.Context, accountID string, amount decimal.Decimal, description string, direction domain.WireDirection) (string, error) {
	var txID string
	err := s.units.RunInUnit(ctx, func(u domain.Unit) error {
		id, err := s.ProcessWireInUnit(ctx, u, accountID, amount, description, direction)
		txID = id
		return err
	})
	return txID, err
}

func (s *TransactionService) ProcessWireInUnit(ctx context.Context, u domain.Unit, accountID string, amount decimal.Decimal, description string, direction domain.WireDirection) (string, error) {
	if description == "" {
		description = "Wire Transfer"
	}
	switch direction {
	case domain.WireDirectionIncoming:
		return s.creditInUnit(ctx, u, accountID, amount, description, domain.TransactionTypeWire)
	case domain.WireDirectionOutgoing:
		return s.debitInUnit(ctx, u, accountID, amount, description, domain.TransactionTypeWire)
	default:
		return "", fmt.Errorf("%w: wire direction %q", domain.ErrInvalidDirection, direction)
	}
}

// ListTransactions returns the account's ledger entries newest first,
// ties broken by id descending.
func (s *TransactionService) ListTransactions(ctx context.Context, accountID string, limit, offset int) ([]domain.TransactionRecord, error) {
	if _, err := s.accountRepo.GetByID(ctx, accountID); err != nil {
		return nil, err
	}
	return s.ledger.ListByAccount(ctx, accountID, limit, offset)
}

func (s *TransactionService) SearchTransactions(ctx context.Context, filter domain.TransactionFilter) ([]domain.TransactionRecord, int, error) {
	return s.ledger.List(ctx, filter)
}

func (s *TransactionService) creditInUnit(ctx context.Context, u domain.Unit, accountID string, amount decimal.Decimal, description string, txType domain.TransactionType) (string, error) {
	if !amount.IsPositive() {
		return "", fmt.Errorf("%s: %w", txType, domain.ErrInvalidAmount)
	}

	account, err := s.accountRepo.GetForUpdate(ctx, u, accountID)
	if err != nil {
		return "", err
	}
	if account.Status != domain.AccountStatusActive {
		return "", fmt.Errorf("account %s has status %s: %w", account.ID, account.Status, domain.ErrAccountNotActive)
	}

	if err := s.accountRepo.ApplyBalanceChange(ctx, u, account.ID, amount); err != nil {
		return "", err
	}

	record, err := s.ledger.Record(ctx, u, domain.TransactionRecord{
		AccountID:   account.ID,
		Type:        txType,
		Amount:      amount,
		Description: description,
	})
	if err != nil {
		return "", err
	}

	logger.Info("credit posted", logger.Fields{
		"accountId": account.ID,
		"type":      txType,
		"amount":    amount,
		"txId":      record.ID,
	})

	return record.ID, nil
}

func (s *TransactionService) debitInUnit(ctx context.Context, u domain.Unit, accountID string, amount decimal.Decimal, description string, txType domain.TransactionType) (string, error) {
	if !amount.IsPositive() {
		return "", fmt.Errorf("%s: %w", txType, domain.ErrInvalidAmount)
	}

	account, err := s.accountRepo.GetForUpdate(ctx, u, accountID)
	if err != nil {
		return "", err
	}
	if account.Status != domain.AccountStatusActive {
		return "", fmt.Errorf("account %s has status %s: %w", account.ID, account.Status, domain.ErrAccountNotActive)
	}

	newBalance := account.Balance.Sub(amount)
	if newBalance.LessThan(account.OverdraftLimit.Neg()) {
		return "", fmt.Errorf("account %s balance %s overdraft limit %s: %w",
			account.ID, account.Balance, account.OverdraftLimit, domain.ErrInsufficientFunds)
	}

	if err := s.accountRepo.ApplyBalanceChange(ctx, u, account.ID, amount.Neg()); err != nil {
		return "", err
	}

	if err := s.auditOverdraftInUnit(ctx, u, account, newBalance, amount, txType); err != nil {
		return "", err
	}

	record, err := s.ledger.Record(ctx, u, domain.TransactionRecord{
		AccountID:   account.ID,
		Type:        txType,
		Amount:      amount.Neg(),
		Description: description,
	})
	if err != nil {
		return "", err
	}

	logger.Info("debit posted", logger.Fields{
		"accountId": account.ID,
		"type":      txType,
		"amount":    amount,
		"txId":      record.ID,
	})

	return record.ID, nil
}

// auditOverdraftInUnit records an overdraft-used event when the debit
// pushes the account below zero for the first time or deeper into an
// overdraft it was already in. account carries the pre-debit state.
func (s *TransactionService) auditOverdraftInUnit(ctx context.Context, u domain.Unit, account domain.Account, newBalance, amount decimal.Decimal, txType domain.TransactionType) error {
	usedOverdraftBefore := account.Balance.IsNegative()
	if !newBalance.IsNegative() || (usedOverdraftBefore && !newBalance.LessThan(account.Balance)) {
		return nil
	}

	return s.audit.LogEvent(ctx, u, domain.AuditEntry{
		ActionType:   domain.AuditActionOverdraftUsed,
		TargetEntity: "accounts",
		TargetID:     account.ID,
		Details: map[string]any{
			"old_balance":      account.Balance.String(),
			"new_balance":      newBalance.String(),
			"overdraft_limit":  account.OverdraftLimit.String(),
			"amount":           amount.String(),
			"transaction_type": string(txType),
		},
	})
}
