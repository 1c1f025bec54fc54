package services

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/api-sage/bank-ledger/internal/commons"
	"github.com/api-sage/bank-ledger/internal/domain"
	"github.com/api-sage/bank-ledger/internal/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// maxAccountNumberAttempts bounds the open-account retry loop when a
// generated account number collides with an existing one.
const maxAccountNumberAttempts = 5

type AccountService struct {
	units        domain.UnitRunner
	accountRepo  domain.AccountRepository
	customerRepo domain.CustomerRepository
	transactions *TransactionService
	audit        *AuditService
}

func NewAccountService(
	units domain.UnitRunner,
	accountRepo domain.AccountRepository,
	customerRepo domain.CustomerRepository,
	transactions *TransactionService,
	audit *AuditService,
) *AccountService {
	return &AccountService{
		units:        units,
		accountRepo:  accountRepo,
		customerRepo: customerRepo,
		transactions: transactions,
		audit:        audit,
	}
}

func (s *AccountService) RegisterCustomer(ctx context.Context, customer domain.Customer) (domain.Customer, error) {
	if customer.FirstName == "" || customer.LastName == "" || customer.Email == "" {
		return domain.Customer{}, fmt.Errorf("register customer: name and email are required")
	}
	return s.customerRepo.Create(ctx, customer)
}

// OpenAccount creates an account and, when initialDeposit is positive,
// posts the funding as a deposit transaction in the same unit so the
// balance always equals the sum of the account's ledger entries.
func (s *AccountService) OpenAccount(
	ctx context.Context,
	customerID string,
	accountType domain.AccountType,
	currency string,
	initialDeposit decimal.Decimal,
	overdraftLimit decimal.Decimal,
) (domain.Account, error) {
	if !accountType.Valid() {
		return domain.Account{}, fmt.Errorf("%w: %q", domain.ErrInvalidAccountType, accountType)
	}
	if initialDeposit.IsNegative() {
		return domain.Account{}, fmt.Errorf("initial deposit: %w", domain.ErrInvalidAmount)
	}
	if overdraftLimit.IsNegative() {
		return domain.Account{}, fmt.Errorf("overdraft limit: %w", domain.ErrInvalidAmount)
	}
	if currency == "" {
		currency = "USD"
	}

	exists, err := s.customerRepo.Exists(ctx, customerID)
	if err != nil {
		return domain.Account{}, err
	}
	if !exists {
		return domain.Account{}, fmt.Errorf("customer %s: %w", customerID, domain.ErrCustomerNotFound)
	}

	var created domain.Account
	for attempt := 1; ; attempt++ {
		err = s.units.RunInUnit(ctx, func(u domain.Unit) error {
			account, err := s.accountRepo.Create(ctx, u, domain.Account{
				CustomerID:     customerID,
				AccountNumber:  newAccountNumber(),
				AccountType:    accountType,
				Currency:       currency,
				Balance:        decimal.Zero,
				OverdraftLimit: overdraftLimit,
				Status:         domain.AccountStatusActive,
			})
			if err != nil {
				return err
			}
			if initialDeposit.IsPositive() {
				if _, err := s.transactions.DepositInUnit(ctx, u, account.ID, initialDeposit, "Initial deposit"); err != nil {
					return err
				}
				account.Balance = initialDeposit
			}
			created = account
			return nil
		})
		if err == nil {
			break
		}
		if errors.Is(err, commons.ErrDuplicateRecord) && attempt < maxAccountNumberAttempts {
			continue
		}
		return domain.Account{}, err
	}

	logger.Info("account opened", logger.Fields{
		"accountId":      created.ID,
		"customerId":     created.CustomerID,
		"account_number": created.AccountNumber,
		"accountType":    created.AccountType,
	})

	return created, nil
}

func (s *AccountService) GetAccount(ctx context.Context, accountID string) (domain.Account, error) {
	return s.accountRepo.GetByID(ctx, accountID)
}

func (s *AccountService) GetAccountByNumber(ctx context.Context, accountNumber string) (domain.Account, error) {
	return s.accountRepo.GetByNumber(ctx, accountNumber)
}

func (s *AccountService) GetBalance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	return account.Balance, nil
}

func (s *AccountService) ListAccounts(ctx context.Context, filter domain.AccountFilter) ([]domain.Account, int, error) {
	return s.accountRepo.List(ctx, filter)
}

// UpdateStatus moves an account between active, frozen and closed.
// Closing requires a zero balance; funds must be withdrawn or
// transferred out first.
func (s *AccountService) UpdateStatus(ctx context.Context, accountID string, newStatus domain.AccountStatus, operatorID *string) error {
	if !newStatus.Valid() {
		return fmt.Errorf("%w: unknown status %q", domain.ErrAccountStatus, newStatus)
	}

	return s.units.RunInUnit(ctx, func(u domain.Unit) error {
		account, err := s.accountRepo.GetForUpdate(ctx, u, accountID)
		if err != nil {
			return err
		}
		if account.Status == newStatus {
			return nil
		}
		if newStatus == domain.AccountStatusClosed && !account.Balance.IsZero() {
			return fmt.Errorf("%w: cannot close account %s with non-zero balance %s",
				domain.ErrAccountStatus, account.ID, account.Balance)
		}

		if err := s.accountRepo.UpdateStatus(ctx, u, account.ID, newStatus); err != nil {
			return err
		}

		return s.audit.LogEvent(ctx, u, domain.AuditEntry{
			OperatorID:   operatorID,
			ActionType:   domain.AuditActionAccountStatusChange,
			TargetEntity: "accounts",
			TargetID:     account.ID,
			Details: map[string]any{
				"old_status": string(account.Status),
				"new_status": string(newStatus),
			},
		})
	})
}

func (s *AccountService) FreezeAccount(ctx context.Context, accountID string, operatorID *string) error {
	return s.UpdateStatus(ctx, accountID, domain.AccountStatusFrozen, operatorID)
}

func (s *AccountService) UnfreezeAccount(ctx context.Context, accountID string, operatorID *string) error {
	return s.UpdateStatus(ctx, accountID, domain.AccountStatusActive, operatorID)
}

func (s *AccountService) CloseAccount(ctx context.Context, accountID string, operatorID *string) error {
	return s.UpdateStatus(ctx, accountID, domain.AccountStatusClosed, operatorID)
}

func (s *AccountService) SetOverdraftLimit(ctx context.Context, accountID string, limit decimal.Decimal, operatorID *string) error {
	if limit.IsNegative() {
		return fmt.Errorf("overdraft limit %s: %w", limit, domain.ErrInvalidAmount)
	}

	return s.units.RunInUnit(ctx, func(u domain.Unit) error {
		account, err := s.accountRepo.GetForUpdate(ctx, u, accountID)
		if err != nil {
			return err
		}

		if err := s.accountRepo.SetOverdraftLimit(ctx, u, account.ID, limit); err != nil {
			return err
		}

		return s.audit.LogEvent(ctx, u, domain.AuditEntry{
			OperatorID:   operatorID,
			ActionType:   domain.AuditActionOverdraftLimitChange,
			TargetEntity: "accounts",
			TargetID:     account.ID,
			Details: map[string]any{
				"old_limit": account.OverdraftLimit.String(),
				"new_limit": limit.String(),
			},
		})
	})
}

// newAccountNumber derives a ten digit account number from a random
// uuid. Collisions are possible and handled by the open-account retry.
func newAccountNumber() string {
	id := uuid.New()
	n := binary.BigEndian.Uint64(id[:8]) % 10_000_000_000
	return fmt.Sprintf("%010d", n)
}
