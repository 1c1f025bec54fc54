package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/api-sage/bank-ledger/internal/commons"
	"github.com/api-sage/bank-ledger/internal/domain"
	"github.com/api-sage/bank-ledger/internal/logger"
	"github.com/shopspring/decimal"
)

const maintenanceFeeName = "monthly_maintenance_fee"

// FeeService charges configured fees against accounts. A fee is an
// ordinary debit plus a FEE_APPLIED audit entry, both in one unit.
type FeeService struct {
	units        domain.UnitRunner
	feeTypes     domain.FeeTypeRepository
	accounts     domain.AccountRepository
	transactions *TransactionService
	audit        *AuditService
}

func NewFeeService(
	units domain.UnitRunner,
	feeTypes domain.FeeTypeRepository,
	accounts domain.AccountRepository,
	transactions *TransactionService,
	audit *AuditService,
) *FeeService {
	return &FeeService{
		units:        units,
		feeTypes:     feeTypes,
		accounts:     accounts,
		transactions: transactions,
		audit:        audit,
	}
}

// ApplyFee debits the fee amount from the account. override, when
// non-nil, replaces the configured default amount for this charge
// only; an empty description falls back to naming the fee. All
// failures come back as *domain.FeeError wrapping the cause.
func (s *FeeService) ApplyFee(ctx context.Context, accountID, feeName string, override *decimal.Decimal, description string, operatorID *string) (string, error) {
	feeType, err := s.feeTypes.GetByName(ctx, feeName)
	if err != nil {
		if errors.Is(err, commons.ErrRecordNotFound) {
			return "", &domain.FeeError{FeeName: feeName, Err: domain.ErrFeeTypeNotFound}
		}
		return "", &domain.FeeError{FeeName: feeName, Err: err}
	}

	amount := feeType.DefaultAmount
	if override != nil {
		amount = *override
	}
	if !amount.IsPositive() {
		return "", &domain.FeeError{
			FeeName: feeName,
			Err:     fmt.Errorf("fee amount %s: %w", amount, domain.ErrInvalidAmount),
		}
	}

	if description == "" {
		description = fmt.Sprintf("Fee applied: %s", feeName)
	}

	var txID string
	err = s.units.RunInUnit(ctx, func(u domain.Unit) error {
		id, err := s.transactions.WithdrawInUnit(ctx, u, accountID, amount, description)
		if err != nil {
			return err
		}
		txID = id

		return s.audit.LogEvent(ctx, u, domain.AuditEntry{
			OperatorID:   operatorID,
			ActionType:   domain.AuditActionFeeApplied,
			TargetEntity: "accounts",
			TargetID:     accountID,
			Details: map[string]any{
				"fee_name":       feeName,
				"amount":         amount.String(),
				"transaction_id": id,
			},
		})
	})
	if err != nil {
		return "", &domain.FeeError{FeeName: feeName, Err: err}
	}

	logger.Info("fee applied", logger.Fields{
		"accountId": accountID,
		"fee_name":  feeName,
		"amount":    amount,
		"txId":      txID,
	})

	return txID, nil
}

// SetFeeAmount creates the fee type or updates its default amount.
func (s *FeeService) SetFeeAmount(ctx context.Context, feeName string, amount decimal.Decimal) (domain.FeeType, error) {
	if feeName == "" {
		return domain.FeeType{}, fmt.Errorf("fee name is required")
	}
	if !amount.IsPositive() {
		return domain.FeeType{}, fmt.Errorf("fee %q amount %s: %w", feeName, amount, domain.ErrInvalidAmount)
	}
	return s.feeTypes.Upsert(ctx, domain.FeeType{FeeName: feeName, DefaultAmount: amount})
}

func (s *FeeService) ListFeeTypes(ctx context.Context) ([]domain.FeeType, error) {
	return s.feeTypes.List(ctx)
}

// RunMonthlyMaintenance charges the monthly maintenance fee to every
// active account. Each charge is its own unit; an account that cannot
// cover the fee is skipped and reported rather than aborting the run.
func (s *FeeService) RunMonthlyMaintenance(ctx context.Context, operatorID *string) (int, []error, error) {
	applied := 0
	skipped := make([]error, 0)

	for page := 1; ; page++ {
		accounts, _, err := s.accounts.List(ctx, domain.AccountFilter{
			Status:  domain.AccountStatusActive,
			Page:    page,
			PerPage: 100,
		})
		if err != nil {
			return applied, skipped, fmt.Errorf("list active accounts: %w", err)
		}
		if len(accounts) == 0 {
			break
		}

		for _, account := range accounts {
			if _, err := s.ApplyFee(ctx, account.ID, maintenanceFeeName, nil, "", operatorID); err != nil {
				if errors.Is(err, domain.ErrInsufficientFunds) || errors.Is(err, domain.ErrAccountNotActive) {
					skipped = append(skipped, fmt.Errorf("account %s: %w", account.ID, err))
					continue
				}
				return applied, skipped, err
			}
			applied++
		}

		if len(accounts) < 100 {
			break
		}
	}

	logger.Info("monthly maintenance run finished", logger.Fields{
		"applied": applied,
		"skipped": len(skipped),
	})
	return applied, skipped, nil
}

// SeedSchedule upserts every entry of a fee schedule, typically loaded
// from the configured yaml file at startup.
func (s *FeeService) SeedSchedule(ctx context.Context, schedule []domain.FeeType) error {
	for _, feeType := range schedule {
		if _, err := s.SetFeeAmount(ctx, feeType.FeeName, feeType.DefaultAmount); err != nil {
			return fmt.Errorf("seed fee schedule: %w", err)
		}
	}
	return nil
}
