package main

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"github.com/api-sage/bank-ledger/internal/adapter/repository/postgres"
	"github.com/api-sage/bank-ledger/internal/config"
	"github.com/api-sage/bank-ledger/internal/domain"
	"github.com/api-sage/bank-ledger/internal/feeschedule"
	"github.com/api-sage/bank-ledger/internal/usecase/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := postgres.Open(ctx, cfg.DatabaseDSN, postgres.DefaultPoolLimits())
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	if err := postgres.NewMigrator(db, cfg.MigrationsDir).Run(ctx); err != nil {
		log.Fatalf("run migrations: %v", err)
	}

	units := postgres.NewUnitRunner(db, cfg.LockWaitTimeout)
	accountRepo := postgres.NewAccountRepository(db)
	customerRepo := postgres.NewCustomerRepository(db)
	transactionRepo := postgres.NewTransactionRepository(db)
	auditRepo := postgres.NewAuditRepository(db)
	feeTypeRepo := postgres.NewFeeTypeRepository(db)
	operatorRepo := postgres.NewOperatorRepository(db)

	auditService := services.NewAuditService(auditRepo)
	transactionService := services.NewTransactionService(units, accountRepo, transactionRepo, auditService)
	accountService := services.NewAccountService(units, accountRepo, customerRepo, transactionService, auditService)
	feeService := services.NewFeeService(units, feeTypeRepo, accountRepo, transactionService, auditService)
	operatorService := services.NewOperatorService(operatorRepo)
	validationService := services.NewValidationService(accountRepo, transactionRepo)

	if cfg.FeeScheduleFile != "" {
		schedule, err := feeschedule.Load(cfg.FeeScheduleFile)
		switch {
		case errors.Is(err, os.ErrNotExist):
			log.Printf("fee schedule %s not found, keeping seeded defaults", cfg.FeeScheduleFile)
		case err != nil:
			log.Fatalf("load fee schedule: %v", err)
		default:
			if err := feeService.SeedSchedule(ctx, schedule); err != nil {
				log.Fatalf("apply fee schedule: %v", err)
			}
			log.Printf("applied fee schedule with %d entries", len(schedule))
		}
	}

	if cfg.SystemOperatorPassword != "" {
		if _, err := operatorService.EnsureSystemOperator(ctx, cfg.SystemOperatorUsername, cfg.SystemOperatorPassword); err != nil {
			log.Fatalf("ensure system operator: %v", err)
		}
	}

	_, totalAccounts, err := accountService.ListAccounts(ctx, domain.AccountFilter{})
	if err != nil {
		log.Fatalf("count accounts: %v", err)
	}

	balanced, sum, err := validationService.VerifyLedgerIntegrity(ctx)
	if err != nil {
		log.Fatalf("verify ledger integrity: %v", err)
	}
	log.Printf("bootstrap complete, accounts=%d ledger balanced=%t sum=%s", totalAccounts, balanced, sum)
}
