package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type AccountStatus string

const (
	AccountStatusActive AccountStatus = "active"
	AccountStatusFrozen AccountStatus = "frozen"
	AccountStatusClosed AccountStatus = "closed"
)

func (s AccountStatus) Valid() bool {
	switch s {
	case AccountStatusActive, AccountStatusFrozen, AccountStatusClosed:
		return true
	}
	return false
}

type AccountType string

const (
	AccountTypeChecking AccountType = "checking"
	AccountTypeSavings  AccountType = "savings"
	AccountTypeCredit   AccountType = "credit"
)

func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeChecking, AccountTypeSavings, AccountTypeCredit:
		return true
	}
	return false
}

// Account carries the cached balance derived from the transaction
// ledger. While status is active, balance never goes below
// -OverdraftLimit; closing requires a zero balance.
type Account struct {
	ID             string
	CustomerID     string
	AccountNumber  string
	AccountType    AccountType
	Currency       string
	Balance        decimal.Decimal
	OverdraftLimit decimal.Decimal
	Status         AccountStatus
	OpenedAt       time.Time
	UpdatedAt      time.Time
}

type AccountFilter struct {
	CustomerID  string
	Status      AccountStatus
	AccountType AccountType
	Page        int
	PerPage     int
}
