package domain

import (
	"errors"
	"fmt"
)

var (
	ErrAccountNotFound        = errors.New("account not found")
	ErrCustomerNotFound       = errors.New("customer not found")
	ErrAccountNotActive       = errors.New("account is not active")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrInvalidAmount          = errors.New("amount must be positive")
	ErrInvalidAccountType     = errors.New("unsupported account type")
	ErrInvalidTransactionType = errors.New("transaction type not found")
	ErrInvalidDirection       = errors.New("invalid direction")
	ErrAccountStatus          = errors.New("illegal account status transition")
	ErrFeeTypeNotFound        = errors.New("fee type not found")
	ErrTransaction            = errors.New("transaction failed")
	ErrInvalidCredentials     = errors.New("invalid credentials")
)

// FeeError wraps a failure that occurred while applying a fee. The
// underlying cause (insufficient funds, inactive account) stays
// reachable through errors.Is and errors.As.
type FeeError struct {
	FeeName string
	Err     error
}

func (e *FeeError) Error() string {
	return fmt.Sprintf("apply fee %q: %v", e.FeeName, e.Err)
}

func (e *FeeError) Unwrap() error {
	return e.Err
}
