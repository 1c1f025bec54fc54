package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeDeposit    TransactionType = "deposit"
	TransactionTypeWithdrawal TransactionType = "withdrawal"
	TransactionTypeTransfer   TransactionType = "transfer"
	TransactionTypeACHCredit  TransactionType = "ach_credit"
	TransactionTypeACHDebit   TransactionType = "ach_debit"
	TransactionTypeWire       TransactionType = "wire_transfer"
)

type ACHDirection string

const (
	ACHDirectionCredit ACHDirection = "credit"
	ACHDirectionDebit  ACHDirection = "debit"
)

type WireDirection string

const (
	WireDirectionIncoming WireDirection = "incoming"
	WireDirectionOutgoing WireDirection = "outgoing"
)

// TransactionRecord is one immutable ledger entry. Credits carry a
// positive amount, debits a negative one. The two legs of a transfer
// reference each other through RelatedAccountID.
type TransactionRecord struct {
	ID               string
	AccountID        string
	Type             TransactionType
	Amount           decimal.Decimal
	Description      string
	RelatedAccountID *string
	CreatedAt        time.Time
}

type TransactionFilter struct {
	AccountID string
	Type      TransactionType
	From      *time.Time
	To        *time.Time
	Page      int
	PerPage   int
}
