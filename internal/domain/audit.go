package domain

import "time"

const (
	AuditActionOverdraftUsed        = "OVERDRAFT_USED"
	AuditActionOverdraftLimitChange = "OVERDRAFT_LIMIT_CHANGE"
	AuditActionAccountStatusChange  = "ACCOUNT_STATUS_CHANGE"
	AuditActionFeeApplied           = "FEE_APPLIED"
)

// AuditEntry documents a state change in the same atomic unit that
// produced it, so audit and ledger state never diverge.
type AuditEntry struct {
	ID           string
	OperatorID   *string
	ActionType   string
	TargetEntity string
	TargetID     string
	Details      map[string]any
	CreatedAt    time.Time
}

type AuditFilter struct {
	OperatorID   string
	ActionType   string
	TargetEntity string
	TargetID     string
	From         *time.Time
	To           *time.Time
	Page         int
	PerPage      int
}
