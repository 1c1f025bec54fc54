package domain

import "context"

// AuditRepository appends immutable audit entries. Append must run
// inside the caller's unit so a rollback of the business operation
// also rolls back its audit record.
type AuditRepository interface {
	Append(ctx context.Context, unit Unit, entry AuditEntry) (AuditEntry, error)
	List(ctx context.Context, filter AuditFilter) ([]AuditEntry, int, error)
}
