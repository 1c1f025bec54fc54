package services

import (
	"context"
	"fmt"

	"github.com/api-sage/bank-ledger/internal/domain"
)

// AuditService writes tamper-evident audit entries. LogEvent is always
// called with the unit of the operation being audited, never with its
// own unit.
type AuditService struct {
	repo domain.AuditRepository
}

func NewAuditService(repo domain.AuditRepository) *AuditService {
	return &AuditService{repo: repo}
}

func (s *AuditService) LogEvent(ctx context.Context, u domain.Unit, entry domain.AuditEntry) error {
	if entry.ActionType == "" {
		return fmt.Errorf("audit entry: action type is required")
	}
	if entry.TargetEntity == "" || entry.TargetID == "" {
		return fmt.Errorf("audit entry: target entity and id are required")
	}
	_, err := s.repo.Append(ctx, u, entry)
	return err
}

func (s *AuditService) List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEntry, int, error) {
	return s.repo.List(ctx, filter)
}
