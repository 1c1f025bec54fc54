package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/api-sage/bank-ledger/internal/domain"
	"github.com/api-sage/bank-ledger/internal/logger"
)

type AuditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Append(ctx context.Context, u domain.Unit, entry domain.AuditEntry) (domain.AuditEntry, error) {
	tx, err := txFromUnit(u)
	if err != nil {
		return domain.AuditEntry{}, err
	}

	details, err := json.Marshal(entry.Details)
	if err != nil {
		return domain.AuditEntry{}, fmt.Errorf("marshal audit details: %w", err)
	}

	const query = `
INSERT INTO audit_log (operator_id, action_type, target_entity, target_id, details_json)
VALUES ($1, $2, $3, $4, $5)
RETURNING log_id, created_at`

	var operatorID sql.NullString
	if entry.OperatorID != nil {
		operatorID = sql.NullString{String: *entry.OperatorID, Valid: true}
	}

	if err := tx.QueryRowContext(
		ctx,
		query,
		operatorID,
		entry.ActionType,
		entry.TargetEntity,
		entry.TargetID,
		details,
	).Scan(&entry.ID, &entry.CreatedAt); err != nil {
		logger.Error("audit repository append failed", err, logger.Fields{
			"actionType":   entry.ActionType,
			"targetEntity": entry.TargetEntity,
			"targetId":     entry.TargetID,
		})
		return domain.AuditEntry{}, fmt.Errorf("append audit entry: %w", err)
	}

	return entry, nil
}

func (r *AuditRepository) List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEntry, int, error) {
	conditions := make([]string, 0, 6)
	params := make([]any, 0, 8)

	if filter.OperatorID != "" {
		params = append(params, filter.OperatorID)
		conditions = append(conditions, fmt.Sprintf("al.operator_id = $%d", len(params)))
	}
	if filter.ActionType != "" {
		params = append(params, "%"+filter.ActionType+"%")
		conditions = append(conditions, fmt.Sprintf("al.action_type ILIKE $%d", len(params)))
	}
	if filter.TargetEntity != "" {
		params = append(params, "%"+filter.TargetEntity+"%")
		conditions = append(conditions, fmt.Sprintf("al.target_entity ILIKE $%d", len(params)))
	}
	if filter.TargetID != "" {
		params = append(params, filter.TargetID)
		conditions = append(conditions, fmt.Sprintf("al.target_id = $%d", len(params)))
	}
	if filter.From != nil {
		params = append(params, *filter.From)
		conditions = append(conditions, fmt.Sprintf("al.created_at >= $%d", len(params)))
	}
	if filter.To != nil {
		params = append(params, *filter.To)
		conditions = append(conditions, fmt.Sprintf("al.created_at <= $%d", len(params)))
	}

	fromClause := " FROM audit_log al"
	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + joinConditions(conditions)
	}

	var total int
	countQuery := "SELECT COUNT(al.log_id)" + fromClause + whereClause
	if err := r.db.QueryRowContext(ctx, countQuery, params...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count audit entries: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage < 1 {
		perPage = 20
	}

	params = append(params, perPage, (page-1)*perPage)
	listQuery := fmt.Sprintf(
		"SELECT al.log_id, al.operator_id, al.action_type, al.target_entity, al.target_id, al.details_json, al.created_at%s%s ORDER BY al.created_at DESC, al.log_id DESC LIMIT $%d OFFSET $%d",
		fromClause, whereClause, len(params)-1, len(params),
	)

	rows, err := r.db.QueryContext(ctx, listQuery, params...)
	if err != nil {
		return nil, 0, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.AuditEntry, 0)
	for rows.Next() {
		var (
			entry      domain.AuditEntry
			operatorID sql.NullString
			details    []byte
		)
		if err := rows.Scan(
			&entry.ID,
			&operatorID,
			&entry.ActionType,
			&entry.TargetEntity,
			&entry.TargetID,
			&details,
			&entry.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan audit entry: %w", err)
		}
		if operatorID.Valid {
			value := operatorID.String
			entry.OperatorID = &value
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &entry.Details); err != nil {
				return nil, 0, fmt.Errorf("unmarshal audit details: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate audit entries: %w", err)
	}

	return entries, total, nil
}
