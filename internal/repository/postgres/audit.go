package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/lab-api/internal/model"
	"github.com/jwalitptl/lab-api/internal/repository"
)

var auditTable = Table{
	Name: "audit_logs",
	Sort: map[string]string{
		"createdAt": "created_at",
		"action":    "action",
	},
	Filters: []string{"user_id", "action", "entity_type", "entity_id"},
}

type auditRepository struct {
	BaseRepository
}

func NewAuditRepository(base BaseRepository) repository.AuditRepository {
	return &auditRepository{base}
}

func (r *auditRepository) Create(ctx context.Context, entry *model.AuditEntry) (err error) {
	defer func(start time.Time) { r.observe("audit_logs", "create", start, err) }(time.Now())

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO audit_logs (
			lab_id, user_id, action, entity_type, entity_id,
			changes, request_id, ip_address, created_at
		) VALUES (
			:lab_id, :user_id, :action, :entity_type, :entity_id,
			:changes, :request_id, :ip_address, :created_at
		)
	`

	if _, err = sqlx.NamedExecContext(ctx, r.db, query, entry); err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}

// List pages through one lab's audit trail. Audit rows are never soft
// deleted, so the shared where-clause builder is not used.
func (r *auditRepository) List(ctx context.Context, labID int64, q model.ListQuery) (entries []*model.AuditEntry, total int64, err error) {
	defer func(start time.Time) { r.observe("audit_logs", "list", start, err) }(time.Now())

	conds := "lab_id = $1"
	args := []interface{}{labID}
	for _, col := range auditTable.Filters {
		if v, ok := q.Filters[col]; ok {
			args = append(args, v)
			conds += fmt.Sprintf(" AND %s = $%d", col, len(args))
		}
	}

	if err = r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM audit_logs WHERE "+conds, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count audit logs: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, lab_id, user_id, action, entity_type, entity_id, changes, request_id, ip_address, created_at
		FROM audit_logs
		WHERE %s
		ORDER BY %s
		LIMIT $%d OFFSET $%d
	`, conds, auditTable.orderClause(q), len(args)+1, len(args)+2)

	entries = make([]*model.AuditEntry, 0)
	if err = r.db.SelectContext(ctx, &entries, query, append(args, q.Limit, q.Offset)...); err != nil {
		return nil, 0, fmt.Errorf("failed to list audit logs: %w", err)
	}
	return entries, total, nil
}

func (r *auditRepository) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM audit_logs WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup audit logs: %w", err)
	}
	return res.RowsAffected()
}
