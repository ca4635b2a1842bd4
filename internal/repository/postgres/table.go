package postgres

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jwalitptl/lab-api/internal/model"
	"github.com/jwalitptl/lab-api/internal/repository"
)

// Table describes one lab-scoped table. Column names are compile-time
// constants; request input only ever selects among them.
type Table struct {
	Name string
	// Columns are the writable columns, excluding id, lab_id and timestamps.
	Columns []string
	// Search columns are matched with ILIKE against ListQuery.Search.
	Search []string
	// Sort maps public sort keys to columns.
	Sort        map[string]string
	DefaultSort string
	// Filters are the columns accepted as exact-match list filters.
	Filters []string
}

func (t Table) selectColumns() string {
	cols := make([]string, 0, len(t.Columns)+5)
	cols = append(cols, "id", "lab_id")
	cols = append(cols, t.Columns...)
	cols = append(cols, "created_at", "updated_at", "deleted_at")
	return strings.Join(cols, ", ")
}

func (t Table) sortKeys() []string {
	keys := make([]string, 0, len(t.Sort))
	for k := range t.Sort {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (t Table) hasColumn(col string) bool {
	if col == "lab_id" || col == "id" {
		return true
	}
	for _, c := range t.Columns {
		if c == col {
			return true
		}
	}
	return false
}

func (t Table) hasFilter(col string) bool {
	for _, c := range t.Filters {
		if c == col {
			return true
		}
	}
	return false
}

// whereClause builds the live-row predicate for a list call. The lab id is
// always $1.
func (t Table) whereClause(labID int64, q model.ListQuery) (string, []interface{}) {
	conds := []string{"lab_id = $1", "deleted_at IS NULL"}
	args := []interface{}{labID}

	keys := make([]string, 0, len(q.Filters))
	for k := range q.Filters {
		if t.hasFilter(k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, q.Filters[k])
		conds = append(conds, fmt.Sprintf("%s = $%d", k, len(args)))
	}

	if s := strings.TrimSpace(q.Search); s != "" && len(t.Search) > 0 {
		args = append(args, "%"+escapeLike(s)+"%")
		parts := make([]string, len(t.Search))
		for i, c := range t.Search {
			parts[i] = fmt.Sprintf("%s ILIKE $%d", c, len(args))
		}
		conds = append(conds, "("+strings.Join(parts, " OR ")+")")
	}

	return strings.Join(conds, " AND "), args
}

func (t Table) orderClause(q model.ListQuery) string {
	col := t.DefaultSort
	if col == "" {
		col = "created_at"
	}
	if c, ok := t.Sort[q.Sort]; ok {
		col = c
	}
	dir := "DESC"
	if q.Order == model.SortAsc {
		dir = "ASC"
	}
	return fmt.Sprintf("%s %s, id %s", col, dir, dir)
}

// listSQL returns the page query, the count query and their arguments. The
// page query takes two extra trailing arguments: limit and offset.
func (t Table) listSQL(labID int64, q model.ListQuery) (string, string, []interface{}) {
	where, args := t.whereClause(labID, q)
	list := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d",
		t.selectColumns(), t.Name, where, t.orderClause(q), len(args)+1, len(args)+2)
	count := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", t.Name, where)
	return list, count, args
}

func (t Table) insertSQL() string {
	cols := make([]string, 0, len(t.Columns)+3)
	cols = append(cols, "lab_id")
	cols = append(cols, t.Columns...)
	cols = append(cols, "created_at", "updated_at")

	named := make([]string, len(cols))
	for i, c := range cols {
		named[i] = ":" + c
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING id",
		t.Name, strings.Join(cols, ", "), strings.Join(named, ", "))
}

func (t Table) updateSQL() string {
	sets := make([]string, 0, len(t.Columns)+1)
	for _, c := range t.Columns {
		sets = append(sets, fmt.Sprintf("%s = :%s", c, c))
	}
	sets = append(sets, "updated_at = :updated_at")
	return fmt.Sprintf("UPDATE %s SET %s WHERE id = :id AND lab_id = :lab_id AND deleted_at IS NULL",
		t.Name, strings.Join(sets, ", "))
}

// existsSQL checks live rows matching every column in match.
func (t Table) existsSQL(scope repository.Scope, labID int64, match map[string]interface{}, excludeID int64) (string, []interface{}, error) {
	cols := make([]string, 0, len(match))
	for c := range match {
		if !t.hasColumn(c) {
			return "", nil, fmt.Errorf("unknown column %q for %s", c, t.Name)
		}
		cols = append(cols, c)
	}
	sort.Strings(cols)

	conds := []string{"deleted_at IS NULL"}
	args := make([]interface{}, 0, len(cols)+2)
	for _, c := range cols {
		args = append(args, match[c])
		conds = append(conds, fmt.Sprintf("%s = $%d", c, len(args)))
	}
	if scope == repository.ScopeTenant {
		args = append(args, labID)
		conds = append(conds, fmt.Sprintf("lab_id = $%d", len(args)))
	}
	if excludeID != 0 {
		args = append(args, excludeID)
		conds = append(conds, fmt.Sprintf("id <> $%d", len(args)))
	}

	return fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE %s)", t.Name, strings.Join(conds, " AND ")), args, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// TenantTable is the sqlx implementation of repository.TenantStore for one
// Table.
type TenantTable[T any, PT interface {
	*T
	model.TenantEntity
}] struct {
	BaseRepository
	table Table
	now   func() time.Time
}

func NewTenantTable[T any, PT interface {
	*T
	model.TenantEntity
}](base BaseRepository, table Table) *TenantTable[T, PT] {
	return &TenantTable[T, PT]{
		BaseRepository: base,
		table:          table,
		now:            time.Now,
	}
}

func (r *TenantTable[T, PT]) SortKeys() []string   { return r.table.sortKeys() }
func (r *TenantTable[T, PT]) FilterKeys() []string { return r.table.Filters }

func (r *TenantTable[T, PT]) List(ctx context.Context, labID int64, q model.ListQuery) (items []*T, total int64, err error) {
	defer func(start time.Time) { r.observe(r.table.Name, "list", start, err) }(time.Now())

	listQuery, countQuery, args := r.table.listSQL(labID, q)

	if err = r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count %s: %w", r.table.Name, err)
	}

	items = make([]*T, 0)
	if err = r.db.SelectContext(ctx, &items, listQuery, append(args, q.Limit, q.Offset)...); err != nil {
		return nil, 0, fmt.Errorf("failed to list %s: %w", r.table.Name, err)
	}
	return items, total, nil
}

func (r *TenantTable[T, PT]) Get(ctx context.Context, labID, id int64) (*T, error) {
	return r.getWhere(ctx, "get", labID, id, "deleted_at IS NULL")
}

func (r *TenantTable[T, PT]) GetDeleted(ctx context.Context, labID, id int64) (*T, error) {
	return r.getWhere(ctx, "get_deleted", labID, id, "deleted_at IS NOT NULL")
}

func (r *TenantTable[T, PT]) getWhere(ctx context.Context, op string, labID, id int64, state string) (entity *T, err error) {
	defer func(start time.Time) { r.observe(r.table.Name, op, start, err) }(time.Now())

	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1 AND lab_id = $2 AND %s",
		r.table.selectColumns(), r.table.Name, state)

	entity = new(T)
	if err = r.db.GetContext(ctx, entity, query, id, labID); err != nil {
		err = mapError(err)
		return nil, err
	}
	return entity, nil
}

func (r *TenantTable[T, PT]) GetMany(ctx context.Context, labID int64, ids []int64) (items []*T, err error) {
	defer func(start time.Time) { r.observe(r.table.Name, "get_many", start, err) }(time.Now())

	query := fmt.Sprintf("SELECT %s FROM %s WHERE lab_id = $1 AND id = ANY($2) AND deleted_at IS NULL ORDER BY id",
		r.table.selectColumns(), r.table.Name)

	items = make([]*T, 0, len(ids))
	if err = r.db.SelectContext(ctx, &items, query, labID, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", r.table.Name, err)
	}
	return items, nil
}

func (r *TenantTable[T, PT]) Create(ctx context.Context, entity *T) error {
	return r.CreateTx(ctx, r.db, entity)
}

// CreateTx inserts entity through ext, which may be a transaction.
func (r *TenantTable[T, PT]) CreateTx(ctx context.Context, ext sqlx.ExtContext, entity *T) (err error) {
	defer func(start time.Time) { r.observe(r.table.Name, "create", start, err) }(time.Now())

	PT(entity).Touch(r.now())

	rows, err := sqlx.NamedQueryContext(ctx, ext, r.table.insertSQL(), entity)
	if err != nil {
		err = mapError(err)
		return fmt.Errorf("failed to create %s: %w", r.table.Name, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err = rows.Err(); err != nil {
			err = mapError(err)
			return fmt.Errorf("failed to create %s: %w", r.table.Name, err)
		}
		return fmt.Errorf("failed to create %s: no id returned", r.table.Name)
	}

	var id int64
	if err = rows.Scan(&id); err != nil {
		return fmt.Errorf("failed to scan %s id: %w", r.table.Name, err)
	}
	PT(entity).SetID(id)
	return nil
}

func (r *TenantTable[T, PT]) Update(ctx context.Context, entity *T) (err error) {
	defer func(start time.Time) { r.observe(r.table.Name, "update", start, err) }(time.Now())

	PT(entity).Touch(r.now())

	res, err := sqlx.NamedExecContext(ctx, r.db, r.table.updateSQL(), entity)
	if err != nil {
		err = mapError(err)
		return fmt.Errorf("failed to update %s: %w", r.table.Name, err)
	}
	return expectOne(res)
}

func (r *TenantTable[T, PT]) SoftDelete(ctx context.Context, labID, id int64, at time.Time) (err error) {
	defer func(start time.Time) { r.observe(r.table.Name, "soft_delete", start, err) }(time.Now())

	query := fmt.Sprintf(`UPDATE %s SET deleted_at = $3, updated_at = $3
		WHERE id = $1 AND lab_id = $2 AND deleted_at IS NULL`, r.table.Name)

	res, err := r.db.ExecContext(ctx, query, id, labID, at)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", r.table.Name, err)
	}
	return expectOne(res)
}

func (r *TenantTable[T, PT]) Restore(ctx context.Context, labID, id int64) (err error) {
	defer func(start time.Time) { r.observe(r.table.Name, "restore", start, err) }(time.Now())

	query := fmt.Sprintf(`UPDATE %s SET deleted_at = NULL, updated_at = $3
		WHERE id = $1 AND lab_id = $2 AND deleted_at IS NOT NULL`, r.table.Name)

	res, err := r.db.ExecContext(ctx, query, id, labID, r.now())
	if err != nil {
		err = mapError(err)
		return fmt.Errorf("failed to restore %s: %w", r.table.Name, err)
	}
	return expectOne(res)
}

func (r *TenantTable[T, PT]) Purge(ctx context.Context, labID, id int64) (err error) {
	defer func(start time.Time) { r.observe(r.table.Name, "purge", start, err) }(time.Now())

	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1 AND lab_id = $2", r.table.Name)

	res, err := r.db.ExecContext(ctx, query, id, labID)
	if err != nil {
		err = mapError(err)
		return fmt.Errorf("failed to purge %s: %w", r.table.Name, err)
	}
	return expectOne(res)
}

func (r *TenantTable[T, PT]) Exists(ctx context.Context, scope repository.Scope, labID int64, match map[string]interface{}, excludeID int64) (exists bool, err error) {
	defer func(start time.Time) { r.observe(r.table.Name, "exists", start, err) }(time.Now())

	query, args, err := r.table.existsSQL(scope, labID, match, excludeID)
	if err != nil {
		return false, err
	}
	if err = r.db.GetContext(ctx, &exists, query, args...); err != nil {
		return false, fmt.Errorf("failed to check %s uniqueness: %w", r.table.Name, err)
	}
	return exists, nil
}
