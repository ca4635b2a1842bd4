// Package memory provides map-backed repositories with the same lab
// scoping rules as the postgres ones. Tests across the module use it in
// place of a database.
package memory

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx/reflectx"

	"github.com/jwalitptl/lab-api/internal/model"
	"github.com/jwalitptl/lab-api/internal/repository"
)

var mapper = reflectx.NewMapper("db")

// Options mirrors the parts of a postgres table descriptor the memory
// table honours.
type Options struct {
	Search   []string
	SortKeys []string
	Filters  []string
}

type Table[T any, PT interface {
	*T
	model.TenantEntity
}] struct {
	mu     sync.RWMutex
	rows   map[int64]*T
	nextID int64
	opts   Options
	now    func() time.Time
	// inUse reports rows other tables still point at. Purge refuses them.
	inUse []func(id int64) bool
}

func NewTable[T any, PT interface {
	*T
	model.TenantEntity
}](opts Options) *Table[T, PT] {
	return &Table[T, PT]{
		rows: make(map[int64]*T),
		opts: opts,
		now:  time.Now,
	}
}

func (t *Table[T, PT]) SortKeys() []string   { return t.opts.SortKeys }
func (t *Table[T, PT]) FilterKeys() []string { return t.opts.Filters }

// Seed stores entity as is, keeping its id and lab id.
func (t *Table[T, PT]) Seed(entity *T) *T {
	t.mu.Lock()
	defer t.mu.Unlock()

	e := PT(entity)
	if e.GetID() == 0 {
		t.nextID++
		e.SetID(t.nextID)
	} else if e.GetID() > t.nextID {
		t.nextID = e.GetID()
	}
	t.rows[e.GetID()] = clone(entity)
	return entity
}

// All returns every row, deleted or not, in id order.
func (t *Table[T, PT]) All() []*T {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]*T, 0, len(t.rows))
	for _, row := range t.rows {
		out = append(out, clone(row))
	}
	sort.Slice(out, func(i, j int) bool { return PT(out[i]).GetID() < PT(out[j]).GetID() })
	return out
}

func (t *Table[T, PT]) List(ctx context.Context, labID int64, q model.ListQuery) ([]*T, int64, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	matched := make([]*T, 0)
	for _, row := range t.rows {
		e := PT(row)
		if e.GetLabID() != labID || e.GetDeletedAt() != nil {
			continue
		}
		if !t.matchesFilters(row, q.Filters) || !t.matchesSearch(row, q.Search) {
			continue
		}
		matched = append(matched, row)
	}

	sort.Slice(matched, func(i, j int) bool {
		a, b := PT(matched[i]).GetID(), PT(matched[j]).GetID()
		if q.Order == model.SortAsc {
			return a < b
		}
		return a > b
	})

	total := int64(len(matched))
	start := min(q.Offset, len(matched))
	end := len(matched)
	if q.Limit > 0 {
		end = min(start+q.Limit, len(matched))
	}

	page := make([]*T, 0, end-start)
	for _, row := range matched[start:end] {
		page = append(page, clone(row))
	}
	return page, total, nil
}

func (t *Table[T, PT]) Get(ctx context.Context, labID, id int64) (*T, error) {
	return t.find(labID, id, false)
}

func (t *Table[T, PT]) GetDeleted(ctx context.Context, labID, id int64) (*T, error) {
	return t.find(labID, id, true)
}

func (t *Table[T, PT]) find(labID, id int64, deleted bool) (*T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	row, ok := t.rows[id]
	if !ok || PT(row).GetLabID() != labID || (PT(row).GetDeletedAt() != nil) != deleted {
		return nil, repository.ErrNotFound
	}
	return clone(row), nil
}

func (t *Table[T, PT]) GetMany(ctx context.Context, labID int64, ids []int64) ([]*T, error) {
	out := make([]*T, 0, len(ids))
	for _, id := range ids {
		row, err := t.find(labID, id, false)
		if err != nil {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func (t *Table[T, PT]) Create(ctx context.Context, entity *T) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.nextID++
	e := PT(entity)
	e.SetID(t.nextID)
	e.Touch(t.now())
	t.rows[e.GetID()] = clone(entity)
	return nil
}

func (t *Table[T, PT]) Update(ctx context.Context, entity *T) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	e := PT(entity)
	row, ok := t.rows[e.GetID()]
	if !ok || PT(row).GetLabID() != e.GetLabID() || PT(row).GetDeletedAt() != nil {
		return repository.ErrNotFound
	}
	e.Touch(t.now())
	t.rows[e.GetID()] = clone(entity)
	return nil
}

func (t *Table[T, PT]) SoftDelete(ctx context.Context, labID, id int64, at time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	row, ok := t.rows[id]
	if !ok || PT(row).GetLabID() != labID || PT(row).GetDeletedAt() != nil {
		return repository.ErrNotFound
	}
	PT(row).SetDeletedAt(&at)
	return nil
}

func (t *Table[T, PT]) Restore(ctx context.Context, labID, id int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	row, ok := t.rows[id]
	if !ok || PT(row).GetLabID() != labID || PT(row).GetDeletedAt() == nil {
		return repository.ErrNotFound
	}
	PT(row).SetDeletedAt(nil)
	return nil
}

func (t *Table[T, PT]) Purge(ctx context.Context, labID, id int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	row, ok := t.rows[id]
	if !ok || PT(row).GetLabID() != labID {
		return repository.ErrNotFound
	}
	for _, ref := range t.inUse {
		if ref(id) {
			return repository.ErrInUse
		}
	}
	delete(t.rows, id)
	return nil
}

// ReferencedBy makes Purge fail with ErrInUse while any row of other,
// soft-deleted or not, holds id in col.
func ReferencedBy[T, O any, PT interface {
	*T
	model.TenantEntity
}, PO interface {
	*O
	model.TenantEntity
}](t *Table[T, PT], other *Table[O, PO], col string) {
	t.inUse = append(t.inUse, func(id int64) bool { return other.references(col, id) })
}

func (t *Table[T, PT]) references(col string, id int64) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, row := range t.rows {
		if v, ok := column(row, col); ok && v != nil && fmt.Sprint(v) == fmt.Sprint(id) {
			return true
		}
	}
	return false
}

func (t *Table[T, PT]) Exists(ctx context.Context, scope repository.Scope, labID int64, match map[string]interface{}, excludeID int64) (bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for id, row := range t.rows {
		e := PT(row)
		if id == excludeID || e.GetDeletedAt() != nil {
			continue
		}
		if scope == repository.ScopeTenant && e.GetLabID() != labID {
			continue
		}
		if t.matchesFilters(row, match) {
			return true, nil
		}
	}
	return false, nil
}

// Mutate applies fn to the stored row, for tests and composite
// repositories that need to change state directly.
func (t *Table[T, PT]) Mutate(id int64, fn func(*T) bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	row, ok := t.rows[id]
	if !ok {
		return false
	}
	return fn(row)
}

func (t *Table[T, PT]) matchesFilters(row *T, filters map[string]interface{}) bool {
	for col, want := range filters {
		got, ok := column(row, col)
		if !ok || fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

func (t *Table[T, PT]) matchesSearch(row *T, search string) bool {
	search = strings.ToLower(strings.TrimSpace(search))
	if search == "" || len(t.opts.Search) == 0 {
		return true
	}
	for _, col := range t.opts.Search {
		if v, ok := column(row, col); ok && strings.Contains(strings.ToLower(fmt.Sprint(v)), search) {
			return true
		}
	}
	return false
}

// column reads the field tagged db:"name", dereferencing pointers.
func column(row interface{}, name string) (interface{}, bool) {
	rv := reflect.Indirect(reflect.ValueOf(row))
	fi, ok := mapper.TypeMap(rv.Type()).Names[name]
	if !ok {
		return nil, false
	}
	v := reflectx.FieldByIndexesReadOnly(rv, fi.Index)
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil, true
		}
		v = v.Elem()
	}
	return v.Interface(), true
}

func clone[T any](v *T) *T {
	c := *v
	return &c
}
