// Package tenant implements the lab-scoped CRUD contract once for every
// entity: validate input, constrain every read and write to the caller's
// lab, hide soft-deleted rows, enforce uniqueness and audit mutations.
package tenant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/jwalitptl/lab-api/internal/model"
	"github.com/jwalitptl/lab-api/internal/repository"
	"github.com/jwalitptl/lab-api/internal/service/audit"
	apperrors "github.com/jwalitptl/lab-api/pkg/errors"
	"github.com/jwalitptl/lab-api/pkg/validator"
)

// Entity is satisfied by pointers to lab-scoped models.
type Entity[T any] interface {
	*T
	model.TenantEntity
}

// UniqueRule declares a set of columns whose values must not repeat among
// live rows, within one lab or globally.
type UniqueRule[T any] struct {
	Scope   repository.Scope
	Columns func(*T) map[string]interface{}
	Message string
}

// Config describes one entity.
type Config[T any] struct {
	// Resource names the entity in errors and audit entries.
	Resource string
	Unique   []UniqueRule[T]
}

type Service[T any, PT Entity[T]] struct {
	store    repository.TenantStore[T]
	cfg      Config[T]
	validate validator.Validator
	audit    audit.Recorder
	now      func() time.Time
}

func New[T any, PT Entity[T]](store repository.TenantStore[T], cfg Config[T], v validator.Validator, rec audit.Recorder) *Service[T, PT] {
	if rec == nil {
		rec = audit.Nop{}
	}
	return &Service[T, PT]{
		store:    store,
		cfg:      cfg,
		validate: v,
		audit:    rec,
		now:      time.Now,
	}
}

// ValidateQuery applies defaults and rejects out-of-range paging, unknown
// sort keys and undeclared filters.
func (s *Service[T, PT]) ValidateQuery(q model.ListQuery) (model.ListQuery, error) {
	q = q.WithDefaults()

	if q.Limit < 1 || q.Limit > model.MaxPageSize {
		return q, apperrors.Validation(fmt.Sprintf("limit must be between 1 and %d", model.MaxPageSize), nil)
	}
	if q.Offset < 0 {
		return q, apperrors.Validation("offset must not be negative", nil)
	}
	if q.Order != model.SortAsc && q.Order != model.SortDesc {
		return q, apperrors.Validation("order must be asc or desc", nil)
	}
	if q.Sort != "" && !contains(s.store.SortKeys(), q.Sort) {
		return q, apperrors.Validation(fmt.Sprintf("cannot sort by %q", q.Sort), nil)
	}
	for k := range q.Filters {
		if !contains(s.store.FilterKeys(), k) {
			return q, apperrors.Validation(fmt.Sprintf("cannot filter by %q", k), nil)
		}
	}
	return q, nil
}

func (s *Service[T, PT]) List(ctx context.Context, labID int64, q model.ListQuery) (*model.Page[T], error) {
	if err := requireLab(labID); err != nil {
		return nil, err
	}
	q, err := s.ValidateQuery(q)
	if err != nil {
		return nil, err
	}

	items, total, err := s.store.List(ctx, labID, q)
	if err != nil {
		return nil, s.mapError(err)
	}

	// A misbehaving store must never hand out another lab's rows.
	owned := make([]*T, 0, len(items))
	for _, item := range items {
		if PT(item).GetLabID() == labID && PT(item).GetDeletedAt() == nil {
			owned = append(owned, item)
		}
	}

	return &model.Page[T]{Items: owned, Total: total, Limit: q.Limit, Offset: q.Offset}, nil
}

// Get returns a live row owned by labID.
func (s *Service[T, PT]) Get(ctx context.Context, labID, id int64) (*T, error) {
	if err := requireLab(labID); err != nil {
		return nil, err
	}
	if id <= 0 {
		return nil, apperrors.NotFound(s.cfg.Resource, nil)
	}

	row, err := s.store.Get(ctx, labID, id)
	if err != nil {
		return nil, s.mapError(err)
	}
	if !s.owns(row, labID) || PT(row).GetDeletedAt() != nil {
		return nil, apperrors.NotFound(s.cfg.Resource, nil)
	}
	return row, nil
}

// Exists reports a not-found error unless id names a live row of labID.
func (s *Service[T, PT]) Exists(ctx context.Context, labID, id int64) error {
	_, err := s.Get(ctx, labID, id)
	return err
}

// GetMany loads every id under labID; any missing id is a not-found error.
func (s *Service[T, PT]) GetMany(ctx context.Context, labID int64, ids []int64) ([]*T, error) {
	if err := requireLab(labID); err != nil {
		return nil, err
	}
	rows, err := s.store.GetMany(ctx, labID, ids)
	if err != nil {
		return nil, s.mapError(err)
	}

	byID := make(map[int64]*T, len(rows))
	for _, row := range rows {
		if s.owns(row, labID) && PT(row).GetDeletedAt() == nil {
			byID[PT(row).GetID()] = row
		}
	}

	out := make([]*T, 0, len(ids))
	for _, id := range ids {
		row, ok := byID[id]
		if !ok {
			return nil, apperrors.NotFound(fmt.Sprintf("%s %d", s.cfg.Resource, id), nil)
		}
		out = append(out, row)
	}
	return out, nil
}

// Create stamps labID on entity, validates it and stores it.
func (s *Service[T, PT]) Create(ctx context.Context, labID int64, entity *T) (*T, error) {
	if err := requireLab(labID); err != nil {
		return nil, err
	}

	e := PT(entity)
	e.SetID(0)
	e.SetLabID(labID)
	e.SetDeletedAt(nil)

	if err := s.check(ctx, labID, entity, 0); err != nil {
		return nil, err
	}

	if err := s.store.Create(ctx, entity); err != nil {
		return nil, s.mapError(err)
	}

	s.audit.Record(ctx, labID, model.AuditActionCreate, s.cfg.Resource, e.GetID(), toMap(entity))
	return entity, nil
}

// Update loads the row, lets apply modify a copy and stores the result.
// apply may not move the row to another lab or change its id.
func (s *Service[T, PT]) Update(ctx context.Context, labID, id int64, apply func(*T) error) (*T, error) {
	current, err := s.Get(ctx, labID, id)
	if err != nil {
		return nil, err
	}
	before := toMap(current)

	next := *current
	if err := apply(&next); err != nil {
		return nil, err
	}
	PT(&next).SetID(id)
	PT(&next).SetLabID(labID)
	PT(&next).SetDeletedAt(nil)

	if err := s.check(ctx, labID, &next, id); err != nil {
		return nil, err
	}

	if err := s.store.Update(ctx, &next); err != nil {
		return nil, s.mapError(err)
	}

	s.audit.Record(ctx, labID, model.AuditActionUpdate, s.cfg.Resource, id, diff(before, toMap(&next)))
	return &next, nil
}

// Delete soft-deletes a live row.
func (s *Service[T, PT]) Delete(ctx context.Context, labID, id int64) error {
	if _, err := s.Get(ctx, labID, id); err != nil {
		return err
	}
	if err := s.store.SoftDelete(ctx, labID, id, s.now()); err != nil {
		return s.mapError(err)
	}
	s.audit.Record(ctx, labID, model.AuditActionDelete, s.cfg.Resource, id, nil)
	return nil
}

// GetDeleted returns a soft-deleted row owned by labID.
func (s *Service[T, PT]) GetDeleted(ctx context.Context, labID, id int64) (*T, error) {
	if err := requireLab(labID); err != nil {
		return nil, err
	}
	row, err := s.store.GetDeleted(ctx, labID, id)
	if err != nil {
		return nil, s.mapError(err)
	}
	if !s.owns(row, labID) {
		return nil, apperrors.NotFound(s.cfg.Resource, nil)
	}
	return row, nil
}

// Restore brings back a soft-deleted row, provided its unique values have
// not been taken in the meantime.
func (s *Service[T, PT]) Restore(ctx context.Context, labID, id int64) (*T, error) {
	row, err := s.GetDeleted(ctx, labID, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkUnique(ctx, labID, row, id); err != nil {
		return nil, err
	}

	if err := s.store.Restore(ctx, labID, id); err != nil {
		return nil, s.mapError(err)
	}
	s.audit.Record(ctx, labID, model.AuditActionRestore, s.cfg.Resource, id, nil)
	return s.Get(ctx, labID, id)
}

// Purge removes the row for good, whether or not it was soft-deleted.
func (s *Service[T, PT]) Purge(ctx context.Context, labID, id int64) error {
	if err := requireLab(labID); err != nil {
		return err
	}

	row, err := s.store.Get(ctx, labID, id)
	if errors.Is(err, repository.ErrNotFound) {
		row, err = s.store.GetDeleted(ctx, labID, id)
	}
	if err != nil {
		return s.mapError(err)
	}
	if !s.owns(row, labID) {
		return apperrors.NotFound(s.cfg.Resource, nil)
	}

	if err := s.store.Purge(ctx, labID, id); err != nil {
		return s.mapError(err)
	}
	s.audit.Record(ctx, labID, model.AuditActionPurge, s.cfg.Resource, id, nil)
	return nil
}

func (s *Service[T, PT]) check(ctx context.Context, labID int64, entity *T, excludeID int64) error {
	if s.validate != nil {
		if err := s.validate.Validate(entity); err != nil {
			return apperrors.Validation(err.Error(), err)
		}
	}
	return s.checkUnique(ctx, labID, entity, excludeID)
}

func (s *Service[T, PT]) checkUnique(ctx context.Context, labID int64, entity *T, excludeID int64) error {
	for _, rule := range s.cfg.Unique {
		taken, err := s.store.Exists(ctx, rule.Scope, labID, rule.Columns(entity), excludeID)
		if err != nil {
			return apperrors.Internal(err)
		}
		if taken {
			return apperrors.Conflict(rule.Message, nil)
		}
	}
	return nil
}

func (s *Service[T, PT]) owns(row *T, labID int64) bool {
	return row != nil && PT(row).GetLabID() == labID
}

func (s *Service[T, PT]) mapError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NotFound(s.cfg.Resource, err)
	case errors.Is(err, repository.ErrDuplicate):
		return apperrors.Conflict(s.cfg.Resource+" already exists", err)
	case errors.Is(err, repository.ErrInUse):
		return apperrors.Conflict(s.cfg.Resource+" is still referenced", err)
	default:
		return apperrors.Internal(err)
	}
}

func requireLab(labID int64) error {
	if labID <= 0 {
		return apperrors.Unauthorized("lab not set up")
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// toMap renders entity through its JSON tags for audit entries.
func toMap(entity interface{}) model.JSONMap {
	raw, err := json.Marshal(entity)
	if err != nil {
		return nil
	}
	var m model.JSONMap
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}

// diff keeps the keys of after whose values changed.
func diff(before, after model.JSONMap) model.JSONMap {
	out := model.JSONMap{}
	for k, v := range after {
		if k == "updatedAt" {
			continue
		}
		if !reflect.DeepEqual(before[k], v) {
			out[k] = v
		}
	}
	return out
}
