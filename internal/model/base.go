package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// TenantEntity is implemented by every row partitioned by lab.
type TenantEntity interface {
	GetID() int64
	SetID(id int64)
	GetLabID() int64
	SetLabID(labID int64)
	GetDeletedAt() *time.Time
	SetDeletedAt(t *time.Time)
	Touch(now time.Time)
}

// TenantBase contains common fields for all lab-scoped models
type TenantBase struct {
	ID        int64      `json:"id" db:"id"`
	LabID     int64      `json:"labId" db:"lab_id"`
	CreatedAt time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time  `json:"updatedAt" db:"updated_at"`
	DeletedAt *time.Time `json:"deletedAt,omitempty" db:"deleted_at"`
}

func (b *TenantBase) GetID() int64              { return b.ID }
func (b *TenantBase) SetID(id int64)            { b.ID = id }
func (b *TenantBase) GetLabID() int64           { return b.LabID }
func (b *TenantBase) SetLabID(labID int64)      { b.LabID = labID }
func (b *TenantBase) GetDeletedAt() *time.Time  { return b.DeletedAt }
func (b *TenantBase) SetDeletedAt(t *time.Time) { b.DeletedAt = t }

// Touch stamps UpdatedAt, and CreatedAt on first save.
func (b *TenantBase) Touch(now time.Time) {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
}

// Sort directions
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// Page size bounds
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ListQuery holds the search, sort and paging parameters of a list call
type ListQuery struct {
	Search string `form:"search" json:"search"`
	Sort   string `form:"sort" json:"sort"`
	Order  string `form:"order" json:"order"`
	Limit  int    `form:"limit" json:"limit"`
	Offset int    `form:"offset" json:"offset"`

	// Filters are exact-match column filters; keys must be declared by the table.
	Filters map[string]interface{} `form:"-" json:"-"`
}

// WithDefaults fills unset paging and ordering values.
func (q ListQuery) WithDefaults() ListQuery {
	if q.Limit == 0 {
		q.Limit = DefaultPageSize
	}
	if q.Order == "" {
		q.Order = SortDesc
	}
	return q
}

// Filter returns q with an extra exact-match filter.
func (q ListQuery) Filter(column string, value interface{}) ListQuery {
	filters := make(map[string]interface{}, len(q.Filters)+1)
	for k, v := range q.Filters {
		filters[k] = v
	}
	filters[column] = value
	q.Filters = filters
	return q
}

// Page is one page of a list result
type Page[T any] struct {
	Items  []*T  `json:"items"`
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

// JSONMap represents a generic JSON object stored in a jsonb column
type JSONMap map[string]interface{}

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func (m *JSONMap) Scan(src interface{}) error {
	return scanJSON(src, m)
}

func scanJSON(src interface{}, dst interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported JSON column type %T", src)
	}
}
