package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jwalitptl/lab-api/internal/model"
)

var (
	// ErrNotFound is returned when no row matches, including rows owned by
	// another lab.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique index rejects a write.
	ErrDuplicate = errors.New("duplicate record")
	// ErrInUse is returned when a row cannot be removed because other rows
	// still reference it.
	ErrInUse = errors.New("record still referenced")
	// ErrInvalidTransition is returned when a status guard matched no row.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Scope says whether a uniqueness check is limited to one lab.
type Scope int

const (
	ScopeTenant Scope = iota
	ScopeGlobal
)

// All repository interfaces in one file
type (
	// TenantStore is the storage contract shared by every lab-scoped entity.
	// Every method takes the caller's lab id and embeds it in the SQL
	// predicate; a row belonging to another lab behaves as absent.
	TenantStore[T any] interface {
		List(ctx context.Context, labID int64, q model.ListQuery) ([]*T, int64, error)
		Get(ctx context.Context, labID, id int64) (*T, error)
		GetDeleted(ctx context.Context, labID, id int64) (*T, error)
		GetMany(ctx context.Context, labID int64, ids []int64) ([]*T, error)
		Create(ctx context.Context, entity *T) error
		Update(ctx context.Context, entity *T) error
		SoftDelete(ctx context.Context, labID, id int64, at time.Time) error
		Restore(ctx context.Context, labID, id int64) error
		Purge(ctx context.Context, labID, id int64) error
		// Exists reports whether a live row matches every column in match.
		// excludeID (when non-zero) is left out of the check.
		Exists(ctx context.Context, scope Scope, labID int64, match map[string]interface{}, excludeID int64) (bool, error)
		// SortKeys lists the values accepted in ListQuery.Sort.
		SortKeys() []string
		// FilterKeys lists the columns accepted in ListQuery.Filters.
		FilterKeys() []string
	}

	UserRepository interface {
		TenantStore[model.User]
		// GetByID loads a live user regardless of lab.
		GetByID(ctx context.Context, id int64) (*model.User, error)
		GetByEmail(ctx context.Context, email string) (*model.User, error)
		// Register inserts a user that has no lab yet.
		Register(ctx context.Context, user *model.User) error
	}

	LabRepository interface {
		Get(ctx context.Context, id int64) (*model.Lab, error)
		Update(ctx context.Context, lab *model.Lab) error
		// CreateWithOwner inserts lab and makes userID its admin in one
		// transaction.
		CreateWithOwner(ctx context.Context, lab *model.Lab, userID int64, perms model.Permissions) error
	}

	BillRepository interface {
		TenantStore[model.Bill]
		// CreateWithTests inserts the bill and its patient tests atomically.
		CreateWithTests(ctx context.Context, bill *model.Bill, tests []*model.PatientTest) error
		ListTests(ctx context.Context, labID, billID int64) ([]*model.PatientTest, error)
		MarkPaid(ctx context.Context, labID, billID int64, at time.Time) error
		InvoiceExists(ctx context.Context, invoiceNumber string) (bool, error)
	}

	ResultRepository interface {
		GetByPatientTest(ctx context.Context, labID, patientTestID int64) (*model.TestResult, error)
		// Submit inserts result and moves its patient test from pending to
		// completed. ErrInvalidTransition when the test is not pending.
		Submit(ctx context.Context, result *model.TestResult) error
		// Delete removes the result and moves the patient test back to
		// pending. ErrNotFound when there is no result.
		Delete(ctx context.Context, labID, patientTestID int64) error
	}

	AuditRepository interface {
		Create(ctx context.Context, entry *model.AuditEntry) error
		List(ctx context.Context, labID int64, q model.ListQuery) ([]*model.AuditEntry, int64, error)
		DeleteBefore(ctx context.Context, before time.Time) (int64, error)
	}

	// Pinger is implemented by stores the readiness probe can check.
	Pinger interface {
		PingContext(ctx context.Context) error
	}
)
