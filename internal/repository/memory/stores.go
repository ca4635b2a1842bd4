package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jwalitptl/lab-api/internal/model"
	"github.com/jwalitptl/lab-api/internal/repository"
)

// Users is the memory UserRepository. Users without a lab are stored with
// a nil LabID and are only reachable through the global lookups.
type Users struct {
	*Table[model.User, *model.User]
}

func NewUsers() *Users {
	return &Users{NewTable[model.User](Options{
		Search:   []string{"name", "email"},
		SortKeys: []string{"createdAt", "email", "name", "role"},
		Filters:  []string{"role", "is_admin"},
	})}
}

func (r *Users) GetByID(ctx context.Context, id int64) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.rows[id]
	if !ok || u.DeletedAt != nil {
		return nil, repository.ErrNotFound
	}
	return cloneUser(u), nil
}

func (r *Users) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range r.rows {
		if u.DeletedAt == nil && strings.ToLower(u.Email) == email {
			return cloneUser(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *Users) Register(ctx context.Context, user *model.User) error {
	if taken, _ := r.Exists(ctx, repository.ScopeGlobal, 0, map[string]interface{}{"email": user.Email}, 0); taken {
		return fmt.Errorf("%w: users_email_key", repository.ErrDuplicate)
	}
	user.LabID = nil
	return r.Create(ctx, user)
}

func (r *Users) assignLab(userID, labID int64, perms model.Permissions, now time.Time) error {
	ok := r.Mutate(userID, func(u *model.User) bool {
		if u.LabID != nil || u.DeletedAt != nil {
			return false
		}
		u.LabID = &labID
		u.Role = model.RoleAdmin
		u.IsAdmin = true
		u.Permissions = perms.Clone()
		u.HasCompletedSetup = true
		u.UpdatedAt = now
		return true
	})
	if !ok {
		return repository.ErrNotFound
	}
	return nil
}

func cloneUser(u *model.User) *model.User {
	c := *u
	c.Permissions = u.Permissions.Clone()
	return &c
}

// Labs is the memory LabRepository.
type Labs struct {
	mu     sync.RWMutex
	rows   map[int64]*model.Lab
	nextID int64
	users  *Users
}

func NewLabs(users *Users) *Labs {
	return &Labs{rows: make(map[int64]*model.Lab), users: users}
}

func (r *Labs) Get(ctx context.Context, id int64) (*model.Lab, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lab, ok := r.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *lab
	return &c, nil
}

func (r *Labs) Update(ctx context.Context, lab *model.Lab) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rows[lab.ID]; !ok {
		return repository.ErrNotFound
	}
	lab.UpdatedAt = time.Now()
	c := *lab
	r.rows[lab.ID] = &c
	return nil
}

func (r *Labs) CreateWithOwner(ctx context.Context, lab *model.Lab, userID int64, perms model.Permissions) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	id := r.nextID + 1
	if err := r.users.assignLab(userID, id, perms, now); err != nil {
		return err
	}

	r.nextID = id
	lab.ID = id
	lab.CreatedAt = now
	lab.UpdatedAt = now
	c := *lab
	r.rows[id] = &c
	return nil
}

// Bills is the memory BillRepository.
type Bills struct {
	*Table[model.Bill, *model.Bill]
	PatientTests *Table[model.PatientTest, *model.PatientTest]
	// FailAfter makes CreateWithTests fail after inserting that many
	// patient tests, leaving nothing behind.
	FailAfter int
}

func NewBills(patientTests *Table[model.PatientTest, *model.PatientTest]) *Bills {
	return &Bills{
		Table: NewTable[model.Bill](Options{
			Search:   []string{"invoice_number"},
			SortKeys: []string{"createdAt", "invoiceNumber", "total"},
			Filters:  []string{"patient_id", "doctor_id", "is_paid"},
		}),
		PatientTests: patientTests,
		FailAfter:    -1,
	}
}

func (r *Bills) CreateWithTests(ctx context.Context, bill *model.Bill, tests []*model.PatientTest) error {
	if err := r.Create(ctx, bill); err != nil {
		return err
	}

	created := make([]int64, 0, len(tests))
	rollback := func() {
		for _, id := range created {
			r.PatientTests.Purge(ctx, bill.LabID, id)
		}
		r.Purge(ctx, bill.LabID, bill.ID)
	}

	for i, pt := range tests {
		if r.FailAfter >= 0 && i == r.FailAfter {
			rollback()
			return fmt.Errorf("insert patient test: simulated failure")
		}
		billID := bill.ID
		pt.BillID = &billID
		pt.LabID = bill.LabID
		if err := r.PatientTests.Create(ctx, pt); err != nil {
			rollback()
			return err
		}
		created = append(created, pt.ID)
	}
	return nil
}

func (r *Bills) ListTests(ctx context.Context, labID, billID int64) ([]*model.PatientTest, error) {
	q := model.ListQuery{Order: model.SortAsc}.Filter("bill_id", billID)
	tests, _, err := r.PatientTests.List(ctx, labID, q)
	return tests, err
}

func (r *Bills) MarkPaid(ctx context.Context, labID, billID int64, at time.Time) error {
	if _, err := r.Get(ctx, labID, billID); err != nil {
		return err
	}
	ok := r.Mutate(billID, func(b *model.Bill) bool {
		if b.IsPaid {
			return false
		}
		b.IsPaid = true
		b.PaidAt = &at
		b.UpdatedAt = at
		return true
	})
	if !ok {
		return repository.ErrInvalidTransition
	}
	return nil
}

func (r *Bills) InvoiceExists(ctx context.Context, invoiceNumber string) (bool, error) {
	for _, b := range r.All() {
		if b.InvoiceNumber == invoiceNumber {
			return true, nil
		}
	}
	return false, nil
}

// Results is the memory ResultRepository.
type Results struct {
	*Table[model.TestResult, *model.TestResult]
	patientTests *Table[model.PatientTest, *model.PatientTest]
	mu           sync.Mutex
}

func NewResults(patientTests *Table[model.PatientTest, *model.PatientTest]) *Results {
	return &Results{
		Table:        NewTable[model.TestResult](Options{Filters: []string{"patient_test_id"}}),
		patientTests: patientTests,
	}
}

func (r *Results) GetByPatientTest(ctx context.Context, labID, patientTestID int64) (*model.TestResult, error) {
	q := model.ListQuery{Limit: 1}.Filter("patient_test_id", patientTestID)
	rows, _, err := r.List(ctx, labID, q)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, repository.ErrNotFound
	}
	return rows[0], nil
}

func (r *Results) Submit(ctx context.Context, result *model.TestResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.setStatus(result.LabID, result.PatientTestID, model.PatientTestPending, model.PatientTestCompleted) {
		return repository.ErrInvalidTransition
	}
	return r.Create(ctx, result)
}

func (r *Results) Delete(ctx context.Context, labID, patientTestID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, err := r.GetByPatientTest(ctx, labID, patientTestID)
	if err != nil {
		return err
	}
	if err := r.Purge(ctx, labID, existing.ID); err != nil {
		return err
	}
	if !r.setStatus(labID, patientTestID, model.PatientTestCompleted, model.PatientTestPending) {
		return repository.ErrInvalidTransition
	}
	return nil
}

func (r *Results) setStatus(labID, patientTestID int64, from, to string) bool {
	return r.patientTests.Mutate(patientTestID, func(pt *model.PatientTest) bool {
		if pt.LabID != labID || pt.DeletedAt != nil || pt.Status != from {
			return false
		}
		pt.Status = to
		pt.UpdatedAt = time.Now()
		return true
	})
}

// Audit is the memory AuditRepository.
type Audit struct {
	mu      sync.Mutex
	entries []*model.AuditEntry
}

func (r *Audit) Create(ctx context.Context, entry *model.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry.ID = int64(len(r.entries) + 1)
	c := *entry
	r.entries = append(r.entries, &c)
	return nil
}

func (r *Audit) List(ctx context.Context, labID int64, q model.ListQuery) ([]*model.AuditEntry, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*model.AuditEntry, 0)
	for _, e := range r.entries {
		if e.LabID == labID && auditMatches(e, q.Filters) {
			c := *e
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	total := int64(len(out))

	start := min(q.Offset, len(out))
	end := len(out)
	if q.Limit > 0 {
		end = min(start+q.Limit, len(out))
	}
	return out[start:end], total, nil
}

func auditMatches(e *model.AuditEntry, filters map[string]interface{}) bool {
	fields := map[string]interface{}{
		"user_id":     e.UserID,
		"action":      e.Action,
		"entity_type": e.EntityType,
		"entity_id":   e.EntityID,
	}
	for k, want := range filters {
		got, ok := fields[k]
		if !ok || fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

func (r *Audit) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.entries[:0]
	var removed int64
	for _, e := range r.entries {
		if e.CreatedAt.Before(before) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	r.entries = kept
	return removed, nil
}

// Entries returns a copy of every stored entry.
func (r *Audit) Entries() []model.AuditEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]model.AuditEntry, len(r.entries))
	for i, e := range r.entries {
		out[i] = *e
	}
	return out
}

// Stores bundles a full set of memory repositories.
type Stores struct {
	Users          *Users
	Labs           *Labs
	Doctors        *Table[model.Doctor, *model.Doctor]
	Tests          *Table[model.Test, *model.Test]
	TestParameters *Table[model.TestParameter, *model.TestParameter]
	Patients       *Table[model.Patient, *model.Patient]
	PatientTests   *Table[model.PatientTest, *model.PatientTest]
	Bills          *Bills
	Results        *Results
	Audit          *Audit
}

func NewStores() *Stores {
	users := NewUsers()
	patientTests := NewTable[model.PatientTest](Options{
		SortKeys: []string{"createdAt", "status"},
		Filters:  []string{"patient_id", "test_id", "doctor_id", "bill_id", "status"},
	})
	s := &Stores{
		Users: users,
		Labs:  NewLabs(users),
		Doctors: NewTable[model.Doctor](Options{
			Search:   []string{"name", "registration_number", "specialization", "hospital"},
			SortKeys: []string{"createdAt", "name", "specialization"},
			Filters:  []string{"specialization"},
		}),
		Tests: NewTable[model.Test](Options{
			Search:   []string{"name", "code", "category"},
			SortKeys: []string{"category", "code", "createdAt", "name", "price"},
			Filters:  []string{"category", "sample_type"},
		}),
		TestParameters: NewTable[model.TestParameter](Options{
			Search:   []string{"name"},
			SortKeys: []string{"createdAt", "name", "sortOrder"},
			Filters:  []string{"test_id"},
		}),
		Patients: NewTable[model.Patient](Options{
			Search:   []string{"name", "phone", "email"},
			SortKeys: []string{"age", "createdAt", "name"},
			Filters:  []string{"gender"},
		}),
		PatientTests: patientTests,
		Bills:        NewBills(patientTests),
		Results:      NewResults(patientTests),
		Audit:        &Audit{},
	}

	// Same foreign keys as the migrations; test_parameters and results
	// cascade, so they never block a purge.
	ReferencedBy(s.Patients, patientTests, "patient_id")
	ReferencedBy(s.Patients, s.Bills.Table, "patient_id")
	ReferencedBy(s.Tests, patientTests, "test_id")
	ReferencedBy(s.Doctors, patientTests, "doctor_id")
	ReferencedBy(s.Doctors, s.Bills.Table, "doctor_id")
	return s
}
