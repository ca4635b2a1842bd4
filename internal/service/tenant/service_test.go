package tenant

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/lab-api/internal/model"
	"github.com/jwalitptl/lab-api/internal/repository"
	"github.com/jwalitptl/lab-api/internal/repository/memory"
	"github.com/jwalitptl/lab-api/internal/service/audit"
	apperrors "github.com/jwalitptl/lab-api/pkg/errors"
	"github.com/jwalitptl/lab-api/pkg/validator"
)

const (
	labA int64 = 1
	labB int64 = 2
)

var doctorConfig = Config[model.Doctor]{
	Resource: model.AuditEntityDoctor,
	Unique: []UniqueRule[model.Doctor]{{
		Scope: repository.ScopeTenant,
		Columns: func(d *model.Doctor) map[string]interface{} {
			return map[string]interface{}{"registration_number": d.RegistrationNumber}
		},
		Message: "registration number already in use",
	}},
}

func newDoctorService(t *testing.T) (*Service[model.Doctor, *model.Doctor], *memory.Audit) {
	t.Helper()
	stores := memory.NewStores()
	auditRepo := stores.Audit
	svc := New[model.Doctor](stores.Doctors, doctorConfig, validator.New(), audit.NewService(auditRepo))
	return svc, auditRepo
}

func newDoctor(name, reg string) *model.Doctor {
	return &model.Doctor{Name: name, RegistrationNumber: reg, Specialization: "Pathology"}
}

func TestService_CreateStampsLab(t *testing.T) {
	svc, auditRepo := newDoctorService(t)
	ctx := audit.WithActor(context.Background(), audit.Actor{UserID: 9, RequestID: "req-1"})

	d := newDoctor("Dr. Rao", "REG-1")
	d.LabID = labB
	created, err := svc.Create(ctx, labA, d)
	require.NoError(t, err)

	assert.NotZero(t, created.ID)
	assert.Equal(t, labA, created.LabID, "lab id comes from the caller, never the payload")

	entries := auditRepo.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, model.AuditActionCreate, entries[0].Action)
	assert.Equal(t, int64(9), entries[0].UserID)
	assert.Equal(t, "req-1", entries[0].RequestID)
	assert.Equal(t, labA, entries[0].LabID)
}

func TestService_CreateValidates(t *testing.T) {
	svc, _ := newDoctorService(t)

	_, err := svc.Create(context.Background(), labA, &model.Doctor{Name: "No Reg"})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))
	assert.Contains(t, err.Error(), "registrationNumber is required")
}

func TestService_RequiresLab(t *testing.T) {
	svc, _ := newDoctorService(t)

	_, err := svc.List(context.Background(), 0, model.ListQuery{})
	assert.True(t, apperrors.Is(err, apperrors.ErrUnauthorized))

	_, err = svc.Create(context.Background(), 0, newDoctor("x", "y"))
	assert.True(t, apperrors.Is(err, apperrors.ErrUnauthorized))
}

func TestService_TenantIsolation(t *testing.T) {
	svc, _ := newDoctorService(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, labA, newDoctor("Lab A doctor", "REG-A"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, labB, newDoctor("Lab B doctor", "REG-B"))
	require.NoError(t, err)

	page, err := svc.List(ctx, labB, model.ListQuery{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Lab B doctor", page.Items[0].Name)
	assert.Equal(t, int64(1), page.Total)

	_, err = svc.Get(ctx, labB, a.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

	_, err = svc.Update(ctx, labB, a.ID, func(d *model.Doctor) error {
		d.Name = "hijacked"
		return nil
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

	assert.True(t, apperrors.Is(svc.Delete(ctx, labB, a.ID), apperrors.ErrNotFound))
	assert.True(t, apperrors.Is(svc.Purge(ctx, labB, a.ID), apperrors.ErrNotFound))

	got, err := svc.Get(ctx, labA, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lab A doctor", got.Name)
}

// leakyStore ignores the lab id on reads, as a buggy query would.
type leakyStore struct {
	*memory.Table[model.Doctor, *model.Doctor]
}

func (s leakyStore) Get(ctx context.Context, labID, id int64) (*model.Doctor, error) {
	for _, d := range s.All() {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s leakyStore) List(ctx context.Context, labID int64, q model.ListQuery) ([]*model.Doctor, int64, error) {
	all := s.All()
	return all, int64(len(all)), nil
}

func TestService_RechecksOwnershipAfterStorage(t *testing.T) {
	table := memory.NewTable[model.Doctor](memory.Options{})
	foreign := table.Seed(&model.Doctor{
		TenantBase:         model.TenantBase{LabID: labB},
		Name:               "Foreign",
		RegistrationNumber: "REG-X",
	})

	svc := New[model.Doctor](leakyStore{table}, doctorConfig, validator.New(), nil)

	_, err := svc.Get(context.Background(), labA, foreign.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

	page, err := svc.List(context.Background(), labA, model.ListQuery{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	_, err = svc.Update(context.Background(), labA, foreign.ID, func(d *model.Doctor) error { return nil })
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestService_SoftDeleteAndRestore(t *testing.T) {
	svc, auditRepo := newDoctorService(t)
	ctx := context.Background()

	d, err := svc.Create(ctx, labA, newDoctor("Dr. Iyer", "REG-9"))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, labA, d.ID))

	_, err = svc.Get(ctx, labA, d.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

	page, err := svc.List(ctx, labA, model.ListQuery{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	assert.True(t, apperrors.Is(svc.Delete(ctx, labA, d.ID), apperrors.ErrNotFound), "deleting twice")

	_, err = svc.Restore(ctx, labB, d.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound), "restore is lab scoped")

	restored, err := svc.Restore(ctx, labA, d.ID)
	require.NoError(t, err)
	assert.Nil(t, restored.DeletedAt)

	_, err = svc.Restore(ctx, labA, d.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound), "only soft-deleted rows can be restored")

	page, err = svc.List(ctx, labA, model.ListQuery{})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)

	actions := make([]string, 0)
	for _, e := range auditRepo.Entries() {
		actions = append(actions, e.Action)
	}
	assert.Equal(t, []string{model.AuditActionCreate, model.AuditActionDelete, model.AuditActionRestore}, actions)
}

func TestService_Purge(t *testing.T) {
	svc, _ := newDoctorService(t)
	ctx := context.Background()

	live, err := svc.Create(ctx, labA, newDoctor("Live", "REG-L"))
	require.NoError(t, err)
	deleted, err := svc.Create(ctx, labA, newDoctor("Deleted", "REG-D"))
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, labA, deleted.ID))

	require.NoError(t, svc.Purge(ctx, labA, live.ID))
	require.NoError(t, svc.Purge(ctx, labA, deleted.ID))

	_, err = svc.Restore(ctx, labA, deleted.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
	assert.True(t, apperrors.Is(svc.Purge(ctx, labA, live.ID), apperrors.ErrNotFound))
}

func TestService_PurgeRefusesReferencedRow(t *testing.T) {
	stores := memory.NewStores()
	svc := New[model.Doctor](stores.Doctors, doctorConfig, validator.New(), audit.NewService(stores.Audit))
	ctx := context.Background()

	doc, err := svc.Create(ctx, labA, newDoctor("Busy", "REG-B"))
	require.NoError(t, err)
	docID := doc.ID
	stores.PatientTests.Seed(&model.PatientTest{
		TenantBase: model.TenantBase{LabID: labA},
		PatientID:  1,
		TestID:     1,
		DoctorID:   &docID,
		Status:     model.PatientTestPending,
	})

	err = svc.Purge(ctx, labA, doc.ID)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))
	assert.Contains(t, err.Error(), "doctor is still referenced")

	_, err = svc.Get(ctx, labA, doc.ID)
	assert.NoError(t, err, "refused purge leaves the row in place")

	require.NoError(t, svc.Delete(ctx, labA, doc.ID), "soft delete is still allowed")
}

func TestService_RegistrationNumberUniquePerLab(t *testing.T) {
	svc, _ := newDoctorService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, labA, newDoctor("First", "REG-100"))
	require.NoError(t, err)

	_, err = svc.Create(ctx, labA, newDoctor("Second", "REG-100"))
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))

	_, err = svc.Create(ctx, labB, newDoctor("Other lab", "REG-100"))
	assert.NoError(t, err, "the same number is allowed in another lab")

	_, err = svc.Update(ctx, labA, first.ID, func(d *model.Doctor) error {
		d.Name = "First renamed"
		return nil
	})
	assert.NoError(t, err, "a row does not conflict with itself")

	require.NoError(t, svc.Delete(ctx, labA, first.ID))
	second, err := svc.Create(ctx, labA, newDoctor("Second", "REG-100"))
	require.NoError(t, err, "soft-deleted rows release their number")

	_, err = svc.Restore(ctx, labA, first.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict), "restore must not create a duplicate")

	require.NoError(t, svc.Delete(ctx, labA, second.ID))
	_, err = svc.Restore(ctx, labA, first.ID)
	assert.NoError(t, err)
}

func TestService_UpdateKeepsIdentity(t *testing.T) {
	svc, auditRepo := newDoctorService(t)
	ctx := context.Background()

	d, err := svc.Create(ctx, labA, newDoctor("Dr. Sen", "REG-5"))
	require.NoError(t, err)

	updated, err := svc.Update(ctx, labA, d.ID, func(doc *model.Doctor) error {
		doc.ID = 999
		doc.LabID = labB
		doc.Hospital = "City Hospital"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, d.ID, updated.ID)
	assert.Equal(t, labA, updated.LabID)
	assert.Equal(t, "City Hospital", updated.Hospital)

	entries := auditRepo.Entries()
	last := entries[len(entries)-1]
	assert.Equal(t, model.AuditActionUpdate, last.Action)
	assert.Equal(t, "City Hospital", last.Changes["hospital"])
	assert.NotContains(t, last.Changes, "name")
}

func TestService_ValidateQuery(t *testing.T) {
	svc, _ := newDoctorService(t)

	tests := []struct {
		name    string
		query   model.ListQuery
		wantErr bool
	}{
		{"defaults", model.ListQuery{}, false},
		{"max limit", model.ListQuery{Limit: 100}, false},
		{"limit too large", model.ListQuery{Limit: 101}, true},
		{"negative limit", model.ListQuery{Limit: -1}, true},
		{"negative offset", model.ListQuery{Offset: -5}, true},
		{"declared sort", model.ListQuery{Sort: "name", Order: "asc"}, false},
		{"unknown sort", model.ListQuery{Sort: "password_hash"}, true},
		{"bad order", model.ListQuery{Order: "sideways"}, true},
		{"declared filter", model.ListQuery{}.Filter("specialization", "x"), false},
		{"undeclared filter", model.ListQuery{}.Filter("lab_id", 2), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := svc.ValidateQuery(tt.query)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperrors.Is(err, apperrors.ErrValidation))
				return
			}
			require.NoError(t, err)
			assert.NotZero(t, q.Limit)
		})
	}
}

func TestService_ListPaging(t *testing.T) {
	svc, _ := newDoctorService(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.Create(ctx, labA, newDoctor("Doc", "REG-"+string(rune('A'+i))))
		require.NoError(t, err)
	}

	page, err := svc.List(ctx, labA, model.ListQuery{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, int64(5), page.Total)
	assert.Equal(t, 2, page.Limit)
	assert.Equal(t, 2, page.Offset)

	page, err = svc.List(ctx, labA, model.ListQuery{Search: "reg-c"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "REG-C", page.Items[0].RegistrationNumber)
}

func TestService_GetMany(t *testing.T) {
	svc, _ := newDoctorService(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, labA, newDoctor("A", "1"))
	require.NoError(t, err)
	b, err := svc.Create(ctx, labB, newDoctor("B", "2"))
	require.NoError(t, err)

	rows, err := svc.GetMany(ctx, labA, []int64{a.ID})
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	_, err = svc.GetMany(ctx, labA, []int64{a.ID, b.ID})
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestDiff(t *testing.T) {
	before := model.JSONMap{"name": "a", "phone": "1", "updatedAt": time.Now().String()}
	after := model.JSONMap{"name": "a", "phone": "2", "updatedAt": "later"}

	assert.Equal(t, model.JSONMap{"phone": "2"}, diff(before, after))
}
