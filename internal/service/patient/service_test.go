package patient

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/lab-api/internal/model"
	"github.com/jwalitptl/lab-api/internal/repository/memory"
	"github.com/jwalitptl/lab-api/internal/service/audit"
	apperrors "github.com/jwalitptl/lab-api/pkg/errors"
	"github.com/jwalitptl/lab-api/pkg/validator"
)

func TestService_CreateAndIsolation(t *testing.T) {
	stores := memory.NewStores()
	svc := NewService(stores.Patients, validator.New(), audit.NewService(stores.Audit))
	ctx := context.Background()

	p, err := svc.CreateFrom(ctx, 1, &model.CreatePatientRequest{
		Name: " Asha Rao ", Age: 34, Gender: "Female", Email: "Asha@Mail.test",
	})
	require.NoError(t, err)
	assert.Equal(t, "Asha Rao", p.Name)
	assert.Equal(t, model.GenderFemale, p.Gender)
	assert.Equal(t, "asha@mail.test", p.Email)

	_, err = svc.Get(ctx, 2, p.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

	page, err := svc.List(ctx, 2, model.ListQuery{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	_, err = svc.CreateFrom(ctx, 1, &model.CreatePatientRequest{Name: "Bad", Age: 200, Gender: "male"})
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))

	entries := stores.Audit.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, model.AuditActionCreate, entries[0].Action)
}

func TestService_DeleteRestorePurge(t *testing.T) {
	stores := memory.NewStores()
	svc := NewService(stores.Patients, validator.New(), nil)
	ctx := context.Background()

	p, err := svc.CreateFrom(ctx, 1, &model.CreatePatientRequest{Name: "Ravi", Age: 50, Gender: "male"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, 1, p.ID))
	_, err = svc.Get(ctx, 1, p.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

	restored, err := svc.Restore(ctx, 1, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ravi", restored.Name)

	age := 51
	updated, err := svc.UpdateFrom(ctx, 1, p.ID, &model.UpdatePatientRequest{Age: &age})
	require.NoError(t, err)
	assert.Equal(t, 51, updated.Age)

	require.NoError(t, svc.Purge(ctx, 1, p.ID))
	_, err = svc.Restore(ctx, 1, p.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestTestService_ListForPatient(t *testing.T) {
	stores := memory.NewStores()
	patients := NewService(stores.Patients, validator.New(), nil)
	svc := NewTestService(stores.PatientTests, patients, validator.New())
	ctx := context.Background()

	p, err := patients.CreateFrom(ctx, 1, &model.CreatePatientRequest{Name: "Ravi", Age: 50, Gender: "male"})
	require.NoError(t, err)

	stores.PatientTests.Seed(&model.PatientTest{TenantBase: model.TenantBase{LabID: 1}, PatientID: p.ID, TestID: 7, Status: model.PatientTestPending})
	stores.PatientTests.Seed(&model.PatientTest{TenantBase: model.TenantBase{LabID: 1}, PatientID: p.ID + 1, TestID: 7, Status: model.PatientTestPending})
	foreign := stores.PatientTests.Seed(&model.PatientTest{TenantBase: model.TenantBase{LabID: 2}, PatientID: p.ID, TestID: 7, Status: model.PatientTestPending})

	page, err := svc.ListForPatient(ctx, 1, p.ID, model.ListQuery{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, p.ID, page.Items[0].PatientID)

	all, err := svc.List(ctx, 1, model.ListQuery{Filters: map[string]interface{}{"status": model.PatientTestPending}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), all.Total)

	_, err = svc.Get(ctx, 1, foreign.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

	_, err = svc.ListForPatient(ctx, 2, p.ID, model.ListQuery{})
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}
