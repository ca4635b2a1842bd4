package result

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/lab-api/internal/model"
	"github.com/jwalitptl/lab-api/internal/repository/memory"
	"github.com/jwalitptl/lab-api/internal/service/catalog"
	"github.com/jwalitptl/lab-api/internal/service/patient"
	apperrors "github.com/jwalitptl/lab-api/pkg/errors"
	"github.com/jwalitptl/lab-api/pkg/validator"
)

type fixture struct {
	stores *memory.Stores
	svc    *Service
	params *catalog.ParameterService
	tests  *catalog.TestService
}

func newFixture() *fixture {
	stores := memory.NewStores()
	v := validator.New()
	tests := catalog.NewTestService(stores.Tests, v, nil)
	params := catalog.NewParameterService(stores.TestParameters, tests, v, nil)
	patients := patient.NewService(stores.Patients, v, nil)
	ptSvc := patient.NewTestService(stores.PatientTests, patients, v)
	return &fixture{
		stores: stores,
		svc:    NewService(stores.Results, ptSvc, params, nil),
		params: params,
		tests:  tests,
	}
}

func (f *fixture) order(labID, testID int64) *model.PatientTest {
	return f.stores.PatientTests.Seed(&model.PatientTest{
		TenantBase: model.TenantBase{LabID: labID},
		PatientID:  1,
		TestID:     testID,
		Status:     model.PatientTestPending,
		Price:      100,
	})
}

func (f *fixture) status(t *testing.T, labID, id int64) string {
	t.Helper()
	pt, err := f.stores.PatientTests.Get(context.Background(), labID, id)
	require.NoError(t, err)
	return pt.Status
}

func TestService_StateMachine(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	pt := f.order(1, 99)

	_, err := f.svc.Get(ctx, 1, pt.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

	res, err := f.svc.Submit(ctx, 1, pt.ID, &model.SubmitResultRequest{Values: model.JSONMap{"hb": 13.2}, Notes: " normal "})
	require.NoError(t, err)
	assert.Equal(t, "normal", res.Notes)
	assert.Equal(t, model.PatientTestCompleted, f.status(t, 1, pt.ID))

	// completed -> completed is not a transition
	_, err = f.svc.Submit(ctx, 1, pt.ID, &model.SubmitResultRequest{Values: model.JSONMap{"hb": 14}})
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))

	got, err := f.svc.Get(ctx, 1, pt.ID)
	require.NoError(t, err)
	assert.Equal(t, 13.2, got.Values["hb"])

	require.NoError(t, f.svc.Delete(ctx, 1, pt.ID))
	assert.Equal(t, model.PatientTestPending, f.status(t, 1, pt.ID))

	err = f.svc.Delete(ctx, 1, pt.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

	_, err = f.svc.Submit(ctx, 1, pt.ID, &model.SubmitResultRequest{Values: model.JSONMap{"hb": 12.9}})
	require.NoError(t, err)
}

func TestService_OtherLabCannotTouch(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	pt := f.order(1, 99)

	_, err := f.svc.Submit(ctx, 2, pt.ID, &model.SubmitResultRequest{Values: model.JSONMap{"hb": 13}})
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
	assert.Equal(t, model.PatientTestPending, f.status(t, 1, pt.ID))

	_, err = f.svc.Submit(ctx, 1, pt.ID, &model.SubmitResultRequest{Values: model.JSONMap{"hb": 13}})
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, 2, pt.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
	err = f.svc.Delete(ctx, 2, pt.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
	assert.Equal(t, model.PatientTestCompleted, f.status(t, 1, pt.ID))
}

func TestService_ValuesMustMatchParameters(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	cbc, err := f.tests.CreateFrom(ctx, 1, &model.CreateTestRequest{Name: "CBC", Price: 400})
	require.NoError(t, err)
	_, err = f.params.CreateFor(ctx, 1, cbc.ID, &model.CreateParameterRequest{Name: "Hemoglobin"})
	require.NoError(t, err)
	pt := f.order(1, cbc.ID)

	_, err = f.svc.Submit(ctx, 1, pt.ID, &model.SubmitResultRequest{Values: model.JSONMap{"Hemoglobin": 13, "Ferritin": 40}})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))
	assert.Contains(t, err.Error(), "Ferritin")

	_, err = f.svc.Submit(ctx, 1, pt.ID, &model.SubmitResultRequest{Values: model.JSONMap{}})
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))

	_, err = f.svc.Submit(ctx, 1, pt.ID, &model.SubmitResultRequest{Values: model.JSONMap{"Hemoglobin": 13}})
	assert.NoError(t, err)
}

func TestService_ValuesCheckedAgainstEveryParameter(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	panel, err := f.tests.CreateFrom(ctx, 1, &model.CreateTestRequest{Name: "Metabolic Panel", Price: 2500})
	require.NoError(t, err)
	for i := 1; i <= model.MaxPageSize+5; i++ {
		_, err := f.params.CreateFor(ctx, 1, panel.ID, &model.CreateParameterRequest{Name: fmt.Sprintf("P%03d", i)})
		require.NoError(t, err)
	}
	pt := f.order(1, panel.ID)

	last := fmt.Sprintf("P%03d", model.MaxPageSize+5)
	_, err = f.svc.Submit(ctx, 1, pt.ID, &model.SubmitResultRequest{Values: model.JSONMap{"P001": 1, last: 2}})
	assert.NoError(t, err)
}
