package doctor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/lab-api/internal/model"
	"github.com/jwalitptl/lab-api/internal/repository/memory"
	apperrors "github.com/jwalitptl/lab-api/pkg/errors"
	"github.com/jwalitptl/lab-api/pkg/validator"
)

func TestService_RegistrationNumberScope(t *testing.T) {
	svc := NewService(memory.NewStores().Doctors, validator.New(), nil)
	ctx := context.Background()

	req := &model.CreateDoctorRequest{Name: "Dr. Mehta", RegistrationNumber: " MCI-42 "}

	first, err := svc.CreateFrom(ctx, 1, req)
	require.NoError(t, err)
	assert.Equal(t, "MCI-42", first.RegistrationNumber)

	_, err = svc.CreateFrom(ctx, 1, req)
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))

	_, err = svc.CreateFrom(ctx, 2, req)
	assert.NoError(t, err)
}

func TestService_UpdateFrom(t *testing.T) {
	svc := NewService(memory.NewStores().Doctors, validator.New(), nil)
	ctx := context.Background()

	a, err := svc.CreateFrom(ctx, 1, &model.CreateDoctorRequest{Name: "A", RegistrationNumber: "R-1"})
	require.NoError(t, err)
	_, err = svc.CreateFrom(ctx, 1, &model.CreateDoctorRequest{Name: "B", RegistrationNumber: "R-2"})
	require.NoError(t, err)

	hospital := "General"
	updated, err := svc.UpdateFrom(ctx, 1, a.ID, &model.UpdateDoctorRequest{Hospital: &hospital})
	require.NoError(t, err)
	assert.Equal(t, "General", updated.Hospital)
	assert.Equal(t, "A", updated.Name)

	taken := "R-2"
	_, err = svc.UpdateFrom(ctx, 1, a.ID, &model.UpdateDoctorRequest{RegistrationNumber: &taken})
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))

	blank := "  "
	_, err = svc.UpdateFrom(ctx, 1, a.ID, &model.UpdateDoctorRequest{Name: &blank})
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))
}
