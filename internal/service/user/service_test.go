package user

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/lab-api/internal/model"
	"github.com/jwalitptl/lab-api/internal/repository/memory"
	"github.com/jwalitptl/lab-api/internal/service/audit"
	apperrors "github.com/jwalitptl/lab-api/pkg/errors"
	"github.com/jwalitptl/lab-api/pkg/security"
	"github.com/jwalitptl/lab-api/pkg/validator"
)

func newService() (*Service, *memory.Users, security.PasswordHasher) {
	users := memory.NewUsers()
	hasher := security.NewBcryptHasher(bcrypt.MinCost)
	return NewService(users, hasher, validator.New(), nil), users, hasher
}

func TestService_CreateFrom(t *testing.T) {
	svc, users, hasher := newService()
	ctx := context.Background()

	u, err := svc.CreateFrom(ctx, 1, &model.CreateUserRequest{
		Name: "Tech One", Email: "Tech@Lab.test", Password: "tech-pass-1", Role: model.RoleTechnician,
	})
	require.NoError(t, err)
	assert.Equal(t, "tech@lab.test", u.Email)
	require.NotNil(t, u.LabID)
	assert.Equal(t, int64(1), *u.LabID)
	assert.False(t, u.IsAdmin)
	assert.True(t, u.Permissions.Allows(model.ResourceResults, model.ActionCreate))
	assert.False(t, u.Permissions.Allows(model.ResourceBills, model.ActionView))
	assert.NoError(t, hasher.Compare(u.PasswordHash, "tech-pass-1"))

	found, err := users.GetByEmail(ctx, "tech@lab.test")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)
}

func TestService_EmailIsGloballyUnique(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()

	req := &model.CreateUserRequest{Name: "A", Email: "a@lab.test", Password: "a-password", Role: model.RoleManager}
	_, err := svc.CreateFrom(ctx, 1, req)
	require.NoError(t, err)

	_, err = svc.CreateFrom(ctx, 2, req)
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))
}

func TestService_RejectsShortPassword(t *testing.T) {
	svc, _, _ := newService()

	_, err := svc.CreateFrom(context.Background(), 1, &model.CreateUserRequest{
		Name: "A", Email: "a@lab.test", Password: "short", Role: model.RoleManager,
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))
}

func TestService_UpdateRoleResetsPermissions(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()

	u, err := svc.CreateFrom(ctx, 1, &model.CreateUserRequest{
		Name: "Desk", Email: "desk@lab.test", Password: "desk-pass", Role: model.RoleReceptionist,
	})
	require.NoError(t, err)
	assert.True(t, u.Permissions.Allows(model.ResourceBills, model.ActionCreate))

	role := model.RoleTechnician
	updated, err := svc.UpdateFrom(ctx, 1, u.ID, &model.UpdateUserRequest{Role: &role})
	require.NoError(t, err)
	assert.Equal(t, model.RoleTechnician, updated.Role)
	assert.False(t, updated.Permissions.Allows(model.ResourceBills, model.ActionCreate))
	assert.NotEmpty(t, updated.PasswordHash)

	custom := model.Permissions{model.ResourcePatients: {model.ActionView: true}}
	updated, err = svc.UpdateFrom(ctx, 1, u.ID, &model.UpdateUserRequest{Permissions: custom})
	require.NoError(t, err)
	assert.Equal(t, custom, updated.Permissions)

	_, err = svc.UpdateFrom(ctx, 2, u.ID, &model.UpdateUserRequest{Role: &role})
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestService_DeleteSelf(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()

	admin, err := svc.CreateFrom(ctx, 1, &model.CreateUserRequest{Name: "Admin", Email: "admin@lab.test", Password: "admin-pass", Role: model.RoleAdmin})
	require.NoError(t, err)
	staff, err := svc.CreateFrom(ctx, 1, &model.CreateUserRequest{Name: "Staff", Email: "staff@lab.test", Password: "staff-pass", Role: model.RoleTechnician})
	require.NoError(t, err)

	ctx = audit.WithActor(ctx, audit.Actor{UserID: admin.ID})

	err = svc.Delete(ctx, 1, admin.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))

	require.NoError(t, svc.Delete(ctx, 1, staff.ID))
	_, err = svc.Get(ctx, 1, staff.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

	restored, err := svc.Restore(ctx, 1, staff.ID)
	require.NoError(t, err)
	assert.Equal(t, "staff@lab.test", restored.Email)
}
