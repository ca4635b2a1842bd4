package user

import (
	"context"
	"strings"

	"github.com/jwalitptl/lab-api/internal/model"
	"github.com/jwalitptl/lab-api/internal/repository"
	"github.com/jwalitptl/lab-api/internal/service/audit"
	"github.com/jwalitptl/lab-api/internal/service/tenant"
	apperrors "github.com/jwalitptl/lab-api/pkg/errors"
	"github.com/jwalitptl/lab-api/pkg/security"
	"github.com/jwalitptl/lab-api/pkg/validator"
)

// Service manages the staff accounts of a lab. Emails are unique across
// every lab since they are the login key.
type Service struct {
	*tenant.Service[model.User, *model.User]
	hasher security.PasswordHasher
}

func NewService(store repository.TenantStore[model.User], hasher security.PasswordHasher, v validator.Validator, auditor audit.Recorder) *Service {
	return &Service{
		Service: tenant.New[model.User](store, tenant.Config[model.User]{
			Resource: model.AuditEntityUser,
			Unique: []tenant.UniqueRule[model.User]{{
				Scope: repository.ScopeGlobal,
				Columns: func(u *model.User) map[string]interface{} {
					return map[string]interface{}{"email": u.Email}
				},
				Message: "email already registered",
			}},
		}, v, auditor),
		hasher: hasher,
	}
}

// CreateFrom adds a staff member to labID. Permissions default to the
// role's grants when none are given.
func (s *Service) CreateFrom(ctx context.Context, labID int64, req *model.CreateUserRequest) (*model.User, error) {
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		if msg, ok := security.PolicyMessage(err); ok {
			return nil, apperrors.Validation(msg, err)
		}
		return nil, apperrors.Internal(err)
	}

	perms := req.Permissions.Clone()
	if len(perms) == 0 {
		perms = model.DefaultPermissions(req.Role)
	}

	return s.Create(ctx, labID, &model.User{
		Name:              strings.TrimSpace(req.Name),
		Email:             strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash:      hash,
		Role:              req.Role,
		IsAdmin:           req.Role == model.RoleAdmin,
		Permissions:       perms,
		HasCompletedSetup: true,
	})
}

// UpdateFrom changes a staff member. Changing the role without explicit
// permissions resets them to the new role's grants.
func (s *Service) UpdateFrom(ctx context.Context, labID, id int64, req *model.UpdateUserRequest) (*model.User, error) {
	return s.Update(ctx, labID, id, func(u *model.User) error {
		if req.Name != nil {
			u.Name = strings.TrimSpace(*req.Name)
		}
		if req.Email != nil {
			u.Email = strings.ToLower(strings.TrimSpace(*req.Email))
		}
		if req.Role != nil && *req.Role != u.Role {
			u.Role = *req.Role
			u.IsAdmin = u.Role == model.RoleAdmin
			u.Permissions = model.DefaultPermissions(u.Role)
		}
		if req.Permissions != nil {
			u.Permissions = req.Permissions.Clone()
		}
		return nil
	})
}

// Delete soft-deletes a staff member. The acting user, taken from ctx, may
// not remove their own account.
func (s *Service) Delete(ctx context.Context, labID, id int64) error {
	if actor, ok := audit.ActorFrom(ctx); ok && actor.UserID == id {
		return apperrors.Validation("you cannot delete your own account", nil)
	}
	return s.Service.Delete(ctx, labID, id)
}
