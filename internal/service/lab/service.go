package lab

import (
	"context"
	"errors"
	"strings"

	"github.com/jwalitptl/lab-api/internal/model"
	"github.com/jwalitptl/lab-api/internal/repository"
	"github.com/jwalitptl/lab-api/internal/service/audit"
	"github.com/jwalitptl/lab-api/internal/service/auth"
	"github.com/jwalitptl/lab-api/internal/session"
	apperrors "github.com/jwalitptl/lab-api/pkg/errors"
)

type Service struct {
	labs     repository.LabRepository
	users    repository.UserRepository
	sessions *session.Store
	auditor  audit.Recorder
}

func NewService(labs repository.LabRepository, users repository.UserRepository, sessions *session.Store, auditor audit.Recorder) *Service {
	if auditor == nil {
		auditor = audit.Nop{}
	}
	return &Service{
		labs:     labs,
		users:    users,
		sessions: sessions,
		auditor:  auditor,
	}
}

// Setup creates the caller's lab, makes them its admin and rewrites their
// session in place so the next request already carries the lab.
func (s *Service) Setup(ctx context.Context, ident *auth.Identity, req *model.LabSetupRequest) (*model.Lab, error) {
	if ident.User.HasCompletedSetup || ident.User.LabID != nil {
		return nil, apperrors.Conflict("lab setup already completed", nil)
	}

	lab := &model.Lab{
		Name:    strings.TrimSpace(req.Name),
		Address: req.Address,
		Phone:   req.Phone,
		Email:   strings.ToLower(strings.TrimSpace(req.Email)),
	}
	if lab.Name == "" {
		return nil, apperrors.Validation("name is required", nil)
	}

	perms := model.FullPermissions()
	if err := s.labs.CreateWithOwner(ctx, lab, ident.User.ID, perms); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Conflict("lab setup already completed", err)
		}
		return nil, apperrors.Internal(err)
	}

	user, err := s.users.GetByID(ctx, ident.User.ID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	ident.User = user

	if !s.sessions.Update(ident.SessionID, sessionPatch(user)) {
		return nil, apperrors.Unauthorized(auth.MsgSessionExpired)
	}

	s.auditor.Record(audit.WithActor(ctx, actorFor(ctx, user.ID)), lab.ID, model.AuditActionSetup, model.AuditEntityLab, lab.ID, model.JSONMap{"name": lab.Name})
	return lab, nil
}

func (s *Service) Get(ctx context.Context, labID int64) (*model.Lab, error) {
	lab, err := s.labs.Get(ctx, labID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("lab", err)
		}
		return nil, apperrors.Internal(err)
	}
	return lab, nil
}

func (s *Service) Update(ctx context.Context, labID int64, req *model.UpdateLabRequest) (*model.Lab, error) {
	lab, err := s.Get(ctx, labID)
	if err != nil {
		return nil, err
	}

	changes := model.JSONMap{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperrors.Validation("name must not be empty", nil)
		}
		lab.Name = name
		changes["name"] = name
	}
	if req.Address != nil {
		lab.Address = *req.Address
		changes["address"] = lab.Address
	}
	if req.Phone != nil {
		lab.Phone = *req.Phone
		changes["phone"] = lab.Phone
	}
	if req.Email != nil {
		lab.Email = strings.ToLower(strings.TrimSpace(*req.Email))
		changes["email"] = lab.Email
	}

	if err := s.labs.Update(ctx, lab); err != nil {
		return nil, apperrors.Internal(err)
	}
	s.auditor.Record(ctx, labID, model.AuditActionUpdate, model.AuditEntityLab, labID, changes)
	return lab, nil
}

func sessionPatch(u *model.User) session.Patch {
	return session.Patch{
		Role:              &u.Role,
		IsAdmin:           &u.IsAdmin,
		Permissions:       u.Permissions.Clone(),
		LabID:             u.LabID,
		HasCompletedSetup: &u.HasCompletedSetup,
	}
}

func actorFor(ctx context.Context, userID int64) audit.Actor {
	actor, _ := audit.ActorFrom(ctx)
	actor.UserID = userID
	return actor
}
