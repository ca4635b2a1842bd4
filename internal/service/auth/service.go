package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jwalitptl/lab-api/internal/model"
	"github.com/jwalitptl/lab-api/internal/repository"
	"github.com/jwalitptl/lab-api/internal/service/audit"
	"github.com/jwalitptl/lab-api/internal/session"
	apperrors "github.com/jwalitptl/lab-api/pkg/errors"
	"github.com/jwalitptl/lab-api/pkg/security"
)

var errInvalidCredentials = apperrors.Unauthorized("invalid email or password")

type Service struct {
	users    repository.UserRepository
	sessions *session.Store
	hasher   security.PasswordHasher
	auditor  audit.Recorder
}

func NewService(users repository.UserRepository, sessions *session.Store, hasher security.PasswordHasher, auditor audit.Recorder) *Service {
	if auditor == nil {
		auditor = audit.Nop{}
	}
	return &Service{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		auditor:  auditor,
	}
}

// Register creates a user with no lab. Emails are unique across all labs.
func (s *Service) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
	email := normalizeEmail(req.Email)

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Internal(err)
	}
	if existing != nil {
		return nil, apperrors.Conflict("email already registered", nil)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		if msg, ok := security.PolicyMessage(err); ok {
			return nil, apperrors.Validation(msg, err)
		}
		return nil, apperrors.Internal(err)
	}

	user := &model.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleAdmin,
		Permissions:  model.Permissions{},
	}

	if err := s.users.Register(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Conflict("email already registered", err)
		}
		return nil, apperrors.Internal(fmt.Errorf("failed to register user: %w", err))
	}
	return user, nil
}

// Login checks credentials and opens a new session. Existing sessions of
// the same user stay valid.
func (s *Service) Login(ctx context.Context, req *model.LoginRequest) (string, *session.Session, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, errInvalidCredentials
		}
		return "", nil, apperrors.Internal(err)
	}

	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		return "", nil, errInvalidCredentials
	}

	id := s.sessions.Create(SessionData(user))
	sess := s.sessions.Get(id)
	if sess == nil {
		return "", nil, apperrors.Internal(errors.New("session vanished after create"))
	}

	if user.LabID != nil {
		ctx = audit.WithActor(ctx, actorFor(ctx, user.ID))
		s.auditor.Record(ctx, *user.LabID, model.AuditActionLogin, model.AuditEntityUser, user.ID, nil)
	}
	return id, sess, nil
}

// Logout ends one session.
func (s *Service) Logout(ctx context.Context, sessionID string) {
	if sessionID == "" {
		return
	}
	if sess := s.sessions.Get(sessionID); sess != nil && sess.LabID != nil {
		ctx = audit.WithActor(ctx, actorFor(ctx, sess.UserID))
		s.auditor.Record(ctx, *sess.LabID, model.AuditActionLogout, model.AuditEntityUser, sess.UserID, nil)
	}
	s.sessions.Delete(sessionID)
}

// Me projects the resolved identity.
func (s *Service) Me(ident *Identity) *model.CurrentUser {
	cu := model.NewCurrentUser(ident.User)
	if ident.Session != nil {
		cu.SessionExpiresAt = ident.Session.ExpiresAt(session.InactivityTimeout, session.MaxAge)
	}
	return cu
}

// SessionData captures the session fields of user.
func SessionData(u *model.User) session.Data {
	return session.Data{
		UserID:            u.ID,
		Email:             u.Email,
		Name:              u.Name,
		Role:              u.Role,
		IsAdmin:           u.IsAdmin,
		Permissions:       u.Permissions.Clone(),
		LabID:             u.LabID,
		HasCompletedSetup: u.HasCompletedSetup,
	}
}

func actorFor(ctx context.Context, userID int64) audit.Actor {
	actor, _ := audit.ActorFrom(ctx)
	actor.UserID = userID
	return actor
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
