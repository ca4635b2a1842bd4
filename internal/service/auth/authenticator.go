package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/jwalitptl/lab-api/internal/model"
	"github.com/jwalitptl/lab-api/internal/repository"
	"github.com/jwalitptl/lab-api/internal/session"
	apperrors "github.com/jwalitptl/lab-api/pkg/errors"
)

// CookieName carries the session id.
const CookieName = "sessionId"

// Authentication failure messages
const (
	MsgNotAuthenticated = "not authenticated"
	MsgSessionExpired   = "session expired"
	MsgLabNotSetUp      = "lab not set up"
	MsgUserNotFound     = "user not found"
)

// UserFinder loads the persisted user row behind a session.
type UserFinder interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

// Identity is a resolved request: the live session and the current user row.
type Identity struct {
	SessionID string
	Session   *session.Session
	User      *model.User
}

// LabID returns the lab of the persisted user row, or 0.
func (i *Identity) LabID() int64 {
	if i == nil || i.User == nil || i.User.LabID == nil {
		return 0
	}
	return *i.User.LabID
}

// Can reports whether the user may perform action on resource. Admins may
// do anything within their lab.
func (i *Identity) Can(resource, action string) bool {
	if i == nil || i.User == nil {
		return false
	}
	if i.User.IsAdmin {
		return true
	}
	return i.User.Permissions.Allows(resource, action)
}

// Authenticator turns a request into an Identity. The session only names
// the user; the lab and permissions always come from the user row.
type Authenticator struct {
	sessions *session.Store
	users    UserFinder
}

func NewAuthenticator(sessions *session.Store, users UserFinder) *Authenticator {
	return &Authenticator{sessions: sessions, users: users}
}

// SessionIDFromRequest returns the sessionId cookie value, or "" when the
// cookie is missing or the header cannot be parsed.
func SessionIDFromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	c, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

// SessionFromRequest resolves the live session. Users who have not set up
// a lab yet pass this check.
func (a *Authenticator) SessionFromRequest(r *http.Request) (*Identity, error) {
	id := SessionIDFromRequest(r)
	if id == "" {
		return nil, apperrors.Unauthorized(MsgNotAuthenticated)
	}

	sess := a.sessions.Get(id)
	if sess == nil {
		return nil, apperrors.Unauthorized(MsgSessionExpired)
	}

	user, err := a.users.GetByID(r.Context(), sess.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Unauthorized(MsgUserNotFound)
		}
		return nil, apperrors.Internal(err)
	}

	return &Identity{SessionID: id, Session: sess, User: user}, nil
}

// UserFromRequest resolves the current user, who must belong to a lab.
func (a *Authenticator) UserFromRequest(r *http.Request) (*Identity, error) {
	ident, err := a.SessionFromRequest(r)
	if err != nil {
		return nil, err
	}
	if ident.LabID() == 0 {
		return nil, apperrors.Unauthorized(MsgLabNotSetUp)
	}
	return ident, nil
}

// LabIDFromRequest resolves the caller's lab from the persisted user row.
func (a *Authenticator) LabIDFromRequest(r *http.Request) (int64, error) {
	ident, err := a.UserFromRequest(r)
	if err != nil {
		return 0, err
	}
	return ident.LabID(), nil
}
