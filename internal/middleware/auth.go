package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/lab-api/internal/service/audit"
	"github.com/jwalitptl/lab-api/internal/service/auth"
	apperrors "github.com/jwalitptl/lab-api/pkg/errors"
	"github.com/jwalitptl/lab-api/pkg/httputil"
)

const ContextIdentity = "identity"

type AuthMiddleware struct {
	authenticator *auth.Authenticator
}

func NewAuthMiddleware(authenticator *auth.Authenticator) *AuthMiddleware {
	return &AuthMiddleware{authenticator: authenticator}
}

// RequireSession admits any live session, including users who have not
// set up a lab yet.
func (m *AuthMiddleware) RequireSession() gin.HandlerFunc {
	return m.resolve(m.authenticator.SessionFromRequest)
}

// RequireLab admits sessions whose user belongs to a lab. Every tenant
// route sits behind it.
func (m *AuthMiddleware) RequireLab() gin.HandlerFunc {
	return m.resolve(m.authenticator.UserFromRequest)
}

func (m *AuthMiddleware) resolve(fn func(r *http.Request) (*auth.Identity, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, err := fn(c.Request)
		if err != nil {
			httputil.RespondWithError(c, err)
			return
		}

		c.Set(ContextIdentity, ident)
		actor, ok := audit.ActorFrom(c.Request.Context())
		if !ok {
			actor = audit.Actor{RequestID: c.GetString(ContextRequestID), IPAddress: c.ClientIP()}
		}
		actor.UserID = ident.User.ID
		c.Request = c.Request.WithContext(audit.WithActor(c.Request.Context(), actor))
		c.Next()
	}
}

// RequirePermission checks that the resolved user may perform action on
// resource. It must run after RequireSession or RequireLab.
func RequirePermission(resource, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident := IdentityFrom(c)
		if ident == nil {
			httputil.RespondWithError(c, apperrors.Unauthorized(auth.MsgNotAuthenticated))
			return
		}
		if !ident.Can(resource, action) {
			httputil.RespondWithError(c, apperrors.Forbidden("you do not have permission to "+action+" "+resource))
			return
		}
		c.Next()
	}
}

// IdentityFrom returns the identity stored by the auth middleware, or nil.
func IdentityFrom(c *gin.Context) *auth.Identity {
	v, ok := c.Get(ContextIdentity)
	if !ok {
		return nil
	}
	ident, _ := v.(*auth.Identity)
	return ident
}

// LabID returns the lab of the resolved user, or 0.
func LabID(c *gin.Context) int64 {
	return IdentityFrom(c).LabID()
}
