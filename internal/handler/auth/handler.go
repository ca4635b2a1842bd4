package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/lab-api/internal/middleware"
	"github.com/jwalitptl/lab-api/internal/model"
	"github.com/jwalitptl/lab-api/internal/service/auth"
	"github.com/jwalitptl/lab-api/internal/session"
	"github.com/jwalitptl/lab-api/pkg/httputil"
)

// CookieConfig controls the session cookie.
type CookieConfig struct {
	Secure bool
	Domain string
}

type Handler struct {
	svc    *auth.Service
	cookie CookieConfig
}

func NewHandler(svc *auth.Service, cookie CookieConfig) *Handler {
	return &Handler{svc: svc, cookie: cookie}
}

// RegisterRoutes mounts the public routes under public and the session
// routes behind requireSession. limiter guards the credential endpoints.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, requireSession gin.HandlerFunc, limiter gin.HandlerFunc) {
	a := r.Group("/auth")
	{
		a.POST("/register", limiter, h.Register)
		a.POST("/login", limiter, h.Login)
		a.POST("/logout", h.Logout)
		a.GET("/me", requireSession, h.Me)
	}
}

func (h *Handler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithBindError(c, err)
		return
	}

	user, err := h.svc.Register(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithMessage(c, http.StatusCreated, model.NewCurrentUser(user), "registration successful")
}

func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithBindError(c, err)
		return
	}

	id, sess, err := h.svc.Login(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	h.setCookie(c, id, int(session.MaxAge.Seconds()))
	httputil.RespondWithMessage(c, http.StatusOK, currentUser(sess), "login successful")
}

// Logout ends only the session named by the cookie and always clears the
// cookie, even when the session has already expired.
func (h *Handler) Logout(c *gin.Context) {
	h.svc.Logout(c.Request.Context(), auth.SessionIDFromRequest(c.Request))
	h.setCookie(c, "", -1)
	httputil.RespondWithMessage(c, http.StatusOK, nil, "logged out")
}

func (h *Handler) Me(c *gin.Context) {
	ident := middleware.IdentityFrom(c)
	httputil.RespondWithSuccess(c, h.svc.Me(ident))
}

func (h *Handler) setCookie(c *gin.Context, value string, maxAge int) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     auth.CookieName,
		Value:    value,
		Path:     "/",
		Domain:   h.cookie.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func currentUser(s *session.Session) *model.CurrentUser {
	return &model.CurrentUser{
		ID:                s.UserID,
		Name:              s.Name,
		Email:             s.Email,
		Role:              s.Role,
		IsAdmin:           s.IsAdmin,
		Permissions:       s.Permissions,
		LabID:             s.LabID,
		HasCompletedSetup: s.HasCompletedSetup,
		SessionExpiresAt:  s.ExpiresAt(session.InactivityTimeout, session.MaxAge),
	}
}
