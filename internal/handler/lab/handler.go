package lab

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/lab-api/internal/handler"
	"github.com/jwalitptl/lab-api/internal/middleware"
	"github.com/jwalitptl/lab-api/internal/model"
	"github.com/jwalitptl/lab-api/internal/service/lab"
	"github.com/jwalitptl/lab-api/pkg/httputil"
)

type Handler struct {
	svc *lab.Service
}

func NewHandler(svc *lab.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts setup behind requireSession, since the caller has
// no lab yet, and the rest behind requireLab.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, requireSession, requireLab gin.HandlerFunc) {
	g := r.Group("/lab")
	{
		g.POST("/setup", requireSession, h.Setup)
		g.GET("", requireLab, middleware.RequirePermission(model.ResourceLab, model.ActionView), h.Get)
		g.PUT("", requireLab, middleware.RequirePermission(model.ResourceLab, model.ActionEdit), h.Update)
	}
}

func (h *Handler) Setup(c *gin.Context) {
	var req model.LabSetupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithBindError(c, err)
		return
	}

	created, err := h.svc.Setup(c.Request.Context(), middleware.IdentityFrom(c), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, http.StatusCreated, created, "lab setup complete")
}

func (h *Handler) Get(c *gin.Context) {
	l, err := h.svc.Get(c.Request.Context(), handler.LabID(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, l)
}

func (h *Handler) Update(c *gin.Context) {
	var req model.UpdateLabRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithBindError(c, err)
		return
	}

	l, err := h.svc.Update(c.Request.Context(), handler.LabID(c), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, http.StatusOK, l, "lab updated")
}
